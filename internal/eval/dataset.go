package eval

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

// Sample is one labelled image.
type Sample struct {
	Path  string `json:"path" parquet:"path" yaml:"path"`
	Label string `json:"label" parquet:"label" yaml:"label"`
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// LoadDataset reads labelled samples from a directory (one subfolder per
// label), a .parquet manifest or a .jsonl manifest. Manifest paths are
// resolved relative to the manifest. Samples with unknown labels are
// skipped. limit <= 0 loads everything.
func LoadDataset(path string, limit int) ([]Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	var raw []Sample
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case info.IsDir():
		raw, err = loadDirectory(path)
	case ext == ".parquet":
		raw, err = loadParquet(path, info.Size())
	case ext == ".jsonl" || ext == ".json":
		raw, err = loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s (supported: directory, .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}

	base := path
	if !info.IsDir() {
		base = filepath.Dir(path)
	}

	samples := make([]Sample, 0, len(raw))
	skipped := 0
	for _, s := range raw {
		label, ok := models.LookupLabel(s.Label)
		if !ok {
			skipped++
			logger.WithFields(logrus.Fields{"path": s.Path, "label": s.Label}).Debug("Skipping sample with unknown label")
			continue
		}
		s.Label = label.Name
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(base, s.Path)
		}
		samples = append(samples, s)
		if limit > 0 && len(samples) == limit {
			break
		}
	}

	logger.WithFields(logrus.Fields{
		"path":    path,
		"samples": len(samples),
		"skipped": skipped,
	}).Info("Dataset loaded")

	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset %s has no samples with known labels", path)
	}
	return samples, nil
}

func loadDirectory(root string) ([]Sample, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var samples []Sample
	for _, dir := range entries {
		if !dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dir.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			samples = append(samples, Sample{
				Path:  filepath.Join(dir.Name(), f.Name()),
				Label: dir.Name(),
			})
		}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}

func loadJSONL(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var samples []Sample
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	return samples, nil
}

func loadParquet(path string, size int64) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	pf, err := parquet.OpenFile(file, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Sample](pf)
	defer reader.Close()

	samples := make([]Sample, 0, pf.NumRows())
	rows := make([]Sample, 128)
	for {
		n, err := reader.Read(rows)
		samples = append(samples, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return samples, nil
}
