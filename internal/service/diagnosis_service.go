package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/analyzer"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/decision"
	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/features"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/leafgate"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/observer"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/preprocess"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/repository"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/saliency"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/strategy"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Warnings attached to a diagnosis that still went ahead.
const (
	WarningNotLeaf         = "This does not look like a tea leaf. Proceeding; the confidence threshold will decide."
	WarningLeafCheckFailed = "The leaf check could not run and was bypassed."
	WarningDegraded        = "The classifier result is degraded: %s."
)

// DiagnosisService runs the leaf diagnosis pipeline
type DiagnosisService interface {
	// DiagnoseImage diagnoses an already decoded image
	DiagnoseImage(ctx context.Context, img image.Image, opts DiagnoseOptions) (*models.DiagnosisResponse, error)

	// DiagnoseSource fetches an image from a URL or path and diagnoses it
	DiagnoseSource(ctx context.Context, source string, opts DiagnoseOptions) (*models.DiagnosisResponse, error)

	// AssessQuality runs only the quality check
	AssessQuality(ctx context.Context, img image.Image) (models.QualityReport, error)

	// RenderHeatmap preprocesses img and returns the saliency overlay
	RenderHeatmap(ctx context.Context, img image.Image) (image.Image, error)

	// DescribeModel reports the classifier contract
	DescribeModel() (models.ModelInfo, error)

	// ValidateImageURL checks a source without fetching it
	ValidateImageURL(source string) error
}

// DiagnoseOptions are per-request switches.
type DiagnoseOptions struct {
	Source        string
	Heatmap       bool
	SkipLeafCheck bool
}

// Options are process-wide pipeline settings.
type Options struct {
	EnforceQuality    bool
	SkipLeafCheck     bool
	MaxImageDimension int
	HeatmapAlpha      float64
}

// Stages groups the pipeline components.
type Stages struct {
	Quality      analyzer.QualityAssessor
	Preprocessor preprocess.Preprocessor
	Gate         leafgate.Gate
	Extractor    features.Extractor
	Predictor    *strategy.PredictionContext
	Policy       *decision.Policy
	Saliency     saliency.Renderer
}

// DefaultStages builds the standard stages around a predictor.
func DefaultStages(predictor *strategy.PredictionContext, floor float64) Stages {
	return Stages{
		Quality:      analyzer.NewQualityAssessor(),
		Preprocessor: preprocess.NewPreprocessor(),
		Gate:         leafgate.New(),
		Extractor:    features.NewExtractor(),
		Predictor:    predictor,
		Policy:       decision.NewPolicy(floor),
		Saliency:     saliency.NewRenderer(),
	}
}

type diagnosisService struct {
	repo      repository.ImageRepository
	stages    Stages
	opts      Options
	publisher observer.Subject
}

// NewDiagnosisService creates a new diagnosis service
func NewDiagnosisService(repo repository.ImageRepository, stages Stages, opts Options, publisher observer.Subject) DiagnosisService {
	if opts.HeatmapAlpha <= 0 {
		opts.HeatmapAlpha = saliency.DefaultAlpha
	}
	if publisher == nil {
		publisher = observer.NewEventPublisher()
	}
	return &diagnosisService{
		repo:      repo,
		stages:    stages,
		opts:      opts,
		publisher: publisher,
	}
}

func (s *diagnosisService) ValidateImageURL(source string) error {
	if s.repo == nil {
		return apperrors.NewValidationError("No image sources are configured", nil)
	}
	return s.repo.ValidateImageURL(source)
}

func (s *diagnosisService) DiagnoseSource(ctx context.Context, source string, opts DiagnoseOptions) (*models.DiagnosisResponse, error) {
	if err := s.ValidateImageURL(source); err != nil {
		return nil, err
	}

	start := time.Now()
	img, err := s.repo.FetchImage(ctx, source)
	if err != nil {
		s.publisher.NotifyObservers(ctx, observer.DiagnosisEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}
	s.publisher.NotifyObservers(ctx, observer.DiagnosisEvent{
		EventType:      observer.ImageFetched,
		Source:         source,
		ProcessingTime: time.Since(start),
	})

	opts.Source = source
	return s.DiagnoseImage(ctx, img, opts)
}

// DiagnoseImage runs quality → preprocess → leaf check → features →
// prediction → decision, and renders the heatmap on request. A rejected
// decision is returned as a response, not an error.
func (s *diagnosisService) DiagnoseImage(ctx context.Context, img image.Image, opts DiagnoseOptions) (*models.DiagnosisResponse, error) {
	start := time.Now()
	id := uuid.NewString()
	log := logger.WithFields(logrus.Fields{"diagnosis_id": id, "source": opts.Source})

	s.publisher.NotifyObservers(ctx, observer.DiagnosisEvent{
		EventType:   observer.DiagnosisStarted,
		DiagnosisID: id,
		Source:      opts.Source,
	})
	fail := func(err error) (*models.DiagnosisResponse, error) {
		s.publisher.NotifyObservers(ctx, observer.DiagnosisEvent{
			EventType:      observer.DiagnosisFailed,
			DiagnosisID:    id,
			Source:         opts.Source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	frame, err := s.ingest(img)
	if err != nil {
		return fail(err)
	}

	// Quality and the leaf check measure the capture at full resolution.
	quality := s.stages.Quality.Assess(frame)
	if s.opts.EnforceQuality && !quality.Acceptable {
		return fail(apperrors.NewDegenerateImageError("Image quality is too low to diagnose", nil).
			WithDetails(fmt.Sprintf("score %d", quality.Score)))
	}

	pre, err := s.preprocess(frame)
	if err != nil {
		return fail(err)
	}

	var plausibility models.PlausibilityReport
	if s.opts.SkipLeafCheck || opts.SkipLeafCheck {
		plausibility = leafgate.Skipped()
	} else {
		// The gate reads the raw frame; CLAHE would inflate edges on blank backgrounds.
		plausibility = s.stages.Gate.Check(frame)
	}

	set, err := s.stages.Extractor.Extract(pre)
	if err != nil {
		return fail(apperrors.NewProcessingError("Failed to extract features", err))
	}
	if err := ctx.Err(); err != nil {
		return fail(apperrors.NewTimeoutError("Diagnosis cancelled", err))
	}

	pred, err := s.stages.Predictor.ExecutePrediction(ctx, set)
	if err != nil {
		return fail(err)
	}

	d := s.stages.Policy.Decide(pred)

	resp := &models.DiagnosisResponse{
		ID:              id,
		Source:          opts.Source,
		Timestamp:       start.UTC(),
		Width:           frame.Width,
		Height:          frame.Height,
		Mode:            pred.Source,
		Quality:         quality,
		Plausibility:    plausibility,
		Outcome:         d.State,
		Message:         d.Message,
		Confidence:      d.Prediction.Confidence,
		InferenceStatus: pred.Status,
		InferenceReason: pred.Reason,
		Warnings:        warnings(quality, plausibility, pred),
	}

	if pred.Degraded() {
		s.publisher.NotifyObservers(ctx, observer.DiagnosisEvent{
			EventType:   observer.DiagnosisDegraded,
			DiagnosisID: id,
			Metadata:    map[string]interface{}{"reason": pred.Reason},
		})
	}

	if d.Accepted() {
		info, _ := models.LookupLabel(d.Prediction.Label)
		resp.Label = d.Prediction.Label
		resp.DisplayName = info.DisplayName
		resp.Severity = info.Severity
		resp.ConfidenceBand = d.Band
		resp.Distribution = d.Prediction.Distribution.Scores()

		if opts.Heatmap {
			heatmap, err := s.renderOverlay(pre)
			if err != nil {
				log.WithError(err).Warn("Heatmap rendering failed")
				resp.Warnings = append(resp.Warnings, "Heatmap could not be rendered.")
			} else {
				resp.Heatmap, err = saliency.Embed(heatmap)
				if err != nil {
					log.WithError(err).Warn("Heatmap encoding failed")
				}
			}
		}
	}

	elapsed := time.Since(start)
	resp.ProcessingTimeSec = elapsed.Seconds()

	event := observer.DiagnosisEvent{
		EventType:      observer.DiagnosisCompleted,
		DiagnosisID:    id,
		Source:         opts.Source,
		ProcessingTime: elapsed,
		Label:          resp.Label,
		Confidence:     resp.Confidence,
		Metadata:       map[string]interface{}{"mode": string(pred.Source)},
	}
	if !d.Accepted() {
		event.EventType = observer.DiagnosisRejected
	}
	s.publisher.NotifyObservers(ctx, event)

	return resp, nil
}

func (s *diagnosisService) AssessQuality(ctx context.Context, img image.Image) (models.QualityReport, error) {
	frame, err := s.ingest(img)
	if err != nil {
		return models.QualityReport{}, err
	}
	return s.stages.Quality.Assess(frame), nil
}

func (s *diagnosisService) RenderHeatmap(ctx context.Context, img image.Image) (image.Image, error) {
	frame, err := s.ingest(img)
	if err != nil {
		return nil, err
	}
	pre, err := s.preprocess(frame)
	if err != nil {
		return nil, err
	}
	out, err := s.renderOverlay(pre)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to render heatmap", err)
	}
	return out, nil
}

func (s *diagnosisService) DescribeModel() (models.ModelInfo, error) {
	return s.stages.Predictor.Describe(features.InputSize, features.InputSize)
}

func (s *diagnosisService) ingest(img image.Image) (*vision.Frame, error) {
	frame, err := vision.FromImage(img)
	if err != nil {
		return nil, apperrors.NewValidationError("Image could not be read", err)
	}
	return frame, nil
}

// preprocess bounds the frame to MaxImageDimension before denoising.
func (s *diagnosisService) preprocess(frame *vision.Frame) (*vision.Frame, error) {
	bounded, err := frame.Bound(s.opts.MaxImageDimension)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to resize image", err)
	}
	pre, err := s.stages.Preprocessor.Preprocess(bounded)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to preprocess image", err)
	}
	return pre, nil
}

func (s *diagnosisService) renderOverlay(pre *vision.Frame) (image.Image, error) {
	heat, err := s.stages.Saliency.Render(pre)
	if err != nil {
		return nil, err
	}
	return saliency.Overlay(pre, heat, s.opts.HeatmapAlpha)
}

func warnings(q models.QualityReport, p models.PlausibilityReport, pred models.Prediction) []string {
	var out []string
	if !q.Acceptable {
		out = append(out, validation.ConvertIssuesToMessages(q.Issues)...)
	}
	switch {
	case p.Status == models.PlausibilityFailOpen:
		out = append(out, WarningLeafCheckFailed)
	case !p.Plausible:
		out = append(out, WarningNotLeaf)
	}
	if pred.Degraded() {
		out = append(out, fmt.Sprintf(WarningDegraded, pred.Reason))
	}
	return out
}
