package leafgate

import (
	"fmt"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Verdict reasons.
const (
	ReasonEmptyFrame = "frame is mostly blank background"
	ReasonFaceLike   = "skin-tone region without leaf structure"
	ReasonColor      = "plant coloration"
	ReasonStructure  = "leaf-like structure"
	ReasonNoSignal   = "neither plant coloration nor leaf structure"
	ReasonSkipped    = "leaf check disabled"
)

// Band is an inclusive range in 8-bit HSV (H in [0,180]).
type Band struct {
	Lower [3]float64
	Upper [3]float64
}

// Thresholds configures the gate. Ratios are percentages of the
// non-background area, except MinNonBackground which is a percentage of the frame.
type Thresholds struct {
	Background Band
	PlantBands []Band
	Skin       Band

	MinNonBackground float64

	MinPlantRatio    float64
	MinAvgSaturation float64
	MinEdgeRatio     float64
	MinLaplacianVar  float64
	FaceMinSkinRatio float64

	BlurKernel int
	CannyLow   float64
	CannyHigh  float64
}

// DefaultThresholds tolerates green, scorched yellow and diseased brown leaves.
// The red band wraps across hue 0 and therefore needs two ranges.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Background: Band{Lower: [3]float64{0, 0, 200}, Upper: [3]float64{180, 60, 255}},
		PlantBands: []Band{
			{Lower: [3]float64{20, 25, 20}, Upper: [3]float64{95, 255, 255}},   // green
			{Lower: [3]float64{10, 25, 30}, Upper: [3]float64{45, 255, 255}},   // yellow
			{Lower: [3]float64{0, 20, 30}, Upper: [3]float64{15, 255, 255}},    // red/brown
			{Lower: [3]float64{160, 20, 30}, Upper: [3]float64{180, 255, 255}}, // red/brown, wrapped
		},
		Skin: Band{Lower: [3]float64{0, 10, 60}, Upper: [3]float64{25, 200, 255}},

		MinNonBackground: 3,

		MinPlantRatio:    12,
		MinAvgSaturation: 10,
		MinEdgeRatio:     2,
		MinLaplacianVar:  10,
		FaceMinSkinRatio: 25,

		BlurKernel: 5,
		CannyLow:   30,
		CannyHigh:  120,
	}
}

// Gate estimates whether a frame plausibly shows a leaf. It never fails:
// internal errors produce a fail-open verdict.
type Gate interface {
	Check(frame *vision.Frame) models.PlausibilityReport
}

type gate struct {
	thresholds Thresholds
}

// New creates a gate with the default thresholds
func New() Gate {
	return &gate{thresholds: DefaultThresholds()}
}

// NewWithThresholds creates a gate with custom thresholds
func NewWithThresholds(thresholds Thresholds) Gate {
	return &gate{thresholds: thresholds}
}

// Skipped is the report used when the leaf check is switched off.
func Skipped() models.PlausibilityReport {
	return models.PlausibilityReport{
		Plausible: true,
		Status:    models.PlausibilitySkipped,
		Reason:    ReasonSkipped,
	}
}

func failOpen(cause string) models.PlausibilityReport {
	logger.WithField("cause", cause).Warn("Leaf check failed, letting image through")
	return models.PlausibilityReport{
		Plausible: true,
		Status:    models.PlausibilityFailOpen,
		Reason:    cause,
	}
}

func (g *gate) Check(frame *vision.Frame) (report models.PlausibilityReport) {
	defer func() {
		if r := recover(); r != nil {
			report = failOpen(fmt.Sprintf("leaf check panicked: %v", r))
		}
	}()
	if err := frame.Validate(); err != nil {
		return failOpen(err.Error())
	}

	th := g.thresholds
	total := float64(frame.Width * frame.Height)
	hsv := vision.ToHSV(frame)

	foreground := vision.InRange(hsv, th.Background.Lower, th.Background.Upper).Not()
	fgCount := foreground.Count()
	report = models.PlausibilityReport{
		Status:             models.PlausibilityDecided,
		NonBackgroundRatio: float64(fgCount) / total * 100,
	}
	if report.NonBackgroundRatio < th.MinNonBackground {
		report.Reason = ReasonEmptyFrame
		g.log(report)
		return report
	}
	fg := float64(fgCount)

	plant := vision.NewMask(frame.Width, frame.Height)
	for _, band := range th.PlantBands {
		plant = plant.Or(vision.InRange(hsv, band.Lower, band.Upper))
	}
	report.PlantRatio = float64(plant.And(foreground).Count()) / fg * 100

	blurred := vision.GaussianBlur(vision.Gray(frame), th.BlurKernel, 0).Round8()
	edges := vision.Canny(blurred, th.CannyLow, th.CannyHigh)
	report.EdgeRatio = float64(edges.And(foreground).Count()) / fg * 100
	report.LaplacianVariance = stat.PopVariance(foreground.Select(vision.Laplacian(blurred)), nil)

	skin := vision.InRange(hsv, th.Skin.Lower, th.Skin.Upper)
	report.SkinRatio = float64(skin.And(foreground).Count()) / fg * 100
	report.AvgSaturation = stat.Mean(foreground.Select(hsv.S), nil)

	colorOK := report.PlantRatio >= th.MinPlantRatio && report.AvgSaturation >= th.MinAvgSaturation
	structOK := report.EdgeRatio >= th.MinEdgeRatio && report.LaplacianVariance >= th.MinLaplacianVar
	faceLike := report.SkinRatio >= th.FaceMinSkinRatio &&
		report.EdgeRatio < th.MinEdgeRatio && report.LaplacianVariance < th.MinLaplacianVar

	switch {
	case faceLike:
		report.Reason = ReasonFaceLike
	case colorOK:
		report.Plausible = true
		report.Reason = ReasonColor
	case structOK:
		report.Plausible = true
		report.Reason = ReasonStructure
	default:
		report.Reason = ReasonNoSignal
	}

	g.log(report)
	return report
}

func (g *gate) log(report models.PlausibilityReport) {
	logger.WithFields(logrus.Fields{
		"plausible":          report.Plausible,
		"reason":             report.Reason,
		"non_background_pct": report.NonBackgroundRatio,
		"plant_pct":          report.PlantRatio,
		"edge_pct":           report.EdgeRatio,
		"lap_var":            report.LaplacianVariance,
		"skin_pct":           report.SkinRatio,
		"avg_saturation":     report.AvgSaturation,
	}).Debug("Leaf check completed")
}
