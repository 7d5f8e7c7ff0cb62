package decision

import (
	"fmt"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// DefaultConfidenceFloor is the minimum confidence, in percent, for a
// prediction to be accepted.
const DefaultConfidenceFloor = 40.0

// Display band lower bounds.
const (
	HighBandMin   = 80.0
	MediumBandMin = 60.0
)

const (
	messageHigh     = "High confidence. The result is reliable."
	messageMedium   = "Medium confidence. Consider a clearer photo to confirm."
	messageLow      = "Low confidence. Retaking the photo is recommended."
	messageRejected = "Confidence too low (%.1f%%). This does not appear to be a tea leaf. Try better lighting, a different angle, or a real tea leaf image."
)

// Policy applies the confidence floor to predictions. It is the
// authoritative gate: the plausibility check only warns.
type Policy struct {
	floor float64
}

// NewPolicy creates a policy with the given floor, clipped to [0,100].
func NewPolicy(floor float64) *Policy {
	return &Policy{floor: models.ClipPercent(floor)}
}

// NewDefaultPolicy creates a policy with DefaultConfidenceFloor.
func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultConfidenceFloor)
}

// Floor returns the confidence floor.
func (p *Policy) Floor() float64 {
	return p.floor
}

// Decide clips the confidence and either rejects it below the floor or
// accepts it with a display band. A rejected decision carries no label
// or distribution.
func (p *Policy) Decide(pred models.Prediction) models.Decision {
	pred.Confidence = models.ClipPercent(pred.Confidence)

	if pred.Confidence < p.floor {
		logger.WithFields(logrus.Fields{
			"label":      pred.Label,
			"confidence": pred.Confidence,
			"floor":      p.floor,
		}).Info("Prediction rejected below confidence floor")

		return models.Decision{
			State:   models.DecisionRejectedLowConfidence,
			Message: fmt.Sprintf(messageRejected, pred.Confidence),
			Prediction: models.Prediction{
				Confidence: pred.Confidence,
				Source:     pred.Source,
				Status:     pred.Status,
				Reason:     pred.Reason,
				Detail:     pred.Detail,
			},
		}
	}

	band, message := Band(pred.Confidence)
	return models.Decision{
		State:      models.DecisionAccepted,
		Band:       band,
		Message:    message,
		Prediction: pred,
	}
}

// Band buckets an accepted confidence for display.
func Band(confidence float64) (models.ConfidenceBand, string) {
	switch {
	case confidence >= HighBandMin:
		return models.BandHigh, messageHigh
	case confidence >= MediumBandMin:
		return models.BandMedium, messageMedium
	default:
		return models.BandLow, messageLow
	}
}

// Err returns a low_confidence error for a rejected decision, nil otherwise.
func Err(d models.Decision) error {
	if d.Accepted() {
		return nil
	}
	return apperrors.NewLowConfidenceError(d.Message, nil)
}
