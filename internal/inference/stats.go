package inference

import (
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TensorStats summarizes the values of one tensor.
type TensorStats struct {
	Min  float64
	Max  float64
	Mean float64
}

// Summarize returns min, max and mean of an input tensor.
func Summarize(in Input) TensorStats {
	var values []float64
	switch {
	case in.Uint8 != nil:
		values = make([]float64, len(in.Uint8))
		for i, v := range in.Uint8 {
			values[i] = float64(v)
		}
	case in.Float32 != nil:
		values = make([]float64, len(in.Float32))
		for i, v := range in.Float32 {
			values[i] = float64(v)
		}
	}
	if len(values) == 0 {
		return TensorStats{}
	}
	return TensorStats{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: stat.Mean(values, nil),
	}
}

func logInputStats(inputs []Input) {
	if !logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	for _, in := range inputs {
		s := Summarize(in)
		logger.WithFields(logrus.Fields{
			"name":  in.Spec.Name,
			"role":  in.Spec.Role,
			"dtype": in.Spec.DType,
			"min":   s.Min,
			"max":   s.Max,
			"mean":  s.Mean,
		}).Debug("Classifier input statistics")
	}
}
