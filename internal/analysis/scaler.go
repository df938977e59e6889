package analysis

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. A zero deviation leaves the column unscaled.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitStandardScaler computes per column mean and scale over rows
func FitStandardScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("cannot fit scaler on an empty dataset")
	}

	width := len(rows[0])
	mean := make([]float64, width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, width)
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// Transform scales a single row
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Mean), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		scale := s.Scale[j]
		if scale == 0 {
			scale = 1
		}
		out[j] = (v - s.Mean[j]) / scale
	}
	return out, nil
}

// TransformAll scales every row of a dataset
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
