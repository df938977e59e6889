package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchIsDeterministicForSeed(t *testing.T) {
	a := New(NewSampler(7)).Batch()
	b := New(NewSampler(7)).Batch()
	assert.Equal(t, a, b)
}

func TestBatchShape(t *testing.T) {
	sim := New(NewSampler(42))

	for i := 0; i < 500; i++ {
		fv := sim.Batch()

		assert.Equal(t, math.Trunc(fv.Temperature), fv.Temperature)
		assert.Equal(t, math.Trunc(fv.Pressure), fv.Pressure)
		assert.Equal(t, math.Trunc(fv.ProcessDuration), fv.ProcessDuration)
		assert.Equal(t, math.Trunc(fv.MachineLoad), fv.MachineLoad)

		assert.GreaterOrEqual(t, fv.MaterialQuality, 0.75)
		assert.LessOrEqual(t, fv.MaterialQuality, 0.95)
		assert.InDelta(t, math.Round(fv.MaterialQuality*100)/100, fv.MaterialQuality, 1e-12)
		assert.NoError(t, fv.Validate())
	}
}

func TestBatchMeans(t *testing.T) {
	sim := New(NewSampler(1))
	const n = 5000

	var temp, load float64
	for i := 0; i < n; i++ {
		fv := sim.Batch()
		temp += fv.Temperature
		load += fv.MachineLoad
	}

	// truncation toward zero shifts the mean down by about half a unit
	assert.InDelta(t, 69.5, temp/n, 0.5)
	assert.InDelta(t, 59.5, load/n, 0.6)
}

func TestRiskTrend(t *testing.T) {
	sim := New(NewSampler(3))

	for _, p := range []float64{0, 0.5, 1} {
		trend := sim.RiskTrend(p)
		assert.Len(t, trend, TrendLength)
		for _, v := range trend {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSamplerUniformRange(t *testing.T) {
	s := NewSampler(9)
	for i := 0; i < 1000; i++ {
		v := s.Uniform(0.7, 1.0)
		assert.True(t, v >= 0.7 && v < 1.0)
	}
	assert.Len(t, s.Perm(10), 10)
}
