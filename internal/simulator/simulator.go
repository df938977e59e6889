package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

// TrendLength is the number of points in a risk trend series
const TrendLength = 10

// Sampler draws from the distributions used for synthetic batches.
// It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a deterministic sampler for the seed
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSampler seeds from the clock
func NewRandomSampler() *Sampler {
	return NewSampler(uint64(time.Now().UnixNano()))
}

func (s *Sampler) Normal(mean, std float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mean + std*s.rng.NormFloat64()
}

// Uniform draws from [lo, hi)
func (s *Sampler) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + (hi-lo)*s.rng.Float64()
}

// Perm returns a random permutation of [0, n)
func (s *Sampler) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Perm(n)
}

// Simulator produces live-mode batches and risk trend series
type Simulator struct {
	sampler *Sampler
}

func New(sampler *Sampler) *Simulator {
	return &Simulator{sampler: sampler}
}

// Batch draws one batch. Integer parameters are truncated toward zero and
// material quality is rounded to two decimals.
func (s *Simulator) Batch() analysis.FeatureVector {
	return analysis.FeatureVector{
		Temperature:     math.Trunc(s.sampler.Normal(70, 5)),
		Pressure:        math.Trunc(s.sampler.Normal(30, 3)),
		ProcessDuration: math.Trunc(s.sampler.Normal(60, 10)),
		MaterialQuality: math.Round(s.sampler.Uniform(0.75, 0.95)*100) / 100,
		MachineLoad:     math.Trunc(s.sampler.Normal(60, 8)),
	}
}

// RiskTrend returns TrendLength noisy samples around p clipped to [0, 1]
func (s *Simulator) RiskTrend(p float64) []float64 {
	trend := make([]float64, TrendLength)
	for i := range trend {
		trend[i] = math.Min(1, math.Max(0, s.sampler.Normal(p, 0.05)))
	}
	return trend
}
