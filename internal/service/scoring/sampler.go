package scoring

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"GlassLens/internal/domain/models"
)

// Sampler draws demo transactions. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler seeds from the clock when seed is 0.
func NewSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [lo, lo+span).
func (s *Sampler) Uniform(lo, span float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Float64()*span
}

// Gauss returns a standard normal variate (Box-Muller).
func (s *Sampler) Gauss() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gauss()
}

func (s *Sampler) gauss() float64 {
	var u, v float64
	for u == 0 {
		u = s.rng.Float64()
	}
	for v == 0 {
		v = s.rng.Float64()
	}
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}

// Features builds a vector: time in [timeLo, timeLo+timeSpan), 29 normals
// scaled by spread, then the amount in [amountLo, amountLo+amountSpan).
func (s *Sampler) Features(timeLo, timeSpan, spread, amountLo, amountSpan float64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := make([]float64, 0, models.FeatureCount)
	f = append(f, timeLo+s.rng.Float64()*timeSpan)
	for i := 0; i < models.FeatureCount-2; i++ {
		f = append(f, s.gauss()*spread)
	}
	return append(f, amountLo+s.rng.Float64()*amountSpan)
}

// RandomTransaction spans two days of elapsed time and amounts of 1 to 5000.
func (s *Sampler) RandomTransaction() []float64 {
	return s.Features(0, 172800, 1, 1, 4999)
}
