package metrics

import (
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region metrics
// Metrics is the full set of indicators computed for one tick.
type Metrics struct {
	Entropy         float64 `json:"entropy"`
	Coherence       float64 `json:"coherence"`
	Diversity       float64 `json:"diversity"`
	Recursion       float64 `json:"recursion"`
	Health          float64 `json:"health"`
	FreeWill        float64 `json:"free_will"`
	MemoryStability float64 `json:"memory_stability"`
	Valence         float64 `json:"valence"`
	Arousal         float64 `json:"arousal"`
}

// Defaults returns the metrics shown before the first tick.
func Defaults() Metrics {
	return Metrics{
		Entropy:         0.5,
		Coherence:       0.5,
		Diversity:       0.5,
		Recursion:       0.2,
		Health:          0.8,
		FreeWill:        0.1,
		MemoryStability: 1.0,
	}
}

// Affect returns the smoothed valence/arousal pair.
func (m Metrics) Affect() affect.Point {
	return affect.Point{Valence: m.Valence, Arousal: m.Arousal}
}

// #endregion metrics

// #region input
// Input carries everything one computation reads. Memory must already contain
// the current vector.
type Input struct {
	Vector     signals.Vector
	Phase      float64
	Category   classify.Category
	Hint       affect.Label
	Memory     []signals.Vector
	Reflective bool
	Agentic    bool
	Previous   affect.Point

	// Override replaces the hint-derived affect target when non-nil.
	Override *affect.Point
}

// #endregion input

// #region source
// Source supplies uniform values in [0, 1) for the recursion jitter.
// *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Fixed is a Source that always returns the same value.
type Fixed float64

// Float64 implements Source.
func (f Fixed) Float64() float64 { return float64(f) }

// #endregion source

// #region weights
const (
	entropyNorm = 3.0 // divisor for the Shannon sum over five channels

	alpha = 0.5 // entropy penalty
	beta  = 2.0 // diversity boost
	gamma = 0.3 // coherence penalty
	delta = 0.4 // recursion penalty
	n0    = 0.5 // diversity baseline

	diversityThreshold = 0.4

	transcendentalRecursion = 0.8
	baseRecursion           = 0.2
	recursionJitter         = 0.2

	reflectiveFloor       = 0.65
	reflectiveJitter      = 0.15
	reflectiveEntropy     = 0.7
	reflectiveCoherence   = 1.3
	reflectiveDiversity   = 1.2
	agenticRecursion      = 0.95
	agenticCoherence      = 0.99
	agenticDiversityFloor = 0.8
	agenticEntropy        = 0.3

	freeWillGain   = 10.0
	freeWillCenter = 0.4
)

// #endregion weights
