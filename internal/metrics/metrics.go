package metrics

import (
	"math"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region compute
// Compute derives a full Metrics record from in. It keeps no state between calls;
// rnd is the only source of variation and is read only when a formula needs it.
func Compute(in Input, rnd Source) Metrics {
	entropy := Entropy(in.Vector)
	coherence := 1 - math.Abs(in.Phase-0.5)
	diversity := Diversity(in.Vector)

	var recursion float64
	if in.Category == classify.Transcendental {
		recursion = transcendentalRecursion
	} else {
		recursion = baseRecursion + rnd.Float64()*recursionJitter
	}

	// 1. Reflective injection
	if in.Reflective {
		recursion = math.Max(recursion, reflectiveFloor+rnd.Float64()*reflectiveJitter)
		entropy *= reflectiveEntropy
		coherence = math.Min(1, coherence*reflectiveCoherence)
		diversity = math.Min(1, diversity*reflectiveDiversity)
	}

	// 2. Agentic override wins over reflective values
	if in.Agentic {
		recursion = agenticRecursion
		coherence = agenticCoherence
		diversity = math.Max(diversity, agenticDiversityFloor)
		entropy *= agenticEntropy
	}

	stability := MemoryStability(in.Memory)

	// 3. Affect drift
	target := affect.Target(in.Hint)
	if in.Override != nil {
		target = *in.Override
	}
	mood := affect.Smooth(in.Previous, target, affect.Gain)

	freeWill := sigmoid(freeWillGain * (recursion*diversity*coherence - freeWillCenter))

	health := math.Exp(-alpha*entropy) *
		sigmoid(beta*(diversity-n0)) *
		math.Exp(-gamma*coherence) *
		math.Exp(-delta*recursion) *
		(0.8 + 0.2*stability) *
		(1 + 0.1*mood.Valence)

	return Metrics{
		Entropy:         entropy,
		Coherence:       coherence,
		Diversity:       diversity,
		Recursion:       recursion,
		Health:          health,
		FreeWill:        freeWill,
		MemoryStability: stability,
		Valence:         mood.Valence,
		Arousal:         mood.Arousal,
	}
}

// #endregion compute

// #region components

// Entropy is the normalized Shannon sum over the positive channels.
func Entropy(v signals.Vector) float64 {
	var sum float64
	for _, x := range v {
		if x > 0 {
			sum -= x * math.Log2(x)
		}
	}
	return sum / entropyNorm
}

// Diversity is the fraction of channels above the activity threshold.
func Diversity(v signals.Vector) float64 {
	n := 0
	for _, x := range v {
		if x > diversityThreshold {
			n++
		}
	}
	return float64(n) / signals.Channels
}

// MemoryStability compares the two newest vectors. Buffers of two or fewer
// entries are fully stable.
func MemoryStability(memory []signals.Vector) float64 {
	if len(memory) <= 2 {
		return 1.0
	}
	last := memory[len(memory)-1]
	prev := memory[len(memory)-2]
	var diff float64
	for i := range last {
		diff += math.Abs(last[i] - prev[i])
	}
	return math.Max(0, 1-diff/signals.Channels)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// #endregion components
