package signals

import "math"

// #region generate

// Generate maps a tick to its signal vector and phase. It has no hidden state:
// the same tick always yields the same reading.
func Generate(tick uint64) Reading {
	t := float64(tick)

	baseline := math.Sin(t*baselineFreq)*baselineAmp + baselineOffset
	modulation := math.Cos(t*modulationFreq) * modulationAmp

	v := Vector{
		fold(math.Sin(t*entangledFreq) + entangledBias),
		fold(math.Cos(t*entangledFreq) + entangledBias),
		fold(math.Sin(t*feedbackFreq) * baseline),
		fold(math.Cos(t*feedbackFreq) * baseline),
		fold(math.Sin(t*qualicFreq) + modulation),
	}

	return Reading{Vector: v, Phase: Phase(v)}
}

// #endregion generate

// #region phase

// Phase normalizes the angle of (channel0, channel1) into [0, 1).
func Phase(v Vector) float64 {
	p := (math.Atan2(v[0], v[1]) + math.Pi) / (2 * math.Pi)
	if p >= 1 {
		// atan2 returns exactly Pi for (+0, negative); wrap onto the same angle as -Pi.
		p = 0
	}
	return p
}

// #endregion phase

// #region helpers

// Amplify scales every channel by factor, clamping each result to at most 1.
func Amplify(v Vector, factor float64) Vector {
	var out Vector
	for i, x := range v {
		out[i] = math.Min(1, x*factor)
	}
	return out
}

// Mean returns the arithmetic mean of the channels.
func Mean(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / Channels
}

// fold reduces |x| into [0, 1).
func fold(x float64) float64 {
	return math.Mod(math.Abs(x), 1.0)
}

// #endregion helpers
