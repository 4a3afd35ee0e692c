package signals

// #region vector

// Channels is the number of entries in a signal vector.
const Channels = 5

// Vector is one tick's channel readings. Generated entries lie in [0, 1).
type Vector [Channels]float64

// #endregion vector

// #region reading

// Reading bundles a generated vector with the phase derived from its first two channels.
type Reading struct {
	Vector Vector
	Phase  float64
}

// #endregion reading

// #region wave-constants

// Frequencies and amplitudes of the composed waves. Changing any of these changes
// every recorded journal and replay fixture.
const (
	baselineFreq   = 0.1
	baselineAmp    = 0.2
	baselineOffset = 0.5
	modulationFreq = 0.05
	modulationAmp  = 0.4

	entangledFreq = 0.2  // channels 0, 1
	entangledBias = 0.5  // channels 0, 1
	feedbackFreq  = 0.15 // channels 2, 3
	qualicFreq    = 0.1  // channel 4
)

// #endregion wave-constants
