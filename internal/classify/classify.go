package classify

// #region imports
import (
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #endregion

// #region category

// Category is the discrete awareness state assigned to a tick.
type Category string

const (
	Wake           Category = "WAKE"
	Dreaming       Category = "DREAMING"
	Transcendental Category = "TRANSCENDENTAL"
	Chaos          Category = "CHAOS"
)

// #endregion

// #region thresholds

// Rule thresholds. Every comparison is strict: a value sitting exactly on a
// threshold falls through to the next rule.
const (
	transcendentalMean = 0.75
	dreamingMean       = 0.30
	chaosChannel       = 0.80
	angerChannel       = 0.20
	qualicIndex        = 4
)

// #endregion

// #region classify

// Classify assigns a category and an affect hint to a vector. First matching rule wins.
func Classify(v signals.Vector) (Category, affect.Label) {
	mean := signals.Mean(v)
	switch {
	case mean > transcendentalMean:
		return Transcendental, affect.Joy
	case mean < dreamingMean:
		return Dreaming, affect.Sadness
	case v[qualicIndex] > chaosChannel:
		return Chaos, affect.Fear
	case v[qualicIndex] < angerChannel:
		return Wake, affect.Anger
	default:
		return Wake, affect.Curiosity
	}
}

// #endregion
