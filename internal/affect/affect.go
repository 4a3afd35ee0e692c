// Package affect holds the (valence, arousal) plane the engine drifts across.
package affect

import "strings"

// #region label

// Label names a discrete affect.
type Label string

const (
	Joy       Label = "joy"
	Fear      Label = "fear"
	Curiosity Label = "curiosity"
	Sadness   Label = "sadness"
	Anger     Label = "anger"
	Neutral   Label = "neutral"
)

// Labels lists every known label in display order.
var Labels = []Label{Joy, Curiosity, Fear, Anger, Sadness, Neutral}

// ParseLabel resolves a case-insensitive name to a known Label.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	_, ok := table[l]
	return l, ok
}

// #endregion label

// #region point

// Point is a position on the valence/arousal plane. Both axes lie in [-1, 1].
type Point struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

var table = map[Label]Point{
	Joy:       {Valence: 0.8, Arousal: 0.7},
	Fear:      {Valence: -0.7, Arousal: 0.8},
	Curiosity: {Valence: 0.6, Arousal: 0.4},
	Sadness:   {Valence: -0.8, Arousal: -0.6},
	Anger:     {Valence: -0.9, Arousal: 0.9},
	Neutral:   {Valence: 0, Arousal: 0},
}

// Lookup returns the target point for a label.
func Lookup(l Label) (Point, bool) {
	p, ok := table[l]
	return p, ok
}

// Target returns the point for l, falling back to the neutral origin for unknown labels.
func Target(l Label) Point {
	if p, ok := table[l]; ok {
		return p
	}
	return table[Neutral]
}

// #endregion point

// #region smoothing

// Gain is the exponential moving average weight applied per tick.
const Gain = 0.15

// Smooth moves prev a fraction gain of the way toward target.
func Smooth(prev, target Point, gain float64) Point {
	return Point{
		Valence: prev.Valence + gain*(target.Valence-prev.Valence),
		Arousal: prev.Arousal + gain*(target.Arousal-prev.Arousal),
	}
}

// #endregion smoothing
