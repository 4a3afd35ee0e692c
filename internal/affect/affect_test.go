package affect

import (
	"math"
	"testing"
)

func TestLookup_AllLabels(t *testing.T) {
	for _, l := range Labels {
		if _, ok := Lookup(l); !ok {
			t.Errorf("expected %s to be known", l)
		}
	}
	if p, _ := Lookup(Fear); p.Valence != -0.7 || p.Arousal != 0.8 {
		t.Errorf("unexpected fear point %+v", p)
	}
}

func TestTarget_UnknownIsNeutral(t *testing.T) {
	if p := Target(Label("boredom")); p != (Point{}) {
		t.Errorf("expected origin, got %+v", p)
	}
}

func TestParseLabel(t *testing.T) {
	cases := map[string]bool{
		"joy":     true,
		" FEAR ":  true,
		"Sadness": true,
		"neutral": true,
		"boredom": false,
		"":        false,
	}
	for in, want := range cases {
		if _, ok := ParseLabel(in); ok != want {
			t.Errorf("ParseLabel(%q): expected %v, got %v", in, want, ok)
		}
	}
}

func TestSmooth_StrictlyApproaches(t *testing.T) {
	target, _ := Lookup(Fear)
	cur := Point{}
	prevDist := math.Inf(1)
	for i := 0; i < 50; i++ {
		cur = Smooth(cur, target, Gain)
		d := math.Hypot(cur.Valence-target.Valence, cur.Arousal-target.Arousal)
		if d >= prevDist {
			t.Fatalf("step %d: distance %f did not shrink from %f", i, d, prevDist)
		}
		prevDist = d
	}
}

func TestSmooth_SingleStep(t *testing.T) {
	got := Smooth(Point{}, Point{Valence: 1, Arousal: -1}, Gain)
	if math.Abs(got.Valence-0.15) > 1e-12 || math.Abs(got.Arousal+0.15) > 1e-12 {
		t.Errorf("unexpected step %+v", got)
	}
}
