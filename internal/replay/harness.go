package replay

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
)

// StepInterval is the simulated wall time between step attempts.
const StepInterval = time.Second

// #region types

// CommandOutcome records a fixture command and what the engine made of it.
type CommandOutcome struct {
	Command  string
	Argument string
	Err      error
}

// ReplayResult captures one step attempt. Expected ticks the run never
// reached are appended after the last step with Missing set and Step 0.
type ReplayResult struct {
	Step     int
	Ticked   bool // false when the engine was IDLE
	Missing  bool
	Tick     uint64
	Category string
	Kind     string
	Hint     string
	Metrics  metrics.Metrics
	Commands []CommandOutcome

	// Mismatch is empty when the tick met its expectation or had none.
	Mismatch string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps       int
	Ticks            int
	Idle             int
	Categories       map[string]int
	Kinds            map[string]int
	RejectedCommands int
	Mismatches       int

	// Missing counts expected ticks never produced; each is also a mismatch.
	Missing int
	FinalMetrics     metrics.Metrics
}

// #endregion types

// #region clock

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

// #endregion clock

// #region replay

// Run drives a fresh engine through the fixture. The metrics source is seeded
// from the fixture and the clock advances StepInterval per attempt, so two runs
// of the same fixture return identical results.
func Run(f *Fixture) ([]ReplayResult, error) {
	window := time.Duration(f.AffectWindowTicks) * StepInterval
	clock := &manualClock{now: time.Unix(0, 0).UTC()}
	e := engine.New(engine.Config{
		Source:       rand.New(rand.NewSource(f.Seed)),
		Clock:        clock,
		AffectWindow: window,
	})

	byStep := make(map[int][]FixtureCommand)
	for _, c := range f.Commands {
		if c.AtStep < 1 || c.AtStep > f.Ticks {
			return nil, fmt.Errorf("command %s at step %d outside 1..%d", c.Command, c.AtStep, f.Ticks)
		}
		byStep[c.AtStep] = append(byStep[c.AtStep], c)
	}
	expected := make(map[uint64]FixtureExpectedResult, len(f.ExpectedResults))
	for _, x := range f.ExpectedResults {
		expected[x.Tick] = x
	}

	results := make([]ReplayResult, 0, f.Ticks)
	for step := 1; step <= f.Ticks; step++ {
		r := ReplayResult{Step: step}

		// 1. Commands land between ticks
		for _, c := range byStep[step] {
			err := e.Dispatch(engine.Command(c.Command), c.Argument)
			r.Commands = append(r.Commands, CommandOutcome{Command: c.Command, Argument: c.Argument, Err: err})
		}

		// 2. Step
		clock.now = clock.now.Add(StepInterval)
		r.Ticked = e.Step()
		if r.Ticked {
			p := e.Packet()
			r.Tick = p.Tick
			r.Category = string(p.Category)
			r.Kind = string(p.Kind)
			r.Hint = string(p.Hint)
			r.Metrics = e.Metrics()
			delete(expected, r.Tick)

			// 3. Compare
			if x, ok := expected[r.Tick]; ok {
				switch {
				case x.Category != "" && x.Category != r.Category:
					r.Mismatch = fmt.Sprintf("tick %d: expected category %s, got %s", r.Tick, x.Category, r.Category)
				case x.Kind != "" && x.Kind != r.Kind:
					r.Mismatch = fmt.Sprintf("tick %d: expected kind %s, got %s", r.Tick, x.Kind, r.Kind)
				}
			}
		}
		results = append(results, r)
	}

	// 4. Expectations the run never reached
	missing := make([]uint64, 0, len(expected))
	for tick := range expected {
		missing = append(missing, tick)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	for _, tick := range missing {
		results = append(results, ReplayResult{
			Tick:     tick,
			Missing:  true,
			Mismatch: fmt.Sprintf("tick %d: expected but never produced", tick),
		})
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		Categories: make(map[string]int),
		Kinds:      make(map[string]int),
	}
	for _, r := range results {
		if r.Missing {
			s.Missing++
			s.Mismatches++
			continue
		}
		s.TotalSteps++
		for _, c := range r.Commands {
			if c.Err != nil {
				s.RejectedCommands++
			}
		}
		if !r.Ticked {
			s.Idle++
			continue
		}
		s.Ticks++
		s.Categories[r.Category]++
		s.Kinds[r.Kind]++
		if r.Mismatch != "" {
			s.Mismatches++
		}
		s.FinalMetrics = r.Metrics
	}
	return s
}

// #endregion replay
