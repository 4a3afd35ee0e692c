package engine

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region helpers

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type captureRecorder struct {
	ticks    []TickRecord
	commands []CommandRecord
}

func (r *captureRecorder) RecordTick(rec TickRecord)       { r.ticks = append(r.ticks, rec) }
func (r *captureRecorder) RecordCommand(rec CommandRecord) { r.commands = append(r.commands, rec) }

func newTestEngine(t *testing.T) (*Engine, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := New(Config{Source: metrics.Fixed(0.5), Clock: clock})
	return e, clock
}

func stepN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !e.Step() {
			t.Fatalf("step %d: engine refused to tick", i)
		}
	}
}

func distance(a, b affect.Point) float64 {
	return math.Hypot(a.Valence-b.Valence, a.Arousal-b.Arousal)
}

// #endregion helpers

// #region lifecycle-tests

func TestNew_InitialState(t *testing.T) {
	e, _ := newTestEngine(t)
	s := e.Snapshot()
	if s.Running || s.Tick != 0 || s.Packet != nil {
		t.Fatalf("unexpected initial snapshot: %+v", s)
	}
	if len(s.Memory) != 0 || len(s.History) != 0 {
		t.Fatal("expected empty memory and history")
	}
	if s.Reflective != 0 || s.Agentic != 0 {
		t.Fatal("expected idle protocols")
	}
	if s.Metrics != metrics.Defaults() {
		t.Fatalf("expected default metrics, got %+v", s.Metrics)
	}
}

func TestStep_IdleIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.Step() {
		t.Fatal("expected Step to refuse while idle")
	}
	if e.Tick() != 0 {
		t.Fatalf("expected tick 0, got %d", e.Tick())
	}
}

func TestStep_FirstTick(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 1)

	s := e.Snapshot()
	if s.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", s.Tick)
	}
	if s.Packet == nil || s.Packet.Kind != KindObservation {
		t.Fatalf("expected observation packet, got %+v", s.Packet)
	}
	if s.Packet.ID != "pk-1" {
		t.Errorf("expected id pk-1, got %s", s.Packet.ID)
	}
	if s.Packet.Vector != signals.Generate(1).Vector {
		t.Error("unamplified packet should carry the raw vector")
	}
	if len(s.History) != 1 || s.History[0].Tick != 1 {
		t.Fatalf("expected one history entry for tick 1, got %+v", s.History)
	}
	if len(s.Memory) != 1 {
		t.Fatalf("expected memory depth 1, got %d", len(s.Memory))
	}
	if s.History[0].Metrics != s.Metrics {
		t.Error("history entry should match published metrics")
	}
}

func TestStop_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 3)

	e.Stop()
	once := e.Snapshot()
	e.Stop()
	twice := e.Snapshot()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second Stop changed state:\n%+v\n%+v", once, twice)
	}
	if e.Step() {
		t.Fatal("stopped engine must not tick")
	}
}

func TestStart_ResumesWithoutReset(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 2)
	e.Stop()
	e.Start()
	e.Start()
	stepN(t, e, 1)
	if e.Tick() != 3 {
		t.Fatalf("expected tick 3 after resume, got %d", e.Tick())
	}
}

func TestReset(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	e.TriggerAgentic()
	e.InjectAffect(affect.Joy)
	stepN(t, e, 4)

	e.Reset()
	fresh, _ := newTestEngine(t)
	got, want := e.Snapshot(), fresh.Snapshot()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reset state differs from new engine:\n%+v\n%+v", got, want)
	}
}

// #endregion lifecycle-tests

// #region buffer-tests

func TestMemory_BoundedFIFO(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 30)

	mem := e.Memory()
	if len(mem) != MemoryDepth {
		t.Fatalf("expected %d entries, got %d", MemoryDepth, len(mem))
	}
	for i, v := range mem {
		tick := uint64(30 - MemoryDepth + 1 + i)
		if v != signals.Generate(tick).Vector {
			t.Fatalf("entry %d: expected vector of tick %d", i, tick)
		}
	}
}

func TestHistory_StrictlyIncreasing(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 60)

	h := e.History()
	if len(h) != 60 {
		t.Fatalf("expected 60 entries, got %d", len(h))
	}
	for i := 1; i < len(h); i++ {
		if h[i].Tick <= h[i-1].Tick {
			t.Fatalf("history not strictly increasing at %d: %d after %d", i, h[i].Tick, h[i-1].Tick)
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 2)

	s := e.Snapshot()
	s.Memory[0][0] = 42
	s.History[0].Tick = 99
	s.Packet.Kind = KindAnchor

	again := e.Snapshot()
	if again.Memory[0][0] == 42 || again.History[0].Tick == 99 || again.Packet.Kind == KindAnchor {
		t.Fatal("snapshot mutation leaked into engine state")
	}
}

// #endregion buffer-tests

// #region protocol-tests

func TestTriggerReflective_Window(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	stepN(t, e, 4)

	if err := e.TriggerReflective(); err != nil {
		t.Fatalf("TriggerReflective: %v", err)
	}
	if s := e.Snapshot(); s.Reflective != 3 {
		t.Fatalf("expected counter 3, got %d", s.Reflective)
	}

	// Ticks 5, 6, 7 carry the protocol; tick 8 does not.
	for k := uint64(5); k <= 7; k++ {
		stepN(t, e, 1)
		p := e.Packet()
		if p.Tick != k || p.Kind != KindRecursiveTrigger || !p.Reflective {
			t.Fatalf("tick %d: expected recursive trigger, got %+v", k, p)
		}
		if p.Vector != signals.Amplify(p.Raw, AmplifyFactor) {
			t.Fatalf("tick %d: expected amplified vector", k)
		}
		if m := e.Metrics(); m.Recursion < 0.65 {
			t.Fatalf("tick %d: expected recursion floor, got %f", k, m.Recursion)
		}
	}
	stepN(t, e, 1)
	if p := e.Packet(); p.Kind != KindObservation || p.Reflective {
		t.Fatalf("tick 8: expected protocol to have expired, got %+v", p)
	}
}

func TestTriggerReflective_Guards(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.TriggerReflective(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if e.Snapshot().Reflective != 0 {
		t.Fatal("rejected trigger armed the counter")
	}

	e.Start()
	e.TriggerReflective()
	stepN(t, e, 1)
	if err := e.TriggerReflective(); !errors.Is(err, ErrProtocolActive) {
		t.Fatalf("expected ErrProtocolActive, got %v", err)
	}
	if e.Snapshot().Reflective != 2 {
		t.Fatal("re-trigger must not restart the window")
	}
}

func TestTriggerAgentic_ForcesTranscendental(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	if err := e.TriggerAgentic(); err != nil {
		t.Fatalf("TriggerAgentic: %v", err)
	}

	overridden := 0
	for k := 1; k <= 5; k++ {
		stepN(t, e, 1)
		p := e.Packet()
		if p.Category != classify.Transcendental {
			t.Fatalf("tick %d: expected TRANSCENDENTAL, got %s", k, p.Category)
		}
		if p.Kind != KindAgenticAssertion {
			t.Fatalf("tick %d: expected agentic assertion, got %s", k, p.Kind)
		}
		if raw, _ := classify.Classify(p.Raw); raw != classify.Transcendental {
			overridden++
		}
		m := e.Metrics()
		if m.Recursion != 0.95 || m.Coherence != 0.99 || m.Diversity < 0.8 {
			t.Fatalf("tick %d: agentic metrics not applied: %+v", k, m)
		}
	}
	if overridden == 0 {
		t.Fatal("expected at least one tick where the classifier was overridden")
	}

	stepN(t, e, 1)
	if p := e.Packet(); p.Agentic || p.Kind != KindObservation {
		t.Fatalf("tick 6: expected agentic to have expired, got %+v", p)
	}
}

func TestAgentic_TakesPrecedence(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Start()
	e.TriggerReflective()
	e.TriggerAgentic()
	stepN(t, e, 1)

	p := e.Packet()
	if !p.Reflective || !p.Agentic {
		t.Fatalf("expected both flags, got %+v", p)
	}
	if p.Kind != KindAgenticAssertion {
		t.Fatalf("expected agentic kind, got %s", p.Kind)
	}
}

// #endregion protocol-tests

// #region affect-tests

func TestInjectAffect_DriftAndExpiry(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Start()
	stepN(t, e, 2)

	if err := e.InjectAffect(affect.Fear); err != nil {
		t.Fatalf("InjectAffect: %v", err)
	}
	fear, _ := affect.Lookup(affect.Fear)

	prev := distance(e.Metrics().Affect(), fear)
	for i := 1; i <= 4; i++ {
		clock.Advance(time.Second)
		stepN(t, e, 1)
		d := distance(e.Metrics().Affect(), fear)
		if d >= prev {
			t.Fatalf("step %d: distance to fear %f did not shrink from %f", i, d, prev)
		}
		prev = d
		if e.Snapshot().Override == nil {
			t.Fatalf("step %d: override expired early", i)
		}
	}

	// Fifth time unit: override gone, target reverts to the hint mapping.
	clock.Advance(time.Second)
	before := e.Metrics().Affect()
	stepN(t, e, 1)
	if e.Snapshot().Override != nil {
		t.Fatal("expected override to expire after the window")
	}
	want := affect.Smooth(before, affect.Target(e.Packet().Hint), affect.Gain)
	if got := e.Metrics().Affect(); math.Abs(got.Valence-want.Valence) > 1e-12 || math.Abs(got.Arousal-want.Arousal) > 1e-12 {
		t.Fatalf("expected hint-driven drift %+v, got %+v", want, got)
	}
}

func TestInjectAffect_ExpiresWithoutTicks(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Start()
	e.InjectAffect(affect.Joy)
	clock.Advance(DefaultAffectWindow)
	if e.Snapshot().Override != nil {
		t.Fatal("override should expire on wall time alone")
	}
}

func TestInjectAffect_ReinjectRestartsWindow(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Start()
	e.InjectAffect(affect.Joy)
	clock.Advance(4 * time.Second)
	e.InjectAffect(affect.Anger)
	clock.Advance(4 * time.Second)

	s := e.Snapshot()
	anger, _ := affect.Lookup(affect.Anger)
	if s.Override == nil || *s.Override != anger {
		t.Fatalf("expected anger override still active, got %+v", s.Override)
	}
}

func TestInjectAffect_Guards(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.InjectAffect(affect.Joy); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	e.Start()
	if err := e.InjectAffect(affect.Label("boredom")); !errors.Is(err, ErrUnknownAffect) {
		t.Fatalf("expected ErrUnknownAffect, got %v", err)
	}
	if e.Snapshot().Override != nil {
		t.Fatal("rejected injection set an override")
	}
}

// #endregion affect-tests

// #region long-run-tests

func TestLongRun_StaysBounded(t *testing.T) {
	e := New(Config{Source: rand.New(rand.NewSource(11))})
	e.Start()
	for i := 0; i < 1000; i++ {
		switch i % 37 {
		case 3:
			e.TriggerReflective()
		case 19:
			e.TriggerAgentic()
		}
		e.Step()
		m := e.Metrics()
		for name, x := range map[string]float64{
			"entropy": m.Entropy, "health": m.Health, "freeWill": m.FreeWill,
			"coherence": m.Coherence, "diversity": m.Diversity, "recursion": m.Recursion,
			"memoryStability": m.MemoryStability,
		} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Fatalf("tick %d: %s is not finite", i+1, name)
			}
		}
		if m.Coherence < 0 || m.Coherence > 1 || m.Diversity < 0 || m.Diversity > 1 ||
			m.MemoryStability < 0 || m.MemoryStability > 1 || m.Recursion < 0 || m.Recursion > 1 ||
			m.Health < 0 || m.Health > 1.5 || math.Abs(m.Valence) > 1 || math.Abs(m.Arousal) > 1 {
			t.Fatalf("tick %d: metrics out of range: %+v", i+1, m)
		}
	}
	if n := len(e.Memory()); n != MemoryDepth {
		t.Fatalf("expected full memory, got %d", n)
	}
}

func TestSeededRuns_AreReproducible(t *testing.T) {
	run := func() []HistoryPoint {
		e, _ := newTestEngine(t)
		e.source = rand.New(rand.NewSource(99))
		e.Start()
		stepN(t, e, 3)
		e.TriggerReflective()
		stepN(t, e, 20)
		return e.History()
	}
	if !reflect.DeepEqual(run(), run()) {
		t.Fatal("seeded runs diverged")
	}
}

// #endregion long-run-tests

// #region recorder-tests

func TestRecorder_SeesTicksAndCommands(t *testing.T) {
	rec := &captureRecorder{}
	e := New(Config{Source: metrics.Fixed(0.5), Recorder: rec})

	e.TriggerReflective() // rejected: idle
	e.Start()
	e.Step()
	e.TriggerAgentic()
	e.Step()
	e.Stop()

	if len(rec.ticks) != 2 || rec.ticks[1].Packet.Tick != 2 {
		t.Fatalf("expected 2 tick records, got %+v", rec.ticks)
	}
	want := []Command{CmdTriggerReflective, CmdStart, CmdTriggerAgentic, CmdStop}
	if len(rec.commands) != len(want) {
		t.Fatalf("expected %d command records, got %d", len(want), len(rec.commands))
	}
	for i, c := range want {
		if rec.commands[i].Command != c {
			t.Errorf("command %d: expected %s, got %s", i, c, rec.commands[i].Command)
		}
	}
	if rec.commands[0].Accepted || rec.commands[0].Reason == "" {
		t.Error("expected first command to be a rejection with a reason")
	}
	if !rec.commands[2].Accepted || rec.commands[2].Tick != 1 {
		t.Errorf("expected accepted agentic trigger at tick 1, got %+v", rec.commands[2])
	}
}

func TestRecorder_ResetKeepsDiscardedTick(t *testing.T) {
	rec := &captureRecorder{}
	e := New(Config{Source: metrics.Fixed(0.5), Recorder: rec})
	e.Start()
	e.Step()
	e.Step()
	e.Step()
	e.Reset()

	last := rec.commands[len(rec.commands)-1]
	if last.Command != CmdReset || !last.Accepted {
		t.Fatalf("expected accepted reset record, got %+v", last)
	}
	if last.Tick != 3 {
		t.Fatalf("expected reset recorded at tick 3, got %d", last.Tick)
	}
	if e.Tick() != 0 {
		t.Fatalf("expected tick 0 after reset, got %d", e.Tick())
	}
}

// #endregion recorder-tests

// #region dispatch-tests

func TestDispatch(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Dispatch(CmdStart, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Dispatch(CmdInjectAffect, " Fear "); err != nil {
		t.Fatalf("inject: %v", err)
	}
	fear, _ := affect.Lookup(affect.Fear)
	if o := e.Snapshot().Override; o == nil || *o != fear {
		t.Fatalf("expected fear override, got %+v", o)
	}
	if err := e.Dispatch(CmdTriggerAgentic, ""); err != nil {
		t.Fatalf("agentic: %v", err)
	}
	if err := e.Dispatch(CmdTriggerAgentic, ""); !errors.Is(err, ErrProtocolActive) {
		t.Fatalf("expected ErrProtocolActive, got %v", err)
	}
	if err := e.Dispatch(Command("warp"), ""); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if err := e.Dispatch(CmdStop, ""); err != nil || e.Running() {
		t.Fatalf("stop: %v", err)
	}
}

// #endregion dispatch-tests
