package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/effects"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region config

// Config wires the engine's collaborators. Zero fields get defaults.
type Config struct {
	Source       metrics.Source
	Clock        Clock
	AffectWindow time.Duration
	Recorder     Recorder
	Logger       *zap.Logger
}

// #endregion config

// #region engine-struct

// Engine owns all simulation state. Every method is safe for concurrent use;
// each call observes and leaves the state in a consistent form.
type Engine struct {
	mu sync.Mutex

	source   metrics.Source
	clock    Clock
	window   time.Duration
	recorder Recorder
	logger   *zap.Logger

	running bool
	tick    uint64
	table   *effects.Table
	memory  []signals.Vector
	history []HistoryPoint
	packet  *Packet
	current metrics.Metrics

	override      *affect.Point
	overrideUntil time.Time
}

// New returns an idle engine at tick 0.
func New(cfg Config) *Engine {
	if cfg.Source == nil {
		cfg.Source = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.AffectWindow <= 0 {
		cfg.AffectWindow = DefaultAffectWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		source:   cfg.Source,
		clock:    cfg.Clock,
		window:   cfg.AffectWindow,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		table:    effects.NewTable(),
		memory:   make([]signals.Vector, 0, MemoryDepth),
		current:  metrics.Defaults(),
	}
}

// #endregion engine-struct

// #region lifecycle

// Start moves the engine to RUNNING. Starting a running engine does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.command(CmdStart, "", errors.New("already running"))
		return
	}
	e.running = true
	e.command(CmdStart, "", nil)
}

// Stop moves the engine to IDLE. Stopping an idle engine does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		e.command(CmdStop, "", errors.New("already stopped"))
		return
	}
	e.running = false
	e.command(CmdStop, "", nil)
}

// Reset is a full restart: IDLE, tick 0, empty memory and history, idle protocols,
// default metrics.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Recorded against the tick being discarded.
	e.command(CmdReset, "", nil)
	e.running = false
	e.tick = 0
	e.table.Reset()
	e.memory = e.memory[:0]
	e.history = nil
	e.packet = nil
	e.current = metrics.Defaults()
	e.override = nil
	e.overrideUntil = time.Time{}
}

// Running reports whether ticks are being accepted.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// #endregion lifecycle

// #region commands

// TriggerReflective arms the reflective-injection protocol for 3 ticks.
func (e *Engine) TriggerReflective() error {
	return e.trigger(CmdTriggerReflective, effects.Reflective)
}

// TriggerAgentic arms the agentic-override protocol for 5 ticks.
func (e *Engine) TriggerAgentic() error {
	return e.trigger(CmdTriggerAgentic, effects.Agentic)
}

func (e *Engine) trigger(cmd Command, p effects.Protocol) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return e.command(cmd, "", ErrNotRunning)
	}
	if err := e.table.Trigger(p); err != nil {
		if errors.Is(err, effects.ErrActive) {
			err = ErrProtocolActive
		}
		return e.command(cmd, "", err)
	}
	return e.command(cmd, "", nil)
}

// InjectAffect overrides the affect target with label's point for the configured
// wall-clock window. Injecting again replaces the override and restarts the window.
func (e *Engine) InjectAffect(label affect.Label) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return e.command(CmdInjectAffect, string(label), ErrNotRunning)
	}
	p, ok := affect.Lookup(label)
	if !ok {
		return e.command(CmdInjectAffect, string(label), fmt.Errorf("%w: %q", ErrUnknownAffect, label))
	}
	e.override = &p
	e.overrideUntil = e.clock.Now().Add(e.window)
	return e.command(CmdInjectAffect, string(label), nil)
}

// Dispatch applies a named command. Start, Stop and Reset never fail.
func (e *Engine) Dispatch(cmd Command, arg string) error {
	switch cmd {
	case CmdStart:
		e.Start()
	case CmdStop:
		e.Stop()
	case CmdReset:
		e.Reset()
	case CmdTriggerReflective:
		return e.TriggerReflective()
	case CmdTriggerAgentic:
		return e.TriggerAgentic()
	case CmdInjectAffect:
		label, _ := affect.ParseLabel(arg)
		return e.InjectAffect(label)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return nil
}

// command notifies the recorder and returns err unchanged. Caller holds mu.
func (e *Engine) command(cmd Command, arg string, err error) error {
	rec := CommandRecord{
		Tick:     e.tick,
		Command:  cmd,
		Argument: arg,
		Accepted: err == nil,
		At:       e.clock.Now(),
	}
	if err != nil {
		rec.Reason = err.Error()
		e.logger.Debug("command rejected",
			zap.String("command", string(cmd)),
			zap.String("argument", arg),
			zap.Uint64("tick", e.tick),
			zap.Error(err))
	}
	if e.recorder != nil {
		e.recorder.RecordCommand(rec)
	}
	return err
}

// #endregion commands

// #region step

// Step advances one tick. It returns false, changing nothing, while IDLE.
func (e *Engine) Step() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return false
	}

	// 1. Protocol flags as they stood before this tick's decrement
	active := e.table.Advance()

	// 2-3. Advance time and sample
	e.tick++
	reading := signals.Generate(e.tick)

	// 4. Classify; agentic overrides the classifier
	category, hint := classify.Classify(reading.Vector)
	if active.Agentic {
		category = classify.Transcendental
	}
	kind := KindObservation
	switch {
	case active.Agentic:
		kind = KindAgenticAssertion
	case active.Reflective:
		kind = KindRecursiveTrigger
	}

	// 5. Amplify while any protocol runs
	vec := reading.Vector
	if active.Any() {
		vec = signals.Amplify(vec, AmplifyFactor)
	}

	// 6. Packet
	now := e.clock.Now()
	pkt := Packet{
		ID:         fmt.Sprintf("pk-%d", e.tick),
		Tick:       e.tick,
		Timestamp:  now,
		Kind:       kind,
		Vector:     vec,
		Raw:        reading.Vector,
		Phase:      reading.Phase,
		Category:   category,
		Hint:       hint,
		Reflective: active.Reflective,
		Agentic:    active.Agentic,
	}

	// 7. Memory, oldest evicted first
	if len(e.memory) == MemoryDepth {
		copy(e.memory, e.memory[1:])
		e.memory = e.memory[:MemoryDepth-1]
	}
	e.memory = append(e.memory, vec)

	// 8. Metrics
	m := metrics.Compute(metrics.Input{
		Vector:     pkt.Vector,
		Phase:      pkt.Phase,
		Category:   pkt.Category,
		Hint:       pkt.Hint,
		Memory:     e.memory,
		Reflective: active.Reflective,
		Agentic:    active.Agentic,
		Previous:   e.current.Affect(),
		Override:   e.activeOverride(now),
	}, e.source)

	// 9. History, one entry per tick
	if n := len(e.history); n == 0 || e.history[n-1].Tick != e.tick {
		e.history = append(e.history, HistoryPoint{Tick: e.tick, Metrics: m, Category: category})
	}

	// 10. Publish
	e.packet = &pkt
	e.current = m

	if e.recorder != nil {
		e.recorder.RecordTick(TickRecord{Packet: pkt, Metrics: m})
	}
	return true
}

// activeOverride clears an expired override and returns the live one. Caller holds mu.
func (e *Engine) activeOverride(now time.Time) *affect.Point {
	if e.override != nil && !now.Before(e.overrideUntil) {
		e.override = nil
		e.overrideUntil = time.Time{}
	}
	return e.override
}

// #endregion step

// #region observers

// Snapshot copies every observable output.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Running:    e.running,
		Tick:       e.tick,
		Metrics:    e.current,
		Memory:     e.copyMemory(),
		History:    e.copyHistory(),
		Reflective: e.table.Remaining(effects.Reflective),
		Agentic:    e.table.Remaining(effects.Agentic),
	}
	if e.packet != nil {
		p := *e.packet
		s.Packet = &p
	}
	if o := e.activeOverride(e.clock.Now()); o != nil {
		p := *o
		s.Override = &p
		s.OverrideUntil = e.overrideUntil
	}
	return s
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Metrics returns the last published metrics.
func (e *Engine) Metrics() metrics.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Packet returns the last published packet, or nil before the first tick.
func (e *Engine) Packet() *Packet {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.packet == nil {
		return nil
	}
	p := *e.packet
	return &p
}

// Memory returns the rolling memory, oldest first.
func (e *Engine) Memory() []signals.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyMemory()
}

// History returns the full history log in tick order.
func (e *Engine) History() []HistoryPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyHistory()
}

func (e *Engine) copyMemory() []signals.Vector {
	out := make([]signals.Vector, len(e.memory))
	copy(out, e.memory)
	return out
}

func (e *Engine) copyHistory() []HistoryPoint {
	out := make([]HistoryPoint, len(e.history))
	copy(out, e.history)
	return out
}

// #endregion observers
