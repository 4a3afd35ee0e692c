package engine

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region constants

const (
	// MemoryDepth is the capacity of the rolling vector memory.
	MemoryDepth = 24

	// AmplifyFactor scales the vector while any protocol is active.
	AmplifyFactor = 1.2

	// DefaultAffectWindow is how long an injected affect overrides the hint target.
	DefaultAffectWindow = 5 * time.Second
)

// #endregion constants

// #region errors

var (
	ErrNotRunning     = errors.New("engine not running")
	ErrProtocolActive = errors.New("protocol already active")
	ErrUnknownAffect  = errors.New("unknown affect label")
	ErrUnknownCommand = errors.New("unknown command")
)

// #endregion errors

// #region packet-kind

// Kind tags what produced a packet.
type Kind string

const (
	KindObservation      Kind = "observation"
	KindRecursiveTrigger Kind = "recursive_trigger"
	KindAgenticAssertion Kind = "agentic_assertion"
	KindEmotionInjection Kind = "emotion_injection"
	KindSelfModel        Kind = "self_model"
	KindAnchor           Kind = "anchor"
)

// #endregion packet-kind

// #region packet

// Packet is the immutable per-tick unit. Vector is what memory and metrics see;
// Raw is the generator output before amplification.
type Packet struct {
	ID         string            `json:"id"`
	Tick       uint64            `json:"tick"`
	Timestamp  time.Time         `json:"timestamp"`
	Kind       Kind              `json:"kind"`
	Vector     signals.Vector    `json:"vector"`
	Raw        signals.Vector    `json:"raw"`
	Phase      float64           `json:"phase"`
	Category   classify.Category `json:"category"`
	Hint       affect.Label      `json:"hint,omitempty"`
	Reflective bool              `json:"reflective,omitempty"`
	Agentic    bool              `json:"agentic,omitempty"`
}

// HistoryPoint is one entry of the append-only history log.
type HistoryPoint struct {
	Tick     uint64            `json:"tick"`
	Metrics  metrics.Metrics   `json:"metrics"`
	Category classify.Category `json:"category"`
}

// #endregion packet

// #region snapshot

// Snapshot is a copy of every observable output. Mutating it does not affect the engine.
type Snapshot struct {
	Running    bool
	Tick       uint64
	Packet     *Packet
	Metrics    metrics.Metrics
	Memory     []signals.Vector
	History    []HistoryPoint
	Reflective int
	Agentic    int

	// Override is the injected affect target, nil when none is in effect.
	Override      *affect.Point
	OverrideUntil time.Time
}

// #endregion snapshot

// #region recorder

// Command names an operation on the command surface.
type Command string

const (
	CmdStart             Command = "start"
	CmdStop              Command = "stop"
	CmdReset             Command = "reset"
	CmdTriggerReflective Command = "trigger_reflective"
	CmdTriggerAgentic    Command = "trigger_agentic"
	CmdInjectAffect      Command = "inject_affect"
)

// TickRecord is emitted once per published tick.
type TickRecord struct {
	Packet  Packet
	Metrics metrics.Metrics
}

// CommandRecord is emitted for every command, accepted or not.
type CommandRecord struct {
	Tick     uint64
	Command  Command
	Argument string
	Accepted bool
	Reason   string
	At       time.Time
}

// Recorder observes the engine. Calls are made while the engine lock is held,
// so implementations must not call back into the Engine.
type Recorder interface {
	RecordTick(TickRecord)
	RecordCommand(CommandRecord)
}

// #endregion recorder

// #region clock

// Clock supplies wall time for packet timestamps and affect expiry.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the process wall clock.
func SystemClock() Clock { return systemClock{} }

// #endregion clock
