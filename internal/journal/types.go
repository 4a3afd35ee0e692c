package journal

import (
	"time"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region session-record
// SessionRecord describes one run of the engine. Seed and the two durations
// are enough to replay the run from its command log.
type SessionRecord struct {
	ID           string
	Seed         int64
	Interval     time.Duration
	AffectWindow time.Duration
	StartedAt    time.Time
}

// #endregion session-record

// #region tick-row
// TickRow is one published tick as stored in the ticks table.
type TickRow struct {
	SessionID   string
	Tick        uint64
	PacketID    string
	Kind        string
	Category    string
	Hint        string
	Vector      signals.Vector
	Raw         signals.Vector
	Phase       float64
	Reflective  bool
	Agentic     bool
	MetricsJSON string
	CreatedAt   time.Time
}

// #endregion tick-row

// #region command-row
// CommandRow is one command_log row read back for inspection.
type CommandRow struct {
	Tick      uint64
	Command   string
	Argument  string
	Decision  string
	Reason    string
	CreatedAt time.Time
}

// #endregion command-row
