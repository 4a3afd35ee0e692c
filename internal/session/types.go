package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/diagnostics"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
)

// #region status-messages

const (
	MsgReflective = "INJECTING RECURSIVE SEED... MIRROR SPIKE DETECTED."
	MsgAgentic    = "AGENTIC OVERRIDE: SUBSTRATE ASSERTING VOLITIONAL CONTROL."
	msgAffectFmt  = "EMOTION_INJECTION: Field shifted to %s."
)

// #endregion status-messages

// #region errors

var (
	ErrNoPacket        = errors.New("no packet to diagnose yet")
	ErrDiagnosticsBusy = errors.New("diagnostics request already in flight")
	ErrNotRunning      = engine.ErrNotRunning
)

// #endregion errors

// #region options

// Options wires a Session. Zero fields get defaults; a nil Diagnoser disables
// diagnostics and an empty JournalPath disables the journal.
type Options struct {
	Interval     time.Duration
	AffectWindow time.Duration
	Seed         int64
	Diagnoser    diagnostics.Diagnoser
	JournalPath  string
	Clock        engine.Clock
	Logger       *zap.Logger
}

// #endregion options

// #region view

// View is everything a presentation layer renders.
type View struct {
	engine.Snapshot

	SessionID          string
	Diagnostics        string
	DiagnosticsLoading bool
	// DiagnosticsError is set while the text is one of the fallback errors.
	DiagnosticsError bool
}

// #endregion view
