package diagnostics

import (
	"context"
	"time"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
)

// #region constants

const (
	// QuotaFallback is shown when the supervisor is rate limited or out of quota.
	QuotaFallback = "ERROR [429]: Vireax Node Quota Exhausted. Higher-order diagnostics offline. Substrate cooling down. Please try again in 60 seconds."

	// ConnectionFallback is shown for every other failure.
	ConnectionFallback = "ERROR: Connection to supervisor node lost. Local consistency maintained via sheaf projection."

	// InitialText is the board text before any diagnosis or command status.
	InitialText = "Initializing Ψ-substrate..."

	DefaultModel       = "gemini-3-flash-preview"
	DefaultTimeout     = 30 * time.Second
	DefaultMinInterval = 2 * time.Second
)

// #endregion constants

// #region interfaces

// Generator turns a prompt into text. Backends wrap a model API or a sidecar.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Diagnoser produces a display string for a metrics snapshot. It never fails.
type Diagnoser interface {
	Diagnose(ctx context.Context, m metrics.Metrics, category classify.Category) string
}

// #endregion interfaces

// #region options

// Options tunes the Service. Zero fields get defaults; a negative MinInterval
// disables throttling.
type Options struct {
	Timeout     time.Duration
	MinInterval time.Duration
}

// #endregion options
