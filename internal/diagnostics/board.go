package diagnostics

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
)

// #region board

// Board holds the diagnostics text shown next to the simulation and the loading
// flag of the single request that may be in flight.
type Board struct {
	svc    Diagnoser
	logger *zap.Logger

	mu      sync.Mutex
	text    string
	loading bool
	wg      sync.WaitGroup
}

// NewBoard returns a board showing InitialText.
func NewBoard(svc Diagnoser, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{svc: svc, logger: logger, text: InitialText}
}

// Request starts one asynchronous diagnosis of m. It returns false, doing
// nothing, while another request is in flight.
func (b *Board) Request(ctx context.Context, m metrics.Metrics, category classify.Category) bool {
	b.mu.Lock()
	if b.loading {
		b.mu.Unlock()
		return false
	}
	b.loading = true
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		text := b.svc.Diagnose(ctx, m, category)
		b.mu.Lock()
		b.text = text
		b.loading = false
		b.mu.Unlock()
		b.logger.Debug("diagnosis posted", zap.String("category", string(category)))
	}()
	return true
}

// Post replaces the text with a status line.
func (b *Board) Post(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = msg
}

// Status returns the current text and loading flag.
func (b *Board) Status() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, b.loading
}

// Wait blocks until no request is in flight.
func (b *Board) Wait() {
	b.wg.Wait()
}

// #endregion board
