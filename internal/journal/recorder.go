package journal

import (
	"sync"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/logging"
)

// #region recorder
// Recorder writes engine ticks and commands into one journal session.
// Write failures are logged and dropped; the engine never sees them.
type Recorder struct {
	store  *Store
	logger *zap.Logger

	mu      sync.Mutex
	session string
}

// NewRecorder binds a recorder to sessionID.
func NewRecorder(store *Store, sessionID string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, session: sessionID, logger: logger}
}

// SessionID returns the bound session.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Rotate binds the recorder to another session. Used after an engine reset,
// since tick numbers restart at 1.
func (r *Recorder) Rotate(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = sessionID
}

// RecordTick implements engine.Recorder.
func (r *Recorder) RecordTick(rec engine.TickRecord) {
	if err := r.store.AppendTick(r.SessionID(), rec); err != nil {
		r.logger.Warn("journal tick dropped", zap.Uint64("tick", rec.Packet.Tick), zap.Error(err))
	}
}

// RecordCommand implements engine.Recorder.
func (r *Recorder) RecordCommand(rec engine.CommandRecord) {
	decision := logging.DecisionAccept
	if !rec.Accepted {
		decision = logging.DecisionReject
	}
	err := logging.LogCommand(r.store.DB(), logging.CommandEntry{
		SessionID: r.SessionID(),
		Tick:      rec.Tick,
		Command:   string(rec.Command),
		Argument:  rec.Argument,
		Decision:  decision,
		Reason:    rec.Reason,
		CreatedAt: rec.At.UTC(),
	})
	if err != nil {
		r.logger.Warn("journal command dropped", zap.String("command", string(rec.Command)), zap.Error(err))
	}
}

// #endregion recorder

var _ engine.Recorder = (*Recorder)(nil)
