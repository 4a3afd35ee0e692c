// Package session binds the engine to its timer, the diagnostics board and the
// optional journal behind one command surface.
package session

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/diagnostics"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/journal"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/runner"
)

// #region session-struct

// Session is safe for concurrent use.
type Session struct {
	engine *engine.Engine
	runner *runner.Runner
	board  *diagnostics.Board
	logger *zap.Logger

	seed     int64
	interval time.Duration
	window   time.Duration

	store    *journal.Store
	recorder *journal.Recorder
	closers  []io.Closer

	// mu serializes lifecycle commands so the timer state tracks the engine.
	mu     sync.Mutex
	closed bool
}

// New builds an IDLE session.
func New(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = runner.DefaultInterval
	}
	if opts.AffectWindow <= 0 {
		opts.AffectWindow = engine.DefaultAffectWindow
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Diagnoser == nil {
		opts.Diagnoser = diagnostics.NewService(nil, diagnostics.Options{}, opts.Logger)
	}

	s := &Session{
		logger:   opts.Logger,
		seed:     opts.Seed,
		interval: opts.Interval,
		window:   opts.AffectWindow,
		board:    diagnostics.NewBoard(opts.Diagnoser, opts.Logger),
	}

	var rec engine.Recorder
	if opts.JournalPath != "" {
		store, err := journal.NewStore(opts.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		sess, err := store.CreateSession(s.seed, s.interval, s.window)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create journal session: %w", err)
		}
		s.store = store
		s.recorder = journal.NewRecorder(store, sess.ID, opts.Logger)
		rec = s.recorder
		opts.Logger.Info("journal session opened", zap.String("session", sess.ID), zap.String("path", opts.JournalPath))
	}

	s.engine = engine.New(engine.Config{
		Source:       rand.New(rand.NewSource(s.seed)),
		Clock:        opts.Clock,
		AffectWindow: s.window,
		Recorder:     rec,
		Logger:       opts.Logger,
	})
	s.runner = runner.New(s.engine, s.interval, opts.Logger)
	return s, nil
}

// Close stops the timer, waits for diagnostics and releases the journal and
// any backend connections.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner.Disarm()
	s.board.Wait()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Engine exposes the underlying engine for observers.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Seed returns the metrics random seed.
func (s *Session) Seed() int64 { return s.seed }

// #endregion session-struct

// #region lifecycle

// Start resumes ticking at the configured interval.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Start()
	s.runner.Arm()
}

// Stop halts ticking. State is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner.Disarm()
	s.engine.Stop()
}

// Reset stops ticking and restores the initial state. A journal moves on to a
// fresh session because tick numbers restart.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner.Disarm()
	s.engine.Reset()
	s.board.Post(diagnostics.InitialText)

	if s.store == nil {
		return nil
	}
	sess, err := s.store.CreateSession(s.seed, s.interval, s.window)
	if err != nil {
		return fmt.Errorf("rotate journal session: %w", err)
	}
	s.recorder.Rotate(sess.ID)
	return nil
}

// #endregion lifecycle

// #region commands

// TriggerReflective arms reflective injection and posts its status line.
func (s *Session) TriggerReflective() error {
	if err := s.engine.TriggerReflective(); err != nil {
		return err
	}
	s.board.Post(MsgReflective)
	return nil
}

// TriggerAgentic arms the agentic override and posts its status line.
func (s *Session) TriggerAgentic() error {
	if err := s.engine.TriggerAgentic(); err != nil {
		return err
	}
	s.board.Post(MsgAgentic)
	return nil
}

// InjectAffect parses label, overrides the affect target and posts a status line.
func (s *Session) InjectAffect(label string) error {
	l, _ := affect.ParseLabel(label)
	if err := s.engine.InjectAffect(l); err != nil {
		return err
	}
	s.board.Post(fmt.Sprintf(msgAffectFmt, strings.ToUpper(string(l))))
	return nil
}

// RequestDiagnostics starts an asynchronous diagnosis of the current tick.
func (s *Session) RequestDiagnostics(ctx context.Context) error {
	snap := s.engine.Snapshot()
	if !snap.Running {
		return ErrNotRunning
	}
	if snap.Packet == nil {
		return ErrNoPacket
	}
	if !s.board.Request(ctx, snap.Metrics, snap.Packet.Category) {
		return ErrDiagnosticsBusy
	}
	return nil
}

// WaitDiagnostics blocks until no diagnosis is in flight.
func (s *Session) WaitDiagnostics() { s.board.Wait() }

// #endregion commands

// #region view

// View returns a consistent copy of every observable output.
func (s *Session) View() View {
	text, loading := s.board.Status()
	v := View{
		Snapshot:           s.engine.Snapshot(),
		Diagnostics:        text,
		DiagnosticsLoading: loading,
		DiagnosticsError:   strings.HasPrefix(text, "ERROR"),
	}
	if s.recorder != nil {
		v.SessionID = s.recorder.SessionID()
	}
	return v
}

// #endregion view
