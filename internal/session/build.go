package session

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/config"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/diagnostics"
)

// #region from-config

// FromConfig builds a session and its diagnostics backend from cfg. A backend
// that is not configured leaves diagnostics on the connection fallback.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gen, closer, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		logger.Warn("diagnostics backend disabled", zap.String("backend", cfg.Diagnostics.Backend))
	}
	svc := diagnostics.NewService(gen, diagnostics.Options{
		Timeout:     cfg.GetDiagnosticsTimeout(),
		MinInterval: cfg.GetMinInterval(),
	}, logger)

	s, err := New(Options{
		Interval:     cfg.GetInterval(),
		AffectWindow: cfg.GetAffectWindow(),
		Seed:         cfg.Engine.Seed,
		Diagnoser:    svc,
		JournalPath:  cfg.Journal.Path,
		Logger:       logger,
	})
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	return s, nil
}

func buildGenerator(ctx context.Context, cfg *config.Config) (diagnostics.Generator, io.Closer, error) {
	if !cfg.DiagnosticsEnabled() {
		return nil, nil, nil
	}
	switch cfg.Diagnostics.Backend {
	case config.BackendGenAI:
		g, err := diagnostics.NewGenAIGenerator(ctx, cfg.Diagnostics.APIKey, cfg.Diagnostics.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("genai backend: %w", err)
		}
		return g, nil, nil
	case config.BackendCodec:
		g, err := diagnostics.NewCodecGenerator(cfg.Diagnostics.CodecAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("codec backend: %w", err)
		}
		return g, g, nil
	}
	return nil, nil, nil
}

// #endregion from-config
