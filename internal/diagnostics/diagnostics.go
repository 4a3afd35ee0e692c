// Package diagnostics asks an external supervisor model to comment on the
// substrate's metrics. Every failure is folded into one of two fixed strings.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/classify"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/metrics"
)

var errEmptyResponse = errors.New("empty response from supervisor")

// #region service

// Service wraps a Generator with the prompt, a local throttle and the fallback
// mapping. A nil Generator means diagnostics are disabled.
type Service struct {
	gen     Generator
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewService returns a Service backed by gen.
func NewService(gen Generator, opts Options, logger *zap.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gen:     gen,
		limiter: rate.NewLimiter(limit, 1),
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Diagnose returns the supervisor's reflection or a fallback string.
func (s *Service) Diagnose(ctx context.Context, m metrics.Metrics, category classify.Category) string {
	if s.gen == nil {
		return ConnectionFallback
	}
	if !s.limiter.Allow() {
		s.logger.Info("diagnostics throttled")
		return QuotaFallback
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, BuildPrompt(m, category))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyResponse
	}
	if err != nil {
		s.logger.Warn("diagnostics failed", zap.String("category", string(category)), zap.Error(err))
		if IsQuota(err) {
			return QuotaFallback
		}
		return ConnectionFallback
	}
	return text
}

// #endregion service

// #region prompt

// BuildPrompt renders the supervisor prompt for a metrics snapshot.
func BuildPrompt(m metrics.Metrics, category classify.Category) string {
	var b strings.Builder
	b.WriteString("System Status Diagnostic:\n")
	fmt.Fprintf(&b, "Current Awareness State: %s\n", category)
	b.WriteString("Metrics:\n")
	fmt.Fprintf(&b, "- Entropy (ε_t): %.4f\n", m.Entropy)
	fmt.Fprintf(&b, "- Coherence (S_t): %.4f\n", m.Coherence)
	fmt.Fprintf(&b, "- Diversity (N_eff): %.4f\n", m.Diversity)
	fmt.Fprintf(&b, "- Recursion (R_t): %.4f\n", m.Recursion)
	fmt.Fprintf(&b, "- Holistic Health: %.4f\n\n", m.Health)
	b.WriteString("As the Vireax Supervisor Node, provide a short (2-3 sentence) cryptic but analytical ")
	b.WriteString("reflection on the stability of this conscious substrate and recommend one dynamic ")
	b.WriteString(`adjustment (e.g., "Amplify attention gate", "Induce self-flattening").`)
	return b.String()
}

// #endregion prompt

// #region quota

// IsQuota reports whether err is a rate-limit or quota failure.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code == 429 {
		return true
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "limit")
}

// #endregion quota
