// Package generator turns a canvas draft and its upstream artifacts into
// validated report artifacts by prompting a chat model.
//
// Every call makes at most two model requests. The first response must be
// a clean JSON document that satisfies the artifact schema. If it is not,
// one fallback request is made with a stricter instruction and its response
// is parsed leniently. Transport failures and timeouts are not retried.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/llm"
	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout            = 90 * time.Second
	DefaultTemperature        = float32(0.4)
	DefaultBreakerMaxFailures = 3
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess = "success"
)

// Request describes one generation. Analysis is required for every kind
// except analyze; Budget is additionally required for cashflow.
type Request struct {
	Kind     report.Kind
	Draft    canvas.Draft
	Analysis *report.AnalysisResult
	Budget   *report.BudgetPlan
}

// Config controls the model and the resilience settings around it.
type Config struct {
	LLM                llm.Config
	Timeout            time.Duration
	Temperature        float32
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Recorder observes finished generations. outcome is OutcomeSuccess or the
// failure Reason.
type Recorder interface {
	GenerationCompleted(kind string, outcome string, attempts int, elapsed time.Duration)
}

// Option configures a Generator.
type Option func(*Generator)

// WithChatModelFactory replaces llm.NewChatModel, mainly for tests.
func WithChatModelFactory(f func(ctx context.Context, cfg llm.Config) (model.BaseChatModel, error)) Option {
	return func(g *Generator) { g.chatModelFactory = f }
}

// WithRecorder reports every completed generation to r.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generator is safe for concurrent use.
type Generator struct {
	cfg              Config
	chatModelFactory func(ctx context.Context, cfg llm.Config) (model.BaseChatModel, error)
	recorder         Recorder
	logger           *slog.Logger
	breaker          *gobreaker.CircuitBreaker

	mu        sync.Mutex
	chatModel model.BaseChatModel
}

// New creates a Generator. The chat model is built on first use.
func New(cfg Config, opts ...Option) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = DefaultBreakerMaxFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = DefaultBreakerOpenTimeout
	}

	g := &Generator{
		cfg:              cfg,
		chatModelFactory: llm.NewChatModel,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	maxFailures := cfg.BreakerMaxFailures
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + string(cfg.LLM.Provider),
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("llm circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g
}

// Generate produces the artifact for req. On failure it returns an *Error
// and never a partial artifact.
func (g *Generator) Generate(ctx context.Context, req Request) (report.Artifact, error) {
	if err := checkInputs(req); err != nil {
		return nil, err
	}
	prompt, err := renderPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", req.Kind, err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	artifact, attempts, err := g.generate(ctx, req.Kind, prompt)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	if err != nil {
		var genErr *Error
		if errors.As(err, &genErr) {
			outcome = string(genErr.Reason)
		}
		g.logger.Warn("generation failed", "kind", req.Kind, "attempts", attempts, "elapsed", elapsed, "error", err)
	} else {
		g.logger.Info("generation completed", "kind", req.Kind, "attempts", attempts, "elapsed", elapsed)
	}
	if g.recorder != nil {
		g.recorder.GenerationCompleted(string(req.Kind), outcome, attempts, elapsed)
	}
	return artifact, err
}

func (g *Generator) generate(ctx context.Context, kind report.Kind, prompt string) (report.Artifact, int, error) {
	content, err := g.call(ctx, prompt)
	if err != nil {
		return nil, 1, g.transportError(kind, 1, err)
	}
	artifact, parseErr := parseArtifact(kind, content, false)
	if parseErr == nil {
		return artifact, 1, nil
	}
	g.logger.Debug("strict parse failed, retrying with fallback instruction", "kind", kind, "error", parseErr)

	content, err = g.call(ctx, prompt+FallbackInstruction)
	if err != nil {
		return nil, 2, g.transportError(kind, 2, err)
	}
	artifact, err = parseArtifact(kind, content, true)
	if err != nil {
		return nil, 2, &Error{Kind: kind, Reason: ReasonMalformed, Attempts: 2, Err: err}
	}
	return artifact, 2, nil
}

func (g *Generator) transportError(kind report.Kind, attempts int, err error) *Error {
	reason := ReasonTransport
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = ReasonUnavailable
	}
	return &Error{Kind: kind, Reason: reason, Attempts: attempts, Err: err}
}

func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	chatModel, err := g.model(ctx)
	if err != nil {
		return "", err
	}

	resp, err := g.breaker.Execute(func() (any, error) {
		return chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
			model.WithTemperature(g.cfg.Temperature))
	})
	if err != nil {
		return "", err
	}
	msg, ok := resp.(*schema.Message)
	if !ok || msg == nil {
		return "", errors.New("empty response from model")
	}
	return msg.Content, nil
}

func (g *Generator) model(ctx context.Context) (model.BaseChatModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chatModel != nil {
		return g.chatModel, nil
	}
	m, err := g.chatModelFactory(ctx, g.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	g.chatModel = m
	return m, nil
}

func checkInputs(req Request) error {
	switch req.Kind {
	case report.KindAnalysis:
		return nil
	case report.KindBudget, report.KindLaunch:
		if req.Analysis == nil {
			return fmt.Errorf("%s: %w: analysis", req.Kind, ErrMissingInput)
		}
	case report.KindCashFlow:
		if req.Analysis == nil || req.Budget == nil {
			return fmt.Errorf("%s: %w: analysis and budget", req.Kind, ErrMissingInput)
		}
	default:
		return fmt.Errorf("unknown artifact kind %q", req.Kind)
	}
	return nil
}

// parseArtifact decodes and validates content as the artifact for kind.
func parseArtifact(kind report.Kind, content string, lenient bool) (report.Artifact, error) {
	switch kind {
	case report.KindAnalysis:
		return decodeArtifact[report.AnalysisResult](content, lenient)
	case report.KindBudget:
		return decodeArtifact[report.BudgetPlan](content, lenient)
	case report.KindCashFlow:
		return decodeArtifact[report.CashFlowAnalysis](content, lenient)
	case report.KindLaunch:
		return decodeArtifact[report.LaunchData](content, lenient)
	}
	return nil, fmt.Errorf("unknown artifact kind %q", kind)
}

func decodeArtifact[T any, PT interface {
	*T
	report.Artifact
}](content string, lenient bool) (report.Artifact, error) {
	var (
		out *T
		err error
	)
	if lenient {
		out, err = decodeLenient[T](content)
	} else {
		out, err = decodeStrict[T](content)
	}
	if err != nil {
		return nil, err
	}
	artifact := PT(out)
	if err := artifact.Validate().Err(); err != nil {
		return nil, err
	}
	return artifact, nil
}
