package roadmapgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/observability"
	"github.com/arahkita/arah-go-api/pkg/ai"
)

// Outcome tags the result of one generate call.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNoJSONFound      Outcome = "no-json-found"
	OutcomeParseError       Outcome = "parse-error"
	OutcomeSchemaInvalid    Outcome = "schema-invalid"
	OutcomeExhaustedRetries Outcome = "exhausted-retries"
)

// ErrExhaustedRetries is returned after the transport retry budget runs out.
var ErrExhaustedRetries = errors.New("generation retries exhausted")

// Result is the tagged outcome of a generate call. Err is set for every
// non-success outcome; Draft only for success.
type Result struct {
	Outcome Outcome
	Draft   dto.RoadmapDraft
	Err     error
}

// NoticeFunc receives transient attempt notifications. Implementations must
// not block; delivery is best-effort.
type NoticeFunc func(kind, message string, attempt int)

// ClientConfig tunes the retry policy. Defaults match the observed policy:
// three attempts total with a fixed two-second delay and the same prompt
// verbatim on every attempt.
type ClientConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Client issues generation requests with bounded retry and runs the
// extract-then-validate pipeline over the response text. Transport failures
// (network errors, non-2xx, malformed envelopes) are retried; extraction and
// validation failures are not, since they indicate the model produced
// unusable structure rather than a transient fault.
type Client struct {
	generator ai.Generator
	cfg       ClientConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a generation client.
func NewClient(generator ai.Generator, cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &Client{
		generator: generator,
		cfg:       cfg,
		logger:    logger.With().Str("component", "generation_client").Logger(),
		tracer:    otel.Tracer("github.com/arahkita/arah-go-api/internal/roadmapgen"),
		sleep:     sleepWithContext,
	}
}

// Generate runs the full pipeline for one prompt and returns a tagged
// result. notify receives transient attempt notifications and may be nil.
func (c *Client) Generate(parent context.Context, prompt string, notify NoticeFunc) Result {
	if notify == nil {
		notify = func(string, string, int) {}
	}
	ctx, span := c.tracer.Start(parent, "roadmapgen.generate", trace.WithAttributes(
		attribute.Int("max_attempts", c.cfg.MaxAttempts),
	))
	defer span.End()

	text, err := c.requestWithRetry(ctx, prompt, notify)
	if err != nil {
		span.RecordError(err)
		return Result{Outcome: OutcomeExhaustedRetries, Err: err}
	}

	return c.pipeline(text, notify)
}

// requestWithRetry sends the same prompt verbatim up to MaxAttempts times
// with a fixed delay between attempts. The delay honors ctx cancellation
// so callers can abort between attempts.
func (c *Client) requestWithRetry(ctx context.Context, prompt string, notify NoticeFunc) (string, error) {
	request := ai.GenerationRequest{
		Prompt:      prompt,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		observability.GenerationAttempts().Inc()

		resp, err := c.generator.GenerateText(ctx, request)
		if err == nil {
			return resp.Text, nil
		}

		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("generation request failed")

		if attempt < c.cfg.MaxAttempts {
			notify(dto.NoticeGenerationRetrying, "generation failed, retrying", attempt)
			observability.GenerationRetries().Inc()
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return "", fmt.Errorf("%w: %w", ErrExhaustedRetries, err)
			}
			continue
		}

		notify(dto.NoticeGenerationFailed, "generation failed after retries", attempt)
	}

	return "", fmt.Errorf("%w: %w", ErrExhaustedRetries, lastErr)
}

// pipeline runs extraction then validation over the raw response text.
func (c *Client) pipeline(text string, notify NoticeFunc) Result {
	payload, err := ExtractJSON(text, true)
	if err != nil {
		observability.GenerationOutcomes().WithLabelValues(string(OutcomeNoJSONFound)).Inc()
		return Result{Outcome: OutcomeNoJSONFound, Err: err}
	}

	var value interface{}
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		observability.GenerationOutcomes().WithLabelValues(string(OutcomeParseError)).Inc()
		return Result{Outcome: OutcomeParseError, Err: fmt.Errorf("parse extracted payload: %w", err)}
	}

	draft, err := ValidateDraft(value)
	if err != nil {
		observability.GenerationOutcomes().WithLabelValues(string(OutcomeSchemaInvalid)).Inc()
		notify(dto.NoticeSchemaInvalid, "model produced an unusable roadmap shape", 0)
		return Result{Outcome: OutcomeSchemaInvalid, Err: err}
	}

	observability.GenerationOutcomes().WithLabelValues(string(OutcomeSuccess)).Inc()
	return Result{Outcome: OutcomeSuccess, Draft: draft}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
