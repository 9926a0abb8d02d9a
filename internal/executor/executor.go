// Package executor runs one work unit against the remote translation
// capability, enforcing the per-call timeout and the bounded retry policy.
package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/llm"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/progress"
)

// TranslateClient is the remote translation capability the executor drives.
type TranslateClient interface {
	Translate(ctx context.Context, req llm.TranslationRequest) (*llm.TranslationResponse, error)
}

// Config holds the per-unit execution policy.
type Config struct {
	Timeout     time.Duration // per-attempt timeout
	MaxAttempts int
	BaseDelay   time.Duration // backoff base; attempt n waits BaseDelay * 2^(n-1) + jitter
	MaxDelay    time.Duration
	SourceLang  string
	TargetLang  string
	Glossary    string
}

// Executor invokes the translation client for single work units. It never
// returns an error: after exhausting attempts the failure is carried in the
// TaskResult so the pipeline can proceed with partial data.
type Executor struct {
	client  TranslateClient
	emitter *progress.Emitter
	logger  *observability.Logger
	cfg     Config
}

// New creates an executor. The emitter may be nil when no progress stream is
// attached (CLI dry runs, tests).
func New(client TranslateClient, emitter *progress.Emitter, logger *observability.Logger, cfg Config) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}

	return &Executor{
		client:  client,
		emitter: emitter,
		logger:  logger.WithComponent("executor"),
		cfg:     cfg,
	}
}

// Execute runs one unit to completion, retriable-exhaustion, or immediate
// permanent failure. A chunk metrics event is emitted before returning.
func (e *Executor) Execute(ctx context.Context, unit domain.WorkUnit) domain.TaskResult {
	start := time.Now()
	result := domain.TaskResult{Index: unit.Index}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.waitBackoff(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}

		result.Attempts = attempt

		resp, err := e.attempt(ctx, unit)
		if err == nil {
			result.OK = true
			result.Text = Sanitize(resp.Text)
			result.Usage = resp.Usage
			break
		}

		lastErr = err
		e.logger.Warn().
			Int("unit", unit.Index).
			Int("attempt", attempt).
			Int("max_attempts", e.cfg.MaxAttempts).
			Str("error_type", string(domain.TypeOf(err))).
			Err(err).
			Msg("Translation attempt failed")

		// Permanent failures do not consume remaining attempts.
		if !domain.IsRetriable(err) {
			break
		}
	}

	result.Duration = time.Since(start)
	if !result.OK && lastErr != nil {
		result.ErrMsg = lastErr.Error()
	}

	e.emitChunkEvent(result)
	return result
}

// attempt performs one translation call raced against the per-attempt timer.
// On timer expiry the call is abandoned and the attempt counts as a timeout.
func (e *Executor) attempt(ctx context.Context, unit domain.WorkUnit) (*llm.TranslationResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.Translate(attemptCtx, llm.TranslationRequest{
		Text:       unit.Text,
		SourceLang: e.cfg.SourceLang,
		TargetLang: e.cfg.TargetLang,
		Glossary:   e.cfg.Glossary,
	})
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, domain.TimeoutError("attempt exceeded timeout", err)
		}
		return nil, err
	}
	return resp, nil
}

// waitBackoff sleeps for BaseDelay * 2^(attempt-1) plus up to 25% jitter,
// honoring context cancellation. attempt is the attempt about to run;
// attempt 1 never waits.
func (e *Executor) waitBackoff(ctx context.Context, attempt int) error {
	delay := e.cfg.BaseDelay << (attempt - 1)
	if delay > e.cfg.MaxDelay || delay <= 0 {
		delay = e.cfg.MaxDelay
	}
	delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (e *Executor) emitChunkEvent(result domain.TaskResult) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(domain.EventChunk, domain.ChunkData{
		Index:      result.Index,
		DurationMs: result.Duration.Milliseconds(),
		OK:         result.OK,
		TextLength: len(result.Text),
		Attempts:   result.Attempts,
		Usage:      result.Usage,
	})
}
