// Package pipeline orchestrates one document translation run: chunking,
// bounded-concurrency scheduling, ordered reassembly, rendering, and the
// progress stream the caller consumes.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingodoc/translation-engine/internal/assemble"
	"github.com/lingodoc/translation-engine/internal/chunk"
	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/executor"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/progress"
	"github.com/lingodoc/translation-engine/internal/scheduler"
)

// Renderer is the document rendering/storage collaborator: it persists the
// assembled paragraphs and returns a retrieval reference.
type Renderer interface {
	Render(ctx context.Context, paragraphs []string) (string, error)
}

// Config holds the orchestrator settings for a pipeline instance. Zero
// values fall back to the documented defaults.
type Config struct {
	UnitSizePages     int
	MaxChunkChars     int
	ConcurrencyLimit  int
	PerTaskTimeout    time.Duration
	MaxAttempts       int
	RunDeadline       time.Duration
	RetryBaseDelay    time.Duration
	HeartbeatInterval time.Duration
	SourceLang        string
	TargetLang        string
	Glossary          string
}

func (c *Config) applyDefaults() {
	if c.UnitSizePages < 1 {
		c.UnitSizePages = chunk.DefaultUnitSizePages
	}
	if c.MaxChunkChars < 1 {
		c.MaxChunkChars = chunk.DefaultMaxChars
	}
	if c.ConcurrencyLimit < 1 {
		c.ConcurrencyLimit = 3
	}
	if c.PerTaskTimeout <= 0 {
		c.PerTaskTimeout = 60 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 2
	}
	if c.RunDeadline <= 0 {
		c.RunDeadline = 290 * time.Second
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.TargetLang == "" {
		c.TargetLang = "en"
	}
}

// RunResult is the terminal outcome of a successful (possibly partial) run.
type RunResult struct {
	DownloadRef     string
	Partial         bool
	SuccessfulUnits int
	TotalUnits      int
	FailedIndices   []int
	PagesProcessed  int
	// Estimated flags PagesProcessed as unit-size arithmetic rather than a
	// true page count, which can overstate pages when the last unit is
	// partially filled.
	Estimated bool
}

// Pipeline runs translation jobs. One instance is safe for concurrent runs;
// per-run state lives in the scheduler's RunState and the per-run emitter.
type Pipeline struct {
	client   executor.TranslateClient
	renderer Renderer
	logger   *observability.Logger
	cfg      Config
}

// New creates a pipeline.
func New(client executor.TranslateClient, renderer Renderer, logger *observability.Logger, cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		client:   client,
		renderer: renderer,
		logger:   logger.WithComponent("pipeline"),
		cfg:      cfg,
	}
}

// Run translates doc and renders the result. Progress is reported through
// emitter; the terminal event is always completed or error, never silence.
// The returned error is fatal (InputError, AssemblyEmpty, StorageError);
// per-unit failures and deadline cutoffs surface as data on RunResult.
func (p *Pipeline) Run(ctx context.Context, doc *domain.SourceDocument, emitter *progress.Emitter) (*RunResult, error) {
	start := time.Now()

	units, err := p.chunkDocument(doc)
	if err != nil {
		emitter.Emit(domain.EventError, domain.ErrorData{Message: err.Error()})
		return nil, err
	}

	emitter.Emit(domain.EventInit, domain.InitData{TotalChunks: len(units)})

	stopHeartbeat := emitter.StartHeartbeat(ctx, p.cfg.HeartbeatInterval)
	defer stopHeartbeat()

	exec := executor.New(p.client, emitter, p.logger, executor.Config{
		Timeout:     p.cfg.PerTaskTimeout,
		MaxAttempts: p.cfg.MaxAttempts,
		BaseDelay:   p.cfg.RetryBaseDelay,
		SourceLang:  p.cfg.SourceLang,
		TargetLang:  p.cfg.TargetLang,
		Glossary:    p.cfg.Glossary,
	})

	sched := scheduler.New(exec.Execute, p.logger, p.cfg.ConcurrencyLimit)
	deadline := start.Add(p.cfg.RunDeadline)

	state := sched.Run(ctx, units, deadline, func(result domain.TaskResult, completed int) {
		msg := fmt.Sprintf("translated unit %d", result.Index)
		if !result.OK {
			msg = fmt.Sprintf("unit %d failed: %s", result.Index, result.ErrMsg)
		}
		emitter.Emit(domain.EventProgress, domain.ProgressData{
			CurrentChunk: completed,
			TotalChunks:  len(units),
			Message:      msg,
		})
	})

	emitter.Emit(domain.EventMetrics, buildMetrics(state))
	emitter.Emit(domain.EventBuilding, nil)

	assembly, err := assemble.Assemble(state.Results, len(units))
	if err != nil {
		emitter.Emit(domain.EventError, domain.ErrorData{Message: err.Error()})
		return nil, err
	}

	ref, err := p.renderer.Render(ctx, splitParagraphs(assembly.Body))
	if err != nil {
		err = domain.StorageError("render translated document", err)
		emitter.Emit(domain.EventError, domain.ErrorData{Message: err.Error()})
		return nil, err
	}

	result := &RunResult{
		DownloadRef:     ref,
		Partial:         assembly.Partial || state.DeadlineHit,
		SuccessfulUnits: assembly.SuccessfulUnits,
		TotalUnits:      len(units),
		FailedIndices:   assembly.FailedIndices,
	}
	result.PagesProcessed, result.Estimated = p.pagesProcessed(doc, units, state)

	emitter.Emit(domain.EventCompleted, domain.CompletedData{
		DownloadRef:     result.DownloadRef,
		PagesProcessed:  result.PagesProcessed,
		Estimated:       result.Estimated,
		Partial:         result.Partial,
		FailedChunks:    append([]int(nil), result.FailedIndices...),
		SuccessfulUnits: result.SuccessfulUnits,
	})

	p.logger.Info().
		Int("total_units", result.TotalUnits).
		Int("successful_units", result.SuccessfulUnits).
		Bool("partial", result.Partial).
		Dur("duration", time.Since(start)).
		Msg("Translation run completed")

	return result, nil
}

// chunkDocument validates the source and picks the chunking mode: page
// grouping when the extractor reported pages, character budget for flat text.
func (p *Pipeline) chunkDocument(doc *domain.SourceDocument) ([]domain.WorkUnit, error) {
	if doc == nil {
		return nil, domain.InputError("no source document", nil)
	}

	var units []domain.WorkUnit
	if doc.PageCount > 1 && len(doc.Pages) > 1 {
		units = chunk.ByPages(doc.Pages, p.cfg.UnitSizePages)
	} else {
		units = chunk.ByBudget(doc.Text(), p.cfg.MaxChunkChars)
	}

	if len(units) == 0 {
		return nil, domain.InputError("document contains no extractable text", nil)
	}
	return units, nil
}

// pagesProcessed reports true page counts when units carry page ranges, and
// falls back to successful-units-times-unit-size arithmetic otherwise. The
// fallback is an approximation and is flagged as estimated.
func (p *Pipeline) pagesProcessed(doc *domain.SourceDocument, units []domain.WorkUnit, state *scheduler.RunState) (int, bool) {
	truePages := 0
	for _, unit := range units {
		if result, ok := state.Results[unit.Index]; ok && result.OK {
			truePages += unit.Pages()
		}
	}
	if truePages > 0 {
		return truePages, false
	}

	estimated := state.Completed * p.cfg.UnitSizePages
	if doc.PageCount > 0 && estimated > doc.PageCount {
		estimated = doc.PageCount
	}
	return estimated, true
}

func buildMetrics(state *scheduler.RunState) domain.MetricsData {
	var totalMs int64
	for _, result := range state.Results {
		totalMs += result.Duration.Milliseconds()
	}

	metrics := domain.MetricsData{
		CompletedChunks: state.Completed,
		FailedChunks:    state.Failed,
	}
	if settled := state.Completed + state.Failed; settled > 0 {
		metrics.AverageLatencyMs = totalMs / int64(settled)
	}
	return metrics
}

func splitParagraphs(body string) []string {
	var paragraphs []string
	for _, para := range strings.Split(body, "\n\n") {
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}
