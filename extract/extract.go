// Package extract turns heterogeneous raw input (free text, DOCX, XLSX,
// CSV, PDF, images) into a clean, deduplicated list of calendar events.
//
// Control flow: decode → normalize → budget/batch → one engine call per
// batch (sequential, fail-fast) → post-process (sanitize, cap, dedupe,
// sort). All state lives inside one Parse call; nothing is shared between
// invocations.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agendex/agendex/batch"
	"github.com/agendex/agendex/docpipe"
	"github.com/agendex/agendex/inference"
	"github.com/agendex/agendex/normalize"
)

// Config configures an Extractor.
type Config struct {
	Docs   *docpipe.Pipeline
	Engine *inference.Client
	Quota  Quota
	Logger *slog.Logger

	// Model and VisionModel are the default engine models for modes that do
	// not pin their own. Empty falls back to the mode defaults.
	Model       string
	VisionModel string

	// Now overrides the clock in prompts (tests). Nil means time.Now.
	Now func() time.Time
}

// Extractor runs the document-to-events pipeline.
type Extractor struct {
	docs        *docpipe.Pipeline
	engine      *inference.Client
	quota       Quota
	logger      *slog.Logger
	model       string
	visionModel string
	now         func() time.Time
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.Docs == nil {
		cfg.Docs = docpipe.New(docpipe.Config{Logger: cfg.Logger})
	}
	if cfg.Quota == nil {
		cfg.Quota = NoQuota{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Extractor{
		docs:        cfg.Docs,
		engine:      cfg.Engine,
		quota:       cfg.Quota,
		logger:      cfg.Logger,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		now:         cfg.Now,
	}
}

// resolve fills a mode's unset knobs: configured default models first, then
// the built-in mode defaults.
func (e *Extractor) resolve(mode *Mode) {
	if mode.Model == "" {
		mode.Model = e.model
	}
	if mode.VisionModel == "" {
		mode.VisionModel = e.visionModel
	}
	mode.defaults()
}

// ParseText extracts events from free-form text.
func (e *Extractor) ParseText(ctx context.Context, userID, text string, mode Mode) (*Result, error) {
	e.resolve(&mode)
	return e.parseLines(ctx, userID, normalize.Lines(text), mode)
}

// ParseFile extracts events from a file payload. The kind is detected from
// name. Image inputs, and PDFs whose embedded text is unusable, go down the
// vision path; everything else goes down the text path.
func (e *Extractor) ParseFile(ctx context.Context, userID, name string, data []byte, mode Mode) (*Result, error) {
	e.resolve(&mode)

	content, err := e.docs.Decode(ctx, name, data)
	if err != nil {
		return nil, err
	}

	if useVision(content) {
		return e.parseImages(ctx, userID, content.Images, mode)
	}
	return e.parseLines(ctx, userID, normalize.Lines(content.Text), mode)
}

// useVision routes to the vision path when the decoder produced image
// payloads and no trustworthy text.
func useVision(content *docpipe.Content) bool {
	if len(content.Images) == 0 {
		return false
	}
	if content.Kind == docpipe.KindImage {
		return true
	}
	return content.Quality != nil && content.Quality.NeedsVision()
}

// parseLines is the text path: denoise, budget, batch, call, post-process.
func (e *Extractor) parseLines(ctx context.Context, userID string, lines []string, mode Mode) (*Result, error) {
	if mode.Denoise {
		lines = normalize.Denoise(lines)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyDocument
	}

	full := normalize.Join(lines)
	if err := batch.CheckBudget(full, mode.MaxTokens); err != nil {
		return nil, err
	}

	estimated := batch.EstimateTokens(full)
	if err := e.quota.Check(ctx, userID, estimated); err != nil {
		return nil, err
	}

	prompt := systemPrompt(mode, e.now())
	batches := batch.Split(lines, mode.Batch)

	e.logger.Debug("extracting",
		"mode", mode.Name,
		"lines", len(lines),
		"batches", len(batches),
		"estimated_tokens", estimated)

	result := &Result{Events: []ParsedEvent{}}
	for i, b := range batches {
		call, err := e.engine.ExtractText(ctx, mode.Model, prompt, b, mode.MaxOutputTokens)
		if err != nil {
			// Fail-fast: a lost batch means silent data loss, so the whole
			// call aborts instead of returning a partial list.
			return nil, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		e.mergeCall(result, call, i, false, mode)
	}

	e.finish(ctx, userID, result)
	return result, nil
}

// parseImages is the vision path: group page images and call the vision
// model per group.
func (e *Extractor) parseImages(ctx context.Context, userID string, images []docpipe.Image, mode Mode) (*Result, error) {
	if len(images) == 0 {
		return nil, ErrEmptyDocument
	}

	if err := e.quota.Check(ctx, userID, mode.MaxOutputTokens*len(images)); err != nil {
		return nil, err
	}

	prompt := systemPrompt(mode, e.now())
	groups := batch.Group(images, mode.PagesPerCall)

	result := &Result{Events: []ParsedEvent{}}
	for i, group := range groups {
		urls := make([]string, len(group))
		for j, img := range group {
			urls[j] = img.DataURL()
		}
		call, err := e.engine.ExtractVision(ctx, mode.VisionModel, prompt, urls, mode.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("page group %d/%d: %w", i+1, len(groups), err)
		}
		e.mergeCall(result, call, i, true, mode)
	}

	e.finish(ctx, userID, result)
	return result, nil
}

// mergeCall folds one engine call into the accumulating result: per-batch
// event cap, sanitation, diagnostics.
func (e *Extractor) mergeCall(result *Result, call *inference.CallResult, batchNr int, vision bool, mode Mode) {
	events := call.Events
	if len(events) > mode.MaxEventsPerBatch {
		e.logger.Warn("batch over-extracted, truncating",
			"batch", batchNr, "events", len(events), "cap", mode.MaxEventsPerBatch)
		events = events[:mode.MaxEventsPerBatch]
	}

	kept := 0
	for _, wire := range events {
		ev, ok := mode.sanitize(wire)
		if !ok {
			continue
		}
		result.Events = append(result.Events, ev)
		kept++
	}

	result.TokensUsed += call.TokensUsed
	result.Calls = append(result.Calls, CallDiag{
		Batch:      batchNr,
		Vision:     vision,
		Repaired:   call.Repaired,
		TokensUsed: call.TokensUsed,
		EventCount: kept,
	})
}

// finish applies the cross-batch guarantees (dedupe, deterministic order)
// and records actual usage. A failing quota write never fails the parse.
func (e *Extractor) finish(ctx context.Context, userID string, result *Result) {
	result.Events = dedupe(result.Events)
	sortEvents(result.Events)

	if err := e.quota.Record(ctx, userID, result.TokensUsed); err != nil {
		e.logger.Warn("quota record failed", "error", err, "user", userID)
	}
}
