// Package runner walks a document's candidate elements and renders each one
// exactly once. The per-element loop is strictly sequential: every engine
// call completes before the next element is touched.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/diagrun/internal/ident"
	"github.com/rendis/diagrun/internal/logging"
	"github.com/rendis/diagrun/internal/report"
	"github.com/rendis/diagrun/internal/store"
	"github.com/rendis/diagrun/internal/text"
	"github.com/rendis/diagrun/pkg/dom"
	"github.com/rendis/diagrun/pkg/schema"
)

// DefaultSelector is the conventional class selector for candidate elements.
const DefaultSelector = ".mermaid"

// ProcessedAttr marks an element as handled. Once set, the element is never
// re-scanned unless the attribute is externally cleared.
const ProcessedAttr = "data-processed"

const idPrefix = "mermaid-"

// Engine is the rendering collaborator the runner drives. Calls are issued
// directly, not through the operation queue: the per-element loop already
// awaits each render to completion.
type Engine interface {
	Render(ctx context.Context, id, text string, container *dom.Element) (*schema.RenderResult, error)
	Config() schema.SiteConfig
}

// Recorder receives render outcomes for auditing. Append failures are
// logged, never surfaced.
type Recorder interface {
	Append(ctx context.Context, ev *store.RenderEvent) error
}

// Options configures one scan pass.
type Options struct {
	// Elements is the explicit working set. When nil, the document is
	// queried with Selector.
	Elements []*dom.Element
	// Selector is a class selector, default ".mermaid".
	Selector string
	// Filter is an optional expr predicate over {id, tag, attrs, text}.
	// Elements evaluating false are skipped without being marked processed.
	Filter string
	// PostRender runs after each successful render. Its failure aborts the
	// whole pass.
	PostRender func(*dom.Element) error
	// SuppressErrors makes Run swallow its failure after logging it.
	SuppressErrors bool
}

// Runner is the scan/render orchestrator.
type Runner struct {
	engine     Engine
	normalizer *report.Normalizer
	hook       report.Hook
	recorder   Recorder
	sanitizer  *text.Sanitizer
	logger     *slog.Logger
}

// New creates a Runner. hook and recorder may be nil.
func New(engine Engine, logger *slog.Logger, hook report.Hook, recorder Recorder) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:     engine,
		normalizer: report.New(logger, hook),
		hook:       hook,
		recorder:   recorder,
		sanitizer:  text.NewSanitizer(),
		logger:     logger,
	}
}

// Run executes one scan pass. It returns the first element-level failure, a
// fatal failure (unresolved element source, callback or bind failure), or
// nil; with SuppressErrors set it logs the failure and returns nil.
func (r *Runner) Run(ctx context.Context, doc *dom.Document, opts Options) error {
	runID := uuid.NewString()[:8]
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.LogWith(ctx, r.logger)

	err := r.scan(ctx, runID, doc, opts)
	if err == nil {
		return nil
	}

	logger.Error("diagram run failed", slog.String("error", err.Error()))
	if r.hook != nil {
		r.hook(err, errorHash(err))
	}
	if opts.SuppressErrors {
		logger.Warn("run failure suppressed by configuration")
		return nil
	}
	return err
}

func (r *Runner) scan(ctx context.Context, runID string, doc *dom.Document, opts Options) error {
	elements := opts.Elements
	if elements == nil {
		if doc == nil {
			return schema.NewError(schema.ErrCodeNoElements,
				"no explicit elements and no document to query")
		}
		selector := opts.Selector
		if selector == "" {
			selector = DefaultSelector
		}
		elements = doc.ElementsByClass(strings.TrimPrefix(selector, "."))
	}

	logger := logging.LogWith(ctx, r.logger)
	if len(elements) == 0 {
		logger.Info("no candidate elements found")
		return nil
	}
	logger.Debug("scan pass started", slog.Int("candidates", len(elements)))

	cfg := r.engine.Config()
	gen := ident.FromConfig(cfg)

	filter, err := compileFilter(opts.Filter)
	if err != nil {
		return err
	}

	var collected []*schema.DetailedError
	for _, el := range elements {
		if el.Attr(ProcessedAttr) == "true" {
			continue
		}
		if filter != nil {
			keep, err := filter.match(el)
			if err != nil {
				return err
			}
			if !keep {
				// Filtered elements stay unmarked; a later pass with a
				// different filter may still take them.
				continue
			}
		}

		// Commit point: the element is never retried, even when rendering
		// fails below.
		el.SetAttr(ProcessedAttr, "true")

		elCtx := logging.WithElementID(ctx, el.ID())
		src := text.Clean(el.Text())
		if cfg.SecurityLevel == schema.SecurityStrict {
			src = r.sanitizer.Sanitize(src)
		}

		id := idPrefix + gen.Next()
		elCtx = logging.WithDiagramID(elCtx, id)
		start := time.Now()

		res, renderErr := r.engine.Render(elCtx, id, src, el)
		if renderErr != nil {
			r.record(elCtx, &store.RenderEvent{
				RunID:      runID,
				DiagramID:  id,
				ElementID:  el.ID(),
				Status:     store.StatusFailed,
				ErrorHash:  errorHash(renderErr),
				DurationMs: time.Since(start).Milliseconds(),
			})
			if d, ok := r.normalizer.Normalize(renderErr); ok {
				collected = append(collected, d)
			}
			continue
		}

		if err := el.SetContent(res.SVG); err != nil {
			return schema.NewError(schema.ErrCodeRender, "replace element content").WithCause(err)
		}
		if opts.PostRender != nil {
			if err := opts.PostRender(el); err != nil {
				return schema.NewError(schema.ErrCodeCallback, "post-render callback failed").WithCause(err)
			}
		}
		if res.Bind != nil {
			if err := res.Bind(); err != nil {
				return schema.NewError(schema.ErrCodeCallback, "bind hook failed").WithCause(err)
			}
		}

		r.record(elCtx, &store.RenderEvent{
			RunID:      runID,
			DiagramID:  id,
			ElementID:  el.ID(),
			Status:     store.StatusSucceeded,
			DurationMs: time.Since(start).Milliseconds(),
		})
		logging.LogWith(elCtx, r.logger).Debug("element rendered")
	}

	if len(collected) > 0 {
		// Only the first collected error surfaces; callers depend on
		// single-error semantics.
		return collected[0]
	}
	return nil
}

func (r *Runner) record(ctx context.Context, ev *store.RenderEvent) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Append(ctx, ev); err != nil {
		logging.LogWith(ctx, r.logger).Warn("render log append failed",
			slog.String("error", err.Error()))
	}
}

// errorHash extracts the classification hash when the failure carries one.
func errorHash(err error) string {
	var pe *schema.ParseError
	if errors.As(err, &pe) {
		return pe.Hash
	}
	var de *schema.DetailedError
	if errors.As(err, &de) {
		return de.Hash
	}
	return ""
}
