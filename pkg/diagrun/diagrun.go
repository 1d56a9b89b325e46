// Package diagrun is the embedding surface: scan-and-render over a document,
// plus direct parse/render entry points serialized through the operation
// queue so the single-instance engine never sees overlapping calls.
package diagrun

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rendis/diagrun/internal/queue"
	"github.com/rendis/diagrun/internal/runner"
	"github.com/rendis/diagrun/pkg/dom"
	"github.com/rendis/diagrun/pkg/schema"
)

// Engine is the rendering subsystem behind the API. Implementations are
// assumed single-instance and unsafe for overlapping parse/render calls;
// the API provides the serialization.
type Engine interface {
	Parse(ctx context.Context, text string) (bool, error)
	Render(ctx context.Context, id, text string, container *dom.Element) (*schema.RenderResult, error)
	Config() schema.SiteConfig
	UpdateSiteConfig(schema.SiteConfigPatch) error
}

// ErrorHandler is the global error hook. Structured failures arrive as
// (message, hash); everything else as (failure, "").
type ErrorHandler func(failure any, hash string)

// RunOptions configures one scan pass. See runner.Options for semantics.
type RunOptions struct {
	Elements       []*dom.Element
	Selector       string
	Filter         string
	PostRender     func(*dom.Element) error
	SuppressErrors bool
}

// API ties the orchestrator, the operation queue, and the engine together.
// Construct one per process and share it; all methods are safe for
// concurrent use.
type API struct {
	engine    Engine
	logger    *slog.Logger
	queue     *queue.Queue
	runner    *runner.Runner
	autoStart bool
	recorder  runner.Recorder

	// runMu serializes scan passes. The per-element loop calls the engine
	// directly rather than through the queue, so without this two concurrent
	// Run callers would drive overlapping calls into the engine.
	runMu sync.Mutex

	mu   sync.RWMutex
	hook ErrorHandler
}

// Option configures an API at construction.
type Option func(*API)

// WithLogger sets the logger used by the API, queue, and runner.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithErrorHandler installs the global error hook at construction.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(a *API) { a.hook = fn }
}

// WithRecorder wires a render-outcome recorder into the scan pass.
func WithRecorder(rec runner.Recorder) Option {
	return func(a *API) { a.recorder = rec }
}

// WithAutoStart controls whether Start triggers a run. Enabled by default;
// the engine's StartOnLoad setting is still consulted.
func WithAutoStart(enabled bool) Option {
	return func(a *API) { a.autoStart = enabled }
}

// New creates an API around the given engine.
func New(engine Engine, opts ...Option) *API {
	a := &API{
		engine:    engine,
		logger:    slog.Default(),
		autoStart: true,
	}
	for _, o := range opts {
		o(a)
	}

	// The queue and runner hold a stable reference that reads the current
	// handler, so RegisterErrorHandler works after construction.
	dispatch := func(failure any, hash string) { a.dispatchError(failure, hash) }
	a.queue = queue.New(a.logger, dispatch)
	a.runner = runner.New(engine, a.logger, dispatch, a.recorder)
	return a
}

// RegisterErrorHandler installs (or replaces) the global error hook used by
// both the scan pass and the operation queue.
func (a *API) RegisterErrorHandler(fn ErrorHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hook = fn
}

func (a *API) dispatchError(failure any, hash string) {
	a.mu.RLock()
	fn := a.hook
	a.mu.RUnlock()
	if fn != nil {
		fn(failure, hash)
	}
}

// Run scans doc (or the explicit element list) and renders every unprocessed
// candidate element. See the runner package for the failure taxonomy.
// Concurrent Run calls are serialized with each other; within a pass the
// per-element loop is strictly sequential.
func (a *API) Run(ctx context.Context, doc *dom.Document, opts RunOptions) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.runner.Run(ctx, doc, runner.Options{
		Elements:       opts.Elements,
		Selector:       opts.Selector,
		Filter:         opts.Filter,
		PostRender:     opts.PostRender,
		SuppressErrors: opts.SuppressErrors,
	})
}

// Parse validates diagram text through the operation queue. Failures always
// propagate to the caller; SuppressErrors is a Run-only option.
func (a *API) Parse(ctx context.Context, text string) (bool, error) {
	p := a.queue.Submit(ctx, func(ctx context.Context) (any, error) {
		return a.engine.Parse(ctx, text)
	})
	v, err := p.Wait(ctx)
	if err != nil {
		return false, err
	}
	ok, _ := v.(bool)
	return ok, nil
}

// Render renders one diagram through the operation queue.
func (a *API) Render(ctx context.Context, id, text string, container *dom.Element) (*schema.RenderResult, error) {
	p := a.queue.Submit(ctx, func(ctx context.Context) (any, error) {
		return a.engine.Render(ctx, id, text, container)
	})
	v, err := p.Wait(ctx)
	if err != nil {
		return nil, err
	}
	res, _ := v.(*schema.RenderResult)
	return res, nil
}

// Config returns the engine's current site configuration.
func (a *API) Config() schema.SiteConfig {
	return a.engine.Config()
}

// UpdateSiteConfig applies a validated partial configuration update.
func (a *API) UpdateSiteConfig(p schema.SiteConfigPatch) error {
	return a.engine.UpdateSiteConfig(p)
}

// Start is the page-load trigger: when auto-start is enabled and the
// configuration confirms it, it runs one scan pass, logging (never raising)
// on failure.
func (a *API) Start(ctx context.Context, doc *dom.Document) {
	if !a.autoStart {
		return
	}
	if !a.engine.Config().StartOnLoad {
		return
	}
	if err := a.Run(ctx, doc, RunOptions{}); err != nil {
		a.logger.Error("auto-start run failed", slog.String("error", err.Error()))
	}
}
