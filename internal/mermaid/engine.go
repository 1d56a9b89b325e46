// Package mermaid is the built-in rendering engine: a flowchart subset
// parser and SVG renderer behind the parse/render boundary the rest of the
// core serializes calls into. The engine itself is not safe for overlapping
// parse/render calls; serialization is the caller's job.
package mermaid

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/rendis/diagrun/internal/logging"
	"github.com/rendis/diagrun/internal/validation"
	"github.com/rendis/diagrun/pkg/dom"
	"github.com/rendis/diagrun/pkg/schema"
)

// Engine parses and renders flowchart diagrams under one shared SiteConfig.
type Engine struct {
	mu     sync.RWMutex
	cfg    schema.SiteConfig
	logger *slog.Logger
}

// New creates an Engine with the given configuration.
func New(cfg schema.SiteConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns a snapshot of the current site configuration.
func (e *Engine) Config() schema.SiteConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateSiteConfig applies a partial update after validating the result.
func (e *Engine) UpdateSiteConfig(p schema.SiteConfigPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.cfg.Apply(p)
	if err := validation.ValidateSiteConfig(next); err != nil {
		return err
	}
	e.cfg = next
	return nil
}

// Parse checks diagram text for validity. A true result means the text
// parses; failures are *schema.ParseError values.
func (e *Engine) Parse(ctx context.Context, text string) (bool, error) {
	if err := e.checkSize(text); err != nil {
		return false, err
	}
	if _, err := ParseText(text); err != nil {
		return false, err
	}
	return true, nil
}

// Render parses, lays out, and renders diagram text as SVG rooted at id.
// When the diagram carries click bindings and a container is supplied, the
// result's Bind hook records the binding count on the container; it must be
// invoked after the SVG has been inserted.
func (e *Engine) Render(ctx context.Context, id, text string, container *dom.Element) (*schema.RenderResult, error) {
	if err := e.checkSize(text); err != nil {
		return nil, err
	}

	g, err := ParseText(text)
	if err != nil {
		return nil, err
	}
	g.layout()

	logging.LogWith(ctx, e.logger).Debug("diagram rendered",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)

	res := &schema.RenderResult{
		SVG:         RenderSVG(g, id),
		DiagramType: "flowchart",
	}
	if len(g.Links) > 0 && container != nil {
		links := len(g.Links)
		res.Bind = func() error {
			container.SetAttr("data-links", strconv.Itoa(links))
			return nil
		}
	}
	return res, nil
}

func (e *Engine) checkSize(text string) error {
	limit := e.Config().MaxTextSize
	if limit > 0 && len(text) > limit {
		return &schema.ParseError{
			Str:  "diagram text exceeds maximum size " + strconv.Itoa(limit),
			Hash: HashSize,
		}
	}
	return nil
}
