package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/diagrun/internal/store"
	"github.com/rendis/diagrun/pkg/dom"
	"github.com/rendis/diagrun/pkg/schema"
)

// mockEngine records render calls and fails on demand.
type mockEngine struct {
	cfg schema.SiteConfig

	mu    sync.Mutex
	ids   []string
	texts []string

	// failOn maps a text substring to the error returned for it.
	failOn map[string]error
	bind   func() error
}

func newMockEngine() *mockEngine {
	cfg := schema.DefaultSiteConfig()
	cfg.DeterministicIDs = true
	return &mockEngine{cfg: cfg, failOn: map[string]error{}}
}

func (m *mockEngine) Config() schema.SiteConfig { return m.cfg }

func (m *mockEngine) Render(_ context.Context, id, text string, _ *dom.Element) (*schema.RenderResult, error) {
	m.mu.Lock()
	m.ids = append(m.ids, id)
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	for sub, err := range m.failOn {
		if strings.Contains(text, sub) {
			return nil, err
		}
	}
	return &schema.RenderResult{
		SVG:         fmt.Sprintf(`<svg id=%q></svg>`, id),
		DiagramType: "flowchart",
		Bind:        m.bind,
	}, nil
}

func (m *mockEngine) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

func mustDoc(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(html)
	require.NoError(t, err)
	return doc
}

const threeDiagrams = `<html><body>
<div class="mermaid">graph TD
one --> a</div>
<div class="mermaid">graph TD
two --> b</div>
<div class="mermaid">graph TD
three --> c</div>
</body></html>`

func TestRunRendersAndMarks(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, threeDiagrams)

	require.NoError(t, r.Run(context.Background(), doc, Options{}))

	els := doc.ElementsByClass("mermaid")
	for _, el := range els {
		assert.Equal(t, "true", el.Attr(ProcessedAttr))
		content, err := el.Content()
		require.NoError(t, err)
		assert.Contains(t, content, "<svg")
	}
	assert.Equal(t, []string{"mermaid-0", "mermaid-1", "mermaid-2"}, eng.ids)
}

func TestIdempotentScan(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, threeDiagrams)

	require.NoError(t, r.Run(context.Background(), doc, Options{}))
	require.Equal(t, 3, eng.calls())

	// Second pass touches zero previously processed elements.
	require.NoError(t, r.Run(context.Background(), doc, Options{}))
	assert.Equal(t, 3, eng.calls())
}

func TestDeterministicReproducibility(t *testing.T) {
	runIDs := func() []string {
		eng := newMockEngine()
		eng.cfg.DeterministicIDSeed = "snap-"
		r := New(eng, slog.Default(), nil, nil)
		require.NoError(t, r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{}))
		return eng.ids
	}

	first := runIDs()
	second := runIDs()
	assert.Equal(t, first, second)
	assert.Equal(t, "mermaid-snap-0", first[0])
}

func TestIdUniquenessWithinPass(t *testing.T) {
	eng := newMockEngine()
	eng.cfg.DeterministicIDs = false // random mode
	r := New(eng, slog.Default(), nil, nil)

	require.NoError(t, r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{}))

	seen := make(map[string]struct{})
	for _, id := range eng.ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	eng := newMockEngine()
	eng.failOn["two"] = &schema.ParseError{Str: "bad syntax", Hash: "X1"}
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, threeDiagrams)

	err := r.Run(context.Background(), doc, Options{})
	require.Error(t, err)

	var de *schema.DetailedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bad syntax", de.Message)
	assert.Equal(t, "X1", de.Hash)

	// All three are marked processed; one and three have updated content.
	els := doc.ElementsByClass("mermaid")
	for _, el := range els {
		assert.Equal(t, "true", el.Attr(ProcessedAttr))
	}
	for _, i := range []int{0, 2} {
		content, cerr := els[i].Content()
		require.NoError(t, cerr)
		assert.Contains(t, content, "<svg")
	}
	// The failed element keeps its source.
	content, cerr := els[1].Content()
	require.NoError(t, cerr)
	assert.Contains(t, content, "two")
}

func TestFirstErrorWins(t *testing.T) {
	eng := newMockEngine()
	eng.failOn["one"] = &schema.ParseError{Str: "first", Hash: "A"}
	eng.failOn["three"] = &schema.ParseError{Str: "second", Hash: "B"}
	r := New(eng, slog.Default(), nil, nil)

	err := r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{})
	var de *schema.DetailedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "first", de.Message)
}

func TestSuppression(t *testing.T) {
	var hookCalls int
	var mu sync.Mutex
	eng := newMockEngine()
	eng.failOn["two"] = &schema.ParseError{Str: "bad syntax", Hash: "X1"}
	r := New(eng, slog.Default(), func(failure any, hash string) {
		mu.Lock()
		hookCalls++
		mu.Unlock()
	}, nil)

	err := r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{SuppressErrors: true})
	assert.NoError(t, err)

	// Hook fired during normalization and again at the top-level wrapper.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, hookCalls)
}

func TestExplicitElementList(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, threeDiagrams)
	els := doc.ElementsByClass("mermaid")

	require.NoError(t, r.Run(context.Background(), nil, Options{Elements: els[:1]}))
	assert.Equal(t, 1, eng.calls())
	assert.Equal(t, "true", els[0].Attr(ProcessedAttr))
	assert.Equal(t, "", els[1].Attr(ProcessedAttr))
}

func TestNoElementSourceIsFatal(t *testing.T) {
	r := New(newMockEngine(), slog.Default(), nil, nil)

	err := r.Run(context.Background(), nil, Options{})
	require.Error(t, err)

	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.ErrCodeNoElements, se.Code)
}

func TestZeroMatchesIsNotAnError(t *testing.T) {
	r := New(newMockEngine(), slog.Default(), nil, nil)
	doc := mustDoc(t, `<html><body><p>no diagrams</p></body></html>`)

	assert.NoError(t, r.Run(context.Background(), doc, Options{}))
}

func TestCustomSelector(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, `<div class="diagram">graph TD
x</div><div class="mermaid">graph TD
y</div>`)

	require.NoError(t, r.Run(context.Background(), doc, Options{Selector: ".diagram"}))
	assert.Equal(t, 1, eng.calls())
}

func TestPostRenderFailureIsFatal(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, threeDiagrams)

	err := r.Run(context.Background(), doc, Options{
		PostRender: func(el *dom.Element) error {
			return fmt.Errorf("callback exploded")
		},
	})
	require.Error(t, err)

	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.ErrCodeCallback, se.Code)

	// The pass aborted after the first element.
	assert.Equal(t, 1, eng.calls())
	els := doc.ElementsByClass("mermaid")
	assert.Equal(t, "", els[1].Attr(ProcessedAttr))
}

func TestBindFailureIsFatal(t *testing.T) {
	eng := newMockEngine()
	eng.bind = func() error { return fmt.Errorf("bind exploded") }
	r := New(eng, slog.Default(), nil, nil)

	err := r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{})
	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.ErrCodeCallback, se.Code)
}

func TestFilterSkipsWithoutMarking(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, `<div class="mermaid">graph TD
a</div><pre class="mermaid">graph TD
b</pre>`)

	require.NoError(t, r.Run(context.Background(), doc, Options{Filter: `tag == "div"`}))
	require.Equal(t, 1, eng.calls())

	els := doc.ElementsByClass("mermaid")
	assert.Equal(t, "true", els[0].Attr(ProcessedAttr))
	assert.Equal(t, "", els[1].Attr(ProcessedAttr))

	// A later unfiltered pass picks up the skipped element.
	require.NoError(t, r.Run(context.Background(), doc, Options{}))
	assert.Equal(t, 2, eng.calls())
}

func TestFilterCompileErrorIsFatal(t *testing.T) {
	r := New(newMockEngine(), slog.Default(), nil, nil)

	err := r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{Filter: "((("})
	var se *schema.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, schema.ErrCodeValidation, se.Code)
}

func TestStrictSecuritySanitizesText(t *testing.T) {
	eng := newMockEngine()
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, `<div class="mermaid">graph TD
A[x &lt;script&gt;alert(1)&lt;/script&gt; y]</div>`)

	require.NoError(t, r.Run(context.Background(), doc, Options{}))
	require.Equal(t, 1, eng.calls())
	assert.NotContains(t, eng.texts[0], "<script>")
	assert.Contains(t, eng.texts[0], "graph TD")
}

func TestLooseSecuritySkipsSanitizer(t *testing.T) {
	eng := newMockEngine()
	eng.cfg.SecurityLevel = schema.SecurityLoose
	r := New(eng, slog.Default(), nil, nil)
	doc := mustDoc(t, `<div class="mermaid">graph TD
A[x &lt;script&gt;y&lt;/script&gt;]</div>`)

	require.NoError(t, r.Run(context.Background(), doc, Options{}))
	require.Equal(t, 1, eng.calls())
	assert.Contains(t, eng.texts[0], "<script>")
}

type memRecorder struct {
	mu     sync.Mutex
	events []*store.RenderEvent
}

func (m *memRecorder) Append(_ context.Context, ev *store.RenderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func TestRecorderReceivesOutcomes(t *testing.T) {
	eng := newMockEngine()
	eng.failOn["two"] = &schema.ParseError{Str: "bad", Hash: "X1"}
	rec := &memRecorder{}
	r := New(eng, slog.Default(), nil, rec)

	_ = r.Run(context.Background(), mustDoc(t, threeDiagrams), Options{SuppressErrors: true})

	require.Len(t, rec.events, 3)
	statuses := []string{rec.events[0].Status, rec.events[1].Status, rec.events[2].Status}
	assert.Equal(t, []string{store.StatusSucceeded, store.StatusFailed, store.StatusSucceeded}, statuses)
	assert.Equal(t, "X1", rec.events[1].ErrorHash)
	for _, ev := range rec.events {
		assert.NotEmpty(t, ev.RunID)
		assert.NotEmpty(t, ev.DiagramID)
	}
}
