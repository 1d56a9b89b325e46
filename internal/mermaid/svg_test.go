package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, text string) *Graph {
	t.Helper()
	g, err := ParseText(text)
	require.NoError(t, err)
	g.layout()
	return g
}

func TestRenderSVGBasics(t *testing.T) {
	g := mustGraph(t, "graph TD\nA[Start] --> B{Choice}\nB -->|yes| C(Done)")

	out := RenderSVG(g, "mermaid-0")

	assert.Contains(t, out, `<svg id="mermaid-0"`)
	assert.Contains(t, out, `class="flowchart"`)
	// One shape per node kind.
	assert.Contains(t, out, `class="node rect"`)
	assert.Contains(t, out, `class="node diamond"`)
	assert.Contains(t, out, `class="node round"`)
	// Labels and edge label.
	assert.Contains(t, out, ">Start</text>")
	assert.Contains(t, out, ">yes</text>")
	assert.Contains(t, out, `marker-end="url(#arrow)"`)
}

func TestRenderSVGEscapesLabels(t *testing.T) {
	g := mustGraph(t, "graph TD\nA[a <b> c]")

	out := RenderSVG(g, "d")
	assert.Contains(t, out, "a &lt;b&gt; c")
	assert.NotContains(t, out, "<b>")
}

func TestRenderSVGLinksWrapNodes(t *testing.T) {
	g := mustGraph(t, "graph TD\nA[Home]\nclick A \"https://example.com\"")

	out := RenderSVG(g, "d")
	assert.Contains(t, out, `<a href="https://example.com">`)
}

func TestRenderSVGDirectionChangesGeometry(t *testing.T) {
	td := RenderSVG(mustGraph(t, "graph TD\nA --> B"), "d")
	lr := RenderSVG(mustGraph(t, "graph LR\nA --> B"), "d")

	assert.NotEqual(t, td, lr)
}

func TestRenderSVGDeterministic(t *testing.T) {
	text := "graph TD\nA --> B\nB --> C"
	a := RenderSVG(mustGraph(t, text), "d")
	b := RenderSVG(mustGraph(t, text), "d")
	assert.Equal(t, a, b)
}
