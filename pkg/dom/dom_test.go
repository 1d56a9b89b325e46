package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div class="mermaid" id="first">graph TD
A --&gt; B</div>
<p>prose</p>
<pre class="mermaid other">graph LR
X --&gt; Y</pre>
<div class="plain">not a diagram</div>
</body></html>`

func TestElementsByClass(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	els := doc.ElementsByClass("mermaid")
	require.Len(t, els, 2)
	assert.Equal(t, "div", els[0].Tag())
	assert.Equal(t, "pre", els[1].Tag())

	// Multi-token class attributes match per token.
	assert.Len(t, doc.ElementsByClass("other"), 1)
	assert.Empty(t, doc.ElementsByClass("missing"))
}

func TestTextDecodesNothing(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	els := doc.ElementsByClass("mermaid")
	require.NotEmpty(t, els)

	// The HTML parser already decodes entities in text nodes.
	assert.Equal(t, "graph TD\nA --> B", els[0].Text())
}

func TestTextPreservesLineBreakMarkup(t *testing.T) {
	doc, err := ParseString(`<div class="d">one<br>two</div>`)
	require.NoError(t, err)

	els := doc.ElementsByClass("d")
	require.Len(t, els, 1)
	assert.Equal(t, "one<br/>two", els[0].Text())
}

func TestAttrRoundTrip(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	el := doc.ElementsByClass("mermaid")[0]
	assert.Equal(t, "", el.Attr("data-processed"))

	el.SetAttr("data-processed", "true")
	assert.Equal(t, "true", el.Attr("data-processed"))

	// Overwrite, not append.
	el.SetAttr("data-processed", "false")
	assert.Equal(t, "false", el.Attr("data-processed"))
	assert.Equal(t, "false", el.Attrs()["data-processed"])
}

func TestSetContentReplacesChildren(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	el := doc.ElementsByClass("mermaid")[0]
	require.NoError(t, el.SetContent(`<svg id="mermaid-0"><text>A</text></svg>`))

	inner, err := el.Content()
	require.NoError(t, err)
	assert.Contains(t, inner, `<svg id="mermaid-0">`)
	assert.NotContains(t, inner, "graph TD")

	// The replacement survives whole-document serialization.
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<svg id="mermaid-0">`)
}

func TestElementID(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	els := doc.ElementsByClass("mermaid")
	assert.Equal(t, "first", els[0].ID())
	// No id attribute falls back to tag and position.
	assert.Contains(t, els[1].ID(), "pre#")
}

func TestParseError(t *testing.T) {
	// html.Parse is extremely lenient; even fragments parse. Just verify a
	// well-formed call path.
	doc, err := ParseString("plain text")
	require.NoError(t, err)
	assert.Empty(t, doc.ElementsByClass("mermaid"))
}
