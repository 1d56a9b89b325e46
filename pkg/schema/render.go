package schema

// RenderResult is the artifact produced by one engine render call.
type RenderResult struct {
	// SVG is the rendered markup, ready to replace the source element's content.
	SVG string
	// DiagramType names the grammar that produced the artifact (e.g. "flowchart").
	DiagramType string
	// Bind, when non-nil, must be invoked after the SVG has been inserted into
	// the container. The engine captures the container at render time.
	Bind func() error
}
