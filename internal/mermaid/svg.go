package mermaid

import (
	"fmt"
	"html"
	"strings"
)

const (
	nodeWidth  = 120
	nodeHeight = 40
	gap        = 40
	padding    = 20
)

type point struct {
	x, y int
}

// RenderSVG renders a laid-out Graph as an SVG document rooted at the given
// element id. The graph's Levels must already be computed.
func RenderSVG(g *Graph, id string) string {
	centers := nodeCenters(g)
	width, height := canvasSize(g)

	linkIndex := make(map[string]string, len(g.Links))
	for _, l := range g.Links {
		linkIndex[l.NodeID] = l.Href
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg id=%q xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" class="flowchart">`,
		id, width, height, width, height)
	b.WriteString("\n")
	b.WriteString(`<defs><marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z"/></marker></defs>`)
	b.WriteString("\n")

	b.WriteString(`<g class="edges">` + "\n")
	for _, e := range g.Edges {
		from, to := centers[e.From], centers[e.To]
		fmt.Fprintf(&b,
			`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="currentColor" marker-end="url(#arrow)"/>`,
			from.x, from.y, to.x, to.y)
		b.WriteString("\n")
		if e.Label != "" {
			fmt.Fprintf(&b,
				`<text x="%d" y="%d" text-anchor="middle" class="edge-label">%s</text>`,
				(from.x+to.x)/2, (from.y+to.y)/2, html.EscapeString(e.Label))
			b.WriteString("\n")
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="nodes">` + "\n")
	for _, n := range g.Nodes {
		c := centers[n.ID]
		if href, ok := linkIndex[n.ID]; ok {
			fmt.Fprintf(&b, `<a href=%q>`, href)
		}
		b.WriteString(nodeShape(n, c))
		fmt.Fprintf(&b,
			`<text x="%d" y="%d" text-anchor="middle" dominant-baseline="middle">%s</text>`,
			c.x, c.y, html.EscapeString(n.Label))
		if _, ok := linkIndex[n.ID]; ok {
			b.WriteString("</a>")
		}
		b.WriteString("\n")
	}
	b.WriteString("</g>\n")

	b.WriteString("</svg>")
	return b.String()
}

func nodeShape(n *Node, c point) string {
	left, top := c.x-nodeWidth/2, c.y-nodeHeight/2
	switch n.Shape {
	case ShapeRound:
		return fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" rx="%d" class="node round"/>`,
			left, top, nodeWidth, nodeHeight, nodeHeight/2)
	case ShapeDiamond:
		return fmt.Sprintf(`<polygon points="%d,%d %d,%d %d,%d %d,%d" class="node diamond"/>`,
			c.x, top, left+nodeWidth, c.y, c.x, top+nodeHeight, left, c.y)
	default:
		return fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" class="node rect"/>`,
			left, top, nodeWidth, nodeHeight)
	}
}

// nodeCenters places each node on a grid: one row (or column, for LR flow)
// per level, nodes spread across it in definition order.
func nodeCenters(g *Graph) map[string]point {
	centers := make(map[string]point, len(g.Nodes))
	for li, level := range g.Levels {
		for ni, id := range level {
			major := padding + li*(nodeHeight+gap) + nodeHeight/2
			minor := padding + ni*(nodeWidth+gap) + nodeWidth/2
			if g.Direction == DirectionLR {
				centers[id] = point{x: padding + li*(nodeWidth+gap) + nodeWidth/2, y: padding + ni*(nodeHeight+gap) + nodeHeight/2}
			} else {
				centers[id] = point{x: minor, y: major}
			}
		}
	}
	return centers
}

func canvasSize(g *Graph) (int, int) {
	levels := len(g.Levels)
	widest := 0
	for _, level := range g.Levels {
		if len(level) > widest {
			widest = len(level)
		}
	}
	if levels == 0 || widest == 0 {
		return 2 * padding, 2 * padding
	}

	across := widest*(nodeWidth+gap) - gap + 2*padding
	down := levels*(nodeHeight+gap) - gap + 2*padding
	if g.Direction == DirectionLR {
		return levels*(nodeWidth+gap) - gap + 2*padding, widest*(nodeHeight+gap) - gap + 2*padding
	}
	return across, down
}
