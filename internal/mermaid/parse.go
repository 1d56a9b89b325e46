package mermaid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rendis/diagrun/pkg/schema"
)

// Parse failure classification hashes.
const (
	HashEmpty  = "EMPTY"
	HashHeader = "HEADER"
	HashSyntax = "SYNTAX"
	HashSize   = "SIZE"
)

var (
	headerRe = regexp.MustCompile(`^(?:graph|flowchart)\s+(TD|TB|LR)$`)
	edgeRe   = regexp.MustCompile(`^(.+?)\s*-->\s*(?:\|([^|]*)\|\s*)?(.+)$`)
	nodeRe   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*(?:\[([^\]]*)\]|\(([^)]*)\)|\{([^}]*)\})?$`)
	clickRe  = regexp.MustCompile(`^click\s+([A-Za-z][A-Za-z0-9_]*)\s+"([^"]+)"$`)
)

// ParseText parses flowchart source into a Graph. All failures are
// *schema.ParseError values carrying a classification hash.
func ParseText(text string) (*Graph, error) {
	lines := significantLines(text)
	if len(lines) == 0 {
		return nil, &schema.ParseError{Str: "no diagram text", Hash: HashEmpty}
	}

	head := headerRe.FindStringSubmatch(lines[0].text)
	if head == nil {
		return nil, &schema.ParseError{
			Str:  fmt.Sprintf("line %d: expected flowchart header, got %q", lines[0].num, lines[0].text),
			Hash: HashHeader,
			Line: lines[0].num,
		}
	}
	dir := DirectionTD
	if head[1] == "LR" {
		dir = DirectionLR
	}

	g := newGraph(dir)
	for _, line := range lines[1:] {
		if err := parseStatement(g, line); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type sourceLine struct {
	text string
	num  int
}

func significantLines(text string) []sourceLine {
	var out []sourceLine
	for i, raw := range strings.Split(text, "\n") {
		s := strings.TrimSpace(raw)
		if s == "" || strings.HasPrefix(s, "%%") {
			continue
		}
		out = append(out, sourceLine{text: s, num: i + 1})
	}
	return out
}

func parseStatement(g *Graph, line sourceLine) error {
	if m := clickRe.FindStringSubmatch(line.text); m != nil {
		if g.node(m[1]) == nil {
			return &schema.ParseError{
				Str:  fmt.Sprintf("line %d: click target %q is not defined", line.num, m[1]),
				Hash: HashSyntax,
				Line: line.num,
			}
		}
		g.Links = append(g.Links, Link{NodeID: m[1], Href: m[2]})
		return nil
	}

	if m := edgeRe.FindStringSubmatch(line.text); m != nil {
		from, err := parseNodeSpec(g, m[1], line.num)
		if err != nil {
			return err
		}
		to, err := parseNodeSpec(g, m[3], line.num)
		if err != nil {
			return err
		}
		g.Edges = append(g.Edges, Edge{From: from.ID, To: to.ID, Label: m[2]})
		return nil
	}

	if _, err := parseNodeSpec(g, line.text, line.num); err != nil {
		return err
	}
	return nil
}

func parseNodeSpec(g *Graph, spec string, num int) (*Node, error) {
	m := nodeRe.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return nil, &schema.ParseError{
			Str:  fmt.Sprintf("line %d: syntax error near %q", num, spec),
			Hash: HashSyntax,
			Line: num,
		}
	}

	id := m[1]
	label, shape, explicit := id, ShapeRect, false
	switch {
	case m[2] != "" || strings.Contains(spec, "["):
		label, shape, explicit = m[2], ShapeRect, true
	case m[3] != "" || strings.Contains(spec, "("):
		label, shape, explicit = m[3], ShapeRound, true
	case m[4] != "" || strings.Contains(spec, "{"):
		label, shape, explicit = m[4], ShapeDiamond, true
	}
	if explicit && label == "" {
		label = id
	}
	return g.addNode(id, label, shape, explicit), nil
}
