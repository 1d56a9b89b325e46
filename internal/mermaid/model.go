package mermaid

// Direction is the flow direction declared in the diagram header.
type Direction string

const (
	DirectionTD Direction = "TD"
	DirectionLR Direction = "LR"
)

// Shape classifies a node by the bracket style of its definition.
type Shape string

const (
	ShapeRect    Shape = "rect"    // A[label]
	ShapeRound   Shape = "round"   // A(label)
	ShapeDiamond Shape = "diamond" // A{label}
)

// Node is a single diagram vertex.
type Node struct {
	ID    string
	Label string
	Shape Shape
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Link is a click binding attached to a node.
type Link struct {
	NodeID string
	Href   string
}

// Graph is the parsed form of one flowchart, plus the layered layout used
// by the SVG renderer.
type Graph struct {
	Direction Direction
	Nodes     []*Node
	Edges     []Edge
	Links     []Link
	Levels    [][]string

	index map[string]*Node
}

func newGraph(dir Direction) *Graph {
	return &Graph{Direction: dir, index: make(map[string]*Node)}
}

// node returns the existing node with the given id, or nil.
func (g *Graph) node(id string) *Node {
	return g.index[id]
}

// addNode registers a node, updating the label and shape of an existing one
// when the new definition is explicit.
func (g *Graph) addNode(id, label string, shape Shape, explicit bool) *Node {
	if n, ok := g.index[id]; ok {
		if explicit {
			n.Label = label
			n.Shape = shape
		}
		return n
	}
	n := &Node{ID: id, Label: label, Shape: shape}
	g.Nodes = append(g.Nodes, n)
	g.index[id] = n
	return n
}

// layout assigns nodes to levels with a Kahn-style peel: nodes with no
// unresolved incoming edges form the next level. Any cycle remainder is
// dumped into a final level so rendering still terminates.
func (g *Graph) layout() {
	indeg := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indeg[n.ID] = 0
	}
	for _, e := range g.Edges {
		indeg[e.To]++
	}

	placed := make(map[string]bool, len(g.Nodes))
	g.Levels = nil
	for len(placed) < len(g.Nodes) {
		var level []string
		for _, n := range g.Nodes {
			if !placed[n.ID] && indeg[n.ID] == 0 {
				level = append(level, n.ID)
			}
		}
		if len(level) == 0 {
			// Cycle: place everything that remains.
			for _, n := range g.Nodes {
				if !placed[n.ID] {
					level = append(level, n.ID)
				}
			}
		}
		current := make(map[string]bool, len(level))
		for _, id := range level {
			placed[id] = true
			current[id] = true
		}
		for _, e := range g.Edges {
			if current[e.From] && !placed[e.To] {
				indeg[e.To]--
			}
		}
		g.Levels = append(g.Levels, level)
	}
}
