// Package graph holds the static view of a frozen registry: one node per
// registered descriptor. Constructors in this module are opaque generic
// closures (see the module's non-reflection design decision), so there is
// no way to statically discover which node depends on which — the graph
// therefore carries nodes only, never edges. Graph export degrades to a
// node listing exactly the way spec.md §6 allows: "If edges cannot be
// declared statically, the export reflects only the nodes."
package graph

import (
	"fmt"
	"io"
	"sort"
)

// Node describes one registered descriptor for diagnostic/export purposes.
type Node struct {
	// Label is the human-readable identity of the slot, e.g.
	// "Concrete(*app.Logger)" or "NamedTrait(Plugin, name=p1)".
	Label string

	// Lifetime is the display string of the node's lifetime.
	Lifetime string

	// Group, when non-empty, is the multi-binding trait name this node
	// belongs to.
	Group string
}

// Graph is an append-only collection of nodes, filled in by Collection.Build
// alongside the frozen registry.
type Graph struct {
	nodes []Node
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a node to the graph. Order of addition is preserved.
func (g *Graph) AddNode(n Node) {
	g.nodes = append(g.nodes, n)
}

// Nodes returns a copy of the recorded nodes.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// WriteDOT renders the graph in Graphviz DOT format. Since there are no
// static edges, this produces an unconnected node listing, each node
// carrying its lifetime as an xlabel — still useful for auditing what is
// registered.
func (g *Graph) WriteDOT(w io.Writer) error {
	fmt.Fprintln(w, "digraph keystone {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")

	for i, n := range g.nodes {
		label := n.Label
		if n.Group != "" {
			label = fmt.Sprintf("%s [group=%s]", label, n.Group)
		}
		fmt.Fprintf(w, "  n%d [label=%q, xlabel=%q];\n", i, label, n.Lifetime)
	}

	fmt.Fprintln(w, "}")
	return nil
}

// WriteText renders a plain-text listing of the graph, sorted by label for
// stable output across runs.
func (g *Graph) WriteText(w io.Writer) error {
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Label < nodes[j].Label })

	fmt.Fprintln(w, "Registered services:")
	for _, n := range nodes {
		if n.Group != "" {
			fmt.Fprintf(w, "  %-10s %s (group=%s)\n", n.Lifetime, n.Label, n.Group)
			continue
		}
		fmt.Fprintf(w, "  %-10s %s\n", n.Lifetime, n.Label)
	}
	return nil
}
