package graph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphNodesPreservesInsertionOrder(t *testing.T) {
	g := New()
	g.AddNode(Node{Label: "Concrete(*A)", Lifetime: "Singleton"})
	g.AddNode(Node{Label: "Concrete(*B)", Lifetime: "Scoped"})

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Concrete(*A)", nodes[0].Label)
	assert.Equal(t, "Concrete(*B)", nodes[1].Label)
}

func TestGraphWriteDOTHasNoEdges(t *testing.T) {
	g := New()
	g.AddNode(Node{Label: "Trait(Plugin, name=p1)", Lifetime: "Singleton", Group: "Plugin"})

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf))

	out := buf.String()
	assert.Contains(t, out, "digraph keystone")
	assert.Contains(t, out, "Trait(Plugin, name=p1)")
	assert.False(t, strings.Contains(out, "->"), "graph export has no static edges to draw")
}

func TestGraphWriteTextSortsByLabel(t *testing.T) {
	g := New()
	g.AddNode(Node{Label: "Concrete(*Zebra)", Lifetime: "Transient"})
	g.AddNode(Node{Label: "Concrete(*Apple)", Lifetime: "Singleton"})

	var buf bytes.Buffer
	require.NoError(t, g.WriteText(&buf))

	out := buf.String()
	assert.Less(t, strings.Index(out, "Apple"), strings.Index(out, "Zebra"))
}
