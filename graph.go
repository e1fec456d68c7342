package keystone

import (
	"io"
)

// ExportDOT writes the Provider's registration graph as Graphviz DOT.
// Because constructors are opaque generic closures rather than
// reflection-discovered functions, no static dependency edges exist — the
// export carries nodes only, each labeled with its Key and Lifetime.
func (p *Provider) ExportDOT(w io.Writer) error {
	return p.graph.WriteDOT(w)
}

// ExportText writes the Provider's registration graph as a sorted,
// human-readable listing.
func (p *Provider) ExportText(w io.Writer) error {
	return p.graph.WriteText(w)
}
