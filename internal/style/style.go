// Package style derives the target-format style descriptor for a content
// node from the node itself and its ancestor chain.
package style

import "github.com/dgallion1/docexport/internal/doctree"

// Descriptor is the resolved presentation for one block node.
type Descriptor struct {
	Align        doctree.Alignment
	Indent       int // indent level in the target document
	HeadingLevel int // 0 for non-headings
	Monospace    bool
}

// Resolve computes the descriptor for n given its ancestors, outermost
// first. It is a pure function: no state, no I/O. The innermost explicit
// setting always wins over inherited or tag-default style.
func Resolve(n *doctree.Node, ancestors []*doctree.Node) Descriptor {
	var d Descriptor
	for _, a := range ancestors {
		if a.Kind == doctree.KindQuote {
			d.Indent++
		}
		if a.Align != doctree.AlignDefault {
			d.Align = a.Align
		}
	}

	switch n.Kind {
	case doctree.KindHeading:
		d.HeadingLevel = n.Level
	case doctree.KindCodeBlock:
		d.Monospace = true
	case doctree.KindListItem:
		d.Indent += n.Depth
	}

	if n.Align != doctree.AlignDefault {
		d.Align = n.Align
	}
	return d
}
