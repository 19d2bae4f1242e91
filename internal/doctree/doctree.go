// Package doctree defines the format-agnostic content tree produced by the
// markup parser and consumed by the document assembler.
package doctree

// Kind discriminates the content node variants.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindTable
	KindCodeBlock
	KindQuote
	KindDivider
	KindImage
	KindLink
)

// Alignment is a horizontal paragraph alignment. The empty string means
// "use the target format's default".
type Alignment string

const (
	AlignDefault Alignment = ""
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

// Run is a span of text with uniform inline styling. Run boundaries occur at
// every inline style transition; adjacent runs with identical styling are
// legal and need not be merged.
type Run struct {
	Text       string
	Bold       bool
	Italic     bool
	Underline  bool
	Strike     bool
	Color      string // hex RRGGBB, empty for default
	Background string // hex RRGGBB, empty for none
	Font       string // font hint, empty for default
	Href       string // non-empty for inline links
}

// Cell is one table cell. Cells hold block-level children so nested
// structure (lists, nested tables, quotes) survives parsing.
type Cell struct {
	Children []*Node
	Header   bool
}

// Node is one block-level content node. Kind selects the variant; only the
// fields relevant to that variant are populated.
type Node struct {
	Kind Kind

	// Heading / Paragraph / ListItem
	Runs  []Run
	Align Alignment

	// Heading
	Level int // 1..6

	// ListItem
	Ordered bool
	Depth   int // nesting count, 0 for a top-level item

	// Table
	Rows [][]*Cell

	// CodeBlock
	Language string
	Code     string

	// Quote
	Children []*Node

	// Image
	Src    string
	Width  int
	Height int

	// Link
	Text string
	Href string
}

// Tree is the root of a parsed document.
type Tree struct {
	Title string
	Nodes []*Node
}

// Empty reports whether the tree holds no content nodes.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Nodes) == 0
}

// ImageRefs returns the source URLs of every image node in document order,
// with duplicates removed.
func (t *Tree) ImageRefs() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var urls []string
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			switch n.Kind {
			case KindImage:
				if n.Src != "" && !seen[n.Src] {
					seen[n.Src] = true
					urls = append(urls, n.Src)
				}
			case KindQuote:
				walk(n.Children)
			case KindTable:
				for _, row := range n.Rows {
					for _, cell := range row {
						walk(cell.Children)
					}
				}
			}
		}
	}
	walk(t.Nodes)
	return urls
}

// PlainText flattens all run and code text in the tree into one string.
// Used for content hashing and logging, not for rendering.
func (t *Tree) PlainText() string {
	if t == nil {
		return ""
	}
	var out []byte
	appendText := func(s string) {
		if s == "" {
			return
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, s...)
	}
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			for _, r := range n.Runs {
				appendText(r.Text)
			}
			switch n.Kind {
			case KindCodeBlock:
				appendText(n.Code)
			case KindLink:
				appendText(n.Text)
			case KindQuote:
				walk(n.Children)
			case KindTable:
				for _, row := range n.Rows {
					for _, cell := range row {
						walk(cell.Children)
					}
				}
			}
		}
	}
	walk(t.Nodes)
	return string(out)
}
