// Package markup turns sanitized, card-resolved markup into a content tree.
// The parse is forgiving: unbalanced tags are auto-closed, unknown elements
// degrade to their text content, and empty input yields an empty tree.
package markup

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docexport/internal/doctree"
	"golang.org/x/net/html"
)

// Parse builds a content tree from markup. It never fails; the worst input
// degrades to a single paragraph holding the raw text.
func Parse(markup string) *doctree.Tree {
	tree := &doctree.Tree{}
	if strings.TrimSpace(markup) == "" {
		return tree
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		tree.Nodes = []*doctree.Node{{
			Kind: doctree.KindParagraph,
			Runs: []doctree.Run{{Text: strings.TrimSpace(markup)}},
		}}
		return tree
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	tree.Nodes = parseBlocks(root)
	return tree
}

// inlineStyle is the inherited inline formatting state while walking text.
type inlineStyle struct {
	bold, italic, underline, strike bool
	color, background               string
	font                            string
	href                            string
}

func (st inlineStyle) run(text string) doctree.Run {
	return doctree.Run{
		Text:       text,
		Bold:       st.bold,
		Italic:     st.italic,
		Underline:  st.underline,
		Strike:     st.strike,
		Color:      st.color,
		Background: st.background,
		Font:       st.font,
		Href:       st.href,
	}
}

// flow accumulates inline runs and flushes them into paragraph nodes whenever
// a block boundary (or an inline-embedded image) interrupts the text.
type flow struct {
	nodes []*doctree.Node
	runs  []doctree.Run
	align doctree.Alignment
}

func (f *flow) addRun(r doctree.Run) {
	if r.Text == "" {
		return
	}
	// Collapse a space-only run following nothing or another space.
	if r.Text == " " {
		if len(f.runs) == 0 || strings.HasSuffix(f.runs[len(f.runs)-1].Text, " ") {
			return
		}
	}
	f.runs = append(f.runs, r)
}

func (f *flow) addNode(n *doctree.Node) {
	f.flushRuns()
	f.nodes = append(f.nodes, n)
}

// flushRuns emits accumulated runs as one paragraph, trimming the outer
// whitespace the inline collapse left behind.
func (f *flow) flushRuns() {
	runs := f.runs
	f.runs = nil
	if len(runs) > 0 {
		runs[0].Text = strings.TrimLeft(runs[0].Text, " ")
		last := len(runs) - 1
		runs[last].Text = strings.TrimRight(runs[last].Text, " ")
	}
	kept := runs[:0]
	for _, r := range runs {
		if r.Text != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return
	}
	f.nodes = append(f.nodes, &doctree.Node{
		Kind:  doctree.KindParagraph,
		Runs:  kept,
		Align: f.align,
	})
}

// parseBlocks parses the children of n as block-level content.
func parseBlocks(n *html.Node) []*doctree.Node {
	f := &flow{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parseBlockChild(c, f)
	}
	f.flushRuns()
	return f.nodes
}

func parseBlockChild(c *html.Node, f *flow) {
	if c.Type == html.TextNode {
		collectText(c, inlineStyle{}, f)
		return
	}
	if c.Type != html.ElementNode {
		return
	}

	switch c.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		f.flushRuns()
		level := int(c.Data[1] - '0')
		hf := &flow{}
		collectInline(c, styleFromAttrs(c, inlineStyle{}), hf)
		hf.flushRuns()
		for _, hn := range hf.nodes {
			if hn.Kind == doctree.KindParagraph {
				f.nodes = append(f.nodes, &doctree.Node{
					Kind:  doctree.KindHeading,
					Level: level,
					Runs:  hn.Runs,
					Align: alignOf(c),
				})
			} else {
				f.nodes = append(f.nodes, hn)
			}
		}
	case "p":
		f.flushRuns()
		pf := &flow{align: alignOf(c)}
		collectInline(c, styleFromAttrs(c, inlineStyle{}), pf)
		pf.flushRuns()
		f.nodes = append(f.nodes, pf.nodes...)
	case "hr":
		f.addNode(&doctree.Node{Kind: doctree.KindDivider})
	case "br":
		f.addRun(inlineStyle{}.run("\n"))
	case "ul", "ol":
		f.flushRuns()
		f.nodes = append(f.nodes, parseList(c, c.Data == "ol", 0)...)
	case "table":
		f.flushRuns()
		if tbl := parseTable(c); tbl != nil {
			f.nodes = append(f.nodes, tbl)
		}
	case "pre":
		f.flushRuns()
		f.nodes = append(f.nodes, parsePre(c))
	case "blockquote":
		f.flushRuns()
		f.nodes = append(f.nodes, &doctree.Node{
			Kind:     doctree.KindQuote,
			Children: parseBlocks(c),
		})
	case "img":
		if img := imageNode(c); img != nil {
			f.addNode(img)
		}
	case "a":
		// A block-level anchor becomes a standalone hyperlink node.
		f.flushRuns()
		href := attrVal(c, "href")
		text := textContent(c)
		if href == "" {
			collectInline(c, inlineStyle{}, f)
			break
		}
		if text == "" {
			text = href
		}
		f.nodes = append(f.nodes, &doctree.Node{
			Kind: doctree.KindLink,
			Text: text,
			Href: href,
		})
	case "div":
		f.flushRuns()
		children := parseBlocks(c)
		if align := alignOf(c); align != doctree.AlignDefault {
			for _, child := range children {
				if child.Align == doctree.AlignDefault {
					child.Align = align
				}
			}
		}
		f.nodes = append(f.nodes, children...)
	default:
		// Inline or unknown element in block position: fold its text into
		// the current paragraph flow rather than dropping it.
		collectInline(c, styleForTag(c, inlineStyle{}), f)
	}
}

// collectInline walks the children of n, appending styled runs to f. Images
// embedded mid-text split the paragraph.
func collectInline(n *html.Node, st inlineStyle, f *flow) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			collectText(c, st, f)
		case html.ElementNode:
			switch c.Data {
			case "br":
				f.addRun(st.run("\n"))
			case "img":
				if img := imageNode(c); img != nil {
					f.addNode(img)
				}
			case "hr":
				f.addNode(&doctree.Node{Kind: doctree.KindDivider})
			default:
				collectInline(c, styleForTag(c, st), f)
			}
		}
	}
}

func collectText(c *html.Node, st inlineStyle, f *flow) {
	if t := collapseSpace(c.Data); t != "" {
		f.addRun(st.run(t))
	}
}

// styleForTag derives the inherited inline style for entering element c.
func styleForTag(c *html.Node, st inlineStyle) inlineStyle {
	switch c.Data {
	case "b", "strong":
		st.bold = true
	case "i", "em":
		st.italic = true
	case "u":
		st.underline = true
	case "s", "del", "strike":
		st.strike = true
	case "code":
		st.font = "monospace"
	case "a":
		if href := attrVal(c, "href"); href != "" {
			st.href = href
		}
	}
	return styleFromAttrs(c, st)
}

// styleFromAttrs applies a style attribute's color/background declarations.
// The innermost declaration wins over anything inherited.
func styleFromAttrs(c *html.Node, st inlineStyle) inlineStyle {
	style := attrVal(c, "style")
	if style == "" {
		return st
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "color":
			if hex := parseColor(value); hex != "" {
				st.color = hex
			}
		case "background-color":
			if hex := parseColor(value); hex != "" {
				st.background = hex
			}
		}
	}
	return st
}

// parseList flattens a (possibly nested) list into ListItem nodes with the
// nesting count recorded as depth.
func parseList(n *html.Node, ordered bool, depth int) []*doctree.Node {
	var items []*doctree.Node
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode {
			continue
		}
		switch li.Data {
		case "li":
			lf := &flow{}
			var nested []*doctree.Node
			for c := li.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
					nested = append(nested, parseList(c, c.Data == "ol", depth+1)...)
					continue
				}
				if c.Type == html.ElementNode && c.Data == "p" {
					collectInline(c, styleFromAttrs(c, inlineStyle{}), lf)
					lf.addRun(inlineStyle{}.run("\n"))
					continue
				}
				if c.Type == html.TextNode {
					collectText(c, inlineStyle{}, lf)
					continue
				}
				if c.Type == html.ElementNode {
					collectInline(c, styleForTag(c, inlineStyle{}), lf)
				}
			}
			lf.flushRuns()
			for _, ln := range lf.nodes {
				if ln.Kind == doctree.KindParagraph {
					items = append(items, &doctree.Node{
						Kind:    doctree.KindListItem,
						Ordered: ordered,
						Depth:   depth,
						Runs:    ln.Runs,
					})
				} else {
					items = append(items, ln)
				}
			}
			items = append(items, nested...)
		case "ul", "ol":
			items = append(items, parseList(li, li.Data == "ol", depth+1)...)
		}
	}
	return items
}

func parseTable(n *html.Node) *doctree.Node {
	var rows [][]*doctree.Cell
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead", "tbody", "tfoot":
				walkRows(c)
			case "tr":
				if row := parseRow(c); len(row) > 0 {
					rows = append(rows, row)
				}
			}
		}
	}
	walkRows(n)
	if len(rows) == 0 {
		return nil
	}
	return &doctree.Node{Kind: doctree.KindTable, Rows: rows}
}

func parseRow(tr *html.Node) []*doctree.Cell {
	var row []*doctree.Cell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cell := &doctree.Cell{
			Header:   c.Data == "th",
			Children: parseBlocks(c),
		}
		if align := alignOf(c); align != doctree.AlignDefault {
			for _, child := range cell.Children {
				if child.Align == doctree.AlignDefault {
					child.Align = align
				}
			}
		}
		row = append(row, cell)
	}
	return row
}

// parsePre extracts a code block, preserving its text verbatim.
func parsePre(pre *html.Node) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindCodeBlock}
	src := pre
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			src = c
			for _, class := range strings.Fields(attrVal(c, "class")) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					node.Language = lang
				}
			}
			break
		}
	}
	node.Code = strings.TrimSuffix(rawText(src), "\n")
	return node
}

func imageNode(c *html.Node) *doctree.Node {
	src := attrVal(c, "src")
	if src == "" {
		return nil
	}
	n := &doctree.Node{Kind: doctree.KindImage, Src: src}
	if v, err := strconv.Atoi(attrVal(c, "width")); err == nil && v > 0 {
		n.Width = v
	}
	if v, err := strconv.Atoi(attrVal(c, "height")); err == nil && v > 0 {
		n.Height = v
	}
	return n
}

func alignOf(c *html.Node) doctree.Alignment {
	style := attrVal(c, "style")
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok || strings.ToLower(strings.TrimSpace(name)) != "text-align" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "left":
			return doctree.AlignLeft
		case "center":
			return doctree.AlignCenter
		case "right":
			return doctree.AlignRight
		case "justify":
			return doctree.AlignJustify
		}
	}
	return doctree.AlignDefault
}

// parseColor normalizes a CSS color value to hex RRGGBB without the hash.
func parseColor(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if hex, ok := strings.CutPrefix(v, "#"); ok {
		switch len(hex) {
		case 6:
			return strings.ToUpper(hex)
		case 3:
			return strings.ToUpper(string([]byte{
				hex[0], hex[0], hex[1], hex[1], hex[2], hex[2],
			}))
		}
		return ""
	}
	if args, ok := strings.CutPrefix(v, "rgb("); ok {
		args = strings.TrimSuffix(args, ")")
		parts := strings.Split(args, ",")
		if len(parts) != 3 {
			return ""
		}
		var rgb [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return ""
			}
			rgb[i] = n
		}
		const hexDigits = "0123456789ABCDEF"
		out := make([]byte, 6)
		for i, n := range rgb {
			out[i*2] = hexDigits[n>>4]
			out[i*2+1] = hexDigits[n&0xf]
		}
		return string(out)
	}
	if hex, ok := namedColors[v]; ok {
		return hex
	}
	return ""
}

var namedColors = map[string]string{
	"black":  "000000",
	"white":  "FFFFFF",
	"red":    "FF0000",
	"green":  "008000",
	"blue":   "0000FF",
	"yellow": "FFFF00",
	"orange": "FFA500",
	"purple": "800080",
	"gray":   "808080",
	"grey":   "808080",
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace collapses runs of whitespace to single spaces, keeping one
// leading/trailing space so words across element boundaries stay separated.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// rawText concatenates all text under n without whitespace normalization.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
