// Package assemble walks a content tree and the resolved image table to
// build the target DOCX object graph and serialize it to bytes.
package assemble

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/docexport/internal/doctree"
	"github.com/dgallion1/docexport/internal/images"
	"github.com/dgallion1/docexport/internal/style"
	"github.com/fumiama/go-docx"
)

// monospaceFont renders code runs.
const monospaceFont = "Courier New"

// headingSizes maps heading level to run size in half-points.
var headingSizes = [7]string{"", "32", "28", "26", "24", "22", "21"}

// Report collects the failures assembly absorbed instead of raising.
type Report struct {
	SkippedImages []string // URLs whose embed failed or whose job failed
}

type builder struct {
	doc    *docx.Docx
	jobs   map[string]*images.Job
	report *Report

	// ordered-list numbering per depth, reset at any non-list node
	counters map[int]int
}

// Build assembles the document. An empty tree yields a minimal placeholder
// holding only the title, never an invalid artifact. Per-image failures are
// reported, not raised.
func Build(tree *doctree.Tree, jobs map[string]*images.Job, title string) ([]byte, *Report, error) {
	b := &builder{
		doc:      docx.New().WithDefaultTheme(),
		jobs:     jobs,
		report:   &Report{},
		counters: make(map[int]int),
	}

	if tree.Empty() {
		b.writeTitle(title)
	} else {
		b.writeNodes(tree.Nodes, nil)
	}

	var buf bytes.Buffer
	if _, err := b.doc.WriteTo(&buf); err != nil {
		return nil, b.report, fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), b.report, nil
}

func (b *builder) writeTitle(title string) {
	if title == "" {
		title = "Untitled"
	}
	p := b.doc.AddParagraph().Style("Heading1")
	p.AddText(title).Size(headingSizes[1]).Bold()
}

func (b *builder) writeNodes(nodes []*doctree.Node, ancestors []*doctree.Node) {
	for _, n := range nodes {
		if n.Kind != doctree.KindListItem {
			b.counters = make(map[int]int)
		}
		b.writeNode(n, ancestors)
	}
}

func (b *builder) writeNode(n *doctree.Node, ancestors []*doctree.Node) {
	d := style.Resolve(n, ancestors)

	switch n.Kind {
	case doctree.KindHeading:
		b.writeHeading(n, d)
	case doctree.KindParagraph:
		b.writeParagraph(n.Runs, d, "")
	case doctree.KindListItem:
		b.writeListItem(n, d)
	case doctree.KindTable:
		b.writeTable(n, ancestors)
	case doctree.KindCodeBlock:
		b.writeCode(n, d)
	case doctree.KindQuote:
		b.writeNodes(n.Children, append(ancestors, n))
	case doctree.KindDivider:
		p := b.doc.AddParagraph().Justification("center")
		p.AddText(strings.Repeat("─", 30)).Color("999999")
	case doctree.KindImage:
		b.writeImage(n, d)
	case doctree.KindLink:
		p := b.newParagraph(d)
		p.AddLink(n.Text, n.Href)
	}
}

func (b *builder) writeHeading(n *doctree.Node, d style.Descriptor) {
	level := n.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	p := b.doc.AddParagraph().Style(fmt.Sprintf("Heading%d", level))
	if d.Align != doctree.AlignDefault {
		p.Justification(justification(d.Align))
	}
	for _, group := range splitLines(n.Runs) {
		for _, r := range group {
			b.addRun(p, r).Size(headingSizes[level]).Bold()
		}
	}
}

// writeParagraph emits one docx paragraph per line group. A "\n" run splits
// the paragraph; indentation is rendered as a leading prefix.
func (b *builder) writeParagraph(runs []doctree.Run, d style.Descriptor, marker string) {
	groups := splitLines(runs)
	if len(groups) == 0 {
		groups = [][]doctree.Run{nil}
	}
	for i, group := range groups {
		p := b.newParagraph(d)
		prefix := strings.Repeat("    ", d.Indent)
		if marker != "" && i == 0 {
			prefix += marker
		} else if marker != "" {
			prefix += strings.Repeat(" ", len(marker))
		}
		if prefix != "" {
			p.AddText(prefix)
		}
		for _, r := range group {
			b.addRun(p, r)
		}
	}
}

func (b *builder) writeListItem(n *doctree.Node, d style.Descriptor) {
	// Deeper counters reset whenever a shallower item appears.
	for depth := range b.counters {
		if depth > n.Depth {
			delete(b.counters, depth)
		}
	}
	marker := "• "
	if n.Ordered {
		b.counters[n.Depth]++
		marker = fmt.Sprintf("%d. ", b.counters[n.Depth])
	}
	b.writeParagraph(n.Runs, d, marker)
}

func (b *builder) writeCode(n *doctree.Node, d style.Descriptor) {
	for _, group := range codeRuns(n.Language, n.Code) {
		p := b.newParagraph(d)
		if d.Indent > 0 {
			p.AddText(strings.Repeat("    ", d.Indent))
		}
		for _, r := range group {
			b.addRun(p, r)
		}
	}
}

func (b *builder) writeImage(n *doctree.Node, d style.Descriptor) {
	job := b.jobs[n.Src]
	if !job.Embedded() {
		// Skipped, not rendered as broken.
		b.report.SkippedImages = append(b.report.SkippedImages, n.Src)
		return
	}
	p := b.doc.AddParagraph()
	if d.Align != doctree.AlignDefault {
		p.Justification(justification(d.Align))
	}
	if _, err := p.AddInlineDrawing(job.Data); err != nil {
		b.report.SkippedImages = append(b.report.SkippedImages, n.Src)
	}
}

func (b *builder) writeTable(n *doctree.Node, ancestors []*doctree.Node) {
	rows := len(n.Rows)
	cols := 0
	for _, row := range n.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if rows == 0 || cols == 0 {
		return
	}

	tbl := b.doc.AddTable(rows, cols, 8800, nil)
	for ri, row := range n.Rows {
		for ci, cell := range row {
			wc := tbl.TableRows[ri].TableCells[ci]
			b.writeCell(wc, cell, ancestors, n)
		}
	}
}

// writeCell fills one table cell. Paragraph-like children keep their runs;
// deeper block structure is flattened to text lines, since cells in the
// target schema hold paragraphs only.
func (b *builder) writeCell(wc *docx.WTableCell, cell *doctree.Cell, ancestors []*doctree.Node, tbl *doctree.Node) {
	if len(cell.Children) == 0 {
		wc.AddParagraph()
		return
	}
	for _, child := range cell.Children {
		switch child.Kind {
		case doctree.KindParagraph, doctree.KindHeading, doctree.KindListItem:
			d := style.Resolve(child, append(ancestors, tbl))
			for _, group := range splitLines(child.Runs) {
				p := wc.AddParagraph()
				if d.Align != doctree.AlignDefault {
					p.Justification(justification(d.Align))
				}
				for _, r := range group {
					if cell.Header {
						r.Bold = true
					}
					b.addRun(p, r)
				}
			}
		case doctree.KindCodeBlock:
			for _, line := range strings.Split(child.Code, "\n") {
				wc.AddParagraph().AddText(line).Font(monospaceFont, "", monospaceFont, "")
			}
		default:
			for _, line := range flattenLines(child) {
				wc.AddParagraph().AddText(line)
			}
		}
	}
}

func (b *builder) newParagraph(d style.Descriptor) *docx.Paragraph {
	p := b.doc.AddParagraph()
	if d.Align != doctree.AlignDefault {
		p.Justification(justification(d.Align))
	}
	return p
}

// addRun writes one styled run into p.
func (b *builder) addRun(p *docx.Paragraph, r doctree.Run) *docx.Run {
	if r.Href != "" {
		text := r.Text
		if text == "" {
			text = r.Href
		}
		p.AddLink(text, r.Href)
		// Links manage their own run; return a detached placeholder so
		// callers can chain unconditionally.
		return p.AddText("")
	}
	run := p.AddText(r.Text)
	if r.Bold {
		run.Bold()
	}
	if r.Italic {
		run.Italic()
	}
	if r.Underline {
		run.Underline("single")
	}
	if r.Strike {
		run.Strike(true)
	}
	if r.Color != "" {
		run.Color(r.Color)
	}
	if r.Background != "" {
		run.Shade("clear", "auto", r.Background)
	}
	if r.Font == "monospace" {
		run.Font(monospaceFont, "", monospaceFont, "")
	}
	return run
}

// splitLines divides runs into paragraph groups at newline boundaries.
func splitLines(runs []doctree.Run) [][]doctree.Run {
	var groups [][]doctree.Run
	var cur []doctree.Run
	for _, r := range runs {
		parts := strings.Split(r.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			if part == "" {
				continue
			}
			piece := r
			piece.Text = part
			cur = append(cur, piece)
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// flattenLines renders nested block structure (quotes, nested tables) inside
// a table cell as plain text lines.
func flattenLines(n *doctree.Node) []string {
	var lines []string
	switch n.Kind {
	case doctree.KindTable:
		for _, row := range n.Rows {
			var cells []string
			for _, cell := range row {
				var parts []string
				for _, child := range cell.Children {
					parts = append(parts, flattenLines(child)...)
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			lines = append(lines, strings.Join(cells, "\t"))
		}
	case doctree.KindQuote:
		for _, child := range n.Children {
			lines = append(lines, flattenLines(child)...)
		}
	case doctree.KindLink:
		lines = append(lines, n.Text)
	case doctree.KindDivider, doctree.KindImage:
		// nothing sensible to flatten
	default:
		var texts []string
		for _, r := range n.Runs {
			texts = append(texts, r.Text)
		}
		if s := strings.TrimSpace(strings.Join(texts, "")); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func justification(a doctree.Alignment) string {
	switch a {
	case doctree.AlignCenter:
		return "center"
	case doctree.AlignRight:
		return "right"
	case doctree.AlignJustify:
		return "both"
	default:
		return "left"
	}
}
