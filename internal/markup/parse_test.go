package markup

import (
	"strings"
	"testing"

	"github.com/dgallion1/docexport/internal/doctree"
)

func TestParse_HeadingAndBoldRun(t *testing.T) {
	tree := Parse(`<h1>Title</h1><p>Hello <b>world</b></p>`)
	if len(tree.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(tree.Nodes))
	}

	h := tree.Nodes[0]
	if h.Kind != doctree.KindHeading || h.Level != 1 {
		t.Fatalf("expected level-1 heading, got kind=%v level=%d", h.Kind, h.Level)
	}
	if len(h.Runs) != 1 || h.Runs[0].Text != "Title" {
		t.Errorf("expected heading run %q, got %+v", "Title", h.Runs)
	}

	p := tree.Nodes[1]
	if p.Kind != doctree.KindParagraph {
		t.Fatalf("expected paragraph, got kind=%v", p.Kind)
	}
	if len(p.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(p.Runs), p.Runs)
	}
	if strings.TrimSpace(p.Runs[0].Text) != "Hello" || p.Runs[0].Bold {
		t.Errorf("first run wrong: %+v", p.Runs[0])
	}
	if p.Runs[1].Text != "world" || !p.Runs[1].Bold {
		t.Errorf("second run should be bold %q, got %+v", "world", p.Runs[1])
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n\t"} {
		tree := Parse(in)
		if !tree.Empty() {
			t.Errorf("expected empty tree for %q, got %d nodes", in, len(tree.Nodes))
		}
	}
}

func TestParse_InlineStyleTransitions(t *testing.T) {
	tree := Parse(`<p><i>a</i><u>b</u><s>c</s><span style="color: #ff0000">d</span></p>`)
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(tree.Nodes))
	}
	runs := tree.Nodes[0].Runs
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d: %+v", len(runs), runs)
	}
	if !runs[0].Italic || !runs[1].Underline || !runs[2].Strike {
		t.Errorf("style flags wrong: %+v", runs)
	}
	if runs[3].Color != "FF0000" {
		t.Errorf("expected color FF0000, got %q", runs[3].Color)
	}
}

func TestParse_NestedListDepth(t *testing.T) {
	tree := Parse(`<ul><li>one<ul><li>two<ol><li>three</li></ol></li></ul></li></ul>`)
	if len(tree.Nodes) != 3 {
		t.Fatalf("expected 3 list items, got %d", len(tree.Nodes))
	}
	want := []struct {
		text    string
		depth   int
		ordered bool
	}{
		{"one", 0, false},
		{"two", 1, false},
		{"three", 2, true},
	}
	for i, w := range want {
		n := tree.Nodes[i]
		if n.Kind != doctree.KindListItem {
			t.Fatalf("node %d: expected list item, got kind=%v", i, n.Kind)
		}
		if n.Runs[0].Text != w.text || n.Depth != w.depth || n.Ordered != w.ordered {
			t.Errorf("node %d: got text=%q depth=%d ordered=%v, want %+v",
				i, n.Runs[0].Text, n.Depth, n.Ordered, w)
		}
	}
}

func TestParse_TableWithNestedContent(t *testing.T) {
	tree := Parse(`<table><tr><th>H</th><td><p>a</p><p>b</p></td></tr><tr><td>c</td><td>d</td></tr></table>`)
	if len(tree.Nodes) != 1 || tree.Nodes[0].Kind != doctree.KindTable {
		t.Fatalf("expected one table node, got %+v", tree.Nodes)
	}
	rows := tree.Nodes[0].Rows
	if len(rows) != 2 || len(rows[0]) != 2 {
		t.Fatalf("expected 2x2 table, got %d rows", len(rows))
	}
	if !rows[0][0].Header {
		t.Errorf("expected first cell to be a header")
	}
	if len(rows[0][1].Children) != 2 {
		t.Errorf("expected 2 paragraphs in cell, got %d", len(rows[0][1].Children))
	}
}

func TestParse_CodeBlock(t *testing.T) {
	tree := Parse("<pre><code class=\"language-js\">let x=1;\nlet y=2;</code></pre>")
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(tree.Nodes))
	}
	n := tree.Nodes[0]
	if n.Kind != doctree.KindCodeBlock || n.Language != "js" {
		t.Fatalf("expected js code block, got kind=%v lang=%q", n.Kind, n.Language)
	}
	if n.Code != "let x=1;\nlet y=2;" {
		t.Errorf("code text not preserved verbatim: %q", n.Code)
	}
}

func TestParse_QuoteWrapsBlocks(t *testing.T) {
	tree := Parse(`<blockquote><p>quoted</p><ul><li>item</li></ul></blockquote>`)
	if len(tree.Nodes) != 1 || tree.Nodes[0].Kind != doctree.KindQuote {
		t.Fatalf("expected quote node, got %+v", tree.Nodes)
	}
	if len(tree.Nodes[0].Children) != 2 {
		t.Errorf("expected 2 children inside quote, got %d", len(tree.Nodes[0].Children))
	}
}

func TestParse_ImageAndDividerAndLink(t *testing.T) {
	tree := Parse(`<img src="https://x/a.png" width="200" height="100"><hr><a href="https://x/doc">read me</a>`)
	if len(tree.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(tree.Nodes))
	}
	img := tree.Nodes[0]
	if img.Kind != doctree.KindImage || img.Src != "https://x/a.png" || img.Width != 200 || img.Height != 100 {
		t.Errorf("image node wrong: %+v", img)
	}
	if tree.Nodes[1].Kind != doctree.KindDivider {
		t.Errorf("expected divider, got kind=%v", tree.Nodes[1].Kind)
	}
	link := tree.Nodes[2]
	if link.Kind != doctree.KindLink || link.Href != "https://x/doc" || link.Text != "read me" {
		t.Errorf("link node wrong: %+v", link)
	}
}

func TestParse_InlineLinkKeepsTarget(t *testing.T) {
	tree := Parse(`<p>see <a href="https://x/ref">the docs</a> here</p>`)
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(tree.Nodes))
	}
	var linked *doctree.Run
	for i := range tree.Nodes[0].Runs {
		if tree.Nodes[0].Runs[i].Href != "" {
			linked = &tree.Nodes[0].Runs[i]
		}
	}
	if linked == nil || linked.Href != "https://x/ref" || strings.TrimSpace(linked.Text) != "the docs" {
		t.Errorf("inline link run wrong: %+v", tree.Nodes[0].Runs)
	}
}

func TestParse_ImageInsideParagraphSplitsFlow(t *testing.T) {
	tree := Parse(`<p>before <img src="https://x/mid.png"> after</p>`)
	if len(tree.Nodes) != 3 {
		t.Fatalf("expected 3 nodes (para, image, para), got %d: %+v", len(tree.Nodes), tree.Nodes)
	}
	if tree.Nodes[1].Kind != doctree.KindImage {
		t.Errorf("middle node should be the image, got kind=%v", tree.Nodes[1].Kind)
	}
}

func TestParse_UnbalancedTagsTolerated(t *testing.T) {
	tree := Parse(`<p>open <b>bold text`)
	if tree.Empty() {
		t.Fatalf("expected content from unbalanced markup")
	}
	text := tree.PlainText()
	if !strings.Contains(text, "bold text") {
		t.Errorf("text lost from unbalanced markup: %q", text)
	}
}

func TestParse_UnknownTagDegradesToText(t *testing.T) {
	tree := Parse(`<widget>still visible</widget>`)
	if len(tree.Nodes) != 1 || tree.Nodes[0].Kind != doctree.KindParagraph {
		t.Fatalf("expected paragraph fallback, got %+v", tree.Nodes)
	}
	if !strings.Contains(tree.PlainText(), "still visible") {
		t.Errorf("unknown tag text dropped: %q", tree.PlainText())
	}
}

func TestParse_AlignmentFromStyle(t *testing.T) {
	tree := Parse(`<p style="text-align: center">centered</p>`)
	if tree.Nodes[0].Align != doctree.AlignCenter {
		t.Errorf("expected center alignment, got %q", tree.Nodes[0].Align)
	}
}

func TestImageRefs_DedupesInOrder(t *testing.T) {
	tree := Parse(`<img src="https://x/1.png"><p>t</p><img src="https://x/2.png"><img src="https://x/1.png">`)
	refs := tree.ImageRefs()
	if len(refs) != 2 || refs[0] != "https://x/1.png" || refs[1] != "https://x/2.png" {
		t.Errorf("unexpected refs: %v", refs)
	}
}

func TestFromMarkdown(t *testing.T) {
	out, err := FromMarkdown("# Title\n\nHello **world**\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<strong>world</strong>") {
		t.Errorf("unexpected markdown rendering: %q", out)
	}

	tree := Parse(out)
	if len(tree.Nodes) != 2 {
		t.Fatalf("expected 2 nodes from rendered markdown, got %d", len(tree.Nodes))
	}
	if tree.Nodes[0].Kind != doctree.KindHeading || tree.Nodes[1].Kind != doctree.KindParagraph {
		t.Errorf("unexpected node kinds: %+v", tree.Nodes)
	}
}
