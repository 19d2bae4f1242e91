package doctree

import (
	"reflect"
	"testing"
)

func TestEmpty(t *testing.T) {
	var nilTree *Tree
	if !nilTree.Empty() {
		t.Error("nil tree should be empty")
	}
	if !(&Tree{Title: "t"}).Empty() {
		t.Error("tree without nodes should be empty")
	}
	full := &Tree{Nodes: []*Node{{Kind: KindParagraph}}}
	if full.Empty() {
		t.Error("tree with a node should not be empty")
	}
}

func TestImageRefs(t *testing.T) {
	tree := &Tree{Nodes: []*Node{
		{Kind: KindImage, Src: "https://a.example/1.png"},
		{Kind: KindParagraph, Runs: []Run{{Text: "x"}}},
		{Kind: KindQuote, Children: []*Node{
			{Kind: KindImage, Src: "https://a.example/2.png"},
		}},
		{Kind: KindTable, Rows: [][]*Cell{{
			{Children: []*Node{{Kind: KindImage, Src: "https://a.example/3.png"}}},
		}}},
		{Kind: KindImage, Src: "https://a.example/1.png"}, // duplicate
		{Kind: KindImage, Src: ""},
	}}

	got := tree.ImageRefs()
	want := []string{
		"https://a.example/1.png",
		"https://a.example/2.png",
		"https://a.example/3.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ImageRefs() = %v, want %v", got, want)
	}
}

func TestPlainText(t *testing.T) {
	tree := &Tree{Nodes: []*Node{
		{Kind: KindHeading, Level: 1, Runs: []Run{{Text: "Title"}}},
		{Kind: KindParagraph, Runs: []Run{{Text: "hello"}, {Text: "world", Bold: true}}},
		{Kind: KindCodeBlock, Language: "go", Code: "x := 1"},
		{Kind: KindQuote, Children: []*Node{
			{Kind: KindParagraph, Runs: []Run{{Text: "quoted"}}},
		}},
	}}

	want := "Title\nhello\nworld\nx := 1\nquoted"
	if got := tree.PlainText(); got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}
