package assemble

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/dgallion1/docexport/internal/doctree"
	"github.com/dgallion1/docexport/internal/images"
	"github.com/fumiama/go-docx"
)

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

func paragraphTexts(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("re-parse artifact: %v", err)
	}
	var texts []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if txt, ok := rc.(*docx.Text); ok {
					buf.WriteString(txt.Text)
				}
			}
		}
		if s := strings.TrimSpace(buf.String()); s != "" {
			texts = append(texts, s)
		}
	}
	return texts
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func countMediaEntries(t *testing.T, data []byte) int {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open artifact as zip: %v", err)
	}
	n := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") {
			n++
		}
	}
	return n
}

func TestBuild_HeadingAndBoldParagraph(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindHeading, Level: 1, Runs: []doctree.Run{{Text: "Title"}}},
		{Kind: doctree.KindParagraph, Runs: []doctree.Run{
			{Text: "Hello "},
			{Text: "world", Bold: true},
		}},
	}}

	data, report, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		t.Fatalf("artifact missing zip magic, got % x", data[:4])
	}
	if len(report.SkippedImages) != 0 {
		t.Errorf("unexpected skipped images: %v", report.SkippedImages)
	}

	texts := paragraphTexts(t, data)
	if len(texts) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %v", len(texts), texts)
	}
	if texts[0] != "Title" {
		t.Errorf("expected heading text %q, got %q", "Title", texts[0])
	}
	if texts[1] != "Hello world" {
		t.Errorf("expected paragraph text %q, got %q", "Hello world", texts[1])
	}
}

func TestBuild_StrikeRunMarkedInArtifact(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindParagraph, Runs: []doctree.Run{
			{Text: "obsolete", Strike: true},
		}},
	}}

	data, _, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("re-parse artifact: %v", err)
	}
	found := false
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok || run.RunProperties == nil || run.RunProperties.Strike == nil {
				continue
			}
			if run.RunProperties.Strike.Val == "true" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("strike run property missing from artifact")
	}
}

func TestBuild_EmptyTreePlaceholder(t *testing.T) {
	data, _, err := Build(&doctree.Tree{}, nil, "Untitled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		t.Fatalf("placeholder artifact is not a valid container")
	}
	texts := paragraphTexts(t, data)
	if len(texts) != 1 || texts[0] != "Untitled" {
		t.Errorf("expected only the title heading, got %v", texts)
	}
}

func TestBuild_EmbedsOnlySuccessfulImages(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindImage, Src: "https://ok/a.png"},
		{Kind: doctree.KindImage, Src: "https://blocked/b.png"},
	}}
	jobs := map[string]*images.Job{
		"https://ok/a.png": {
			URL: "https://ok/a.png", State: images.StateEmbedded,
			Data: pngBytes(t, 10, 10),
		},
		"https://blocked/b.png": {
			URL: "https://blocked/b.png", State: images.StateFailed, Reason: "validation rejected",
		},
	}

	data, report, err := Build(tree, jobs, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := countMediaEntries(t, data); got != 1 {
		t.Errorf("expected exactly 1 embedded image, got %d", got)
	}
	if len(report.SkippedImages) != 1 || report.SkippedImages[0] != "https://blocked/b.png" {
		t.Errorf("unexpected skip report: %v", report.SkippedImages)
	}
}

func TestBuild_ListNumberingAndDepth(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindListItem, Ordered: true, Runs: []doctree.Run{{Text: "first"}}},
		{Kind: doctree.KindListItem, Ordered: true, Runs: []doctree.Run{{Text: "second"}}},
		{Kind: doctree.KindListItem, Ordered: false, Depth: 1, Runs: []doctree.Run{{Text: "nested"}}},
	}}
	data, _, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	texts := paragraphTexts(t, data)
	if len(texts) != 3 {
		t.Fatalf("expected 3 paragraphs, got %v", texts)
	}
	if !strings.HasPrefix(texts[0], "1. first") || !strings.HasPrefix(texts[1], "2. second") {
		t.Errorf("ordered numbering wrong: %v", texts)
	}
	if !strings.Contains(texts[2], "• nested") {
		t.Errorf("bullet marker missing: %q", texts[2])
	}
}

func TestBuild_CodeBlockPreservesLines(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindCodeBlock, Language: "js", Code: "let x=1;\nlet y=2;"},
	}}
	data, _, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	texts := paragraphTexts(t, data)
	if len(texts) != 2 {
		t.Fatalf("expected one paragraph per code line, got %v", texts)
	}
	if texts[0] != "let x=1;" || texts[1] != "let y=2;" {
		t.Errorf("code lines not preserved verbatim: %v", texts)
	}
}

func TestBuild_QuoteAndDividerAndLink(t *testing.T) {
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindQuote, Children: []*doctree.Node{
			{Kind: doctree.KindParagraph, Runs: []doctree.Run{{Text: "quoted"}}},
		}},
		{Kind: doctree.KindDivider},
		{Kind: doctree.KindLink, Text: "read me", Href: "https://x/doc"},
	}}
	data, _, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	texts := paragraphTexts(t, data)
	found := false
	for _, s := range texts {
		if strings.Contains(s, "quoted") {
			if !strings.HasPrefix(s, "    ") && s != "quoted" {
				t.Errorf("quoted paragraph unexpected form: %q", s)
			}
			found = true
		}
	}
	if !found {
		t.Errorf("quoted text missing from %v", texts)
	}
}

func TestBuild_TableSerializes(t *testing.T) {
	cell := func(text string, header bool) *doctree.Cell {
		return &doctree.Cell{
			Header: header,
			Children: []*doctree.Node{
				{Kind: doctree.KindParagraph, Runs: []doctree.Run{{Text: text}}},
			},
		}
	}
	tree := &doctree.Tree{Nodes: []*doctree.Node{
		{Kind: doctree.KindTable, Rows: [][]*doctree.Cell{
			{cell("H1", true), cell("H2", true)},
			{cell("a", false), cell("b", false)},
		}},
	}}
	data, _, err := Build(tree, nil, "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		t.Fatalf("table artifact invalid")
	}
	if _, err := docx.Parse(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Errorf("artifact with table does not re-parse: %v", err)
	}
}
