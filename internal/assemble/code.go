package assemble

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/dgallion1/docexport/internal/doctree"
)

// codeStyle is the highlight palette for embedded code blocks.
const codeStyle = "github"

// codeRuns tokenizes a code block into per-line monospace runs, colored when
// the language has a lexer. Line breaks are preserved verbatim; each group
// in the result is one output paragraph.
func codeRuns(language, code string) [][]doctree.Run {
	lexer := lexers.Get(language)
	if lexer == nil {
		return plainCodeRuns(code)
	}
	lexer = chroma.Coalesce(lexer)

	st := styles.Get(codeStyle)
	if st == nil {
		st = styles.Fallback
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return plainCodeRuns(code)
	}

	var groups [][]doctree.Run
	var cur []doctree.Run
	for _, tok := range it.Tokens() {
		colour := st.Get(tok.Type).Colour
		hex := ""
		if colour.IsSet() {
			hex = strings.ToUpper(strings.TrimPrefix(colour.String(), "#"))
		}
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			if part == "" {
				continue
			}
			cur = append(cur, doctree.Run{Text: part, Color: hex, Font: "monospace"})
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	// The tokeniser normalizes a trailing newline; drop the empty line it
	// leaves behind.
	for len(groups) > 0 && len(groups[len(groups)-1]) == 0 {
		groups = groups[:len(groups)-1]
	}
	if len(groups) == 0 {
		return plainCodeRuns(code)
	}
	return groups
}

func plainCodeRuns(code string) [][]doctree.Run {
	lines := strings.Split(code, "\n")
	groups := make([][]doctree.Run, 0, len(lines))
	for _, line := range lines {
		var group []doctree.Run
		if line != "" {
			group = []doctree.Run{{Text: line, Font: "monospace"}}
		}
		groups = append(groups, group)
	}
	return groups
}
