// Package card resolves the rich-text dialect's opaque card blocks into
// canonical markup fragments the parser understands. Resolution is pure
// text-to-text and performs no I/O; a card that cannot be decoded becomes an
// inert placeholder without disturbing its siblings.
package card

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// placeholder replaces cards that cannot be decoded or classified.
const placeholder = "<!-- card omitted -->"

var cardValueExpr = regexp.MustCompile(`data-card-value\s*=\s*(?:"([^"]*)"|'([^']*)')`)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true,
}

// payload is the decoded card body. Cards are free-form JSON, so every field
// is optional; kind inference fills the gaps.
type payload struct {
	Type     string              `json:"type"`
	Src      string              `json:"src"`
	URL      string              `json:"url"`
	Href     string              `json:"href"`
	Name     string              `json:"name"`
	Title    string              `json:"title"`
	Text     string              `json:"text"`
	Code     string              `json:"code"`
	Language string              `json:"language"`
	Width    float64             `json:"width"`
	Height   float64             `json:"height"`
	Rows     [][]json.RawMessage `json:"rows"`
}

// Resolve replaces every card block in markup with its canonical fragment.
func Resolve(markup string) string {
	var out strings.Builder
	rest := markup
	for {
		i := strings.Index(rest, "<card")
		if i < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:i])

		tagEnd := strings.Index(rest[i:], ">")
		if tagEnd < 0 {
			// Truncated tag at end of input; emit as-is.
			out.WriteString(rest[i:])
			break
		}
		tag := rest[i : i+tagEnd+1]
		after := rest[i+tagEnd+1:]

		// Skip to the closing tag unless the card is self-closing. Card
		// bodies are opaque; any inner content is discarded.
		if !strings.HasSuffix(tag, "/>") {
			if j := strings.Index(after, "</card>"); j >= 0 {
				after = after[j+len("</card>"):]
			}
		}

		out.WriteString(convert(tag))
		rest = after
	}
	return out.String()
}

// convert decodes one card tag and dispatches to its kind converter.
func convert(tag string) string {
	m := cardValueExpr.FindStringSubmatch(tag)
	if m == nil {
		return placeholder
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}

	// Decode: URL-decode, strip the data: scheme prefix, undo HTML entity
	// escaping, then parse as JSON.
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}
	decoded = strings.TrimPrefix(decoded, "data:")
	decoded = html.UnescapeString(decoded)

	var p payload
	if err := json.Unmarshal([]byte(decoded), &p); err != nil {
		return placeholder
	}

	switch inferKind(&p) {
	case "image":
		return convertImage(&p)
	case "code":
		return convertCode(&p)
	case "table":
		return convertTable(&p)
	case "video", "file", "link":
		return convertLink(&p)
	default:
		return placeholder
	}
}

// inferKind classifies a card, preferring an explicit type field and falling
// back to structural heuristics.
func inferKind(p *payload) string {
	switch p.Type {
	case "image", "code", "table", "file", "video", "link":
		return p.Type
	}
	if p.Code != "" || p.Language != "" {
		return "code"
	}
	if len(p.Rows) > 0 {
		return "table"
	}
	if ext := sourceExt(p); ext != "" {
		if imageExts[ext] {
			return "image"
		}
		if videoExts[ext] {
			return "video"
		}
	}
	if p.Href != "" {
		return "link"
	}
	if p.Name != "" && p.URL != "" {
		return "file"
	}
	return ""
}

func sourceExt(p *payload) string {
	src := p.Src
	if src == "" {
		src = p.URL
	}
	if src == "" {
		return ""
	}
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		src = u.Path
	}
	return strings.ToLower(path.Ext(src))
}

func (p *payload) source() string {
	if p.Src != "" {
		return p.Src
	}
	if p.URL != "" {
		return p.URL
	}
	return p.Href
}

func (p *payload) display() string {
	for _, s := range []string{p.Name, p.Title, p.Text} {
		if s != "" {
			return s
		}
	}
	return p.source()
}

func convertImage(p *payload) string {
	src := p.source()
	if src == "" {
		return placeholder
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<img src="%s"`, html.EscapeString(src))
	if p.Width > 0 {
		fmt.Fprintf(&b, ` width="%d"`, int(p.Width))
	}
	if p.Height > 0 {
		fmt.Fprintf(&b, ` height="%d"`, int(p.Height))
	}
	b.WriteString(">")
	return b.String()
}

func convertCode(p *payload) string {
	if p.Code == "" {
		return placeholder
	}
	class := ""
	if p.Language != "" {
		class = fmt.Sprintf(` class="language-%s"`, html.EscapeString(p.Language))
	}
	return fmt.Sprintf("<pre><code%s>%s</code></pre>", class, html.EscapeString(p.Code))
}

func convertTable(p *payload) string {
	if len(p.Rows) == 0 {
		return placeholder
	}
	var b strings.Builder
	b.WriteString("<table>")
	for _, row := range p.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cellText(cell)))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// cellText renders one table cell value. Cells are usually strings but the
// dialect also allows bare numbers and booleans.
func cellText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func convertLink(p *payload) string {
	target := p.Href
	if target == "" {
		target = p.source()
	}
	if target == "" {
		return placeholder
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`,
		html.EscapeString(target), html.EscapeString(p.display()))
}
