// Package sanitize restricts arbitrary input markup to the tag and attribute
// allow-list the conversion pipeline understands. It is best-effort and never
// fails: dangerous subtrees are dropped, unrecognized tags are unwrapped so
// their text survives.
package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// allowedTags maps each permitted element to its permitted attributes.
// The card element carries the proprietary rich-text dialect's encoded
// payload and is resolved downstream; its payload attribute must survive.
var allowedTags = map[string]map[string]bool{
	"h1": nil, "h2": nil, "h3": nil, "h4": nil, "h5": nil, "h6": nil,
	"p":          {"style": true},
	"br":         nil,
	"hr":         nil,
	"b":          nil,
	"strong":     nil,
	"i":          nil,
	"em":         nil,
	"u":          nil,
	"s":          nil,
	"del":        nil,
	"strike":     nil,
	"ol":         nil,
	"ul":         nil,
	"li":         nil,
	"table":      nil,
	"thead":      nil,
	"tbody":      nil,
	"tr":         nil,
	"th":         {"style": true},
	"td":         {"style": true},
	"img":        {"src": true, "width": true, "height": true, "alt": true},
	"a":          {"href": true},
	"pre":        nil,
	"code":       {"class": true},
	"blockquote": nil,
	"span":       {"style": true},
	"div":        {"style": true},
	"card":       {"data-card-value": true},
}

// droppedTags are removed together with their contents.
var droppedTags = "script, style, iframe, object, embed, form, noscript, svg, video, audio, canvas"

// allowedStyleProps are the only CSS declarations that survive in a style
// attribute; everything else is stripped.
var allowedStyleProps = map[string]bool{
	"color":            true,
	"background-color": true,
	"text-align":       true,
}

// Sanitize returns markup restricted to the allow-list. It never returns an
// error; input that cannot be parsed at all yields an empty string.
func Sanitize(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	doc.Find(droppedTags).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	for _, n := range body.Nodes {
		cleanChildren(n)
	}

	out, err := body.Html()
	if err != nil {
		return ""
	}
	return out
}

// cleanChildren walks the element children of n, unwrapping disallowed tags
// in place and filtering attributes on allowed ones.
func cleanChildren(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			c = next
			continue
		}
		if c.Type != html.ElementNode {
			c = next
			continue
		}
		allowedAttrs, ok := allowedTags[c.Data]
		if !ok {
			// Unwrap: lift children into c's position, then drop the tag.
			first := c.FirstChild
			for gc := c.FirstChild; gc != nil; {
				gn := gc.NextSibling
				c.RemoveChild(gc)
				n.InsertBefore(gc, c)
				gc = gn
			}
			n.RemoveChild(c)
			if first != nil {
				c = first // lifted nodes still need cleaning
				continue
			}
			c = next
			continue
		}
		filterAttrs(c, allowedAttrs)
		cleanChildren(c)
		c = next
	}
}

func filterAttrs(n *html.Node, allowed map[string]bool) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || !allowed[a.Key] {
			continue
		}
		if a.Key == "style" {
			a.Val = filterStyle(a.Val)
			if a.Val == "" {
				continue
			}
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// filterStyle keeps only allow-listed CSS declarations.
func filterStyle(style string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if allowedStyleProps[name] && value != "" {
			kept = append(kept, name+": "+value)
		}
	}
	return strings.Join(kept, "; ")
}
