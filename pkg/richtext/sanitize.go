package richtext

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/beeper/msgedit/pkg/shared/stringutil"
)

var (
	mxcSource     = regexp.MustCompile(`^mxc://`)
	languageClass = regexp.MustCompile(`^language-[\w+#.-]+$`)
)

// matrixPolicy is the Matrix client-server recommended allow-list for
// m.room.message formatted bodies.
var matrixPolicy = newMatrixPolicy()

func newMatrixPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"del", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "p", "ul", "ol",
		"sup", "sub", "li", "b", "i", "u", "strong", "em", "strike", "s", "code",
		"hr", "br", "div", "table", "thead", "tbody", "tr", "th", "td", "caption",
		"pre", "details", "summary", "span", "font",
	)
	p.AllowAttrs("data-mx-bg-color", "data-mx-color", "color").OnElements("font")
	p.AllowAttrs("data-mx-bg-color", "data-mx-color", "data-mx-spoiler").OnElements("span")
	p.AllowAttrs("name", "target", "href").OnElements("a")
	p.AllowAttrs("width", "height", "alt", "title").OnElements("img")
	p.AllowAttrs("src").Matching(mxcSource).OnElements("img")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("https", "http", "ftp", "mailto", "magnet", "matrix", "mxc")
	p.SkipElementsContent("mx-reply", "head", "title")
	return p
}

func parseFragment(fragment string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
}

// Sanitize restricts an HTML fragment to the allow-listed tags and
// attributes. Disallowed elements are unwrapped, keeping their text, except
// scripts, styles and reply fallbacks which are dropped whole.
func Sanitize(fragment string) string {
	return matrixPolicy.Sanitize(fragment)
}

// Equivalent reports whether sanitized HTML carries nothing beyond the plain
// text: only paragraphs and line breaks, with the same visible text.
func Equivalent(sanitizedHTML, plain string) bool {
	nodes, err := parseFragment(sanitizedHTML)
	if err != nil {
		return false
	}
	var sb strings.Builder
	paragraphs := 0
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			return true
		case html.ElementNode:
			switch n.Data {
			case "br":
				sb.WriteString("\n")
				return true
			case "p":
				if paragraphs > 0 {
					sb.WriteString("\n\n")
				}
				paragraphs++
			default:
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	for _, n := range nodes {
		if !walk(n) {
			return false
		}
	}
	return normalizeLines(sb.String()) == normalizeLines(plain)
}

func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stringutil.CollapseWhitespace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
