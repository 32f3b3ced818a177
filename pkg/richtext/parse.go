package richtext

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"maunium.net/go/mautrix/id"
)

// FromHTML converts a Matrix formatted_body into a document. Formatting is
// kept as markdown markers, matrix.to user and room links become pills, and
// reply fallbacks are dropped.
func FromHTML(formattedBody string) *Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(formattedBody))
	if err != nil {
		return FromLiteral(formattedBody)
	}
	conv := &htmlConverter{}
	conv.walk(doc.Find("body"))
	return New(conv.finish()...)
}

type htmlConverter struct {
	nodes []Node
	// pendingBreak is the number of newlines that must precede the next content.
	pendingBreak int
	pre          bool
	code         bool
}

func (c *htmlConverter) trailingNewlines() int {
	count := 0
	for i := len(c.nodes) - 1; i >= 0 && c.nodes[i].Kind == KindNewline; i-- {
		count++
	}
	return count
}

func (c *htmlConverter) atLineStart() bool {
	return len(c.nodes) == 0 || c.nodes[len(c.nodes)-1].Kind == KindNewline || c.pendingBreak > 0
}

func (c *htmlConverter) flush() {
	if c.pendingBreak == 0 {
		return
	}
	if len(c.nodes) > 0 {
		for i := c.trailingNewlines(); i < c.pendingBreak; i++ {
			c.nodes = append(c.nodes, Newline())
		}
	}
	c.pendingBreak = 0
}

func (c *htmlConverter) breakLines(n int) {
	c.pendingBreak = max(c.pendingBreak, n)
}

func (c *htmlConverter) add(n Node) {
	c.flush()
	c.nodes = append(c.nodes, n)
}

func (c *htmlConverter) text(s string) {
	if !c.pre {
		s = collapseHTMLWhitespace(s)
		if c.atLineStart() {
			s = strings.TrimLeftFunc(s, unicode.IsSpace)
		}
		if s == "" {
			return
		}
	}
	c.flush()
	n := LiteralText(s)
	if c.pre || c.code {
		n = Text(s)
	}
	c.nodes = append(c.nodes, normalize([]Node{n})...)
}

func (c *htmlConverter) marker(s string) {
	c.flush()
	c.nodes = append(c.nodes, Text(s))
}

func (c *htmlConverter) newline() {
	c.flush()
	c.nodes = append(c.nodes, Newline())
}

func (c *htmlConverter) finish() []Node {
	nodes := normalize(c.nodes)
	for i := range nodes {
		if nodes[i].Kind != KindText || c.pre {
			continue
		}
		if i == len(nodes)-1 || nodes[i+1].Kind == KindNewline {
			nodes[i].Text = strings.TrimRight(nodes[i].Text, " ")
		}
	}
	return New(nodes...).Trimmed().nodes
}

func collapseHTMLWhitespace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func (c *htmlConverter) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		c.element(child)
	})
}

func (c *htmlConverter) wrapped(child *goquery.Selection, marker string) {
	c.marker(marker)
	c.walk(child)
	c.marker(marker)
}

func (c *htmlConverter) element(child *goquery.Selection) {
	switch name := goquery.NodeName(child); name {
	case "#text":
		c.text(child.Text())
	case "#comment", "mx-reply", "script", "style":
	case "br":
		c.newline()
	case "p", "div", "details", "summary", "table", "tr":
		c.breakLines(2)
		c.walk(child)
		c.breakLines(2)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(name[1:])
		c.breakLines(2)
		c.marker(strings.Repeat("#", level) + " ")
		c.walk(child)
		c.breakLines(2)
	case "strong", "b":
		c.wrapped(child, "**")
	case "em", "i":
		c.wrapped(child, "*")
	case "del", "s", "strike":
		c.wrapped(child, "~~")
	case "code":
		if c.pre {
			c.walk(child)
		} else {
			c.inlineCode(child)
		}
	case "pre":
		c.breakLines(2)
		c.marker("```")
		c.newline()
		c.pre = true
		c.walk(child)
		c.pre = false
		if c.trailingNewlines() == 0 {
			c.newline()
		}
		c.marker("```")
		c.breakLines(2)
	case "blockquote":
		c.breakLines(2)
		c.quote(child)
		c.breakLines(2)
	case "ul", "ol":
		c.list(child, name == "ol")
	case "hr":
		c.breakLines(2)
		c.marker("---")
		c.breakLines(2)
	case "a":
		c.link(child)
	case "img":
		alt := strings.TrimSpace(child.AttrOr("alt", child.AttrOr("title", "")))
		if alt != "" {
			c.text(alt)
		}
	default:
		c.walk(child)
	}
}

func (c *htmlConverter) inlineCode(child *goquery.Selection) {
	open, closing := "`", "`"
	if strings.Contains(child.Text(), "`") {
		open, closing = "`` ", " ``"
	}
	c.marker(open)
	c.code = true
	c.walk(child)
	c.code = false
	c.marker(closing)
}

func (c *htmlConverter) quote(child *goquery.Selection) {
	inner := &htmlConverter{}
	inner.walk(child)
	nodes := inner.finish()
	c.marker("> ")
	for _, n := range nodes {
		c.add(n)
		if n.Kind == KindNewline {
			c.marker("> ")
		}
	}
}

func (c *htmlConverter) list(child *goquery.Selection, ordered bool) {
	c.breakLines(2)
	index, err := strconv.Atoi(child.AttrOr("start", "1"))
	if err != nil {
		index = 1
	}
	child.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
		c.breakLines(1)
		if ordered {
			c.marker(strconv.Itoa(index) + ". ")
			index++
		} else {
			c.marker("- ")
		}
		c.walk(item)
	})
	c.breakLines(2)
}

func (c *htmlConverter) link(child *goquery.Selection) {
	href := strings.TrimSpace(child.AttrOr("href", ""))
	text := strings.TrimSpace(child.Text())
	if uri, err := id.ParseMatrixURIOrMatrixToURL(href); err == nil && uri != nil {
		switch uri.Sigil1 {
		case '@':
			c.add(UserPill(string(uri.UserID()), text))
			return
		case '#':
			c.add(RoomPill(string(uri.RoomAlias()), text))
			return
		case '!':
			if uri.Sigil2 == 0 {
				c.add(RoomPill(string(uri.RoomID()), text))
				return
			}
		}
	}
	switch {
	case href == "":
		c.walk(child)
	case text == "" || text == href:
		c.text(href)
	default:
		c.marker("[")
		c.walk(child)
		c.marker("](" + href + ")")
	}
}
