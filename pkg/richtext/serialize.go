package richtext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

const matrixToPrefix = "https://matrix.to/#/"

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRendererOptions(ghtml.WithHardWraps(), ghtml.WithUnsafe()),
)

var (
	markdownEscaper = strings.NewReplacer(
		`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`", "~", `\~`, "<", `\<`, ">", `\>`, "&", `\&`,
	)
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Permalink returns the matrix.to link for a user ID, room alias or room ID.
// The alias sigil is percent-encoded so the link survives URL normalization.
func Permalink(target string) string {
	return matrixToPrefix + strings.ReplaceAll(target, "#", "%23")
}

// FromPlain converts text typed by the user into a document. Markdown in it
// keeps its meaning.
func FromPlain(text string) *Document {
	return New(Text(text))
}

// FromLiteral converts the plain body of a received message into a document
// whose text is kept verbatim when serialized as markdown.
func FromLiteral(text string) *Document {
	return New(LiteralText(text))
}

// Plain serializes the document as the text a user sees: pills become their
// display text and markdown markers are kept as typed.
func (d *Document) Plain() string {
	var sb strings.Builder
	for _, n := range d.nodes {
		sb.WriteString(n.Text)
	}
	return sb.String()
}

// Markdown serializes the document as markdown source with pills as links.
// Literal text is escaped.
func (d *Document) Markdown() string {
	var sb strings.Builder
	lineStart := 0
	for _, n := range d.nodes {
		switch {
		case n.Kind == KindUserPill || n.Kind == KindRoomPill:
			sb.WriteString("[")
			sb.WriteString(markdownEscaper.Replace(n.Text))
			sb.WriteString("](")
			sb.WriteString(Permalink(n.Target))
			sb.WriteString(")")
		case n.Kind == KindText && n.Literal:
			text := markdownEscaper.Replace(n.Text)
			if strings.Trim(sb.String()[lineStart:], " >") == "" {
				text = escapeBlockStart(text)
			}
			sb.WriteString(text)
		default:
			sb.WriteString(n.Text)
		}
		if n.Kind == KindNewline {
			lineStart = sb.Len()
		}
	}
	return sb.String()
}

// escapeBlockStart escapes a line opening that markdown would read as a
// heading, list item or thematic break.
func escapeBlockStart(text string) string {
	trimmed := strings.TrimLeft(text, " ")
	indent := text[:len(text)-len(trimmed)]
	if trimmed == "" {
		return text
	}
	if strings.IndexByte("#-+=", trimmed[0]) >= 0 {
		return indent + `\` + trimmed
	}
	digits := len(trimmed) - len(strings.TrimLeft(trimmed, "0123456789"))
	if digits > 0 && digits < len(trimmed) && (trimmed[digits] == '.' || trimmed[digits] == ')') {
		return indent + trimmed[:digits] + `\` + trimmed[digits:]
	}
	return text
}

// HTML serializes the document as sanitized HTML. In markdown mode the text
// is interpreted as markdown, otherwise it is escaped literally.
func (d *Document) HTML(markdown bool) string {
	if markdown {
		return Sanitize(renderMarkdown(d.Markdown()))
	}
	return Sanitize(d.literalHTML())
}

func (d *Document) literalHTML() string {
	var sb strings.Builder
	for _, n := range d.nodes {
		switch n.Kind {
		case KindNewline:
			sb.WriteString("<br>")
		case KindUserPill, KindRoomPill:
			sb.WriteString(`<a href="`)
			sb.WriteString(attrEscaper.Replace(Permalink(n.Target)))
			sb.WriteString(`">`)
			sb.WriteString(textEscaper.Replace(n.Text))
			sb.WriteString("</a>")
		default:
			sb.WriteString(textEscaper.Replace(n.Text))
		}
	}
	return sb.String()
}

func renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(source), &buf); err != nil {
		return textEscaper.Replace(source)
	}
	out := strings.TrimSpace(buf.String())
	// A lone paragraph doesn't need its wrapper.
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out
}
