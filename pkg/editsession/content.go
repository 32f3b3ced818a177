package editsession

import (
	"slices"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixevents"
	"github.com/beeper/msgedit/pkg/richtext"
	"github.com/beeper/msgedit/pkg/shared/stringutil"
)

// Body is the text of a message version as found in its content.
type Body struct {
	Plain string
	// HTML is empty unless the content had a usable formatted_body.
	HTML string
}

// ExtractBody reads body and formatted_body from content, preferring the
// m.new_content of an edit. Non-string fields are treated as absent.
func ExtractBody(content *event.Content) Body {
	if content == nil {
		return Body{}
	}
	fields := matrixevents.NewContent(content)
	if fields == nil {
		fields = content.Raw
	}
	if fields == nil {
		if msg, ok := content.Parsed.(*event.MessageEventContent); ok {
			if msg.NewContent != nil {
				msg = msg.NewContent
			}
			return bodyFromMessage(msg)
		}
		return Body{}
	}
	body, _ := fields[matrixevents.BodyKey].(string)
	formatted, _ := fields[matrixevents.FormattedBodyKey].(string)
	formatName, _ := fields[matrixevents.FormatKey].(string)
	if formatName != "" && event.Format(formatName) != event.FormatHTML {
		formatted = ""
	}
	return Body{Plain: body, HTML: formatted}
}

func bodyFromMessage(msg *event.MessageEventContent) Body {
	out := Body{Plain: msg.Body}
	if msg.Format == "" || msg.Format == event.FormatHTML {
		out.HTML = msg.FormattedBody
	}
	return out
}

// Document converts the body into an editor document.
func (b Body) Document() *richtext.Document {
	if b.HTML != "" {
		return richtext.FromHTML(b.HTML)
	}
	return richtext.FromLiteral(b.Plain)
}

// Preview is a single line summary of the body for the panel header.
func (b Body) Preview(limit int) string {
	text := b.Plain
	if b.HTML != "" {
		text = format.HTMLToText(b.HTML)
	}
	return stringutil.Truncate(stringutil.CollapseWhitespace(stringutil.StripMarkup(text)), limit)
}

// Serialized is the document converted for sending.
type Serialized struct {
	Plain string
	// HTML is empty when it would carry nothing beyond Plain.
	HTML     string
	Mentions event.Mentions
}

func (s Serialized) Empty() bool {
	return s.Plain == ""
}

// SerializeDocument trims the document and converts it to plain text and
// sanitized HTML, dropping the HTML when it is equivalent to the text.
func SerializeDocument(doc *richtext.Document, markdown bool) Serialized {
	trimmed := doc.Trimmed()
	out := Serialized{Plain: trimmed.Plain()}
	if out.Plain == "" {
		return out
	}
	html := trimmed.HTML(markdown)
	if !richtext.Equivalent(html, out.Plain) {
		out.HTML = html
	}
	for _, n := range trimmed.Nodes() {
		switch n.Kind {
		case richtext.KindUserPill:
			userID := id.UserID(n.Target)
			if !slices.Contains(out.Mentions.UserIDs, userID) {
				out.Mentions.UserIDs = append(out.Mentions.UserIDs, userID)
			}
		case richtext.KindAtRoom:
			out.Mentions.Room = true
		}
	}
	return out
}

// BuildEditPayload builds the m.replace content that edits target to s.
func BuildEditPayload(target Target, s Serialized) *event.MessageEventContent {
	msgType := target.MsgType
	if msgType == "" {
		msgType = event.MsgText
	}
	newContent := &event.MessageEventContent{
		MsgType:  msgType,
		Body:     s.Plain,
		Mentions: mentionsCopy(s.Mentions),
	}
	content := &event.MessageEventContent{
		MsgType:    msgType,
		Body:       matrixevents.EditFallbackPrefix + s.Plain,
		Mentions:   mentionsCopy(s.Mentions),
		NewContent: newContent,
		RelatesTo: &event.RelatesTo{
			Type:    matrixevents.RelReplace,
			EventID: target.EventID,
		},
	}
	if s.HTML != "" {
		newContent.Format = event.FormatHTML
		newContent.FormattedBody = s.HTML
		content.Format = event.FormatHTML
		content.FormattedBody = matrixevents.EditFallbackPrefix + s.HTML
	}
	return content
}

func mentionsCopy(m event.Mentions) *event.Mentions {
	return &event.Mentions{UserIDs: slices.Clone(m.UserIDs), Room: m.Room}
}
