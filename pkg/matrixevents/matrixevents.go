package matrixevents

import (
	"strconv"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const (
	RelReplace = event.RelReplace

	// EditFallbackPrefix marks the outer body of an edit for clients that
	// don't understand m.replace.
	EditFallbackPrefix = "* "

	NewContentKey    = "m.new_content"
	RelatesToKey     = "m.relates_to"
	BodyKey          = "body"
	FormatKey        = "format"
	FormattedBodyKey = "formatted_body"
	MsgTypeKey       = "msgtype"
)

// Relation returns the relation type and target event of raw event content.
// Works on both parsed and unparsed content.
func Relation(content *event.Content) (event.RelationType, id.EventID) {
	if content == nil {
		return "", ""
	}
	if msg, ok := content.Parsed.(*event.MessageEventContent); ok && msg.RelatesTo != nil {
		return msg.RelatesTo.Type, msg.RelatesTo.EventID
	}
	rel, ok := content.Raw[RelatesToKey].(map[string]any)
	if !ok {
		return "", ""
	}
	relType, _ := rel["rel_type"].(string)
	target, _ := rel["event_id"].(string)
	return event.RelationType(relType), id.EventID(target)
}

// IsReplacement reports whether evt is an m.replace edit of target.
func IsReplacement(evt *event.Event, target id.EventID) bool {
	if evt == nil {
		return false
	}
	relType, relTarget := Relation(&evt.Content)
	return relType == RelReplace && relTarget == target
}

// NewContent returns the m.new_content object of an edit event, or nil.
func NewContent(content *event.Content) map[string]any {
	if content == nil {
		return nil
	}
	newContent, _ := content.Raw[NewContentKey].(map[string]any)
	return newContent
}

// BuildEditTxnID returns a transaction ID for an edit attempt.
func BuildEditTxnID(sessionID string, attempt uint64, nonce string) string {
	if sessionID == "" {
		return "msgedit_" + nonce
	}
	return "msgedit_" + sessionID + "_" + nonce + "_" + strconv.FormatUint(attempt, 10)
}
