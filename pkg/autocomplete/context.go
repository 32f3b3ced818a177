// Package autocomplete resolves the autocomplete context from the word before
// the editor cursor and ranks mention and emoticon candidates for it.
package autocomplete

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the trigger of an autocomplete context. Exactly one popup exists
// per kind.
type Kind uint8

const (
	None Kind = iota
	RoomMention
	UserMention
	Emoticon
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case RoomMention:
		return "room_mention"
	case UserMention:
		return "user_mention"
	case Emoticon:
		return "emoticon"
	default:
		return "unknown"
	}
}

const (
	RoomTrigger     = '#'
	UserTrigger     = '@'
	EmoticonTrigger = ':'

	// MinEmoticonQuery keeps ":" in ordinary text from opening the picker.
	MinEmoticonQuery = 1
)

// Range is a half-open span of cursor positions in the document.
type Range struct {
	Start int
	End   int
}

// Context is the active autocomplete query. The zero value is inactive.
type Context struct {
	Kind  Kind
	Query string
	Range Range
}

func (c Context) Active() bool {
	return c.Kind != None
}

// Resolve returns the context for the word that ends at the cursor and starts
// at the given offset. Words without a recognized trigger resolve to None.
func Resolve(start int, word string) Context {
	trigger, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return Context{}
	}
	query := word[size:]
	var kind Kind
	switch trigger {
	case RoomTrigger:
		kind = RoomMention
	case UserTrigger:
		kind = UserMention
	case EmoticonTrigger:
		if utf8.RuneCountInString(query) < MinEmoticonQuery || !isShortcodeQuery(query) {
			return Context{}
		}
		kind = Emoticon
	default:
		return Context{}
	}
	return Context{
		Kind:  kind,
		Query: query,
		Range: Range{Start: start, End: start + utf8.RuneCountInString(word)},
	}
}

func isShortcodeQuery(query string) bool {
	return strings.IndexFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '+' && r != '-'
	}) < 0
}
