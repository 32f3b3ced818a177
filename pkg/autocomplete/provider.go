package autocomplete

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/kyokomi/emoji/v2"
	"github.com/sahilm/fuzzy"
	"go.mau.fi/util/variationselector"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/richtext"
	"github.com/beeper/msgedit/pkg/shared/stringutil"
)

const DefaultLimit = 8

// Candidate is a single popup entry together with the node inserted when it
// is selected.
type Candidate struct {
	Title  string
	Detail string
	Node   richtext.Node
}

// Provider lists candidates for a query, best match first.
type Provider interface {
	Candidates(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Apply replaces the context's range with the candidate's node followed by a
// space, leaving the cursor after the space.
func Apply(doc *richtext.Document, ac Context, c Candidate) {
	doc.ReplaceRange(ac.Range.Start, ac.Range.End, c.Node, richtext.Text(" "))
}

type User struct {
	ID          id.UserID
	DisplayName string
}

type Room struct {
	ID    id.RoomID
	Alias id.RoomAlias
	Name  string
}

type candidateSource []string

func (s candidateSource) String(i int) string { return s[i] }
func (s candidateSource) Len() int            { return len(s) }

// rank returns the indexes of keys matching query in fuzzy score order, or
// the first limit indexes for an empty query.
func rank(query string, keys []string, limit int) []int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []int
	if query == "" {
		for i := range min(limit, len(keys)) {
			out = append(out, i)
		}
		return out
	}
	for _, match := range fuzzy.FindFrom(query, candidateSource(keys)) {
		out = append(out, match.Index)
		if len(out) == limit {
			break
		}
	}
	return out
}

// UserProvider completes room members and, when allowed, the @room mention.
type UserProvider struct {
	users     []User
	keys      []string
	allowRoom bool
}

func NewUserProvider(users []User, allowRoom bool) *UserProvider {
	sorted := slices.Clone(users)
	slices.SortFunc(sorted, func(a, b User) int {
		return strings.Compare(strings.ToLower(userTitle(a)), strings.ToLower(userTitle(b)))
	})
	keys := make([]string, len(sorted))
	for i, u := range sorted {
		keys[i] = userTitle(u) + " " + string(u.ID)
	}
	return &UserProvider{users: sorted, keys: keys, allowRoom: allowRoom}
}

func userTitle(u User) string {
	return stringutil.FirstNonEmpty(u.DisplayName, string(u.ID))
}

func (p *UserProvider) Candidates(_ context.Context, query string, limit int) ([]Candidate, error) {
	var out []Candidate
	if p.allowRoom && strings.HasPrefix("room", strings.ToLower(query)) {
		out = append(out, Candidate{Title: "@room", Detail: "Notify everyone in the room", Node: richtext.AtRoom()})
	}
	for _, i := range rank(query, p.keys, limit) {
		u := p.users[i]
		out = append(out, Candidate{
			Title:  userTitle(u),
			Detail: string(u.ID),
			Node:   richtext.UserPill(string(u.ID), userTitle(u)),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RoomProvider completes joined rooms. Rooms with a canonical alias are
// mentioned by alias, the rest by ID.
type RoomProvider struct {
	rooms []Room
	keys  []string
}

func NewRoomProvider(rooms []Room) *RoomProvider {
	sorted := slices.Clone(rooms)
	slices.SortFunc(sorted, func(a, b Room) int {
		return strings.Compare(strings.ToLower(roomTitle(a)), strings.ToLower(roomTitle(b)))
	})
	keys := make([]string, len(sorted))
	for i, r := range sorted {
		keys[i] = strings.TrimPrefix(stringutil.FirstNonEmpty(string(r.Alias), string(r.ID)), "#") + " " + r.Name
	}
	return &RoomProvider{rooms: sorted, keys: keys}
}

func roomTitle(r Room) string {
	return stringutil.FirstNonEmpty(r.Name, string(r.Alias), string(r.ID))
}

func (p *RoomProvider) Candidates(_ context.Context, query string, limit int) ([]Candidate, error) {
	var out []Candidate
	for _, i := range rank(query, p.keys, limit) {
		r := p.rooms[i]
		target := stringutil.FirstNonEmpty(string(r.Alias), string(r.ID))
		out = append(out, Candidate{
			Title:  roomTitle(r),
			Detail: target,
			Node:   richtext.RoomPill(target, stringutil.FirstNonEmpty(string(r.Alias), roomTitle(r))),
		})
	}
	return out, nil
}

type shortcode struct {
	name  string
	emoji string
}

var loadShortcodes = sync.OnceValue(func() []shortcode {
	codes := emoji.CodeMap()
	out := make([]shortcode, 0, len(codes))
	for code, value := range codes {
		name := strings.Trim(code, ":")
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		out = append(out, shortcode{name: name, emoji: variationselector.Add(value)})
	}
	slices.SortFunc(out, func(a, b shortcode) int {
		return strings.Compare(a.name, b.name)
	})
	return out
})

// EmojiProvider completes unicode emoji by shortcode. Shortcodes starting
// with the query rank before fuzzy matches.
type EmojiProvider struct {
	codes []shortcode
	keys  []string
}

func NewEmojiProvider() *EmojiProvider {
	codes := loadShortcodes()
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = c.name
	}
	return &EmojiProvider{codes: codes, keys: keys}
}

func (p *EmojiProvider) Candidates(_ context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.ToLower(query)
	seen := make(map[string]struct{})
	var out []Candidate
	add := func(c shortcode) {
		if _, ok := seen[c.emoji]; ok || len(out) >= limit {
			return
		}
		seen[c.emoji] = struct{}{}
		out = append(out, Candidate{
			Title:  c.emoji,
			Detail: ":" + c.name + ":",
			Node:   richtext.Emoji(c.emoji, c.name),
		})
	}
	for _, c := range p.codes {
		if strings.HasPrefix(c.name, query) {
			add(c)
		}
	}
	for _, match := range fuzzy.FindFrom(query, candidateSource(p.keys)) {
		if len(out) >= limit {
			break
		}
		add(p.codes[match.Index])
	}
	return out, nil
}

// Providers selects the candidate source for each context kind.
type Providers struct {
	Rooms  Provider
	Users  Provider
	Emojis Provider
}

// For returns the provider for kind, or nil when kind has no popup.
func (p Providers) For(kind Kind) Provider {
	switch kind {
	case RoomMention:
		return p.Rooms
	case UserMention:
		return p.Users
	case Emoticon:
		return p.Emojis
	default:
		return nil
	}
}
