// Package richtext holds the in-memory document edited by the message edit
// panel and its conversions to and from Matrix message bodies.
package richtext

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NodeKind identifies the type of a document node.
type NodeKind uint8

const (
	KindText NodeKind = iota
	KindNewline
	KindUserPill
	KindRoomPill
	KindAtRoom
	KindEmoji
)

func (k NodeKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNewline:
		return "newline"
	case KindUserPill:
		return "user_pill"
	case KindRoomPill:
		return "room_pill"
	case KindAtRoom:
		return "at_room"
	case KindEmoji:
		return "emoji"
	default:
		return "unknown"
	}
}

// Node is a single inline element. Everything except text is atomic: the
// cursor never lands inside it and deleting removes the whole node.
type Node struct {
	Kind NodeKind
	// Text is the literal text, the pill display text, or the emoji itself.
	Text string
	// Target is the user ID or room ID/alias of a pill, or the shortcode of an emoji.
	Target string
	// Literal text came from a received message and is escaped when the
	// document is serialized as markdown.
	Literal bool
}

func Text(s string) Node {
	return Node{Kind: KindText, Text: s}
}

// LiteralText is text that must not be interpreted as markdown.
func LiteralText(s string) Node {
	return Node{Kind: KindText, Text: s, Literal: true}
}

func Newline() Node {
	return Node{Kind: KindNewline, Text: "\n"}
}

func UserPill(userID, displayName string) Node {
	if strings.TrimSpace(displayName) == "" {
		displayName = userID
	}
	return Node{Kind: KindUserPill, Text: displayName, Target: userID}
}

func RoomPill(target, displayName string) Node {
	if strings.TrimSpace(displayName) == "" {
		displayName = target
	}
	return Node{Kind: KindRoomPill, Text: displayName, Target: target}
}

func AtRoom() Node {
	return Node{Kind: KindAtRoom, Text: "@room"}
}

func Emoji(emoji, shortcode string) Node {
	return Node{Kind: KindEmoji, Text: emoji, Target: shortcode}
}

// Atomic reports whether the node is edited as a single unit.
func (n Node) Atomic() bool {
	return n.Kind != KindText
}

// Len is the number of cursor positions the node occupies.
func (n Node) Len() int {
	if n.Kind == KindNewline {
		return 1
	}
	return max(utf8.RuneCountInString(n.Text), 1)
}

// Document is an ordered sequence of nodes plus a cursor expressed as a rune
// offset into the rendered text.
type Document struct {
	nodes  []Node
	cursor int
}

// New builds a normalized document with the cursor at the end.
func New(nodes ...Node) *Document {
	d := &Document{nodes: normalize(nodes)}
	d.cursor = d.Len()
	return d
}

func normalize(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != KindText {
			out = append(out, n)
			continue
		}
		text := strings.ReplaceAll(n.Text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
		for i, part := range strings.Split(text, "\n") {
			if i > 0 {
				out = append(out, Newline())
			}
			if part == "" {
				continue
			}
			if last := len(out) - 1; last >= 0 && out[last].Kind == KindText && out[last].Literal == n.Literal {
				out[last].Text += part
			} else {
				out = append(out, Node{Kind: KindText, Text: part, Literal: n.Literal})
			}
		}
	}
	return out
}

func totalLen(nodes []Node) int {
	total := 0
	for _, n := range nodes {
		total += n.Len()
	}
	return total
}

// Nodes returns a copy of the document's nodes.
func (d *Document) Nodes() []Node {
	return slices.Clone(d.nodes)
}

// Len returns the number of cursor positions in the document.
func (d *Document) Len() int {
	return totalLen(d.nodes)
}

func (d *Document) IsEmpty() bool {
	return len(d.nodes) == 0
}

func (d *Document) Cursor() int {
	return d.cursor
}

// SetCursor moves the cursor, clamping it to the document and moving it out
// of atomic nodes.
func (d *Document) SetCursor(pos int) {
	pos = d.clamp(pos)
	if start, end, ok := d.atomicSpan(pos); ok {
		if pos-start < end-pos {
			pos = start
		} else {
			pos = end
		}
	}
	d.cursor = pos
}

func (d *Document) Clone() *Document {
	return &Document{nodes: slices.Clone(d.nodes), cursor: d.cursor}
}

// Equal compares node content, ignoring the cursor.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return slices.Equal(d.nodes, other.nodes)
}

func (d *Document) clamp(pos int) int {
	return min(max(pos, 0), d.Len())
}

// atomicSpan returns the bounds of the atomic node strictly containing pos.
func (d *Document) atomicSpan(pos int) (int, int, bool) {
	off := 0
	for _, n := range d.nodes {
		l := n.Len()
		if off >= pos {
			break
		}
		if n.Atomic() && pos > off && pos < off+l {
			return off, off + l, true
		}
		off += l
	}
	return 0, 0, false
}

// nodeBefore returns the index and start offset of the node covering the
// position just before pos.
func (d *Document) nodeBefore(pos int) (int, int) {
	off := 0
	for i, n := range d.nodes {
		l := n.Len()
		if pos > off && pos <= off+l {
			return i, off
		}
		off += l
	}
	return -1, 0
}

// nodeAfter returns the index and start offset of the node covering the
// position just after pos.
func (d *Document) nodeAfter(pos int) (int, int) {
	off := 0
	for i, n := range d.nodes {
		l := n.Len()
		if pos >= off && pos < off+l {
			return i, off
		}
		off += l
	}
	return -1, 0
}

// splitAt makes pos a node boundary and returns the index of the first node
// starting at or after pos.
func (d *Document) splitAt(pos int) int {
	off := 0
	for i, n := range d.nodes {
		if pos <= off {
			return i
		}
		l := n.Len()
		if pos < off+l {
			if n.Atomic() {
				return i + 1
			}
			runes := []rune(n.Text)
			k := pos - off
			left, right := n, n
			left.Text, right.Text = string(runes[:k]), string(runes[k:])
			d.nodes = slices.Replace(d.nodes, i, i+1, left, right)
			return i + 1
		}
		off += l
	}
	return len(d.nodes)
}

// ReplaceRange replaces the content between start and end with nodes and
// places the cursor after the inserted content. Bounds inside atomic nodes
// are widened to cover the whole node.
func (d *Document) ReplaceRange(start, end int, nodes ...Node) {
	start, end = d.clamp(start), d.clamp(end)
	if start > end {
		start, end = end, start
	}
	if s, _, ok := d.atomicSpan(start); ok {
		start = s
	}
	if _, e, ok := d.atomicSpan(end); ok {
		end = e
	}
	si := d.splitAt(start)
	ei := d.splitAt(end)
	inserted := normalize(nodes)
	merged := make([]Node, 0, si+len(inserted)+len(d.nodes)-ei)
	merged = append(merged, d.nodes[:si]...)
	merged = append(merged, inserted...)
	merged = append(merged, d.nodes[ei:]...)
	d.nodes = normalize(merged)
	d.cursor = start + totalLen(inserted)
}

// ReplaceAll replaces the whole document with the content of other and puts
// the cursor at the end.
func (d *Document) ReplaceAll(other *Document) {
	var nodes []Node
	if other != nil {
		nodes = other.nodes
	}
	d.ReplaceRange(0, d.Len(), nodes...)
}

func (d *Document) InsertText(s string) {
	d.ReplaceRange(d.cursor, d.cursor, Text(s))
}

func (d *Document) InsertNode(n Node) {
	d.ReplaceRange(d.cursor, d.cursor, n)
}

// DeleteBackward removes the rune or atomic node before the cursor.
func (d *Document) DeleteBackward() bool {
	i, off := d.nodeBefore(d.cursor)
	if i < 0 {
		return false
	}
	if d.nodes[i].Atomic() {
		d.ReplaceRange(off, off+d.nodes[i].Len())
	} else {
		d.ReplaceRange(d.cursor-1, d.cursor)
	}
	return true
}

// DeleteForward removes the rune or atomic node after the cursor.
func (d *Document) DeleteForward() bool {
	i, off := d.nodeAfter(d.cursor)
	if i < 0 {
		return false
	}
	if d.nodes[i].Atomic() {
		d.ReplaceRange(off, off+d.nodes[i].Len())
	} else {
		d.ReplaceRange(d.cursor, d.cursor+1)
	}
	return true
}

func (d *Document) MoveLeft() {
	i, off := d.nodeBefore(d.cursor)
	if i < 0 {
		return
	}
	if d.nodes[i].Atomic() {
		d.cursor = off
	} else {
		d.cursor--
	}
}

func (d *Document) MoveRight() {
	i, off := d.nodeAfter(d.cursor)
	if i < 0 {
		return
	}
	if d.nodes[i].Atomic() {
		d.cursor = off + d.nodes[i].Len()
	} else {
		d.cursor++
	}
}

func (d *Document) MoveToStart() {
	d.cursor = 0
}

func (d *Document) MoveToEnd() {
	d.cursor = d.Len()
}

// LineStart returns the offset of the start of the line containing pos.
func (d *Document) LineStart(pos int) int {
	runes := []rune(d.Plain())
	pos = d.clamp(pos)
	for pos > 0 && runes[pos-1] != '\n' {
		pos--
	}
	return pos
}

// LineEnd returns the offset of the end of the line containing pos.
func (d *Document) LineEnd(pos int) int {
	runes := []rune(d.Plain())
	pos = d.clamp(pos)
	for pos < len(runes) && runes[pos] != '\n' {
		pos++
	}
	return pos
}

func (d *Document) MoveToLineStart() {
	d.cursor = d.LineStart(d.cursor)
}

func (d *Document) MoveToLineEnd() {
	d.cursor = d.LineEnd(d.cursor)
}

// WordBefore returns the run of non-space text immediately before pos and
// where it starts. Atomic nodes end the word.
func (d *Document) WordBefore(pos int) (int, string) {
	pos = d.clamp(pos)
	i, off := d.nodeBefore(pos)
	if i < 0 || d.nodes[i].Kind != KindText {
		return pos, ""
	}
	runes := []rune(d.nodes[i].Text)
	end := pos - off
	start := end
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return off + start, string(runes[start:end])
}

// WordAround returns the bounds of the non-space text run touching pos.
func (d *Document) WordAround(pos int) (int, int) {
	pos = d.clamp(pos)
	start, _ := d.WordBefore(pos)
	end := pos
	if i, off := d.nodeAfter(pos); i >= 0 && d.nodes[i].Kind == KindText {
		runes := []rune(d.nodes[i].Text)
		k := pos - off
		for k < len(runes) && !unicode.IsSpace(runes[k]) {
			k++
		}
		end = off + k
	}
	return start, end
}

// Wrap surrounds the word at the cursor with prefix and suffix. When there is
// no word, the markers are inserted with the cursor between them.
func (d *Document) Wrap(prefix, suffix string) {
	start, end := d.WordAround(d.cursor)
	if start == end {
		d.InsertText(prefix + suffix)
		d.cursor -= utf8.RuneCountInString(suffix)
		return
	}
	d.ReplaceRange(end, end, Text(suffix))
	d.ReplaceRange(start, start, Text(prefix))
	d.cursor = end + utf8.RuneCountInString(prefix) + utf8.RuneCountInString(suffix)
}

// PrefixLine inserts prefix at the start of the cursor's line.
func (d *Document) PrefixLine(prefix string) {
	cursor := d.cursor
	lineStart := d.LineStart(cursor)
	d.ReplaceRange(lineStart, lineStart, Text(prefix))
	d.cursor = cursor + utf8.RuneCountInString(prefix)
}

// Trimmed returns a copy without leading and trailing whitespace or newlines.
func (d *Document) Trimmed() *Document {
	nodes := slices.Clone(d.nodes)
	for len(nodes) > 0 {
		first := nodes[0]
		if first.Kind == KindNewline {
			nodes = nodes[1:]
			continue
		}
		if first.Kind == KindText {
			trimmed := strings.TrimLeftFunc(first.Text, unicode.IsSpace)
			if trimmed == "" {
				nodes = nodes[1:]
				continue
			}
			nodes[0].Text = trimmed
		}
		break
	}
	for len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		if last.Kind == KindNewline {
			nodes = nodes[:len(nodes)-1]
			continue
		}
		if last.Kind == KindText {
			trimmed := strings.TrimRightFunc(last.Text, unicode.IsSpace)
			if trimmed == "" {
				nodes = nodes[:len(nodes)-1]
				continue
			}
			nodes[len(nodes)-1].Text = trimmed
		}
		break
	}
	return New(nodes...)
}

func (d *Document) String() string {
	return d.Plain()
}
