// Package elements builds and addresses the in-memory Elements tree: the
// aggregation sink at the top of the stack, consuming the part stream
// produced by the parser and flows and rebuilding an immutable, tag-
// ordered tree of value elements, sequences of items, and pixel-data
// fragments. Generalizes a flat tag->element map into the nested,
// persistent structure this module's tag-path addressing requires.
package elements

import (
	"sort"

	"github.com/slicebox/dicom-streams-go/charset"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

// ElementSet is the closed sum of what one tag can hold at a given dataset
// level: a plain value, a sequence of items, or a pixel-data fragments run.
type ElementSet interface {
	isElementSet()
	tag() dicomtag.Tag
}

// ValueElement is a single element's decoded wire value, still padded to
// even length exactly as it appeared on the wire.
type ValueElement struct {
	Tag        dicomtag.Tag
	VR         *dicomtag.VR
	Value      []byte
	BigEndian  bool
	ExplicitVR bool
}

func (v ValueElement) isElementSet()     {}
func (v ValueElement) tag() dicomtag.Tag { return v.Tag }

// Length returns len(Value), the wire value length.
func (v ValueElement) Length() int { return len(v.Value) }

// Item is one element of a Sequence. It owns its own nested Elements.
type Item struct {
	Index    int
	Elements *Elements
}

// Sequence is a tag-ordered run of Items.
type Sequence struct {
	Tag            dicomtag.Tag
	DeclaredLength uint32
	BigEndian      bool
	ExplicitVR     bool
	Items          []Item
}

func (s Sequence) isElementSet()     {}
func (s Sequence) tag() dicomtag.Tag { return s.Tag }

// Fragments is a PixelData/WaveformData bulk-data run. Offsets is the
// Basic Offset Table read from the first (possibly zero-length) fragment,
// present iff that fragment was actually observed in the original stream.
type Fragments struct {
	Tag        dicomtag.Tag
	VR         *dicomtag.VR
	BigEndian  bool
	ExplicitVR bool
	HasOffsets bool
	Offsets    []uint32
	Fragments  [][]byte
}

func (f Fragments) isElementSet()     {}
func (f Fragments) tag() dicomtag.Tag { return f.Tag }

type entry struct {
	tag dicomtag.Tag
	set ElementSet
}

// Elements is an immutable, ascending-tag-ordered mapping at one dataset
// level, plus the active character-set stack and default time zone for
// decoding the values it holds.
type Elements struct {
	entries       []entry
	characterSets *charset.Stack
	zoneOffset    string
}

// New returns the empty Elements, with the default (ISO_IR 6) character
// set stack and no configured zone offset.
func New() *Elements {
	return &Elements{characterSets: charset.Default()}
}

// CharacterSets returns the active string codec stack.
func (e *Elements) CharacterSets() *charset.Stack { return e.characterSets }

// ZoneOffset returns the default DT zone offset string (e.g. "+0100"), or
// "" if none has been set.
func (e *Elements) ZoneOffset() string { return e.zoneOffset }

func (e *Elements) clone() *Elements {
	next := &Elements{
		entries:       make([]entry, len(e.entries)),
		characterSets: e.characterSets,
		zoneOffset:    e.zoneOffset,
	}
	copy(next.entries, e.entries)
	return next
}

func (e *Elements) indexOf(tag dicomtag.Tag) int {
	return sort.Search(len(e.entries), func(i int) bool { return e.entries[i].tag >= tag })
}

// Get returns the ElementSet stored at tag, at this level.
func (e *Elements) Get(tag dicomtag.Tag) (ElementSet, bool) {
	i := e.indexOf(tag)
	if i < len(e.entries) && e.entries[i].tag == tag {
		return e.entries[i].set, true
	}
	return nil, false
}

// GetPath descends via each Item node in path, returning the ElementSet
// addressed by path's final node.
func (e *Elements) GetPath(path tagpath.TagPath) (ElementSet, bool) {
	cur := e
	nodes := path.Nodes()
	for i, n := range nodes {
		last := i == len(nodes)-1
		switch n.Kind {
		case tagpath.KindTag:
			if !last {
				return nil, false
			}
			return cur.Get(n.Tag)
		case tagpath.KindItem:
			set, ok := cur.Get(n.Tag)
			if !ok {
				return nil, false
			}
			seq, ok := set.(Sequence)
			if !ok {
				return nil, false
			}
			item := findItem(seq, n.Index)
			if item == nil {
				return nil, false
			}
			if last {
				return nil, false // an Item position alone addresses no ElementSet
			}
			cur = item.Elements
		default:
			return nil, false
		}
	}
	return nil, false
}

func findItem(seq Sequence, index int) *Item {
	for i := range seq.Items {
		if seq.Items[i].Index == index {
			return &seq.Items[i]
		}
	}
	return nil
}

// Set inserts or replaces set at the root, preserving tag order. Inserting
// SpecificCharacterSet or TimezoneOffsetFromUTC additionally updates the
// decoding context carried alongside the entries (invariant 4).
func (e *Elements) Set(set ElementSet) *Elements {
	next := e.clone()
	tag := set.tag()
	i := next.indexOf(tag)
	if i < len(next.entries) && next.entries[i].tag == tag {
		next.entries[i] = entry{tag, set}
	} else {
		next.entries = append(next.entries, entry{})
		copy(next.entries[i+1:], next.entries[i:])
		next.entries[i] = entry{tag, set}
	}

	if v, ok := set.(ValueElement); ok {
		switch v.Tag {
		case dicomtag.SpecificCharacterSetTag:
			if stack, err := charset.NewStack(splitBackslash(v.Value)); err == nil {
				next.characterSets = stack
			}
		case dicomtag.TimezoneOffsetFromUTCTag:
			next.zoneOffset = trimPadded(v.Value)
		}
	}
	return next
}

// SetPath descends via path's Item nodes and replaces the ElementSet at
// its final position. Missing intermediate sequences or items make this a
// no-op, returning e unchanged rather than an error.
func (e *Elements) SetPath(path tagpath.TagPath, set ElementSet) *Elements {
	nodes := path.Nodes()
	if len(nodes) == 0 {
		return e
	}
	return e.setPathFrom(nodes, set)
}

func (e *Elements) setPathFrom(nodes []tagpath.Node, set ElementSet) *Elements {
	head := nodes[0]
	if len(nodes) == 1 {
		if head.Kind != tagpath.KindTag {
			return e
		}
		return e.Set(set)
	}
	if head.Kind != tagpath.KindItem {
		return e
	}
	existing, ok := e.Get(head.Tag)
	if !ok {
		return e
	}
	seq, ok := existing.(Sequence)
	if !ok {
		return e
	}
	idx := -1
	for i := range seq.Items {
		if seq.Items[i].Index == head.Index {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e
	}
	updatedNested := seq.Items[idx].Elements.setPathFrom(nodes[1:], set)
	if updatedNested == seq.Items[idx].Elements {
		return e
	}
	newItems := make([]Item, len(seq.Items))
	copy(newItems, seq.Items)
	newItems[idx] = Item{Index: head.Index, Elements: updatedNested}
	seq.Items = newItems
	return e.Set(seq)
}

// SetSequence replaces an entire Sequence at the root.
func (e *Elements) SetSequence(seq Sequence) *Elements { return e.Set(seq) }

// AddItem appends item to the existing sequence addressed by tag path
// (a root tag, not nested), preserving its declared items and appending
// item at the end with the next 1-based index unless item already
// specifies one.
func (e *Elements) AddItem(tag dicomtag.Tag, item Item) *Elements {
	existing, ok := e.Get(tag)
	if !ok {
		return e
	}
	seq, ok := existing.(Sequence)
	if !ok {
		return e
	}
	if item.Index == 0 {
		item.Index = len(seq.Items) + 1
	}
	newItems := make([]Item, len(seq.Items)+1)
	copy(newItems, seq.Items)
	newItems[len(seq.Items)] = item
	seq.Items = newItems
	return e.Set(seq)
}

// SetNested replaces the Elements owned by an existing item, addressed by
// path ending in an Item node. Rejects creating a new item: a missing item
// makes this a no-op.
func (e *Elements) SetNested(path tagpath.TagPath, nested *Elements) *Elements {
	nodes := path.Nodes()
	if len(nodes) == 0 || nodes[len(nodes)-1].Kind != tagpath.KindItem {
		return e
	}
	return e.setNestedFrom(nodes, nested)
}

func (e *Elements) setNestedFrom(nodes []tagpath.Node, nested *Elements) *Elements {
	head := nodes[0]
	if head.Kind != tagpath.KindItem {
		return e
	}
	existing, ok := e.Get(head.Tag)
	if !ok {
		return e
	}
	seq, ok := existing.(Sequence)
	if !ok {
		return e
	}
	idx := -1
	for i := range seq.Items {
		if seq.Items[i].Index == head.Index {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e
	}
	newItems := make([]Item, len(seq.Items))
	copy(newItems, seq.Items)
	if len(nodes) == 1 {
		newItems[idx] = Item{Index: head.Index, Elements: nested}
	} else {
		updated := seq.Items[idx].Elements.setNestedFrom(nodes[1:], nested)
		newItems[idx] = Item{Index: head.Index, Elements: updated}
	}
	seq.Items = newItems
	return e.Set(seq)
}

// Remove deletes the entry at tag, at this level. No-op if absent.
func (e *Elements) Remove(tag dicomtag.Tag) *Elements {
	i := e.indexOf(tag)
	if i >= len(e.entries) || e.entries[i].tag != tag {
		return e
	}
	next := e.clone()
	next.entries = append(next.entries[:i], next.entries[i+1:]...)
	return next
}

// RemovePath deletes the entry addressed by a root or nested tag path.
// No-op on a missing path, a missing intermediate item, or a path that
// does not end in a plain Tag node.
func (e *Elements) RemovePath(path tagpath.TagPath) *Elements {
	nodes := path.Nodes()
	if len(nodes) == 0 || nodes[len(nodes)-1].Kind != tagpath.KindTag {
		return e
	}
	if len(nodes) == 1 {
		return e.Remove(nodes[0].Tag)
	}
	head := nodes[0]
	if head.Kind != tagpath.KindItem {
		return e
	}
	existing, ok := e.Get(head.Tag)
	if !ok {
		return e
	}
	seq, ok := existing.(Sequence)
	if !ok {
		return e
	}
	idx := -1
	for i := range seq.Items {
		if seq.Items[i].Index == head.Index {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e
	}
	updated := seq.Items[idx].Elements.RemovePath(tagpath.FromNodes(nodes[1:]))
	if updated == seq.Items[idx].Elements {
		return e
	}
	newItems := make([]Item, len(seq.Items))
	copy(newItems, seq.Items)
	newItems[idx] = Item{Index: head.Index, Elements: updated}
	seq.Items = newItems
	return e.Set(seq)
}

// Filter retains only the entries for which predicate holds, at this level.
func (e *Elements) Filter(predicate func(tag dicomtag.Tag, set ElementSet) bool) *Elements {
	next := &Elements{characterSets: e.characterSets, zoneOffset: e.zoneOffset}
	for _, en := range e.entries {
		if predicate(en.tag, en.set) {
			next.entries = append(next.entries, en)
		}
	}
	return next
}

// FilterTags retains only the entries whose tag satisfies predicate.
func (e *Elements) FilterTags(predicate func(tag dicomtag.Tag) bool) *Elements {
	return e.Filter(func(tag dicomtag.Tag, _ ElementSet) bool { return predicate(tag) })
}

// Tags returns every tag held at this level, in ascending order.
func (e *Elements) Tags() []dicomtag.Tag {
	tags := make([]dicomtag.Tag, len(e.entries))
	for i, en := range e.entries {
		tags[i] = en.tag
	}
	return tags
}

func splitBackslash(b []byte) []string {
	s := trimPadded(b)
	if s == "" {
		return nil
	}
	out := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func trimPadded(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
