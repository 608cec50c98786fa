package flows

import (
	"sort"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

// Modification rewrites the value of every element matching Path. NewValue
// receives the element's current value (nil when InsertIfMissing triggers
// an insertion) and returns the replacement. InsertIfMissing only applies
// to a top-level tag (a Path of depth 1): when the dataset never carries
// that tag, the element is synthesized and spliced in among its top-level
// siblings in tag order.
type Modification struct {
	Path            tagpath.TagTree
	NewValue        func(current []byte) []byte
	InsertIfMissing bool
}

// modifyFlow rewrites matching values in place and, for top-level
// insertions still missing once a greater top-level tag (or the end of the
// dataset) proves they are genuinely absent, splices in a synthesized
// element. Grounded on the buffer-then-rewrite shape already used by
// toUTF8 (whole-value buffering) and fmiGroupLengthCore (buffer-then-flush
// triggered by the first part that cannot belong to the buffered run).
type modifyFlow struct {
	identityCallbacks
	tracker *flow.Tracker
	mods    []Modification

	toInsert []int // indices into mods, sorted by tag, not yet emitted
	seen     map[int]bool

	matching bool
	current  int
	header   dicompart.Header
	buf      []byte
}

func newModifyFlow(mods []Modification, tracker *flow.Tracker) *modifyFlow {
	m := &modifyFlow{tracker: tracker, mods: mods, seen: make(map[int]bool)}
	for i, mod := range mods {
		if mod.InsertIfMissing && mod.Path.Depth() == 1 {
			m.toInsert = append(m.toInsert, i)
		}
	}
	sort.Slice(m.toInsert, func(a, b int) bool {
		ta, _ := mods[m.toInsert[a]].Path.Tag()
		tb, _ := mods[m.toInsert[b]].Path.Tag()
		return ta < tb
	})
	return m
}

// flushDueBefore emits every still-missing insertion whose tag sorts
// strictly before upcoming (nil meaning "end of dataset, emit everything
// left"), removing them from toInsert.
func (m *modifyFlow) flushDueBefore(upcoming *dicomtag.Tag) []dicompart.Part {
	var out []dicompart.Part
	remaining := m.toInsert[:0]
	for _, i := range m.toInsert {
		if m.seen[i] {
			continue
		}
		tag, _ := m.mods[i].Path.Tag()
		if upcoming != nil && tag >= *upcoming {
			remaining = append(remaining, i)
			continue
		}
		out = append(out, m.synthesize(i)...)
	}
	m.toInsert = remaining
	return out
}

func (m *modifyFlow) synthesize(i int) []dicompart.Part {
	tag, _ := m.mods[i].Path.Tag()
	vr := dicomtag.VROf(tag)
	value := padEven(m.mods[i].NewValue(nil), vr.PadByte())
	header := dicompart.Header{
		Tag: tag, VR: vr, ValueLength: uint32(len(value)),
		ExplicitVR: true,
		RawBytes:   dicomio.WriteExplicit(orderOf(false), tag, vr, uint32(len(value))),
	}
	return []dicompart.Part{header, dicompart.ValueChunk{Bytes: value, Last: true}}
}

func (m *modifyFlow) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	if m.tracker.Path().Depth() == 1 {
		for i := range m.mods {
			if tag, ok := m.mods[i].Path.Tag(); ok && m.mods[i].Path.Depth() == 1 && tag == p.Tag {
				m.seen[i] = true
			}
		}
	}
	pre := m.flushDueBefore(&p.Tag)

	path := m.tracker.Path()
	for i, mod := range m.mods {
		if mod.Path.Matches(path) {
			m.matching, m.current, m.header, m.buf = true, i, p, nil
			return pre, nil
		}
	}
	m.matching = false
	return append(pre, p), nil
}

func (m *modifyFlow) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if !m.matching {
		return []dicompart.Part{p}, nil
	}
	m.buf = append(m.buf, p.Bytes...)
	if !p.Last {
		return nil, nil
	}
	m.matching = false
	newValue := padEven(m.mods[m.current].NewValue(m.buf), m.header.VR.PadByte())
	return rewritten(m.header, newValue), nil
}

func (m *modifyFlow) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	pre := m.flushDueBefore(&p.Tag)
	return append(pre, p), nil
}

func (m *modifyFlow) flushRemaining() ([]dicompart.Part, error) {
	return m.flushDueBefore(nil), nil
}

func padEven(b []byte, pad byte) []byte {
	if len(b)%2 == 1 {
		return append(b, pad)
	}
	return b
}

// ModifyFlow rewrites matching element values and inserts missing
// top-level elements flagged InsertIfMissing at their tag-ordered position
// among siblings actually present, or at the end of the dataset if no
// present top-level tag sorts after them.
func ModifyFlow(modifications []Modification) flow.Callbacks {
	tracker := flow.NewTracker()
	m := newModifyFlow(modifications, tracker)
	wrapped := flow.TagPathTracking(m, tracker)
	return flow.EndEvent(flow.GuaranteedValueEvent(flow.GuaranteedDelimitationEvents(wrapped)), m.flushRemaining)
}
