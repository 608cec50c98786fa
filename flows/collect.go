package flows

import (
	"encoding/binary"
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/elements"
	"github.com/slicebox/dicom-streams-go/flow"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

// ErrBufferExceeded is returned by CollectFlow when the parts buffered
// while waiting for its stop condition exceed maxBuffer bytes.
var ErrBufferExceeded = fmt.Errorf("flows: collect buffer exceeded")

type frameKind int

const (
	frameSequence frameKind = iota
	frameItem
	frameFragments
)

// collectFrame is one open container on collectFlow's stack, grounded on
// the same stack-of-open-containers shape as lengthFrame in
// lengthconvert.go, built here out of elements.Elements/Sequence/Fragments
// instead of raw byte counts.
type collectFrame struct {
	kind       frameKind
	tag        dicomtag.Tag
	bigEndian  bool
	explicitVR bool
	active     bool // an ancestor (or this frame's own path) already matched

	// frameSequence
	declaredLength uint32
	items          []elements.Item

	// frameItem
	index int
	built *elements.Elements

	// frameFragments
	vr          *dicomtag.VR
	hasOffsets  bool
	offsets     []uint32
	fragments   [][]byte
	nextFragIdx int
}

// collectFlow buffers the whole upstream (so it can be replayed once
// collection is done) while separately rebuilding an elements.Elements
// tree from the parts whose path satisfies condition, including the full
// subtree of any sequence/item/fragments run whose own path matches,
// generalizing a one-shot whole-stream collect into a streaming,
// condition-gated one with an upstream-replay tail.
type collectFlow struct {
	identityCallbacks
	tracker       *flow.Tracker
	condition     func(tagpath.TagPath) bool
	stopCondition func(tagpath.TagPath) bool
	label         string
	maxBuffer     int

	buffered      []dicompart.Part
	bufferedBytes int
	done          bool

	root  *elements.Elements
	stack []*collectFrame

	payload   payloadTarget
	header    dicompart.Header
	fragIndex int
	buf       []byte
}

type payloadTarget int

const (
	payloadNone payloadTarget = iota
	payloadHeader
	payloadFragment
)

func newCollectFlow(condition, stopCondition func(tagpath.TagPath) bool, label string, maxBuffer int, tracker *flow.Tracker) *collectFlow {
	return &collectFlow{
		tracker: tracker, condition: condition, stopCondition: stopCondition,
		label: label, maxBuffer: maxBuffer, root: elements.New(),
	}
}

func (c *collectFlow) topActive() bool {
	if len(c.stack) == 0 {
		return false
	}
	return c.stack[len(c.stack)-1].active
}

// buffer records p for eventual replay and enforces maxBuffer.
func (c *collectFlow) buffer(p dicompart.Part) error {
	c.buffered = append(c.buffered, p)
	c.bufferedBytes += partByteCost(p)
	if c.bufferedBytes > c.maxBuffer {
		return fmt.Errorf("%w: %d bytes", ErrBufferExceeded, c.bufferedBytes)
	}
	return nil
}

// setInto places a finished ElementSet into the currently open item frame,
// or the root if no frame is open.
func (c *collectFlow) setInto(set elements.ElementSet) {
	if len(c.stack) == 0 {
		c.root = c.root.Set(set)
		return
	}
	top := c.stack[len(c.stack)-1]
	top.built = top.built.Set(set)
}

// checkStop returns nil unless path trips the stop condition. When it
// does, it marks the flow done and returns the flush: CollectedElements
// followed by the buffered parts. The current part has NOT been buffered
// or collected, and must be forwarded by the caller unchanged.
func (c *collectFlow) checkStop(path tagpath.TagPath) []dicompart.Part {
	if c.done || !c.stopCondition(path) {
		return nil
	}
	c.done = true
	out := make([]dicompart.Part, 0, len(c.buffered)+1)
	out = append(out, dicompart.CollectedElements{Label: c.label, Aggregate: c.root})
	out = append(out, c.buffered...)
	c.buffered = nil
	return out
}

func (c *collectFlow) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	path := c.tracker.Path()
	if flushed := c.checkStop(path); flushed != nil {
		return append(flushed, p), nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	if c.topActive() || c.condition(path) {
		c.payload, c.header, c.buf = payloadHeader, p, nil
	} else {
		c.payload = payloadNone
	}
	return nil, nil
}

func (c *collectFlow) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	switch c.payload {
	case payloadHeader:
		c.buf = append(c.buf, p.Bytes...)
		if p.Last {
			c.setInto(elements.ValueElement{
				Tag: c.header.Tag, VR: c.header.VR, Value: append([]byte(nil), c.buf...),
				BigEndian: c.header.BigEndian, ExplicitVR: c.header.ExplicitVR,
			})
			c.payload = payloadNone
		}
	case payloadFragment:
		c.buf = append(c.buf, p.Bytes...)
		if p.Last {
			top := c.stack[len(c.stack)-1]
			if c.fragIndex == 1 {
				top.hasOffsets = true
				top.offsets = decodeOffsets(orderOf(top.bigEndian), c.buf)
			} else {
				top.fragments = append(top.fragments, append([]byte(nil), c.buf...))
			}
			c.payload = payloadNone
		}
	}
	return nil, nil
}

func (c *collectFlow) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	path := c.tracker.Path()
	if flushed := c.checkStop(path); flushed != nil {
		return append(flushed, p), nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	c.stack = append(c.stack, &collectFrame{
		kind: frameSequence, tag: p.Tag, bigEndian: p.BigEndian, explicitVR: p.ExplicitVR,
		declaredLength: p.Length, active: c.topActive() || c.condition(path),
	})
	return nil, nil
}

func (c *collectFlow) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	n := len(c.stack)
	top := c.stack[n-1]
	c.stack = c.stack[:n-1]
	if top.active || len(top.items) > 0 {
		c.setInto(elements.Sequence{
			Tag: top.tag, DeclaredLength: top.declaredLength,
			BigEndian: top.bigEndian, ExplicitVR: top.explicitVR, Items: top.items,
		})
	}
	return nil, nil
}

func (c *collectFlow) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	parentActive := c.topActive()
	c.stack = append(c.stack, &collectFrame{
		kind: frameItem, tag: p.Tag, index: p.Index, bigEndian: p.BigEndian,
		active: parentActive, built: elements.New(),
	})
	return nil, nil
}

func (c *collectFlow) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	n := len(c.stack)
	top := c.stack[n-1]
	c.stack = c.stack[:n-1]
	if top.active || len(top.built.Tags()) > 0 {
		parent := c.stack[len(c.stack)-1]
		parent.items = append(parent.items, elements.Item{Index: top.index, Elements: top.built})
	}
	return nil, nil
}

func (c *collectFlow) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	path := c.tracker.Path()
	if flushed := c.checkStop(path); flushed != nil {
		return append(flushed, p), nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	c.stack = append(c.stack, &collectFrame{
		kind: frameFragments, tag: p.Tag, vr: p.VR, bigEndian: p.BigEndian,
		explicitVR: p.ExplicitVR, active: c.topActive() || c.condition(path),
	})
	return nil, nil
}

func (c *collectFlow) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	top := c.stack[len(c.stack)-1]
	top.nextFragIdx++
	if top.active {
		c.payload, c.fragIndex, c.buf = payloadFragment, top.nextFragIdx, nil
	} else {
		c.payload = payloadNone
	}
	return nil, nil
}

func (c *collectFlow) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	if c.done {
		return []dicompart.Part{p}, nil
	}
	if err := c.buffer(p); err != nil {
		return nil, err
	}
	n := len(c.stack)
	top := c.stack[n-1]
	c.stack = c.stack[:n-1]
	if top.active {
		c.setInto(elements.Fragments{
			Tag: top.tag, VR: top.vr, BigEndian: top.bigEndian, ExplicitVR: top.explicitVR,
			HasOffsets: top.hasOffsets, Offsets: top.offsets, Fragments: top.fragments,
		})
	}
	return nil, nil
}

func decodeOffsets(order binary.ByteOrder, b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = order.Uint32(b[i*4:])
	}
	return out
}

func partByteCost(p dicompart.Part) int {
	switch v := p.(type) {
	case dicompart.Preamble:
		return len(v.Bytes)
	case dicompart.Header:
		return len(v.RawBytes)
	case dicompart.ValueChunk:
		return len(v.Bytes)
	case dicompart.SequenceStart:
		if v.ExplicitVR {
			return 12
		}
		return 8
	case dicompart.SequenceEnd:
		return 8
	case dicompart.ItemStart:
		return 8
	case dicompart.ItemEnd:
		return 8
	case dicompart.FragmentsStart:
		if v.ExplicitVR {
			return 12
		}
		return 8
	case dicompart.FragmentsItem:
		return 8
	case dicompart.FragmentsEnd:
		return 8
	case dicompart.DeflatedChunk:
		return len(v.Bytes)
	case dicompart.Unknown:
		return len(v.Bytes)
	default:
		return 0
	}
}

func (c *collectFlow) flushAtEnd() ([]dicompart.Part, error) {
	if c.done {
		return nil, nil
	}
	c.done = true
	out := make([]dicompart.Part, 0, len(c.buffered)+1)
	out = append(out, dicompart.CollectedElements{Label: c.label, Aggregate: c.root})
	out = append(out, c.buffered...)
	c.buffered = nil
	return out, nil
}

// CollectFlow buffers the whole upstream until stopCondition holds on the
// current tag path, then emits a dicompart.CollectedElements part (whose
// Aggregate is an *elements.Elements built from every part whose own path,
// or an ancestor container's path, satisfied condition), followed by the
// buffered parts in original order. Once stopCondition has fired, the flow
// stops buffering and forwards every further part unchanged; if the stream
// ends first, the same flush happens with whatever was buffered by then.
// Fails with ErrBufferExceeded if the buffered byte count ever exceeds
// maxBuffer.
func CollectFlow(condition, stopCondition func(tagpath.TagPath) bool, label string, maxBuffer int) flow.Callbacks {
	tracker := flow.NewTracker()
	c := newCollectFlow(condition, stopCondition, label, maxBuffer, tracker)
	wrapped := flow.TagPathTracking(c, tracker)
	return flow.EndEvent(flow.GuaranteedValueEvent(flow.GuaranteedDelimitationEvents(wrapped)), c.flushAtEnd)
}
