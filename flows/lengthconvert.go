package flows

import (
	"encoding/binary"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/flow"
)

func orderOf(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// toIndeterminate rewrites every SequenceStart/ItemStart to declare
// indeterminate length and every matching End to carry the real delimiter
// bytes, tracking the most recently observed byte order so it can encode
// those delimiters (SequenceEnd/ItemEnd carry no BigEndian field of their
// own). Fragment items are untouched.
type toIndeterminate struct {
	identityCallbacks
	bigEndian bool
}

func (t *toIndeterminate) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	t.bigEndian = p.BigEndian
	return []dicompart.Part{p}, nil
}

func (t *toIndeterminate) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	t.bigEndian = p.BigEndian
	p.Length = dicompart.UndefinedLength
	return []dicompart.Part{p}, nil
}

func (t *toIndeterminate) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	p.Bytes = dicomio.WriteSequenceDelimitation(orderOf(t.bigEndian))
	return []dicompart.Part{p}, nil
}

func (t *toIndeterminate) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	t.bigEndian = p.BigEndian
	p.Length = dicompart.UndefinedLength
	return []dicompart.Part{p}, nil
}

func (t *toIndeterminate) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	p.Bytes = dicomio.WriteItemDelimitation(orderOf(t.bigEndian))
	return []dicompart.Part{p}, nil
}

func (t *toIndeterminate) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	t.bigEndian = p.BigEndian
	return []dicompart.Part{p}, nil
}

// ToIndeterminateLengthSequences rewrites every sequence/item header length
// to indeterminate and inserts explicit delimitations, leaving fragment
// item lengths untouched.
func ToIndeterminateLengthSequences() flow.Callbacks {
	return &toIndeterminate{}
}

// lengthFrame buffers one open sequence or item while its total byte length
// is still unknown, accumulating in bodyBytes the byte size of every part
// buffered inside it.
type lengthFrame struct {
	isSequence bool
	seqStart   dicompart.SequenceStart
	itemStart  dicompart.ItemStart
	body       []dicompart.Part
	bodyBytes  int
}

func (f *lengthFrame) headerLen(explicitVR bool) int {
	if !f.isSequence {
		return 8
	}
	if explicitVR {
		return 12
	}
	return 8
}

// toUndefined is the inverse of toIndeterminate: it buffers each
// sequence/item subtree until its matching End arrives, then replaces the
// start/end pair with a determinate length computed from the buffered
// content's own byte footprint.
type toUndefined struct {
	identityCallbacks
	stack []*lengthFrame
}

// emitOrBuffer routes a finished part either to the enclosing frame's body
// (accumulating its byte cost) or straight out, if there is no enclosing
// frame.
func (t *toUndefined) emitOrBuffer(p dicompart.Part, size int) ([]dicompart.Part, error) {
	if len(t.stack) == 0 {
		return []dicompart.Part{p}, nil
	}
	top := t.stack[len(t.stack)-1]
	top.body = append(top.body, p)
	top.bodyBytes += size
	return nil, nil
}

func (t *toUndefined) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	return t.emitOrBuffer(p, len(p.RawBytes))
}

func (t *toUndefined) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	return t.emitOrBuffer(p, len(p.Bytes))
}

func (t *toUndefined) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	t.stack = append(t.stack, &lengthFrame{isSequence: true, seqStart: p})
	return nil, nil
}

func (t *toUndefined) OnSequenceEnd(dicompart.SequenceEnd) ([]dicompart.Part, error) {
	return t.closeFrame()
}

func (t *toUndefined) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	t.stack = append(t.stack, &lengthFrame{isSequence: false, itemStart: p})
	return nil, nil
}

func (t *toUndefined) OnItemEnd(dicompart.ItemEnd) ([]dicompart.Part, error) {
	return t.closeFrame()
}

func (t *toUndefined) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	return t.emitOrBuffer(p, t.structuralHeaderLen(p.ExplicitVR))
}

func (t *toUndefined) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	// The fragment's payload arrives as ValueChunks, which are counted
	// separately.
	return t.emitOrBuffer(p, 8)
}

func (t *toUndefined) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	return t.emitOrBuffer(p, 8)
}

func (t *toUndefined) structuralHeaderLen(explicitVR bool) int {
	if explicitVR {
		return 12
	}
	return 8
}

func (t *toUndefined) closeFrame() ([]dicompart.Part, error) {
	n := len(t.stack)
	top := t.stack[n-1]
	t.stack = t.stack[:n-1]

	var start dicompart.Part
	var end dicompart.Part
	var explicitVR bool
	if top.isSequence {
		s := top.seqStart
		s.Length = uint32(top.bodyBytes)
		start, end = s, dicompart.SequenceEnd{Tag: s.Tag}
		explicitVR = s.ExplicitVR
	} else {
		i := top.itemStart
		i.Length = uint32(top.bodyBytes)
		start, end = i, dicompart.ItemEnd{Tag: i.Tag, Index: i.Index}
		explicitVR = false // item headers never carry a VR byte
	}

	footprint := top.headerLen(explicitVR) + top.bodyBytes
	full := make([]dicompart.Part, 0, len(top.body)+2)
	full = append(full, start)
	full = append(full, top.body...)
	full = append(full, end)

	if len(t.stack) == 0 {
		return full, nil
	}
	parent := t.stack[len(t.stack)-1]
	parent.body = append(parent.body, full...)
	parent.bodyBytes += footprint
	return nil, nil
}

// ToUndefinedLengthSequences collects every sequence/item into a
// determinate length, the inverse of ToIndeterminateLengthSequences.
// Fragment item lengths are never touched (they are already determinate).
func ToUndefinedLengthSequences() flow.Callbacks {
	return &toUndefined{}
}
