// Package dicompart defines Part, the closed sum of part variants the
// parser emits and every flow consumes.
package dicompart

import "github.com/slicebox/dicom-streams-go/dicomtag"

// UndefinedLength is the sentinel for indeterminate length, re-exported here
// so consumers of this package need not import dicomio as well.
const UndefinedLength uint32 = 0xFFFFFFFF

// Part is the closed sum of variants exchanged on the part stream. The
// unexported marker method keeps the sum closed to this package.
type Part interface {
	isPart()
}

// Preamble is the 128 zero bytes plus "DICM" magic, when present.
type Preamble struct {
	Bytes [132]byte
}

// Header describes one data-element header. Length is the declared value
// length; UndefinedLength denotes indeterminate (legal only for SQ, and for
// OB/OW pixel-data fragments).
type Header struct {
	Tag         dicomtag.Tag
	VR          *dicomtag.VR
	ValueLength uint32
	IsFMI       bool
	BigEndian   bool
	ExplicitVR  bool
	RawBytes    []byte
}

// ValueChunk is a contiguous slice of a value. Last is true exactly once per
// value, even when the value spans many chunks.
type ValueChunk struct {
	BigEndian bool
	Bytes     []byte
	Last      bool
}

// SequenceStart begins a sequence. Length is UndefinedLength or a concrete
// byte count.
type SequenceStart struct {
	Tag        dicomtag.Tag
	Length     uint32
	BigEndian  bool
	ExplicitVR bool
}

// SequenceEnd closes the sequence most recently opened by SequenceStart.
type SequenceEnd struct {
	Tag dicomtag.Tag
	// Bytes is empty for delimitations synthesized by the flow framework
	// (see GuaranteedDelimitationEvents) and the real wire bytes otherwise.
	Bytes []byte
}

// ItemStart begins item Index (1-based) of the enclosing sequence.
type ItemStart struct {
	Tag       dicomtag.Tag
	Index     int
	Length    uint32
	BigEndian bool
}

// ItemEnd closes the item most recently opened by ItemStart.
type ItemEnd struct {
	Tag   dicomtag.Tag
	Index int
	Bytes []byte
}

// FragmentsStart begins a pixel-data (or waveform-data) fragment sequence.
type FragmentsStart struct {
	Tag        dicomtag.Tag
	VR         *dicomtag.VR
	BigEndian  bool
	ExplicitVR bool
}

// FragmentsItem is one fragment (or, as the first item, the basic offset
// table) of a fragment sequence.
type FragmentsItem struct {
	Index     int
	Length    uint32
	BigEndian bool
	RawBytes  []byte
}

// FragmentsEnd closes the fragment sequence most recently opened by
// FragmentsStart.
type FragmentsEnd struct{}

// DeflatedChunk carries raw, still-compressed bytes after the transfer
// syntax switches to a deflated encoding. The parser never inflates.
type DeflatedChunk struct {
	BigEndian bool
	Bytes     []byte
}

// Unknown is any chunk not recognized at the dataset level.
type Unknown struct {
	BigEndian bool
	Bytes     []byte
}

// StartMarker is a synthetic part emitted only by the StartEvent mix-in; it
// never reaches a consumer unless a flow deliberately lets it through.
type StartMarker struct{}

// EndMarker is a synthetic part emitted only by the EndEvent mix-in.
type EndMarker struct{}

// CollectedElements carries an aggregate built up by a flow such as
// CollectFlow. Aggregate is opaque here (typically *elements.Elements):
// this package cannot import the elements package, which itself imports
// dicompart, so the payload is threaded through as an interface value
// instead of a concrete type.
type CollectedElements struct {
	Label     string
	Aggregate interface{}
}

func (Preamble) isPart()          {}
func (Header) isPart()            {}
func (ValueChunk) isPart()        {}
func (SequenceStart) isPart()     {}
func (SequenceEnd) isPart()       {}
func (ItemStart) isPart()         {}
func (ItemEnd) isPart()           {}
func (FragmentsStart) isPart()    {}
func (FragmentsItem) isPart()     {}
func (FragmentsEnd) isPart()      {}
func (DeflatedChunk) isPart()     {}
func (Unknown) isPart()           {}
func (StartMarker) isPart()       {}
func (EndMarker) isPart()         {}
func (CollectedElements) isPart() {}
