// Package flow implements the part pipeline framework: DicomFlow, the
// per-part-variant callback interface, and the orthogonal mix-in
// capabilities (StartEvent, EndEvent, GuaranteedValueEvent,
// GuaranteedDelimitationEvents, TagPathTracking).
//
// These capabilities are conventionally composed as linearized trait
// overrides with "super" delegation. Go has no such virtual dispatch over
// embedded structs, so each mix-in here is instead a decorator: it wraps
// a "next" Callbacks (the more primitive layer, closer to the terminal
// flow) and overrides exactly the methods its capability needs, embedding
// the wrapped Callbacks so every other method forwards automatically --
// a middleware chain built from Go's embedding rules instead of
// inheritance.
package flow

import "github.com/slicebox/dicom-streams-go/dicompart"

// Callbacks is one method per part variant, plus the catch-all OnPart used
// for synthetic markers (StartMarker, EndMarker) and as the default target
// for variants a flow does not care to specialize.
type Callbacks interface {
	OnPreamble(p dicompart.Preamble) ([]dicompart.Part, error)
	OnHeader(p dicompart.Header) ([]dicompart.Part, error)
	OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error)
	OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error)
	OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error)
	OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error)
	OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error)
	OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error)
	OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error)
	OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error)
	OnDeflatedChunk(p dicompart.DeflatedChunk) ([]dicompart.Part, error)
	OnUnknown(p dicompart.Unknown) ([]dicompart.Part, error)
	OnPart(p dicompart.Part) ([]dicompart.Part, error)
}

// Handle dispatches part to the matching callback of cb. StartMarker and
// EndMarker are not part of the closed part sum dispatched by name; they
// always reach OnPart.
func Handle(cb Callbacks, part dicompart.Part) ([]dicompart.Part, error) {
	switch p := part.(type) {
	case dicompart.Preamble:
		return cb.OnPreamble(p)
	case dicompart.Header:
		return cb.OnHeader(p)
	case dicompart.ValueChunk:
		return cb.OnValueChunk(p)
	case dicompart.SequenceStart:
		return cb.OnSequenceStart(p)
	case dicompart.SequenceEnd:
		return cb.OnSequenceEnd(p)
	case dicompart.ItemStart:
		return cb.OnItemStart(p)
	case dicompart.ItemEnd:
		return cb.OnItemEnd(p)
	case dicompart.FragmentsStart:
		return cb.OnFragmentsStart(p)
	case dicompart.FragmentsItem:
		return cb.OnFragmentsItem(p)
	case dicompart.FragmentsEnd:
		return cb.OnFragmentsEnd(p)
	case dicompart.DeflatedChunk:
		return cb.OnDeflatedChunk(p)
	case dicompart.Unknown:
		return cb.OnUnknown(p)
	default:
		return cb.OnPart(part)
	}
}

// partFunc adapts a single function into a full Callbacks implementation by
// routing every named variant through OnPart, mirroring the source's
// "default dispatch for flows whose callbacks all defer to on_part".
type partFunc func(dicompart.Part) ([]dicompart.Part, error)

func (f partFunc) OnPreamble(p dicompart.Preamble) ([]dicompart.Part, error)           { return f(p) }
func (f partFunc) OnHeader(p dicompart.Header) ([]dicompart.Part, error)               { return f(p) }
func (f partFunc) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error)       { return f(p) }
func (f partFunc) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) { return f(p) }
func (f partFunc) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error)     { return f(p) }
func (f partFunc) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error)         { return f(p) }
func (f partFunc) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error)             { return f(p) }
func (f partFunc) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	return f(p)
}
func (f partFunc) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) { return f(p) }
func (f partFunc) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error)   { return f(p) }
func (f partFunc) OnDeflatedChunk(p dicompart.DeflatedChunk) ([]dicompart.Part, error) { return f(p) }
func (f partFunc) OnUnknown(p dicompart.Unknown) ([]dicompart.Part, error)             { return f(p) }
func (f partFunc) OnPart(p dicompart.Part) ([]dicompart.Part, error)                   { return f(p) }

// FromFunc builds a Callbacks whose every method defers to f.
func FromFunc(f func(dicompart.Part) ([]dicompart.Part, error)) Callbacks {
	return partFunc(f)
}

// Identity is the pass-through flow: every real part is echoed unchanged;
// the synthetic StartMarker/EndMarker are swallowed, since they must never
// leak to a terminal consumer that did not ask for them via StartEvent/
// EndEvent.
func Identity() Callbacks {
	return FromFunc(func(p dicompart.Part) ([]dicompart.Part, error) {
		switch p.(type) {
		case dicompart.StartMarker, dicompart.EndMarker:
			return nil, nil
		default:
			return []dicompart.Part{p}, nil
		}
	})
}
