package flow

import "github.com/slicebox/dicom-streams-go/dicompart"

// guaranteedValueEvent synthesizes a single empty, Last=true ValueChunk
// after every zero-length Header or FragmentsItem, so downstream flows that
// key off "the value of this element" never have to special-case the
// empty-value element separately from a normally-chunked one.
//
// Simplification from the source: rather than separately suppressing the
// synthetic chunk from this layer's own emission, the synthetic chunk is
// run through next exactly like a real one and whatever next returns for it
// is included in this layer's output. A flow that must distinguish "real"
// bytes from the guaranteed empty chunk can do so itself (the chunk is
// recognizable: Last=true and zero-length, with no preceding partial
// chunks), and TagFilter-style flows naturally drop zero-length chunks for
// elements they exclude regardless of provenance.
type guaranteedValueEvent struct {
	Callbacks
}

// GuaranteedValueEvent wraps next with the empty-value synthesis above.
func GuaranteedValueEvent(next Callbacks) Callbacks {
	return &guaranteedValueEvent{Callbacks: next}
}

func (g *guaranteedValueEvent) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnHeader(p)
	if err != nil {
		return out, err
	}
	if p.ValueLength == 0 {
		extra, err := g.Callbacks.OnValueChunk(dicompart.ValueChunk{BigEndian: p.BigEndian, Bytes: []byte{}, Last: true})
		if err != nil {
			return out, err
		}
		out = append(out, extra...)
	}
	return out, nil
}

func (g *guaranteedValueEvent) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnFragmentsItem(p)
	if err != nil {
		return out, err
	}
	if p.Length == 0 {
		extra, err := g.Callbacks.OnValueChunk(dicompart.ValueChunk{BigEndian: p.BigEndian, Bytes: []byte{}, Last: true})
		if err != nil {
			return out, err
		}
		out = append(out, extra...)
	}
	return out, nil
}
