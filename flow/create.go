package flow

import "github.com/slicebox/dicom-streams-go/dicompart"

// Flow is the stream-transformer the Create factory returns: it prepends
// and appends the synthetic markers mix-ins key off of, and drives
// Handle for every real part.
type Flow struct {
	cb      Callbacks
	started bool
	ended   bool
}

// Create wraps cb into a Flow. Any composed StartEvent/EndEvent layer
// observes exactly one start/end event per stream; layers that do not
// care about markers simply never see them, since Identity (or any flow
// whose OnPart defers to it) swallows them.
func Create(cb Callbacks) *Flow {
	return &Flow{cb: cb}
}

// Start must be called once, before the first real part, to deliver the
// synthetic StartMarker.
func (f *Flow) Start() ([]dicompart.Part, error) {
	if f.started {
		return nil, nil
	}
	f.started = true
	return Handle(f.cb, dicompart.StartMarker{})
}

// HandlePart dispatches one real part and returns the parts it expands to.
func (f *Flow) HandlePart(p dicompart.Part) ([]dicompart.Part, error) {
	return Handle(f.cb, p)
}

// End must be called once, after the last real part, to deliver the
// synthetic EndMarker.
func (f *Flow) End() ([]dicompart.Part, error) {
	if f.ended {
		return nil, nil
	}
	f.ended = true
	return Handle(f.cb, dicompart.EndMarker{})
}
