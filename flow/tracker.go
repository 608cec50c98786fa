package flow

import (
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

// Tracker holds the TagPath describing "where we currently are" in the
// dataset. It is shared, by pointer, between the TagPathTracking mix-in
// (which updates it) and any built-in flow that needs to know the current
// path while handling a part (e.g. TagFilter). This replaces the source's
// model of a tracking capability mixed directly into the consuming flow's
// own inheritance chain, which Go's static embedding cannot express; here
// the consuming flow is simply constructed with a reference to the same
// Tracker the TagPathTracking layer updates immediately before calling it.
type Tracker struct {
	path tagpath.TagPath
	// base is the trunk (Empty or ends in an Item node) representing the
	// container currently open; each header/sequence/item event extends
	// base to produce the reported leaf path, then restores base for the
	// next sibling once the event's value has been fully observed.
	base tagpath.TagPath
}

// NewTracker returns a Tracker positioned at the dataset root.
func NewTracker() *Tracker {
	return &Tracker{path: tagpath.Empty, base: tagpath.Empty}
}

// Path returns the path of the part most recently observed by the
// TagPathTracking layer sharing this Tracker.
func (t *Tracker) Path() tagpath.TagPath { return t.path }

// tagPathTracking maintains Tracker.Path as parts flow through it. It
// assumes GuaranteedValueEvent and GuaranteedDelimitationEvents are already
// applied further down the chain, so every container it sees closes
// through OnSequenceEnd/OnItemEnd, determinate or not.
type tagPathTracking struct {
	Callbacks
	t *Tracker
}

// TagPathTracking wraps next, updating tracker on every header, sequence
// start/end, item start/end and fragments start; fragment items and the
// fragments end leave the path unchanged.
func TagPathTracking(next Callbacks, tracker *Tracker) Callbacks {
	return &tagPathTracking{Callbacks: next, t: tracker}
}

func (tpt *tagPathTracking) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	tpt.t.path = tpt.t.base.ThenTag(p.Tag)
	return tpt.Callbacks.OnHeader(p)
}

func (tpt *tagPathTracking) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	tpt.t.path = tpt.t.base.ThenSequence(p.Tag)
	return tpt.Callbacks.OnSequenceStart(p)
}

func (tpt *tagPathTracking) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	tpt.t.path = tpt.t.base.ThenSequenceEnd(p.Tag)
	return tpt.Callbacks.OnSequenceEnd(p)
}

func (tpt *tagPathTracking) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	tpt.t.path = tpt.t.base.ThenItem(p.Tag, p.Index)
	tpt.t.base = tpt.t.path
	return tpt.Callbacks.OnItemStart(p)
}

func (tpt *tagPathTracking) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	parent := tpt.t.base
	if parent.Depth() > 0 {
		parent = parent.Take(parent.Depth() - 1)
	}
	tpt.t.path = parent.ThenItemEnd(p.Tag, p.Index)
	tpt.t.base = parent
	return tpt.Callbacks.OnItemEnd(p)
}

func (tpt *tagPathTracking) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	tpt.t.path = tpt.t.base.ThenTag(p.Tag)
	return tpt.Callbacks.OnFragmentsStart(p)
}

func (tpt *tagPathTracking) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	return tpt.Callbacks.OnFragmentsItem(p)
}

func (tpt *tagPathTracking) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	return tpt.Callbacks.OnFragmentsEnd(p)
}
