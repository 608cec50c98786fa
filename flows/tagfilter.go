// Package flows implements the built-in stream transformers: tag-path-driven
// filters, FMI group-length maintenance,
// sequence-length conversion, character-set transcoding, transfer-syntax
// normalization, deflate framing, context validation, value modification and
// element collection. Every flow here is built from flow.Callbacks and the
// mix-ins in package flow, following the same decorator composition.
package flows

import (
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

// identityCallbacks is embedded by every terminal core in this package so
// each one only needs to override the methods its behavior actually cares
// about; everything else echoes the part unchanged, exactly like
// flow.Identity.
type identityCallbacks struct{}

func (identityCallbacks) OnPreamble(p dicompart.Preamble) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnDeflatedChunk(p dicompart.DeflatedChunk) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnUnknown(p dicompart.Unknown) ([]dicompart.Part, error) {
	return []dicompart.Part{p}, nil
}
func (identityCallbacks) OnPart(p dicompart.Part) ([]dicompart.Part, error) {
	switch p.(type) {
	case dicompart.StartMarker, dicompart.EndMarker:
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

// Predicate reports whether the element or container currently addressed by
// path should be kept.
type Predicate func(path tagpath.TagPath) bool

// tagFilterCore is the innermost layer TagFilter builds: given the Tracker's
// current path (already updated by the TagPathTracking layer wrapping it),
// it decides to forward or drop each part. A dropped container (sequence,
// item or fragments) drops every part nested inside it without
// re-evaluating the predicate, by tracking start/end events rather than
// re-checking on every nested part.
type tagFilterCore struct {
	identityCallbacks
	tracker   *flow.Tracker
	predicate Predicate
	keepFMI   bool

	dropDepth    int  // >0 while inside a dropped sequence/item/fragments
	valueDropped bool // whether the element whose value is streaming now was dropped
}

func newTagFilterCore(tracker *flow.Tracker, predicate Predicate, keepFMI bool) *tagFilterCore {
	return &tagFilterCore{tracker: tracker, predicate: predicate, keepFMI: keepFMI}
}

func (c *tagFilterCore) keep() bool {
	return c.predicate(c.tracker.Path())
}

func (c *tagFilterCore) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.valueDropped = true
		return nil, nil
	}
	var allowed bool
	if p.IsFMI {
		allowed = c.keepFMI
	} else {
		allowed = c.keep()
	}
	c.valueDropped = !allowed
	if !allowed {
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if c.dropDepth > 0 || c.valueDropped {
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth++
		return nil, nil
	}
	if !c.keep() {
		c.dropDepth = 1
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth--
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth++
		return nil, nil
	}
	if !c.keep() {
		c.dropDepth = 1
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth--
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth++
		return nil, nil
	}
	if !c.keep() {
		c.dropDepth = 1
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.valueDropped = true
		return nil, nil
	}
	c.valueDropped = false
	return []dicompart.Part{p}, nil
}

func (c *tagFilterCore) OnFragmentsEnd(p dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	if c.dropDepth > 0 {
		c.dropDepth--
		return nil, nil
	}
	return []dicompart.Part{p}, nil
}

// TagFilter drops any element (and, for containers, everything nested
// inside it) whose current tag path fails predicate. The FMI segment is
// kept or dropped en bloc according to keepFMI, bypassing predicate
// entirely.
func TagFilter(predicate Predicate, keepFMI bool) flow.Callbacks {
	tracker := flow.NewTracker()
	core := newTagFilterCore(tracker, predicate, keepFMI)
	return flow.GuaranteedValueEvent(flow.GuaranteedDelimitationEvents(flow.TagPathTracking(core, tracker)))
}

// WhitelistFilter keeps a part if any tree in keep is compatible with the
// part's current path: either the tree addresses this position or one of
// its descendants (so the whole matched subtree survives), or the path is
// still short of the tree (so the traversal is kept open long enough to
// reach a possible match further down): a whole sub-sequence or item is
// preserved if any descendant position matches.
func WhitelistFilter(keep []tagpath.TagTree) flow.Callbacks {
	trees := append([]tagpath.TagTree(nil), keep...)
	return TagFilter(func(path tagpath.TagPath) bool {
		for _, t := range trees {
			if t.Compatible(path) {
				return true
			}
		}
		return false
	}, false)
}

// BlacklistFilter drops a part if any tree in drop addresses this position
// or an ancestor of it (dropping the position itself and everything nested
// inside it); FMI is kept, since the blacklist targets dataset content.
func BlacklistFilter(drop []tagpath.TagTree) flow.Callbacks {
	trees := append([]tagpath.TagTree(nil), drop...)
	return TagFilter(func(path tagpath.TagPath) bool {
		for _, t := range trees {
			if t.HasTrunk(path) {
				return false
			}
		}
		return true
	}, true)
}

// GroupLengthDiscardFilter drops every (group, 0x0000) element except
// FileMetaInformationGroupLength, which is kept by routing the whole FMI
// segment through unconditionally.
func GroupLengthDiscardFilter() flow.Callbacks {
	return TagFilter(func(path tagpath.TagPath) bool {
		node, ok := path.Head()
		if !ok || node.Kind != tagpath.KindTag {
			return true
		}
		return !node.Tag.IsGroupLength()
	}, true)
}

// FMIDiscardFilter drops the entire file-meta-information segment and
// leaves the dataset untouched.
func FMIDiscardFilter() flow.Callbacks {
	return TagFilter(func(tagpath.TagPath) bool { return true }, false)
}

// BulkDataFilter drops PixelData and WaveformData at the root of the
// dataset (depth 1) but preserves them when they occur nested inside a
// sequence item, e.g. per-frame functional groups.
func BulkDataFilter() flow.Callbacks {
	return TagFilter(func(path tagpath.TagPath) bool {
		node, ok := path.Head()
		if !ok {
			return true
		}
		if node.Tag != dicomtag.PixelDataTag && node.Tag != dicomtag.WaveformDataTag {
			return true
		}
		return path.Depth() > 1
	}, true)
}
