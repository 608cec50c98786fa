package flow

import (
	"testing"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func TestStartEndEventFireOnce(t *testing.T) {
	starts, ends := 0, 0
	cb := EndEvent(StartEvent(Identity(), func() ([]dicompart.Part, error) {
		starts++
		return nil, nil
	}), func() ([]dicompart.Part, error) {
		ends++
		return nil, nil
	})

	f := Create(cb)
	if _, err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.Start(); err != nil { // idempotent: calling twice must not double-fire
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("got starts=%d ends=%d, want 1, 1", starts, ends)
	}
}

func TestStartMarkerNeverLeaksThroughIdentity(t *testing.T) {
	f := Create(Identity())
	out, err := f.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected StartMarker to be swallowed, got %v", out)
	}
}

func TestGuaranteedValueEventSynthesizesEmptyChunk(t *testing.T) {
	var seen []dicompart.Part
	recorder := FromFunc(func(p dicompart.Part) ([]dicompart.Part, error) {
		seen = append(seen, p)
		return []dicompart.Part{p}, nil
	})
	cb := GuaranteedValueEvent(recorder)

	tag := dicomtag.NewTag(0x0008, 0x0020)
	out, err := Handle(cb, dicompart.Header{Tag: tag, ValueLength: 0})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected header + synthetic value chunk, got %d parts: %v", len(out), out)
	}
	chunk, ok := out[1].(dicompart.ValueChunk)
	if !ok || !chunk.Last || len(chunk.Bytes) != 0 {
		t.Fatalf("expected synthetic empty Last chunk, got %#v", out[1])
	}
}

func TestGuaranteedDelimitationEventsScenario(t *testing.T) {
	// A determinate-length sequence whose first item is determinate
	// (closes synthetically) and whose second item is indeterminate
	// (closes for real).
	var seen []dicompart.Part
	recorder := FromFunc(func(p dicompart.Part) ([]dicompart.Part, error) {
		seen = append(seen, p)
		return []dicompart.Part{p}, nil
	})
	cb := GuaranteedDelimitationEvents(recorder)

	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	elemTag := dicomtag.NewTag(0x0008, 0x0020)

	must := func(parts []dicompart.Part, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	// Item 1 is its 8-byte header plus a 0x10 body; item 2 is its header,
	// an element header, an 8-byte value and its item delimitation.
	must(Handle(cb, dicompart.SequenceStart{Tag: seqTag, Length: (8 + 0x10) + (8 + 8 + 8 + 8)}))
	must(Handle(cb, dicompart.ItemStart{Tag: seqTag, Index: 1, Length: 0x10}))
	must(Handle(cb, dicompart.Header{Tag: elemTag, RawBytes: make([]byte, 8)}))
	must(Handle(cb, dicompart.ValueChunk{Bytes: make([]byte, 8), Last: true}))

	// After consuming the 8-byte header and 8-byte value (= item's full
	// declared length 0x10), the item must auto-close.
	lastKind := seen[len(seen)-1]
	if _, ok := lastKind.(dicompart.ItemEnd); !ok {
		t.Fatalf("expected synthetic ItemEnd, got %#v", lastKind)
	}

	must(Handle(cb, dicompart.ItemStart{Tag: seqTag, Index: 2, Length: dicompart.UndefinedLength}))
	must(Handle(cb, dicompart.Header{Tag: elemTag, RawBytes: make([]byte, 8)}))
	must(Handle(cb, dicompart.ValueChunk{Bytes: make([]byte, 8), Last: true}))
	must(Handle(cb, dicompart.ItemEnd{Tag: seqTag, Index: 2}))
	must(Handle(cb, dicompart.SequenceEnd{Tag: seqTag}))

	var itemEnds, seqEnds int
	for _, p := range seen {
		switch p.(type) {
		case dicompart.ItemEnd:
			itemEnds++
		case dicompart.SequenceEnd:
			seqEnds++
		}
	}
	if itemEnds != 2 || seqEnds != 1 {
		t.Fatalf("got itemEnds=%d seqEnds=%d, want 2, 1", itemEnds, seqEnds)
	}
}

func TestTagPathTrackingUpdatesOnHeader(t *testing.T) {
	tracker := NewTracker()
	cb := TagPathTracking(Identity(), tracker)

	tag := dicomtag.NewTag(0x0010, 0x0010)
	if _, err := Handle(cb, dicompart.Header{Tag: tag}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if tracker.Path().Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", tracker.Path().Depth())
	}
	head, _ := tracker.Path().Head()
	if head.Tag != tag {
		t.Fatalf("expected tracked tag %v, got %v", tag, head.Tag)
	}
}
