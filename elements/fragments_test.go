package elements

import (
	"bytes"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func TestFrameIteratorWithoutOffsetsTreatsEachFragmentAsOneFrame(t *testing.T) {
	f := Fragments{
		Tag: dicomtag.PixelDataTag, VR: dicomtag.OB,
		Fragments: [][]byte{{1, 2}, {3, 4}, {5, 6}},
	}
	frames := f.FrameIterator()
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, want := range [][]byte{{1, 2}, {3, 4}, {5, 6}} {
		if !bytes.Equal(frames[i], want) {
			t.Fatalf("frame %d: got %v, want %v", i, frames[i], want)
		}
	}
}

func TestFrameIteratorWithOffsetsSplitsAcrossFragments(t *testing.T) {
	// One frame spans both fragments; a second frame starts mid-fragment.
	f := Fragments{
		Tag: dicomtag.PixelDataTag, VR: dicomtag.OB,
		HasOffsets: true,
		Offsets:    []uint32{0, 4},
		Fragments:  [][]byte{{1, 2, 3}, {4, 5, 6}},
	}
	frames := f.FrameIterator()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Fatalf("frame 0: got %v, want [1 2 3 4]", frames[0])
	}
	if !bytes.Equal(frames[1], []byte{5, 6}) {
		t.Fatalf("frame 1: got %v, want [5 6]", frames[1])
	}
}

func TestFrameIteratorClampsMalformedOffsets(t *testing.T) {
	f := Fragments{
		Tag: dicomtag.PixelDataTag, VR: dicomtag.OB,
		HasOffsets: true,
		Offsets:    []uint32{0, 1000},
		Fragments:  [][]byte{{1, 2, 3}},
	}
	frames := f.FrameIterator()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3}) {
		t.Fatalf("frame 0: got %v, want [1 2 3]", frames[0])
	}
	if len(frames[1]) != 0 {
		t.Fatalf("expected out-of-range second offset to clamp to an empty frame, got %v", frames[1])
	}
}
