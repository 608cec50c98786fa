package flows

import (
	"encoding/binary"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func TestToExplicitVRLittleEndianFlowByteSwapsBigEndianBinary(t *testing.T) {
	tag := dicomtag.NewTag(0x0028, 0x0010) // Rows, US
	h := dicompart.Header{Tag: tag, VR: dicomtag.US, BigEndian: true, ValueLength: 2}
	value := make([]byte, 2)
	binary.BigEndian.PutUint16(value, 512)

	cb := ToExplicitVRLittleEndianFlow()
	out := runFlow(t, cb, h, dicompart.ValueChunk{BigEndian: true, Bytes: value, Last: true})

	gotHeader, ok := out[0].(dicompart.Header)
	if !ok || gotHeader.BigEndian || !gotHeader.ExplicitVR {
		t.Fatalf("expected header normalized to explicit LE, got %#v", out[0])
	}
	gotValue, ok := out[1].(dicompart.ValueChunk)
	if !ok || gotValue.BigEndian {
		t.Fatalf("expected value marked little endian, got %#v", out[1])
	}
	if got := binary.LittleEndian.Uint16(gotValue.Bytes); got != 512 {
		t.Fatalf("got swapped value %d, want 512", got)
	}
}

func TestToExplicitVRLittleEndianFlowLeavesTextUnswapped(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0010)
	h := dicompart.Header{Tag: tag, VR: dicomtag.PN, BigEndian: true, ValueLength: 8}

	cb := ToExplicitVRLittleEndianFlow()
	out := runFlow(t, cb, h, dicompart.ValueChunk{BigEndian: true, Bytes: []byte("John^Doe"), Last: true})

	v, ok := out[1].(dicompart.ValueChunk)
	if !ok || string(v.Bytes) != "John^Doe" {
		t.Fatalf("expected text value bytes untouched, got %#v", out[1])
	}
}

func TestToExplicitVRLittleEndianFlowNormalizesSequenceAndItemHeaders(t *testing.T) {
	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	cb := ToExplicitVRLittleEndianFlow()
	out := runFlow(t, cb,
		dicompart.SequenceStart{Tag: seqTag, BigEndian: true, ExplicitVR: false},
		dicompart.ItemStart{Tag: seqTag, Index: 1, BigEndian: true},
	)
	ss, ok := out[0].(dicompart.SequenceStart)
	if !ok || ss.BigEndian || !ss.ExplicitVR {
		t.Fatalf("expected normalized SequenceStart, got %#v", out[0])
	}
	is, ok := out[1].(dicompart.ItemStart)
	if !ok || is.BigEndian {
		t.Fatalf("expected normalized ItemStart, got %#v", out[1])
	}
}
