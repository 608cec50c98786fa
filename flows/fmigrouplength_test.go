package flows

import (
	"encoding/binary"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

func TestFMIGroupLengthFlowRecomputesLength(t *testing.T) {
	tsUID := []byte("1.2.840.10008.1.2.1")
	tsHeader := dicompart.Header{
		Tag: dicomtag.TransferSyntaxUIDTag, VR: dicomtag.UI, ValueLength: uint32(len(tsUID)), IsFMI: true,
		ExplicitVR: true,
		RawBytes:   dicomio.WriteExplicit(binary.LittleEndian, dicomtag.TransferSyntaxUIDTag, dicomtag.UI, uint32(len(tsUID))),
	}

	f := flow.Create(FMIGroupLengthFlow())
	var out []dicompart.Part
	must := func(parts []dicompart.Part, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, parts...)
	}
	must(f.Start())
	must(f.HandlePart(tsHeader))
	must(f.HandlePart(dicompart.ValueChunk{Bytes: tsUID, Last: true}))
	must(f.HandlePart(header(dicomtag.NewTag(0x0010, 0x0020))))
	must(f.HandlePart(dicompart.ValueChunk{Bytes: []byte("123"), Last: true}))
	must(f.End())

	if len(out) < 2 {
		t.Fatalf("expected at least a group-length header+value, got %v", out)
	}
	glHeader, ok := out[0].(dicompart.Header)
	if !ok || glHeader.Tag != dicomtag.FileMetaInformationGroupLengthTag {
		t.Fatalf("expected stream to begin with the group-length element, got %#v", out[0])
	}
	glValue, ok := out[1].(dicompart.ValueChunk)
	if !ok || len(glValue.Bytes) != 4 {
		t.Fatalf("expected a 4-byte UL value, got %#v", out[1])
	}
	got := binary.LittleEndian.Uint32(glValue.Bytes)
	want := uint32(len(tsHeader.RawBytes) + len(tsUID))
	if got != want {
		t.Fatalf("got group length %d, want %d (FMI element header+value bytes)", got, want)
	}
}

func TestFMIGroupLengthFlowNoFMIEmitsNothingExtra(t *testing.T) {
	f := flow.Create(FMIGroupLengthFlow())
	var out []dicompart.Part
	must := func(parts []dicompart.Part, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, parts...)
	}
	must(f.Start())
	must(f.HandlePart(header(dicomtag.NewTag(0x0010, 0x0020))))
	must(f.HandlePart(dicompart.ValueChunk{Bytes: []byte("123"), Last: true}))
	must(f.End())

	if len(out) != 2 {
		t.Fatalf("expected the dataset element to pass through untouched, got %v", out)
	}
	if _, ok := out[0].(dicompart.Header); !ok {
		t.Fatalf("expected first part to be the dataset header, got %#v", out[0])
	}
}
