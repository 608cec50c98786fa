package flows

import (
	"bytes"
	"compress/flate"
	"io"
	"reflect"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

func TestDeflateDatasetFlowPassesFMIThroughUnchanged(t *testing.T) {
	f := flow.Create(DeflateDatasetFlow())
	fmiHeader := dicompart.Header{Tag: dicomtag.TransferSyntaxUIDTag, IsFMI: true, RawBytes: make([]byte, 8)}

	out, err := f.HandlePart(fmiHeader)
	if err != nil {
		t.Fatalf("HandlePart: %v", err)
	}
	if len(out) != 1 || !reflect.DeepEqual(out[0], dicompart.Part(fmiHeader)) {
		t.Fatalf("expected FMI header passed through verbatim, got %v", out)
	}
}

func TestDeflateDatasetFlowProducesInflatableDeflatedChunks(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0020)
	raw := []byte{0x10, 0x00, 0x20, 0x00, 'L', 'O', 8, 0}
	value := []byte("John^Doe")
	h := dicompart.Header{Tag: tag, VR: dicomtag.LO, ValueLength: uint32(len(value)), ExplicitVR: true, RawBytes: raw}

	var out []dicompart.Part
	must := func(parts []dicompart.Part, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, parts...)
	}

	f := flow.Create(DeflateDatasetFlow())
	must(f.Start())
	must(f.HandlePart(h))
	must(f.HandlePart(dicompart.ValueChunk{Bytes: value, Last: true}))
	must(f.End())

	var deflated []byte
	for _, p := range out {
		if c, ok := p.(dicompart.DeflatedChunk); ok {
			deflated = append(deflated, c.Bytes...)
		}
	}
	if len(deflated) == 0 {
		t.Fatalf("expected at least one deflated chunk, got %v", out)
	}

	r := flate.NewReader(bytes.NewReader(deflated))
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflating: %v", err)
	}
	want := append(append([]byte{}, raw...), value...)
	if !bytes.Equal(inflated, want) {
		t.Fatalf("got inflated bytes %x, want %x", inflated, want)
	}
}
