package parser

import (
	"encoding/binary"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicompart"
)

func explicitShort(group, elem uint16, vr string, value []byte) []byte {
	b := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint16(b[0:2], group)
	binary.LittleEndian.PutUint16(b[2:4], elem)
	copy(b[4:6], vr)
	binary.LittleEndian.PutUint16(b[6:8], uint16(len(value)))
	copy(b[8:], value)
	return b
}

func explicitLong(group, elem uint16, vr string, length uint32, value []byte) []byte {
	b := make([]byte, 12+len(value))
	binary.LittleEndian.PutUint16(b[0:2], group)
	binary.LittleEndian.PutUint16(b[2:4], elem)
	copy(b[4:6], vr)
	binary.LittleEndian.PutUint32(b[8:12], length)
	copy(b[12:], value)
	return b
}

func itemHeader(length uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b[0:2], 0xFFFE)
	binary.LittleEndian.PutUint16(b[2:4], 0xE000)
	binary.LittleEndian.PutUint32(b[4:8], length)
	return b
}

func itemDelim() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b[0:2], 0xFFFE)
	binary.LittleEndian.PutUint16(b[2:4], 0xE00D)
	return b
}

func seqDelim() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint16(b[0:2], 0xFFFE)
	binary.LittleEndian.PutUint16(b[2:4], 0xE0DD)
	return b
}

func feedAll(t *testing.T, p *Parser, stream []byte) []dicompart.Part {
	t.Helper()
	var out []dicompart.Part
	parts, err := p.Feed(stream)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	out = append(out, parts...)
	parts, err = p.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	out = append(out, parts...)
	return out
}

func TestPreambleFMIAndOneElement(t *testing.T) {
	tsUID := []byte("1.2.840.10008.1.2.1\x00")
	fmiElem := explicitShort(0x0002, 0x0010, "UI", tsUID)

	var stream []byte
	stream = append(stream, make([]byte, 128)...)
	stream = append(stream, []byte("DICM")...)
	stream = append(stream, explicitShort(0x0002, 0x0000, "UL", u32le(uint32(len(fmiElem))))...)
	stream = append(stream, fmiElem...)
	stream = append(stream, explicitShort(0x0010, 0x0010, "PN", []byte("John^Doe"))...)

	p := New()
	out := feedAll(t, p, stream)

	wantKinds := []string{"Preamble", "Header", "ValueChunk", "Header", "ValueChunk", "Header", "ValueChunk"}
	if len(out) != len(wantKinds) {
		t.Fatalf("got %d parts, want %d: %#v", len(out), len(wantKinds), out)
	}
	pn, ok := out[6].(dicompart.ValueChunk)
	if !ok || string(pn.Bytes) != "John^Doe" || !pn.Last {
		t.Fatalf("expected PN value chunk, got %#v", out[6])
	}
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestImplicitVRNoPreambleSniff(t *testing.T) {
	// (0010,0010) implicit VR LE: tag + 4-byte length, no VR bytes at all.
	b := make([]byte, 8+8)
	binary.LittleEndian.PutUint16(b[0:2], 0x0010)
	binary.LittleEndian.PutUint16(b[2:4], 0x0010)
	binary.LittleEndian.PutUint32(b[4:8], 8)
	copy(b[8:], "John^Doe")

	p := New()
	out := feedAll(t, p, b)
	if len(out) != 2 {
		t.Fatalf("got %d parts, want 2: %#v", len(out), out)
	}
	hdr, ok := out[0].(dicompart.Header)
	if !ok || hdr.ExplicitVR {
		t.Fatalf("expected sniffed implicit VR header, got %#v", out[0])
	}
}

func TestDeterminateSequenceWithNestedElement(t *testing.T) {
	item1Content := explicitShort(0x0008, 0x0020, "DA", []byte("20041230"))
	item2Content := explicitShort(0x0008, 0x0020, "DA", []byte("20041230"))

	seqBody := append(itemHeader(uint32(len(item1Content))), item1Content...)
	seqBody = append(seqBody, itemHeader(0xFFFFFFFF)...)
	seqBody = append(seqBody, item2Content...)
	seqBody = append(seqBody, itemDelim()...)

	stream := explicitLong(0x0008, 0x9215, "SQ", uint32(len(seqBody)), seqBody)

	p := New()
	out := feedAll(t, p, stream)

	var kinds []string
	for _, part := range out {
		switch part.(type) {
		case dicompart.SequenceStart:
			kinds = append(kinds, "SequenceStart")
		case dicompart.ItemStart:
			kinds = append(kinds, "ItemStart")
		case dicompart.Header:
			kinds = append(kinds, "Header")
		case dicompart.ValueChunk:
			kinds = append(kinds, "ValueChunk")
		case dicompart.ItemEnd:
			kinds = append(kinds, "ItemEnd")
		case dicompart.SequenceEnd:
			kinds = append(kinds, "SequenceEnd")
		}
	}
	// The parser itself never synthesizes delimitations for determinate
	// containers (flow.GuaranteedDelimitationEvents does); only the real,
	// wire-present item 2 delimiter shows up here.
	want := []string{"SequenceStart", "ItemStart", "Header", "ValueChunk", "ItemStart", "Header", "ValueChunk", "ItemEnd"}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s (all: %v)", i, kinds[i], want[i], kinds)
		}
	}
}

func TestFragmentsWithOffsetsTable(t *testing.T) {
	offsets := []byte{0, 0, 0, 0, 6, 0, 0, 0}
	frag1 := []byte{1, 2, 3, 4}
	frag2 := []byte{5, 6, 7, 8}

	var body []byte
	body = append(body, itemHeader(uint32(len(offsets)))...)
	body = append(body, offsets...)
	body = append(body, itemHeader(uint32(len(frag1)))...)
	body = append(body, frag1...)
	body = append(body, itemHeader(uint32(len(frag2)))...)
	body = append(body, frag2...)
	body = append(body, seqDelim()...)

	stream := explicitLong(0x7FE0, 0x0010, "OW", 0xFFFFFFFF, body)

	p := New()
	out := feedAll(t, p, stream)

	var items []dicompart.FragmentsItem
	for _, part := range out {
		if fi, ok := part.(dicompart.FragmentsItem); ok {
			items = append(items, fi)
		}
	}
	if len(items) != 3 {
		t.Fatalf("got %d fragment items, want 3: %#v", len(items), items)
	}
	if items[0].Length != 8 || items[1].Length != 4 || items[2].Length != 4 {
		t.Fatalf("unexpected fragment lengths: %#v", items)
	}

	last := out[len(out)-1]
	if _, ok := last.(dicompart.FragmentsEnd); !ok {
		t.Fatalf("expected stream to end with FragmentsEnd, got %#v", last)
	}
}

func TestFeedAcrossChunkBoundaryNeedsMoreInput(t *testing.T) {
	full := explicitShort(0x0010, 0x0010, "PN", []byte("John^Doe"))
	p := New()

	parts, err := p.Feed(full[:4])
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(parts) != 0 {
		t.Fatalf("expected no parts from a partial header, got %#v", parts)
	}

	parts, err = p.Feed(full[4:])
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected header+value once the rest arrives, got %#v", parts)
	}
}

func TestZeroLengthValueEmitsOneEmptyChunk(t *testing.T) {
	stream := explicitShort(0x0008, 0x0020, "DA", nil)
	p := New()
	out := feedAll(t, p, stream)
	if len(out) != 2 {
		t.Fatalf("got %d parts, want 2: %#v", len(out), out)
	}
	chunk, ok := out[1].(dicompart.ValueChunk)
	if !ok || !chunk.Last || len(chunk.Bytes) != 0 {
		t.Fatalf("expected a single empty Last chunk, got %#v", out[1])
	}
}

func TestTruncatedStreamIsUnexpectedEndOfStream(t *testing.T) {
	stream := explicitShort(0x0010, 0x0010, "PN", []byte("John^Doe"))
	p := New()
	if _, err := p.Feed(stream[:len(stream)-2]); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, err := p.Close(); err == nil {
		t.Fatal("expected an error closing mid-value")
	}
}
