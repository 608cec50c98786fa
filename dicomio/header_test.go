package dicomio

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func TestReadExplicit(t *testing.T) {
	testCases := []struct {
		name    string
		bytes   []byte
		want    Header
		wantErr error
	}{
		{
			"unsigned long, 8 byte header",
			[]byte{0x02, 0x00, 0x00, 0x00, 'U', 'L', 0x04, 0x00},
			Header{Tag: dicomtag.NewTag(0x0002, 0x0000), VR: dicomtag.UL, HeaderLen: 8, ValueLength: 4},
			nil,
		},
		{
			"OB, 12 byte header",
			[]byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'B', 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF},
			Header{Tag: dicomtag.NewTag(0x7FE0, 0x0010), VR: dicomtag.OB, HeaderLen: 12, ValueLength: UndefinedLength},
			nil,
		},
		{
			"item delimitation, no VR",
			[]byte{0xFE, 0xFF, 0x0D, 0xE0, 0x00, 0x00, 0x00, 0x00},
			Header{Tag: dicomtag.ItemDelimitationItemTag, HeaderLen: 8, ValueLength: 0},
			nil,
		},
		{
			"UT indeterminate length is invalid",
			[]byte{0x10, 0x00, 0x10, 0x00, 'U', 'T', 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF},
			Header{},
			ErrInvalidHeader,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadExplicit(tc.bytes, binary.LittleEndian)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got err %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestReadExplicitNeedsMoreInput(t *testing.T) {
	if _, err := ReadExplicit([]byte{0x02, 0x00, 0x00, 0x00, 'O', 'B', 0x00, 0x00}, binary.LittleEndian); !errors.Is(err, ErrNeedMoreInput) {
		t.Fatalf("expected ErrNeedMoreInput for truncated long header, got %v", err)
	}
}

func TestReadImplicit(t *testing.T) {
	b := []byte{0x10, 0x00, 0x10, 0x00, 0x08, 0x00, 0x00, 0x00}
	got, err := ReadImplicit(b, binary.LittleEndian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Header{Tag: dicomtag.NewTag(0x0010, 0x0010), VR: dicomtag.PN, HeaderLen: 8, ValueLength: 8}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReservoirPeekConsume(t *testing.T) {
	r := NewReservoir()
	if _, ok := r.Peek(1); ok {
		t.Fatalf("expected Peek to fail on empty reservoir")
	}
	r.Append([]byte{1, 2, 3})
	b, ok := r.Peek(2)
	if !ok || string(b) != string([]byte{1, 2}) {
		t.Fatalf("unexpected peek result: %v %v", b, ok)
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	consumed := r.Consume(2)
	if string(consumed) != string([]byte{1, 2}) {
		t.Fatalf("unexpected consume result: %v", consumed)
	}
	if r.Len() != 1 {
		t.Fatalf("expected len 1 after consuming 2, got %d", r.Len())
	}
	r.Append([]byte{4, 5})
	all := r.Consume(3)
	if string(all) != string([]byte{3, 4, 5}) {
		t.Fatalf("unexpected bytes after append: %v", all)
	}
}
