package flows

import (
	"encoding/binary"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

// wordSizeOf returns the element width to reverse when byte-swapping a
// binary VR's value, or 0 for VRs that are never byte-swapped.
func wordSizeOf(vr *dicomtag.VR) int {
	switch vr {
	case dicomtag.US, dicomtag.SS, dicomtag.OW:
		return 2
	case dicomtag.UL, dicomtag.SL, dicomtag.FL, dicomtag.OL, dicomtag.OF, dicomtag.AT:
		return 4
	case dicomtag.FD, dicomtag.OD:
		return 8
	default:
		return 0
	}
}

func swapWords(b []byte, wordSize int) []byte {
	if wordSize <= 1 || len(b)%wordSize != 0 {
		return b
	}
	out := make([]byte, len(b))
	for i := 0; i < len(b); i += wordSize {
		for j := 0; j < wordSize; j++ {
			out[i+j] = b[i+wordSize-1-j]
		}
	}
	return out
}

// toExplicitLE normalizes byte order to little endian and VR encoding to
// explicit, byte-swapping binary-VR values that originated big endian.
// Fragment bytes for OW fragments are swapped word by word; OB fragments
// are raw bytes and pass through untouched.
type toExplicitLE struct {
	identityCallbacks
	swapping bool
	wordSize int
	buf      []byte

	fragmentsWordSize int
	fragmentsFromBig  bool
}

func (t *toExplicitLE) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	ws := wordSizeOf(p.VR)
	fromBig := p.BigEndian

	p.BigEndian = false
	p.ExplicitVR = true
	p.RawBytes = dicomio.WriteExplicit(binary.LittleEndian, p.Tag, p.VR, p.ValueLength)

	if ws > 1 && fromBig {
		t.swapping, t.wordSize, t.buf = true, ws, nil
		return []dicompart.Part{p}, nil
	}
	t.swapping = false
	return []dicompart.Part{p}, nil
}

func (t *toExplicitLE) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if t.swapping {
		t.buf = append(t.buf, p.Bytes...)
		if !p.Last {
			return nil, nil
		}
		t.swapping = false
		return []dicompart.Part{dicompart.ValueChunk{BigEndian: false, Bytes: swapWords(t.buf, t.wordSize), Last: true}}, nil
	}
	p.BigEndian = false
	return []dicompart.Part{p}, nil
}

func (t *toExplicitLE) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	p.BigEndian = false
	p.ExplicitVR = true
	return []dicompart.Part{p}, nil
}

func (t *toExplicitLE) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	p.BigEndian = false
	return []dicompart.Part{p}, nil
}

func (t *toExplicitLE) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	t.fragmentsFromBig = p.BigEndian
	if p.VR == dicomtag.OW {
		t.fragmentsWordSize = 2
	} else {
		t.fragmentsWordSize = 0
	}
	p.BigEndian = false
	p.ExplicitVR = true
	return []dicompart.Part{p}, nil
}

func (t *toExplicitLE) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	p.BigEndian = false
	if t.fragmentsWordSize > 1 && t.fragmentsFromBig {
		t.swapping, t.wordSize, t.buf = true, t.fragmentsWordSize, nil
	} else {
		t.swapping = false
	}
	return []dicompart.Part{p}, nil
}

// ToExplicitVRLittleEndianFlow normalizes byte order to little endian and
// VR encoding to explicit, a fixed point on streams already in that form.
func ToExplicitVRLittleEndianFlow() flow.Callbacks {
	return &toExplicitLE{}
}
