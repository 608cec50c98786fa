package dicomio

import (
	"encoding/binary"
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// ErrInvalidHeader is returned when header bytes violate the explicit-VR
// table or declare illegal indeterminate length.
var ErrInvalidHeader = fmt.Errorf("dicomio: invalid header")

// UndefinedLength is the wire sentinel for indeterminate length.
const UndefinedLength uint32 = 0xFFFFFFFF

// Header is the result of decoding one data-element, item or delimitation
// header at a fixed byte offset.
type Header struct {
	Tag dicomtag.Tag
	// VR is nil for the structural (FFFE,*) tags, which carry no VR byte.
	VR          *dicomtag.VR
	HeaderLen   int // 8 or 12
	ValueLength uint32
}

// IsStructural reports whether h addresses an item or delimitation tag
// rather than a data element.
func (h Header) IsStructural() bool {
	return h.Tag == dicomtag.ItemTag || h.Tag == dicomtag.ItemDelimitationItemTag || h.Tag == dicomtag.SequenceDelimitationItemTag
}

// ReadExplicit decodes one explicit-VR header from b, which must start at a
// header boundary. It returns ErrNeedMoreInput if b is too short to
// determine the header's full length (callers should Peek a larger prefix
// and retry).
func ReadExplicit(b []byte, order binary.ByteOrder) (Header, error) {
	if len(b) < 8 {
		return Header{}, ErrNeedMoreInput
	}
	tag := readTag(b, order)

	if isStructuralTag(tag) {
		return Header{Tag: tag, HeaderLen: 8, ValueLength: order.Uint32(b[4:8])}, nil
	}

	vrName := string(b[4:6])
	vr, err := dicomtag.Lookup(vrName)
	if err != nil {
		return Header{}, fmt.Errorf("%w: tag %v: %v", ErrInvalidHeader, tag, err)
	}

	if vr.HasLongHeader() {
		if len(b) < 12 {
			return Header{}, ErrNeedMoreInput
		}
		length := order.Uint32(b[8:12])
		if err := checkIndeterminate(length, vr); err != nil {
			return Header{}, err
		}
		return Header{Tag: tag, VR: vr, HeaderLen: 12, ValueLength: length}, nil
	}

	length := uint32(order.Uint16(b[6:8]))
	if err := checkIndeterminate(length, vr); err != nil {
		return Header{}, err
	}
	return Header{Tag: tag, VR: vr, HeaderLen: 8, ValueLength: length}, nil
}

// ReadImplicit decodes one implicit-VR header from b, consulting the
// dictionary for the VR.
func ReadImplicit(b []byte, order binary.ByteOrder) (Header, error) {
	if len(b) < 8 {
		return Header{}, ErrNeedMoreInput
	}
	tag := readTag(b, order)

	if isStructuralTag(tag) {
		return Header{Tag: tag, HeaderLen: 8, ValueLength: order.Uint32(b[4:8])}, nil
	}

	vr := dicomtag.VROf(tag)
	length := order.Uint32(b[4:8])
	if err := checkIndeterminate(length, vr); err != nil {
		return Header{}, err
	}
	return Header{Tag: tag, VR: vr, HeaderLen: 8, ValueLength: length}, nil
}

func checkIndeterminate(length uint32, vr *dicomtag.VR) error {
	if length == UndefinedLength && !vr.AllowsIndeterminateLength() {
		return fmt.Errorf("%w: indeterminate length illegal for VR %s", ErrInvalidHeader, vr.Name)
	}
	return nil
}

func isStructuralTag(tag dicomtag.Tag) bool {
	return tag == dicomtag.ItemTag || tag == dicomtag.ItemDelimitationItemTag || tag == dicomtag.SequenceDelimitationItemTag
}

func readTag(b []byte, order binary.ByteOrder) dicomtag.Tag {
	group := order.Uint16(b[0:2])
	element := order.Uint16(b[2:4])
	return dicomtag.NewTag(group, element)
}
