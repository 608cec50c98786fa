package dicomio

import (
	"encoding/binary"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// WriteExplicit encodes one explicit-VR header, choosing the 8- or 12-byte
// form per vr.HasLongHeader, generalized to the streaming byte-slice form
// this module builds its parts from instead of writing directly to an
// io.Writer.
func WriteExplicit(order binary.ByteOrder, tag dicomtag.Tag, vr *dicomtag.VR, length uint32) []byte {
	if vr.HasLongHeader() {
		b := make([]byte, 12)
		writeTag(b, order, tag)
		copy(b[4:6], vr.Name)
		order.PutUint32(b[8:12], length)
		return b
	}
	b := make([]byte, 8)
	writeTag(b, order, tag)
	copy(b[4:6], vr.Name)
	order.PutUint16(b[6:8], uint16(length))
	return b
}

// WriteImplicit encodes one implicit-VR header: tag plus a 4-byte length,
// with no VR bytes at all.
func WriteImplicit(order binary.ByteOrder, tag dicomtag.Tag, length uint32) []byte {
	b := make([]byte, 8)
	writeTag(b, order, tag)
	order.PutUint32(b[4:8], length)
	return b
}

// WriteItemHeader encodes a (FFFE,E000) item or fragment header.
func WriteItemHeader(order binary.ByteOrder, length uint32) []byte {
	return WriteStructural(order, dicomtag.ItemTag, length)
}

// WriteItemDelimitation encodes a (FFFE,E00D) item delimitation.
func WriteItemDelimitation(order binary.ByteOrder) []byte {
	return WriteStructural(order, dicomtag.ItemDelimitationItemTag, 0)
}

// WriteSequenceDelimitation encodes a (FFFE,E0DD) sequence delimitation.
func WriteSequenceDelimitation(order binary.ByteOrder) []byte {
	return WriteStructural(order, dicomtag.SequenceDelimitationItemTag, 0)
}

// WriteStructural encodes any of the FFFE-group structural headers, which
// carry no VR byte regardless of transfer syntax.
func WriteStructural(order binary.ByteOrder, tag dicomtag.Tag, length uint32) []byte {
	b := make([]byte, 8)
	writeTag(b, order, tag)
	order.PutUint32(b[4:8], length)
	return b
}

func writeTag(b []byte, order binary.ByteOrder, tag dicomtag.Tag) {
	order.PutUint16(b[0:2], tag.Group())
	order.PutUint16(b[2:4], tag.Element())
}
