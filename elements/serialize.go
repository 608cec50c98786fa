package elements

import (
	"bytes"
	"encoding/binary"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

var preamble = func() []byte {
	b := make([]byte, 132)
	copy(b[128:], "DICM")
	return b
}()

func orderFor(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ToBytes serializes e to the wire format equivalent to streaming its part
// projection through the parser's inverse: indeterminate length for every
// sequence and item, with a fresh delimitation at each level. withPreamble
// prepends the 128-byte zero preamble and "DICM" magic.
func (e *Elements) ToBytes(withPreamble bool) []byte {
	var buf bytes.Buffer
	if withPreamble {
		buf.Write(preamble)
	}
	e.writeTo(&buf)
	return buf.Bytes()
}

func (e *Elements) writeTo(buf *bytes.Buffer) {
	for _, en := range e.entries {
		writeElementSet(buf, en.set)
	}
}

func writeElementSet(buf *bytes.Buffer, set ElementSet) {
	switch v := set.(type) {
	case ValueElement:
		order := orderFor(v.BigEndian)
		if v.ExplicitVR {
			buf.Write(dicomio.WriteExplicit(order, v.Tag, v.VR, uint32(len(v.Value))))
		} else {
			buf.Write(dicomio.WriteImplicit(order, v.Tag, uint32(len(v.Value))))
		}
		buf.Write(v.Value)

	case Sequence:
		order := orderFor(v.BigEndian)
		if v.ExplicitVR {
			buf.Write(dicomio.WriteExplicit(order, v.Tag, dicomtag.SQ, dicompart.UndefinedLength))
		} else {
			buf.Write(dicomio.WriteImplicit(order, v.Tag, dicompart.UndefinedLength))
		}
		for _, item := range v.Items {
			buf.Write(dicomio.WriteItemHeader(order, dicompart.UndefinedLength))
			if item.Elements != nil {
				item.Elements.writeTo(buf)
			}
			buf.Write(dicomio.WriteItemDelimitation(order))
		}
		buf.Write(dicomio.WriteSequenceDelimitation(order))

	case Fragments:
		order := orderFor(v.BigEndian)
		if v.ExplicitVR {
			buf.Write(dicomio.WriteExplicit(order, v.Tag, v.VR, dicompart.UndefinedLength))
		} else {
			buf.Write(dicomio.WriteImplicit(order, v.Tag, dicompart.UndefinedLength))
		}
		if v.HasOffsets {
			ob := encodeOffsets(order, v.Offsets)
			buf.Write(dicomio.WriteItemHeader(order, uint32(len(ob))))
			buf.Write(ob)
		}
		for _, frag := range v.Fragments {
			buf.Write(dicomio.WriteItemHeader(order, uint32(len(frag))))
			buf.Write(frag)
		}
		buf.Write(dicomio.WriteSequenceDelimitation(order))
	}
}

func encodeOffsets(order binary.ByteOrder, offsets []uint32) []byte {
	b := make([]byte, 4*len(offsets))
	for i, off := range offsets {
		order.PutUint32(b[i*4:], off)
	}
	return b
}
