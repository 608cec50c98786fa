package flows

import (
	"encoding/binary"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

// fmiGroupLengthCore buffers the FMI segment (minus any existing group
// length element) while summing the on-wire byte size of what it buffers,
// then flushes a freshly computed FileMetaInformationGroupLength ahead of
// it the moment a non-FMI part arrives, generalizing a whole-header-map
// computation into a streaming one.
type fmiGroupLengthCore struct {
	identityCallbacks

	sawFMI           bool
	droppingOldValue bool
	size             uint32
	buffered         []dicompart.Part
	flushed          bool
}

func (c *fmiGroupLengthCore) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	if !p.IsFMI {
		return c.flush(p)
	}
	c.sawFMI = true
	if p.Tag == dicomtag.FileMetaInformationGroupLengthTag {
		c.droppingOldValue = true
		return nil, nil
	}
	c.size += uint32(len(p.RawBytes))
	c.buffered = append(c.buffered, p)
	return nil, nil
}

func (c *fmiGroupLengthCore) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if c.droppingOldValue {
		if p.Last {
			c.droppingOldValue = false
		}
		return nil, nil
	}
	if c.flushed || len(c.buffered) == 0 {
		return []dicompart.Part{p}, nil
	}
	c.size += uint32(len(p.Bytes))
	c.buffered = append(c.buffered, p)
	return nil, nil
}

// flush emits a recomputed group-length header and value ahead of trigger
// (the first non-FMI part, or nil at end of stream), followed by the
// buffered FMI elements and trigger itself.
func (c *fmiGroupLengthCore) flush(trigger dicompart.Part) ([]dicompart.Part, error) {
	c.flushed = true
	if !c.sawFMI {
		if trigger == nil {
			return nil, nil
		}
		return []dicompart.Part{trigger}, nil
	}

	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, c.size)
	header := dicompart.Header{
		Tag: dicomtag.FileMetaInformationGroupLengthTag, VR: dicomtag.UL,
		ValueLength: 4, IsFMI: true, BigEndian: false, ExplicitVR: true,
		RawBytes: dicomio.WriteExplicit(binary.LittleEndian, dicomtag.FileMetaInformationGroupLengthTag, dicomtag.UL, 4),
	}
	value := dicompart.ValueChunk{BigEndian: false, Bytes: lengthBytes, Last: true}

	out := make([]dicompart.Part, 0, len(c.buffered)+3)
	out = append(out, header, value)
	out = append(out, c.buffered...)
	if trigger != nil {
		out = append(out, trigger)
	}
	c.buffered = nil
	return out, nil
}

// FMIGroupLengthFlow recomputes FileMetaInformationGroupLength from the sum
// of the byte sizes of the FMI elements that follow it, inserting the
// element if it was absent.
func FMIGroupLengthFlow() flow.Callbacks {
	core := &fmiGroupLengthCore{}
	return flow.EndEvent(core, func() ([]dicompart.Part, error) {
		if core.flushed {
			return nil, nil
		}
		return core.flush(nil)
	})
}
