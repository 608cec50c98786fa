package flows

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

// deflateDatasetFlow re-encodes every dataset-scope part back into its wire
// bytes and runs them through a raw (headerless) deflater, emitting
// DeflatedChunks. FMI passes through unchanged, matching the stream layout
// of the deflated transfer syntax: an explicit-VR LE FMI segment followed
// by a deflated dataset. No library in the retrieved pack implements raw
// DEFLATE, so this is the one place this module reaches for the standard
// library's compress/flate instead; see DESIGN.md.
type deflateDatasetFlow struct {
	identityCallbacks
	out   bytes.Buffer
	fw    *flate.Writer
	order binary.ByteOrder
	fmi   bool
}

func newDeflateDatasetFlow() *deflateDatasetFlow {
	d := &deflateDatasetFlow{order: binary.LittleEndian}
	fw, err := flate.NewWriter(&d.out, flate.DefaultCompression)
	if err != nil {
		// flate.NewWriter only errors on an invalid level constant; the
		// constant used above is always valid.
		panic(fmt.Sprintf("flows: constructing flate.Writer: %v", err))
	}
	d.fw = fw
	return d
}

func (d *deflateDatasetFlow) write(b []byte) ([]dicompart.Part, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if _, err := d.fw.Write(b); err != nil {
		return nil, fmt.Errorf("flows: deflating dataset bytes: %w", err)
	}
	if err := d.fw.Flush(); err != nil {
		return nil, fmt.Errorf("flows: flushing deflater: %w", err)
	}
	return d.drain(), nil
}

func (d *deflateDatasetFlow) drain() []dicompart.Part {
	if d.out.Len() == 0 {
		return nil
	}
	chunk := dicompart.DeflatedChunk{BigEndian: d.order == binary.BigEndian, Bytes: append([]byte(nil), d.out.Bytes()...)}
	d.out.Reset()
	return []dicompart.Part{chunk}
}

func (d *deflateDatasetFlow) close() ([]dicompart.Part, error) {
	if err := d.fw.Close(); err != nil {
		return nil, fmt.Errorf("flows: closing deflater: %w", err)
	}
	return d.drain(), nil
}

func (d *deflateDatasetFlow) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	d.fmi = p.IsFMI
	if p.IsFMI {
		return []dicompart.Part{p}, nil
	}
	d.order = orderOf(p.BigEndian)
	return d.write(p.RawBytes)
}

func (d *deflateDatasetFlow) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if d.fmi {
		return []dicompart.Part{p}, nil
	}
	return d.write(p.Bytes)
}

func (d *deflateDatasetFlow) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	d.order = orderOf(p.BigEndian)
	var b []byte
	if p.ExplicitVR {
		b = dicomio.WriteExplicit(d.order, p.Tag, dicomtag.SQ, p.Length)
	} else {
		b = dicomio.WriteImplicit(d.order, p.Tag, p.Length)
	}
	return d.write(b)
}

func (d *deflateDatasetFlow) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	if len(p.Bytes) > 0 {
		return d.write(p.Bytes)
	}
	return nil, nil
}

func (d *deflateDatasetFlow) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	d.order = orderOf(p.BigEndian)
	return d.write(dicomio.WriteItemHeader(d.order, p.Length))
}

func (d *deflateDatasetFlow) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	if len(p.Bytes) > 0 {
		return d.write(p.Bytes)
	}
	return nil, nil
}

func (d *deflateDatasetFlow) OnFragmentsStart(p dicompart.FragmentsStart) ([]dicompart.Part, error) {
	d.order = orderOf(p.BigEndian)
	var b []byte
	if p.ExplicitVR {
		b = dicomio.WriteExplicit(d.order, p.Tag, p.VR, dicompart.UndefinedLength)
	} else {
		b = dicomio.WriteImplicit(d.order, p.Tag, dicompart.UndefinedLength)
	}
	return d.write(b)
}

func (d *deflateDatasetFlow) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	d.order = orderOf(p.BigEndian)
	if len(p.RawBytes) > 0 {
		return d.write(p.RawBytes)
	}
	return d.write(dicomio.WriteItemHeader(d.order, p.Length))
}

func (d *deflateDatasetFlow) OnFragmentsEnd(dicompart.FragmentsEnd) ([]dicompart.Part, error) {
	return d.write(dicomio.WriteSequenceDelimitation(d.order))
}

func (d *deflateDatasetFlow) OnUnknown(p dicompart.Unknown) ([]dicompart.Part, error) {
	return d.write(p.Bytes)
}

// DeflateDatasetFlow compresses dataset-scope parts (everything after FMI)
// with a raw deflater and emits DeflatedChunks, passing FMI through
// unchanged and flushing the final deflater residue at end of stream even
// if the dataset was empty.
func DeflateDatasetFlow() flow.Callbacks {
	d := newDeflateDatasetFlow()
	return flow.EndEvent(d, d.close)
}
