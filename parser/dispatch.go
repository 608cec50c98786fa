package parser

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/dicomuid"
)

// readElementHeader decodes one header at the current read position and
// dispatches it: a delimitation pops a container, an Item opens an item or
// fragment depending on what container is open, SQ and indeterminate-length
// OB/OW PixelData/WaveformData open a new container, anything else is a
// regular element whose value streaming begins immediately.
func (p *Parser) readElementHeader(isFMI bool) ([]dicompart.Part, error) {
	n := p.res.Len()
	if n > 12 {
		n = 12
	}
	peeked, _ := p.res.Peek(n)

	var (
		hdr dicomio.Header
		err error
	)
	if p.explicitVR {
		hdr, err = dicomio.ReadExplicit(peeked, p.order)
	} else {
		hdr, err = dicomio.ReadImplicit(peeked, p.order)
	}
	if err != nil {
		if errors.Is(err, dicomio.ErrInvalidHeader) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		return nil, err
	}
	raw := p.res.Consume(hdr.HeaderLen)

	switch hdr.Tag {
	case dicomtag.SequenceDelimitationItemTag:
		return p.closeSequenceOrFragments(raw, isFMI)
	case dicomtag.ItemDelimitationItemTag:
		return p.closeItem(raw, isFMI)
	case dicomtag.ItemTag:
		return p.openItemOrFragment(hdr, raw, isFMI)
	}

	switch {
	case hdr.VR == dicomtag.SQ:
		p.accountFMIHeader(isFMI, hdr.Tag, hdr.HeaderLen)
		p.decrementFrames(hdr.HeaderLen)
		p.containers = append(p.containers, container{
			kind:          containerSequence,
			tag:           hdr.Tag,
			indeterminate: hdr.ValueLength == dicomio.UndefinedLength,
			remaining:     int64(hdr.ValueLength),
		})
		return []dicompart.Part{dicompart.SequenceStart{
			Tag: hdr.Tag, Length: hdr.ValueLength,
			BigEndian: p.order == binary.BigEndian, ExplicitVR: p.explicitVR,
		}}, nil

	case isFragmentsStart(hdr):
		p.accountFMIHeader(isFMI, hdr.Tag, hdr.HeaderLen)
		p.decrementFrames(hdr.HeaderLen)
		p.containers = append(p.containers, container{
			kind: containerFragments, tag: hdr.Tag, indeterminate: true,
		})
		return []dicompart.Part{dicompart.FragmentsStart{
			Tag: hdr.Tag, VR: hdr.VR,
			BigEndian: p.order == binary.BigEndian, ExplicitVR: p.explicitVR,
		}}, nil

	default:
		p.accountFMIHeader(isFMI, hdr.Tag, hdr.HeaderLen)
		p.decrementFrames(hdr.HeaderLen)
		part := dicompart.Header{
			Tag: hdr.Tag, VR: hdr.VR, ValueLength: hdr.ValueLength,
			IsFMI: isFMI, BigEndian: p.order == binary.BigEndian,
			ExplicitVR: p.explicitVR, RawBytes: raw,
		}
		return p.beginValue(part, isFMI)
	}
}

func isFragmentsStart(hdr dicomio.Header) bool {
	if hdr.ValueLength != dicomio.UndefinedLength {
		return false
	}
	if hdr.Tag != dicomtag.PixelDataTag && hdr.Tag != dicomtag.WaveformDataTag {
		return false
	}
	return hdr.VR == dicomtag.OB || hdr.VR == dicomtag.OW
}

// accountFMIHeader tracks consumed FMI byte length for the optional
// InconsistentGroupLength strict check. The group length element's own
// header/value never counts toward its own total.
func (p *Parser) accountFMIHeader(isFMI bool, tag dicomtag.Tag, headerLen int) {
	if isFMI && tag != dicomtag.FileMetaInformationGroupLengthTag {
		p.fmiBytesConsumed += uint32(headerLen)
	}
}

func (p *Parser) beginValue(part dicompart.Header, isFMI bool) ([]dicompart.Part, error) {
	out := []dicompart.Part{part}

	p.valueBigEndian = part.BigEndian
	p.valueCountsTowardFMI = isFMI && part.Tag != dicomtag.FileMetaInformationGroupLengthTag
	p.capturing = isFMI && (part.Tag == dicomtag.FileMetaInformationGroupLengthTag || part.Tag == dicomtag.TransferSyntaxUIDTag)
	p.valueCaptureTag = part.Tag
	p.valueCapture = nil

	if part.ValueLength == 0 {
		out = append(out, dicompart.ValueChunk{BigEndian: part.BigEndian, Bytes: []byte{}, Last: true})
		if p.capturing {
			p.finalizeCapture()
		}
		p.capturing = false
		p.mode = modeHeader
		return out, nil
	}

	p.mode = modeValue
	p.valueRemaining = part.ValueLength
	return out, nil
}

func (p *Parser) stepValueGeneric() ([]dicompart.Part, error) {
	n := int(p.valueRemaining)
	if n > p.chunkSize {
		n = p.chunkSize
	}
	avail := p.res.Len()
	if avail == 0 {
		return nil, dicomio.ErrNeedMoreInput
	}
	if avail < n {
		n = avail
	}

	b := p.res.Consume(n)
	raw := append([]byte(nil), b...)
	p.valueRemaining -= uint32(n)

	if p.capturing {
		p.valueCapture = append(p.valueCapture, raw...)
	}
	if p.valueCountsTowardFMI {
		p.fmiBytesConsumed += uint32(n)
	}
	p.decrementFrames(n)

	last := p.valueRemaining == 0
	chunk := dicompart.ValueChunk{BigEndian: p.valueBigEndian, Bytes: raw, Last: last}
	if last {
		p.mode = modeHeader
		if p.capturing {
			p.finalizeCapture()
		}
		p.capturing = false
	}
	return []dicompart.Part{chunk}, nil
}

func (p *Parser) closeSequenceOrFragments(raw []byte, isFMI bool) ([]dicompart.Part, error) {
	if len(p.containers) == 0 {
		return nil, fmt.Errorf("%w: sequence delimitation with nothing open", ErrInvalidHeader)
	}
	top := p.containers[len(p.containers)-1]
	p.containers = p.containers[:len(p.containers)-1]
	if isFMI {
		p.fmiBytesConsumed += uint32(len(raw))
	}
	p.decrementFrames(len(raw))

	switch top.kind {
	case containerSequence:
		return []dicompart.Part{dicompart.SequenceEnd{Tag: top.tag, Bytes: raw}}, nil
	case containerFragments:
		return []dicompart.Part{dicompart.FragmentsEnd{}}, nil
	default:
		return nil, fmt.Errorf("%w: sequence delimitation while an item is open", ErrInvalidHeader)
	}
}

func (p *Parser) closeItem(raw []byte, isFMI bool) ([]dicompart.Part, error) {
	if len(p.containers) == 0 || p.containers[len(p.containers)-1].kind != containerItem {
		return nil, fmt.Errorf("%w: item delimitation with no open item", ErrInvalidHeader)
	}
	top := p.containers[len(p.containers)-1]
	p.containers = p.containers[:len(p.containers)-1]
	if isFMI {
		p.fmiBytesConsumed += uint32(len(raw))
	}
	p.decrementFrames(len(raw))
	return []dicompart.Part{dicompart.ItemEnd{Tag: top.tag, Index: top.index, Bytes: raw}}, nil
}

func (p *Parser) openItemOrFragment(hdr dicomio.Header, raw []byte, isFMI bool) ([]dicompart.Part, error) {
	if len(p.containers) == 0 {
		return nil, fmt.Errorf("%w: item outside any sequence or fragments", ErrInvalidHeader)
	}
	topIdx := len(p.containers) - 1

	switch p.containers[topIdx].kind {
	case containerFragments:
		p.containers[topIdx].index++
		idx := p.containers[topIdx].index
		if isFMI {
			p.fmiBytesConsumed += uint32(len(raw))
		}
		p.decrementFrames(len(raw))

		out := []dicompart.Part{dicompart.FragmentsItem{
			Index: idx, Length: hdr.ValueLength,
			BigEndian: p.order == binary.BigEndian, RawBytes: raw,
		}}
		p.valueBigEndian = p.order == binary.BigEndian
		p.capturing = false
		p.valueCountsTowardFMI = false
		if hdr.ValueLength == 0 {
			out = append(out, dicompart.ValueChunk{BigEndian: p.valueBigEndian, Bytes: []byte{}, Last: true})
			return out, nil
		}
		p.mode = modeValue
		p.valueRemaining = hdr.ValueLength
		return out, nil

	case containerSequence:
		seqTag := p.containers[topIdx].tag
		p.containers[topIdx].index++
		idx := p.containers[topIdx].index
		if isFMI {
			p.fmiBytesConsumed += uint32(len(raw))
		}
		p.decrementFrames(len(raw))

		p.containers = append(p.containers, container{
			kind: containerItem, tag: seqTag, index: idx,
			indeterminate: hdr.ValueLength == dicomio.UndefinedLength,
			remaining:     int64(hdr.ValueLength),
		})
		return []dicompart.Part{dicompart.ItemStart{
			Tag: seqTag, Index: idx, Length: hdr.ValueLength,
			BigEndian: p.order == binary.BigEndian,
		}}, nil

	default:
		return nil, fmt.Errorf("%w: item header nested directly inside another item", ErrInvalidHeader)
	}
}

// decrementFrames charges n consumed bytes against every open determinate
// container, silently popping any whose budget reaches zero. It never
// emits a part: real delimitations come only from the wire (indeterminate
// containers) or are synthesized downstream by
// flow.GuaranteedDelimitationEvents (determinate containers), so the parser
// itself only needs this bookkeeping to know when to stop reading a
// container's contents and resume its parent.
func (p *Parser) decrementFrames(n int) {
	if n <= 0 || len(p.containers) == 0 {
		return
	}
	for i := range p.containers {
		if !p.containers[i].indeterminate {
			p.containers[i].remaining -= int64(n)
		}
	}
	for len(p.containers) > 0 {
		top := p.containers[len(p.containers)-1]
		if top.indeterminate || top.remaining > 0 {
			break
		}
		p.containers = p.containers[:len(p.containers)-1]
	}
}

func (p *Parser) finalizeCapture() {
	switch p.valueCaptureTag {
	case dicomtag.FileMetaInformationGroupLengthTag:
		if len(p.valueCapture) >= 4 {
			p.fmiGroupLength = binary.LittleEndian.Uint32(p.valueCapture[:4])
			p.fmiHasGroupLength = true
		}
	case dicomtag.TransferSyntaxUIDTag:
		p.transferSyntaxUID = trimUID(p.valueCapture)
	}
	p.valueCapture = nil
}

func trimUID(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// leaveFMI runs when a header group other than 0x0002 appears at the top
// level: the FMI segment is over. It resolves the declared transfer syntax
// into the byte-order/VR-encoding context the dataset adopts for the rest
// of the stream; the parser never switches back.
func (p *Parser) leaveFMI() ([]dicompart.Part, error) {
	if p.strict && p.fmiHasGroupLength && p.fmiBytesConsumed != p.fmiGroupLength {
		return nil, fmt.Errorf("%w: declared %d, observed %d", ErrInconsistentGroupLength, p.fmiGroupLength, p.fmiBytesConsumed)
	}

	ctx, known := dicomuid.Lookup(p.transferSyntaxUID)
	if p.strict && !known {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransferSyntax, p.transferSyntaxUID)
	}

	p.order = orderOf(ctx.BigEndian)
	p.explicitVR = ctx.ExplicitVR
	if ctx.Deflated {
		p.phase = phaseDeflated
	} else {
		p.phase = phaseDataset
	}
	return nil, nil
}
