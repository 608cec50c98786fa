// Package parser implements the incremental DICOM stream parser: a
// pull-based state machine over dicomio.Reservoir that emits
// dicompart.Part values without ever blocking on I/O or buffering a
// whole stream in memory.
//
// The header-then-value reading rhythm and the "%v: wrapping %w" error
// style follow a blocking io.Reader-driven iterator generalized into a
// Feed/Close pair, so callers control exactly when bytes become
// available.
package parser

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

type phase int

const (
	phaseBeginning phase = iota
	phaseFMI
	phaseDataset
	phaseDeflated
	phaseEnd
)

type mode int

const (
	modeHeader mode = iota
	modeValue
)

type containerKind int

const (
	containerSequence containerKind = iota
	containerItem
	containerFragments
)

// container tracks one open sequence, item, or fragments sequence so the
// parser knows when a determinate-length container's content ends. Tag is
// the enclosing sequence's tag for both sequence and item frames (matching
// ItemStart/ItemEnd's own Tag field), letting the parser report which
// sequence an item belongs to without a separate lookup.
type container struct {
	kind          containerKind
	tag           dicomtag.Tag
	index         int // item/fragment counter, 1-based
	indeterminate bool
	remaining     int64
}

// Parser is a single, not-thread-safe incremental DICOM stream parser.
// Feed bytes as they arrive; call Close once no further bytes will come.
// Each call returns the parts that became decodable from the bytes fed so
// far; a nil error with no new parts means the parser needs more input
// before it can make further progress.
type Parser struct {
	res       *dicomio.Reservoir
	chunkSize int
	strict    bool

	phase      phase
	mode       mode
	order      binary.ByteOrder
	explicitVR bool

	containers []container

	fmiGroupLength    uint32
	fmiHasGroupLength bool
	fmiBytesConsumed  uint32
	transferSyntaxUID string

	valueRemaining       uint32
	valueBigEndian       bool
	valueCountsTowardFMI bool
	capturing            bool
	valueCaptureTag      dicomtag.Tag
	valueCapture         []byte
}

// New returns a Parser positioned at the start of a stream.
func New(opts ...Option) *Parser {
	p := &Parser{
		res:        dicomio.NewReservoir(),
		chunkSize:  defaultChunkSize,
		phase:      phaseBeginning,
		mode:       modeHeader,
		order:      binary.LittleEndian,
		explicitVR: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends chunk to the parser's reservoir and returns every part that
// can now be decoded.
func (p *Parser) Feed(chunk []byte) ([]dicompart.Part, error) {
	p.res.Append(chunk)
	return p.run()
}

// Close signals that no further bytes will be fed. It returns any parts a
// final, partially buffered chunk makes decodable (e.g. trailing deflated
// bytes), or ErrUnexpectedEndOfStream if the stream closed mid-element.
func (p *Parser) Close() ([]dicompart.Part, error) {
	p.res.Close()
	return p.run()
}

func (p *Parser) run() ([]dicompart.Part, error) {
	var out []dicompart.Part
	for p.phase != phaseEnd {
		var (
			parts []dicompart.Part
			err   error
		)
		switch p.phase {
		case phaseBeginning:
			parts, err = p.stepBeginning()
		case phaseFMI:
			parts, err = p.stepFMI()
		case phaseDataset:
			parts, err = p.stepDataset()
		case phaseDeflated:
			parts, err = p.stepDeflated()
		}
		out = append(out, parts...)
		if err == nil {
			continue
		}
		if errors.Is(err, dicomio.ErrNeedMoreInput) {
			if !p.res.Closed() {
				return out, nil
			}
			if p.phase == phaseDataset && p.mode == modeHeader && len(p.containers) == 0 {
				p.phase = phaseEnd
				return out, nil
			}
			return out, fmt.Errorf("%w", ErrUnexpectedEndOfStream)
		}
		return out, err
	}
	return out, nil
}

func (p *Parser) stepBeginning() ([]dicompart.Part, error) {
	b, ok := p.res.Peek(132)
	if !ok {
		// A non-zero byte among the first 128 already rules out a preamble.
		n := p.res.Len()
		if n > 128 {
			n = 128
		}
		head, _ := p.res.Peek(n)
		if p.res.Closed() || !isZero(head) {
			return p.sniffNoPreamble()
		}
		return nil, dicomio.ErrNeedMoreInput
	}
	if isZero(b[:128]) && string(b[128:132]) == "DICM" {
		raw := p.res.Consume(132)
		var pre [132]byte
		copy(pre[:], raw)
		p.order = binary.LittleEndian
		p.explicitVR = true
		p.phase = phaseFMI
		return []dicompart.Part{dicompart.Preamble{Bytes: pre}}, nil
	}
	return p.sniffNoPreamble()
}

// sniffNoPreamble handles the alternate branch of the state diagram: a
// stream with no "DICM" magic goes directly to the dataset, its transfer
// syntax guessed from whether the first element's putative VR bytes
// spell a registered VR code.
func (p *Parser) sniffNoPreamble() ([]dicompart.Part, error) {
	b, ok := p.res.Peek(6)
	if !ok {
		if p.res.Closed() {
			return nil, fmt.Errorf("%w: stream too short to sniff a transfer syntax", ErrUnexpectedEndOfStream)
		}
		return nil, dicomio.ErrNeedMoreInput
	}
	p.order = binary.LittleEndian
	_, err := dicomtag.Lookup(string(b[4:6]))
	p.explicitVR = err == nil
	p.phase = phaseDataset
	return nil, nil
}

func (p *Parser) stepFMI() ([]dicompart.Part, error) {
	if p.mode == modeValue {
		return p.stepValueGeneric()
	}
	if len(p.containers) == 0 {
		b, ok := p.res.Peek(2)
		if !ok {
			return nil, dicomio.ErrNeedMoreInput
		}
		if binary.LittleEndian.Uint16(b) != 0x0002 {
			return p.leaveFMI()
		}
	}
	return p.readElementHeader(true)
}

func (p *Parser) stepDataset() ([]dicompart.Part, error) {
	if p.mode == modeValue {
		return p.stepValueGeneric()
	}
	return p.readElementHeader(false)
}

func (p *Parser) stepDeflated() ([]dicompart.Part, error) {
	n := p.res.Len()
	if n == 0 {
		if p.res.Closed() {
			p.phase = phaseEnd
			return nil, nil
		}
		return nil, dicomio.ErrNeedMoreInput
	}
	if n > p.chunkSize {
		n = p.chunkSize
	}
	b := p.res.Consume(n)
	return []dicompart.Part{dicompart.DeflatedChunk{
		BigEndian: p.order == binary.BigEndian,
		Bytes:     append([]byte(nil), b...),
	}}, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func orderOf(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
