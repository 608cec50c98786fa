package flows

import (
	"strings"

	"github.com/slicebox/dicom-streams-go/charset"
	"github.com/slicebox/dicom-streams-go/dicomio"
	"github.com/slicebox/dicom-streams-go/dicomlog"
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

// transcodableVRs are the text VRs whose values can legally carry
// character-set-dependent bytes; CS, AE, AS, DA, DS, DT, IS, TM, UI, UR,
// and everything binary are left untouched.
var transcodableVRs = map[*dicomtag.VR]bool{
	dicomtag.LO: true, dicomtag.LT: true, dicomtag.PN: true,
	dicomtag.SH: true, dicomtag.ST: true, dicomtag.UC: true, dicomtag.UT: true,
}

type utf8Mode int

const (
	utf8ModeNone utf8Mode = iota
	utf8ModeCharset
	utf8ModeText
)

// toUTF8 buffers the value of each element it must transcode (decoding
// needs the whole value at once, since an ISO 2022 escape sequence can
// appear anywhere in it), rewrites it to UTF-8, and keeps a running
// charset.Stack derived from the most recently observed SpecificCharacterSet
// element, generalizing a whole-string decode pass into a streaming rewrite.
type toUTF8 struct {
	identityCallbacks
	stack  *charset.Stack
	mode   utf8Mode
	header dicompart.Header
	buf    []byte
}

func (t *toUTF8) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	switch {
	case p.Tag == dicomtag.SpecificCharacterSetTag:
		t.mode, t.header, t.buf = utf8ModeCharset, p, nil
		return nil, nil
	case !p.IsFMI && transcodableVRs[p.VR]:
		t.mode, t.header, t.buf = utf8ModeText, p, nil
		return nil, nil
	default:
		t.mode = utf8ModeNone
		return []dicompart.Part{p}, nil
	}
}

func (t *toUTF8) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	switch t.mode {
	case utf8ModeCharset:
		t.buf = append(t.buf, p.Bytes...)
		if !p.Last {
			return nil, nil
		}
		return t.finishCharset()
	case utf8ModeText:
		t.buf = append(t.buf, p.Bytes...)
		if !p.Last {
			return nil, nil
		}
		return t.finishText()
	default:
		return []dicompart.Part{p}, nil
	}
}

func (t *toUTF8) finishCharset() ([]dicompart.Part, error) {
	t.mode = utf8ModeNone
	terms := splitMultiValue(t.buf)
	stack, err := charset.NewStack(terms)
	if err != nil {
		dicomlog.Errorf("flows: resolving specific character set %v: %v", terms, err)
		stack = charset.Default()
	}
	t.stack = stack

	newValue := []byte("ISO_IR 192")
	return rewritten(t.header, newValue), nil
}

func (t *toUTF8) finishText() ([]dicompart.Part, error) {
	t.mode = utf8ModeNone
	stack := t.stack
	if stack == nil {
		stack = charset.Default()
	}

	var decoded string
	if t.header.VR == dicomtag.PN {
		decoded = stack.DecodePersonName(string(t.buf))
	} else {
		decoded = stack.DecodeText(string(t.buf))
	}
	newValue := []byte(decoded)
	if len(newValue)%2 == 1 {
		newValue = append(newValue, t.header.VR.PadByte())
	}
	return rewritten(t.header, newValue), nil
}

func rewritten(h dicompart.Header, value []byte) []dicompart.Part {
	h.ValueLength = uint32(len(value))
	order := orderOf(h.BigEndian)
	if h.ExplicitVR {
		h.RawBytes = dicomio.WriteExplicit(order, h.Tag, h.VR, h.ValueLength)
	} else {
		h.RawBytes = dicomio.WriteImplicit(order, h.Tag, h.ValueLength)
	}
	return []dicompart.Part{h, dicompart.ValueChunk{BigEndian: h.BigEndian, Bytes: value, Last: true}}
}

func splitMultiValue(b []byte) []string {
	s := strings.TrimRight(string(b), " \x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\\")
}

// ToUTF8Flow transcodes every value whose VR admits a non-default character
// set to UTF-8 using the stream's current charset.Stack, and rewrites
// SpecificCharacterSet to "ISO_IR 192".
func ToUTF8Flow() flow.Callbacks {
	return &toUTF8{stack: charset.Default()}
}
