package flows

import (
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/flow"
)

// ErrContextValidationFailure is returned by ValidateContextFlow when the
// stream's (SOP class, transfer syntax) pair is not in the allowed set.
var ErrContextValidationFailure = fmt.Errorf("flows: context validation failure")

// Context is one allowed (SOP class UID, transfer syntax UID) combination.
type Context struct {
	SOPClassUID       string
	TransferSyntaxUID string
}

// validateContextFlow watches for SOPClassUID/MediaStorageSOPClassUID and
// TransferSyntaxUID as they stream by (both are simple UI elements, never
// split across more than one buffered value) and checks the pair against
// the allowed set exactly once, as soon as both are known.
type validateContextFlow struct {
	identityCallbacks
	allowed map[Context]bool

	capturing   dicomtag.Tag
	buf         []byte
	sopClassUID string
	transferUID string
	checked     bool
}

func (v *validateContextFlow) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	switch p.Tag {
	case dicomtag.SOPClassUIDTag, dicomtag.MediaStorageSOPClassUIDTag, dicomtag.TransferSyntaxUIDTag:
		v.capturing, v.buf = p.Tag, nil
	default:
		v.capturing = 0
	}
	return []dicompart.Part{p}, nil
}

func (v *validateContextFlow) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	if v.capturing != 0 {
		v.buf = append(v.buf, p.Bytes...)
		if p.Last {
			if err := v.capture(); err != nil {
				return []dicompart.Part{p}, err
			}
		}
	}
	return []dicompart.Part{p}, nil
}

func (v *validateContextFlow) capture() error {
	value := trimUIDValue(v.buf)
	switch v.capturing {
	case dicomtag.TransferSyntaxUIDTag:
		v.transferUID = value
	default: // SOPClassUIDTag or MediaStorageSOPClassUIDTag
		v.sopClassUID = value
	}
	v.capturing = 0

	if v.checked || v.sopClassUID == "" || v.transferUID == "" {
		return nil
	}
	v.checked = true
	if !v.allowed[Context{v.sopClassUID, v.transferUID}] {
		return fmt.Errorf("%w: SOP class %q, transfer syntax %q", ErrContextValidationFailure, v.sopClassUID, v.transferUID)
	}
	return nil
}

func trimUIDValue(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// ValidateContextFlow fails the stream as soon as both SOPClassUID (or
// MediaStorageSOPClassUID) and TransferSyntaxUID have been observed if
// their pair is not among contexts.
func ValidateContextFlow(contexts []Context) flow.Callbacks {
	allowed := make(map[Context]bool, len(contexts))
	for _, c := range contexts {
		allowed[c] = true
	}
	return &validateContextFlow{allowed: allowed}
}
