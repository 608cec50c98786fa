package elements

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func (e *Elements) valueOf(tag dicomtag.Tag) (ValueElement, bool) {
	set, ok := e.Get(tag)
	if !ok {
		return ValueElement{}, false
	}
	v, ok := set.(ValueElement)
	return v, ok
}

func (v ValueElement) order() binary.ByteOrder {
	if v.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// GetStrings splits a text-VR value on backslash and trims trailing
// space/NUL padding, returning one string per component.
func (e *Elements) GetStrings(tag dicomtag.Tag) ([]string, bool) {
	v, ok := e.valueOf(tag)
	if !ok {
		return nil, false
	}
	return splitBackslash(v.Value), true
}

// GetSingleString returns the first component of GetStrings.
func (e *Elements) GetSingleString(tag dicomtag.Tag) (string, bool) {
	vs, ok := e.GetStrings(tag)
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetPatientNames decodes a PN value's components using the Elements'
// active character-set stack (each "="-separated alphabetic/ideographic/
// phonetic group is decoded with its own encoding, per
// charset.Stack.DecodePersonName).
func (e *Elements) GetPatientNames(tag dicomtag.Tag) ([]string, bool) {
	v, ok := e.valueOf(tag)
	if !ok {
		return nil, false
	}
	stack := e.characterSets
	if stack == nil {
		return splitBackslash(v.Value), true
	}
	out := splitBackslash(v.Value)
	for i, s := range out {
		out[i] = stack.DecodePersonName(s)
	}
	return out, true
}

// GetSinglePatientName returns the first component of GetPatientNames.
func (e *Elements) GetSinglePatientName(tag dicomtag.Tag) (string, bool) {
	vs, ok := e.GetPatientNames(tag)
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetURI returns a UR value (a single, non-multi-valued URI string).
func (e *Elements) GetURI(tag dicomtag.Tag) (string, bool) {
	v, ok := e.valueOf(tag)
	if !ok {
		return "", false
	}
	return trimPadded(v.Value), true
}

// GetInts decodes an IS (integer string) value's components.
func (e *Elements) GetInts(tag dicomtag.Tag) ([]int, bool) {
	parts, ok := e.GetStrings(tag)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// GetSingleInt returns the first component of GetInts.
func (e *Elements) GetSingleInt(tag dicomtag.Tag) (int, bool) {
	vs, ok := e.GetInts(tag)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// GetShorts decodes a binary 16-bit (US/SS) value's components.
func (e *Elements) GetShorts(tag dicomtag.Tag) ([]int16, bool) {
	v, ok := e.valueOf(tag)
	if !ok || len(v.Value)%2 != 0 {
		return nil, false
	}
	order := v.order()
	out := make([]int16, len(v.Value)/2)
	for i := range out {
		out[i] = int16(order.Uint16(v.Value[i*2:]))
	}
	return out, true
}

// GetSingleShort returns the first component of GetShorts.
func (e *Elements) GetSingleShort(tag dicomtag.Tag) (int16, bool) {
	vs, ok := e.GetShorts(tag)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// GetLongs decodes a binary 32-bit (UL/SL) value's components.
func (e *Elements) GetLongs(tag dicomtag.Tag) ([]int32, bool) {
	v, ok := e.valueOf(tag)
	if !ok || len(v.Value)%4 != 0 {
		return nil, false
	}
	order := v.order()
	out := make([]int32, len(v.Value)/4)
	for i := range out {
		out[i] = int32(order.Uint32(v.Value[i*4:]))
	}
	return out, true
}

// GetSingleLong returns the first component of GetLongs.
func (e *Elements) GetSingleLong(tag dicomtag.Tag) (int32, bool) {
	vs, ok := e.GetLongs(tag)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// GetFloats decodes an FL value's components.
func (e *Elements) GetFloats(tag dicomtag.Tag) ([]float32, bool) {
	v, ok := e.valueOf(tag)
	if !ok || len(v.Value)%4 != 0 {
		return nil, false
	}
	order := v.order()
	out := make([]float32, len(v.Value)/4)
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(v.Value[i*4:]))
	}
	return out, true
}

// GetSingleFloat returns the first component of GetFloats.
func (e *Elements) GetSingleFloat(tag dicomtag.Tag) (float32, bool) {
	vs, ok := e.GetFloats(tag)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// GetDoubles decodes a DS (decimal string) value's text components when the
// element's VR is DS, and otherwise the value's binary 8-byte (FD)
// components.
func (e *Elements) GetDoubles(tag dicomtag.Tag) ([]float64, bool) {
	v, ok := e.valueOf(tag)
	if !ok {
		return nil, false
	}
	if v.VR == dicomtag.DS {
		parts := splitBackslash(v.Value)
		out := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	if len(v.Value)%8 != 0 {
		return nil, false
	}
	order := v.order()
	out := make([]float64, len(v.Value)/8)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(v.Value[i*8:]))
	}
	return out, true
}

// GetSingleDouble returns the first component of GetDoubles.
func (e *Elements) GetSingleDouble(tag dicomtag.Tag) (float64, bool) {
	vs, ok := e.GetDoubles(tag)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

var daLayouts = []string{"20060102", "2006.01.02"}

const tmLayout = "150405.000000"

// GetDates decodes a DA value's components (YYYYMMDD, or the retired
// YYYY.MM.DD form). A component that matches neither layout is skipped
// rather than failing the whole element.
func (e *Elements) GetDates(tag dicomtag.Tag) ([]time.Time, bool) {
	parts, ok := e.GetStrings(tag)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		t, ok := parseDA(p)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out, true
}

func parseDA(s string) (time.Time, bool) {
	for _, layout := range daLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GetSingleDate returns the first component of GetDates.
func (e *Elements) GetSingleDate(tag dicomtag.Tag) (time.Time, bool) {
	vs, ok := e.GetDates(tag)
	if !ok || len(vs) == 0 {
		return time.Time{}, false
	}
	return vs[0], true
}

// GetTimes decodes a TM value's components (HHMMSS.FFFFFF, any suffix
// after HH optional).
func (e *Elements) GetTimes(tag dicomtag.Tag) ([]time.Time, bool) {
	parts, ok := e.GetStrings(tag)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		t, ok := parseTM(p)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

// GetSingleTime returns the first component of GetTimes.
func (e *Elements) GetSingleTime(tag dicomtag.Tag) (time.Time, bool) {
	vs, ok := e.GetTimes(tag)
	if !ok || len(vs) == 0 {
		return time.Time{}, false
	}
	return vs[0], true
}

func parseTM(s string) (time.Time, bool) {
	var layout string
	switch {
	case len(s) > 6 && len(s) <= len(tmLayout) && s[6] == '.':
		layout = tmLayout[:len(s)]
	case len(s) == 6:
		layout = "150405"
	case len(s) == 4:
		layout = "1504"
	case len(s) == 2:
		layout = "15"
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	return t, err == nil
}

// GetDateTimes decodes a DT value's components
// (YYYYMMDDHHMMSS.FFFFFF&ZZXX), applying the Elements' zoneOffset when the
// component carries no explicit offset of its own.
func (e *Elements) GetDateTimes(tag dicomtag.Tag) ([]time.Time, bool) {
	parts, ok := e.GetStrings(tag)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, 0, len(parts))
	for _, p := range parts {
		t, ok := e.parseDT(p)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

// GetSingleDateTime returns the first component of GetDateTimes.
func (e *Elements) GetSingleDateTime(tag dicomtag.Tag) (time.Time, bool) {
	vs, ok := e.GetDateTimes(tag)
	if !ok || len(vs) == 0 {
		return time.Time{}, false
	}
	return vs[0], true
}

func (e *Elements) parseDT(s string) (time.Time, bool) {
	body, offset := s, e.zoneOffset
	if i := strings.IndexAny(s, "+-"); i >= 8 {
		body, offset = s[:i], s[i:]
	}
	for _, l := range []string{"20060102150405.000000", "20060102150405", "200601021504", "2006010215", "20060102"} {
		if len(body) != len(l) {
			continue
		}
		full := body + offset
		layout := l
		if offset != "" {
			layout += "-0700"
		}
		t, err := time.Parse(layout, full)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
