// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicomtag

import "fmt"

// kind groups VRs by how their value bytes are encoded, independent of the
// two-letter VR code itself.
type kind int

const (
	kindText kind = iota
	kindNumberBinary
	kindBulkData
	kindUniqueIdentifier
	kindSequence
	kindTag
)

// VR models a DICOM value representation (PS3.5 section 6.2).
type VR struct {
	// Name is the 2-character VR code, e.g. "PN", "SQ".
	Name string

	kind kind

	// longHeader is true for the VRs that use the 12-byte explicit-VR header
	// form (2 reserved bytes + 4-byte length) instead of the 8-byte form.
	longHeader bool

	// padByte is appended to odd-length values to restore evenness.
	padByte byte
}

// HasLongHeader reports whether this VR's explicit-VR header carries a
// 4-byte length field (and 2 reserved bytes) rather than a 2-byte length.
func (v *VR) HasLongHeader() bool { return v.longHeader }

// PadByte returns the byte used to pad an odd-length value for this VR.
func (v *VR) PadByte() byte { return v.padByte }

// AllowsIndeterminateLength reports whether 0xFFFFFFFF is a legal declared
// length for this VR: SQ elements, and OB/OW elements beginning a
// pixel-data or waveform-data fragment sequence (item headers are
// structural and carry no VR of their own, so they are handled separately
// by the parser).
func (v *VR) AllowsIndeterminateLength() bool { return v == SQ || v == OB || v == OW }

// IsBinary reports whether the VR's value is built from fixed-width binary
// elements (as opposed to delimited text).
func (v *VR) IsBinary() bool {
	return v.kind == kindNumberBinary || v.kind == kindTag || v == OW || v == OF || v == OD || v == OL
}

var byName = map[string]*VR{}

func newVR(name string, k kind, longHeader bool, pad byte) *VR {
	vr := &VR{name, k, longHeader, pad}
	byName[name] = vr
	return vr
}

// Lookup resolves a 2-character VR code, returning an error for unknown
// codes (e.g. bytes that do not spell a registered VR at all).
func Lookup(name string) (*VR, error) {
	v, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("dicomtag: unknown VR name %q", name)
	}
	return v, nil
}

// VR table, see http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	AE = newVR("AE", kindText, false, 0x20)
	AS = newVR("AS", kindText, false, 0x20)
	CS = newVR("CS", kindText, false, 0x20)
	DA = newVR("DA", kindText, false, 0x20)
	DS = newVR("DS", kindText, false, 0x20)
	DT = newVR("DT", kindText, false, 0x20)
	IS = newVR("IS", kindText, false, 0x20)
	LO = newVR("LO", kindText, false, 0x20)
	LT = newVR("LT", kindText, false, 0x20)
	PN = newVR("PN", kindText, false, 0x20)
	SH = newVR("SH", kindText, false, 0x20)
	ST = newVR("ST", kindText, false, 0x20)
	TM = newVR("TM", kindText, false, 0x20)

	SS = newVR("SS", kindNumberBinary, false, 0x00)
	US = newVR("US", kindNumberBinary, false, 0x00)
	SL = newVR("SL", kindNumberBinary, false, 0x00)
	UL = newVR("UL", kindNumberBinary, false, 0x00)
	FL = newVR("FL", kindNumberBinary, false, 0x00)
	FD = newVR("FD", kindNumberBinary, false, 0x00)

	OB = newVR("OB", kindBulkData, true, 0x00)
	OD = newVR("OD", kindBulkData, true, 0x00)
	OL = newVR("OL", kindBulkData, true, 0x00)
	OW = newVR("OW", kindBulkData, true, 0x00)
	OF = newVR("OF", kindBulkData, true, 0x00)
	UC = newVR("UC", kindBulkData, true, 0x20)
	UN = newVR("UN", kindBulkData, true, 0x00)
	UR = newVR("UR", kindBulkData, true, 0x20)
	UT = newVR("UT", kindBulkData, true, 0x20)

	AT = newVR("AT", kindTag, false, 0x00)
	UI = newVR("UI", kindUniqueIdentifier, false, 0x00)
	SQ = newVR("SQ", kindSequence, true, 0x00)
)

// longHeaderVRs is the set of VRs using the 12-byte explicit header form:
// OB, OD, OF, OL, OW, SQ, UC, UN, UR, UT.
var longHeaderVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OW": true,
	"SQ": true, "UC": true, "UN": true, "UR": true, "UT": true,
}
