// Package charset implements the character-set stack: mapping Specific
// Character Set (0008,0005) defined terms to a text encoding and
// decoding SH/LO/ST/LT/UC/UT/PN byte values to UTF-8.
//
// A standalone, reusable Stack value lets flows.ToUTF8Flow and the
// elements package share one implementation instead of each re-deriving
// it from a single-parse helper.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// named pairs an encoding with the canonical name golang.org/x/net/html/charset
// reports for it, since a couple of encodings (euc-kr) need name-keyed
// post-processing that golang.org/x/text cannot express on its own.
type named struct {
	encoding.Encoding
	name string
}

var defaultRepertoire = &named{encoding.Nop, "us-ascii"}

// byTerm maps the defined terms of DICOM PS3.2 Annex D.6.2 directly to
// encodings, preferring a concrete golang.org/x/text family package over
// routing every term through golang.org/x/net/html/charset's label table --
// it does not cover every DICOM term (and mishandles the ISO 2022 KS X 1001
// escape).
var byTerm = map[string]*named{
	"ISO_IR 6":        {encoding.Nop, "us-ascii"},
	"":                {encoding.Nop, "us-ascii"},
	"ISO_IR 100":      {charmap.ISO8859_1, "iso-ir-100"},
	"ISO_IR 101":      {charmap.ISO8859_2, "iso-ir-101"},
	"ISO_IR 109":      {charmap.ISO8859_3, "iso-ir-109"},
	"ISO_IR 110":      {charmap.ISO8859_4, "iso-ir-110"},
	"ISO_IR 144":      {charmap.ISO8859_5, "iso-ir-144"},
	"ISO_IR 127":      {charmap.ISO8859_6, "iso-ir-127"},
	"ISO_IR 126":      {charmap.ISO8859_7, "iso-ir-126"},
	"ISO_IR 138":      {charmap.ISO8859_8, "iso-ir-138"},
	"ISO_IR 148":      {charmap.ISO8859_9, "iso-ir-148"},
	"ISO_IR 203":      {charmap.ISO8859_15, "iso-ir-203"},
	"ISO_IR 13":       {japanese.ShiftJIS, "shift-jis"},
	"ISO_IR 166":      {charmap.Windows874, "tis-620"},
	"ISO_IR 192":      {encoding.Nop, "utf-8"},
	"GB18030":         {simplifiedchinese.GB18030, "gb18030"},
	"GBK":             {simplifiedchinese.GBK, "gbk"},
	"ISO 2022 IR 6":   {encoding.Nop, "us-ascii"},
	"ISO 2022 IR 100": {charmap.ISO8859_1, "iso-ir-100"},
	"ISO 2022 IR 101": {charmap.ISO8859_2, "iso-ir-101"},
	"ISO 2022 IR 109": {charmap.ISO8859_3, "iso-ir-109"},
	"ISO 2022 IR 110": {charmap.ISO8859_4, "iso-ir-110"},
	"ISO 2022 IR 144": {charmap.ISO8859_5, "iso-ir-144"},
	"ISO 2022 IR 127": {charmap.ISO8859_6, "iso-ir-127"},
	"ISO 2022 IR 126": {charmap.ISO8859_7, "iso-ir-126"},
	"ISO 2022 IR 138": {charmap.ISO8859_8, "iso-ir-138"},
	"ISO 2022 IR 148": {charmap.ISO8859_9, "iso-ir-148"},
	"ISO 2022 IR 13":  {japanese.ShiftJIS, "shift-jis"},
	"ISO 2022 IR 166": {charmap.Windows874, "tis-620"},
	"ISO 2022 IR 87":  {japanese.ISO2022JP, "iso-2022-jp"},
	"ISO 2022 IR 159": {japanese.ISO2022JP, "iso-2022-jp"},
	"ISO 2022 IR 149": {korean.EUCKR, "euc-kr"},

	// Big5 is not a DICOM-registered defined term, but some Taiwanese PACS
	// vendors stamp it into (0008,0005) anyway; accept it rather than fail.
	"BIG5": {traditionalchinese.Big5, "big5"},
}

// lookup falls back to golang.org/x/net/html/charset's label table for any
// defined term byTerm does not carry explicitly, so an unusual but
// documented term (or a registry label typo'd in the file itself) still
// has a chance to resolve instead of hard failing.
func lookup(term string) (*named, error) {
	if n, ok := byTerm[term]; ok {
		return n, nil
	}
	if enc, name := charset.Lookup(strings.ToLower(term)); enc != nil {
		return &named{enc, name}, nil
	}
	return nil, fmt.Errorf("charset: unknown specific character set term %q", term)
}

// Stack is the decoding state derived from one Specific Character Set
// (0008,0005) value: up to three encodings, for the alphabetic, ideographic
// and phonetic PN component groups respectively. Every other textual VR
// uses only the first (alphabetic) encoding, per PS3.5 section 6.1.2.3.
type Stack struct {
	encodings [3]*named
}

// Default is the stack assumed when (0008,0005) is absent or empty: ISO_IR 6.
func Default() *Stack {
	return &Stack{[3]*named{defaultRepertoire, defaultRepertoire, defaultRepertoire}}
}

// NewStack builds a Stack from the (possibly multi-valued) Specific
// Character Set element. An empty terms slice is equivalent to Default.
func NewStack(terms []string) (*Stack, error) {
	if len(terms) == 0 {
		return Default(), nil
	}

	var resolved [3]*named
	for i, term := range terms {
		n, err := lookup(term)
		if err != nil {
			return nil, err
		}
		if i < len(resolved) {
			resolved[i] = n
		}
	}

	switch len(terms) {
	case 1:
		resolved[1], resolved[2] = resolved[0], resolved[0]
	case 2:
		resolved[2] = resolved[1]
	}
	for i := range resolved {
		if resolved[i] == nil {
			resolved[i] = defaultRepertoire
		}
	}
	return &Stack{resolved}, nil
}

// DecodeText decodes a single-group textual value (SH, LO, ST, LT, UC, UT)
// using the alphabetic encoding. Decode failures return v unchanged rather
// than an error: a malformed byte sequence should not abort the whole parse.
func (s *Stack) DecodeText(v string) string {
	return decodeWith(v, s.encodings[0])
}

// DecodePersonName decodes one PN value's component groups (alphabetic,
// ideographic, phonetic, separated by "=") using the matching encoding of
// the stack, then rejoins them.
func (s *Stack) DecodePersonName(v string) string {
	groups := strings.Split(v, "=")
	for i, g := range groups {
		if i >= len(s.encodings) {
			break
		}
		groups[i] = decodeWith(g, s.encodings[i])
	}
	return strings.Join(groups, "=")
}

// NewDecoder returns a stateless decoder.Decoder for the alphabetic
// encoding, for callers streaming bulk text (UT/UC long values) rather than
// buffering a whole string.
func (s *Stack) NewDecoder() *encoding.Decoder {
	return s.encodings[0].NewDecoder()
}

func decodeWith(v string, n *named) string {
	decoded, err := n.NewDecoder().String(v)
	if err != nil {
		return v
	}
	if n.name == "euc-kr" {
		// golang.org/x/text has no ISO 2022 escape handling for the GR half
		// of KS X 1001; strip the designator byte sequence the encoder
		// leaves behind rather than failing the decode.
		decoded = strings.Replace(decoded, "\x1b\x24\x29\x43", "", -1)
	}
	return decoded
}
