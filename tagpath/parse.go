package tagpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// ErrMalformedTagPath is returned by Parse when the textual form violates
// the dotted-path grammar.
var ErrMalformedTagPath = errors.New("tagpath: malformed tag path")

// String renders p in its canonical textual form, e.g.
// "(0008,9215)[3].(0010,0010)". Only defined for "address" paths built from
// Item and Tag nodes (see the package doc); other node kinds render using
// the same per-node syntax but the result is not guaranteed parseable, since
// Parse only ever constructs Item/Tag chains.
func (p TagPath) String() string {
	if p.IsEmpty() {
		return ""
	}
	parts := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		switch n.Kind {
		case KindItem:
			parts[i] = fmt.Sprintf("%s[%d]", n.Tag, n.Index)
		default:
			parts[i] = n.Tag.String()
		}
	}
	return strings.Join(parts, ".")
}

// Parse reads the canonical textual tag-path syntax:
//
//	elem { "." elem }
//	elem := ( "(" hex4 "," hex4 ")" | keyword ) [ "[" decimal "]" ]
//
// Every elem but the last must carry an index (it addresses an item); the
// last elem may omit it to address a plain element, or carry one to address
// an item itself. The wildcard "*" is rejected here -- it is only accepted
// by TagTree's parser.
func Parse(s string) (TagPath, error) {
	if s == "" {
		return Empty, fmt.Errorf("%w: empty string", ErrMalformedTagPath)
	}
	segments := strings.Split(s, ".")
	path := Empty
	for i, seg := range segments {
		tag, index, hasIndex, err := parseElem(seg)
		if err != nil {
			return Empty, err
		}
		last := i == len(segments)-1
		switch {
		case hasIndex:
			path = path.ThenItem(tag, index)
		case last:
			path = path.ThenTag(tag)
		default:
			return Empty, fmt.Errorf("%w: %q: intermediate segment must have an index", ErrMalformedTagPath, seg)
		}
	}
	return path, nil
}

// parseElem parses one "(gggg,eeee)[idx]" or "Keyword[idx]" segment.
func parseElem(seg string) (tag dicomtag.Tag, index int, hasIndex bool, err error) {
	body := seg
	if br := strings.IndexByte(seg, '['); br >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return 0, 0, false, fmt.Errorf("%w: %q: unterminated index", ErrMalformedTagPath, seg)
		}
		body = seg[:br]
		idxStr := seg[br+1 : len(seg)-1]
		if idxStr == "*" {
			return 0, 0, false, fmt.Errorf("%w: %q: wildcard not allowed in TagPath", ErrMalformedTagPath, seg)
		}
		n, convErr := strconv.Atoi(idxStr)
		if convErr != nil || n < 1 {
			return 0, 0, false, fmt.Errorf("%w: %q: invalid item index", ErrMalformedTagPath, seg)
		}
		index, hasIndex = n, true
	}

	if strings.HasPrefix(body, "(") {
		tag, err = parseTagLiteral(body)
		return tag, index, hasIndex, err
	}

	t, ok := dicomtag.TagOf(body)
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: unknown keyword %q", ErrMalformedTagPath, body)
	}
	return t, index, hasIndex, nil
}

func parseTagLiteral(s string) (dicomtag.Tag, error) {
	if len(s) != 11 || s[0] != '(' || s[5] != ',' || s[10] != ')' {
		return 0, fmt.Errorf("%w: %q: malformed tag literal", ErrMalformedTagPath, s)
	}
	group, err := strconv.ParseUint(s[1:5], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bad group", ErrMalformedTagPath, s)
	}
	element, err := strconv.ParseUint(s[6:10], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bad element", ErrMalformedTagPath, s)
	}
	return dicomtag.NewTag(uint16(group), uint16(element)), nil
}
