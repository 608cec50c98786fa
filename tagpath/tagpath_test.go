package tagpath

import (
	"testing"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

func TestOrdering(t *testing.T) {
	a := FromItem(dicomtag.NewTag(1, 0), 1).ThenItem(dicomtag.NewTag(2, 0), 1).ThenTag(dicomtag.NewTag(3, 0))
	b := FromItem(dicomtag.NewTag(1, 0), 1).ThenItem(dicomtag.NewTag(2, 0), 2).ThenTag(dicomtag.NewTag(3, 0))
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) {
		t.Fatalf("expected !(b < a)")
	}

	if !Empty.Less(FromTag(dicomtag.NewTag(0, 0))) {
		t.Fatalf("expected Empty < from_tag(0)")
	}
	if a.Less(a) {
		t.Fatalf("path must not be less than itself")
	}
	if !a.Equal(a) {
		t.Fatalf("path must equal itself")
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []TagPath{
		FromTag(dicomtag.NewTag(0x0010, 0x0010)),
		FromItem(dicomtag.NewTag(0x0008, 0x9215), 3).ThenTag(dicomtag.NewTag(0x0010, 0x0010)),
	}
	for _, p := range cases {
		s := p.String()
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if !got.Equal(p) {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", p, s, got)
		}
	}
}

func TestStartsWithEndsWith(t *testing.T) {
	p := FromItem(dicomtag.NewTag(1, 0), 1).ThenTag(dicomtag.NewTag(2, 0))
	if !p.StartsWith(FromItem(dicomtag.NewTag(1, 0), 1)) {
		t.Fatalf("expected prefix match")
	}
	if !p.EndsWith(FromTag(dicomtag.NewTag(2, 0))) {
		t.Fatalf("expected suffix match")
	}
	if p.StartsWith(FromTag(dicomtag.NewTag(2, 0))) {
		t.Fatalf("unexpected prefix match")
	}
}

func TestTagTreeWildcard(t *testing.T) {
	tree := TreeFromAnyItem(dicomtag.NewTag(0x0008, 0x9215)).ThenTag(dicomtag.NewTag(0x0010, 0x0010))
	p1 := FromItem(dicomtag.NewTag(0x0008, 0x9215), 1).ThenTag(dicomtag.NewTag(0x0010, 0x0010))
	p2 := FromItem(dicomtag.NewTag(0x0008, 0x9215), 2).ThenTag(dicomtag.NewTag(0x0010, 0x0010))
	if !tree.Matches(p1) || !tree.Matches(p2) {
		t.Fatalf("expected wildcard tree to match both items")
	}

	concrete := TreeFromItem(dicomtag.NewTag(0x0008, 0x9215), 1).ThenTag(dicomtag.NewTag(0x0010, 0x0010))
	if !concrete.Matches(p1) || concrete.Matches(p2) {
		t.Fatalf("expected concrete-index tree to match only item 1")
	}
}

func TestParseTreeWildcard(t *testing.T) {
	tree, err := ParseTree("(0008,9215)[*].(0010,0010)")
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if _, err := Parse(tree.String()); err == nil {
		t.Fatalf("expected Parse to reject wildcard syntax")
	}
}
