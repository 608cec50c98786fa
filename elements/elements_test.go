package elements

import (
	"testing"

	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

func TestSetInsertsInTagOrder(t *testing.T) {
	tagA := dicomtag.NewTag(0x0010, 0x0010)
	tagB := dicomtag.NewTag(0x0010, 0x0020)
	tagC := dicomtag.NewTag(0x0008, 0x0020)

	e := New()
	e = e.Set(ValueElement{Tag: tagA, VR: dicomtag.PN, Value: []byte("Doe^Jane")})
	e = e.Set(ValueElement{Tag: tagB, VR: dicomtag.LO, Value: []byte("123")})
	e = e.Set(ValueElement{Tag: tagC, VR: dicomtag.DA, Value: []byte("20200101")})

	got := e.Tags()
	want := []dicomtag.Tag{tagC, tagA, tagB}
	if len(got) != len(want) {
		t.Fatalf("got %v tags, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags not in ascending order: got %v, want %v", got, want)
		}
	}
}

func TestSetReplacesExistingTagInPlace(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0020)
	e := New().Set(ValueElement{Tag: tag, VR: dicomtag.LO, Value: []byte("1")})
	e = e.Set(ValueElement{Tag: tag, VR: dicomtag.LO, Value: []byte("2")})

	if len(e.Tags()) != 1 {
		t.Fatalf("expected a single entry after replace, got %v", e.Tags())
	}
	v, ok := e.GetSingleString(tag)
	if !ok || v != "2" {
		t.Fatalf("expected replaced value %q, got %q", "2", v)
	}
}

func TestSetIsPersistentAcrossCalls(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0020)
	base := New()
	updated := base.Set(ValueElement{Tag: tag, VR: dicomtag.LO, Value: []byte("1")})

	if _, ok := base.Get(tag); ok {
		t.Fatalf("expected the original Elements to remain untouched by Set")
	}
	if _, ok := updated.Get(tag); !ok {
		t.Fatalf("expected the returned Elements to hold the new entry")
	}
}

func TestSetSpecificCharacterSetUpdatesStack(t *testing.T) {
	e := New()
	e = e.Set(ValueElement{Tag: dicomtag.SpecificCharacterSetTag, VR: dicomtag.CS, Value: []byte("ISO_IR 100")})
	if e.CharacterSets() == nil {
		t.Fatalf("expected a non-nil character set stack after SpecificCharacterSet is set")
	}
}

func TestSetTimezoneOffsetUpdatesZoneOffset(t *testing.T) {
	e := New()
	e = e.Set(ValueElement{Tag: dicomtag.TimezoneOffsetFromUTCTag, VR: dicomtag.SH, Value: []byte("+0100")})
	if e.ZoneOffset() != "+0100" {
		t.Fatalf("got zone offset %q, want %q", e.ZoneOffset(), "+0100")
	}
}

func TestSetPathDescendsIntoNestedItem(t *testing.T) {
	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	innerTag := dicomtag.NewTag(0x0008, 0x0020)

	e := New().Set(Sequence{Tag: seqTag, Items: []Item{{Index: 1, Elements: New()}}})
	path := tagpath.FromItem(seqTag, 1).ThenTag(innerTag)
	e = e.SetPath(path, ValueElement{Tag: innerTag, VR: dicomtag.DA, Value: []byte("20200101")})

	got, ok := e.GetPath(path)
	if !ok {
		t.Fatalf("expected to find the nested element at %v", path)
	}
	v, ok := got.(ValueElement)
	if !ok || string(v.Value) != "20200101" {
		t.Fatalf("got %#v, want DA 20200101", got)
	}
}

func TestSetPathNoOpOnMissingItem(t *testing.T) {
	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	innerTag := dicomtag.NewTag(0x0008, 0x0020)

	e := New().Set(Sequence{Tag: seqTag, Items: nil})
	path := tagpath.FromItem(seqTag, 1).ThenTag(innerTag)
	updated := e.SetPath(path, ValueElement{Tag: innerTag, VR: dicomtag.DA, Value: []byte("20200101")})

	if _, ok := updated.GetPath(path); ok {
		t.Fatalf("expected SetPath to no-op when the addressed item does not exist")
	}
}

func TestAddItemAppendsWithNextIndex(t *testing.T) {
	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	e := New().Set(Sequence{Tag: seqTag, Items: []Item{{Index: 1, Elements: New()}}})
	e = e.AddItem(seqTag, Item{Elements: New()})

	set, ok := e.Get(seqTag)
	if !ok {
		t.Fatalf("expected sequence to exist")
	}
	seq := set.(Sequence)
	if len(seq.Items) != 2 || seq.Items[1].Index != 2 {
		t.Fatalf("expected a second item with index 2, got %#v", seq.Items)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0020)
	e := New().Set(ValueElement{Tag: tag, VR: dicomtag.LO, Value: []byte("1")})
	e = e.Remove(tag)
	if _, ok := e.Get(tag); ok {
		t.Fatalf("expected tag removed")
	}
}

func TestRemovePathDescendsIntoNestedItem(t *testing.T) {
	seqTag := dicomtag.NewTag(0x0008, 0x9215)
	innerTag := dicomtag.NewTag(0x0008, 0x0020)

	nested := New().Set(ValueElement{Tag: innerTag, VR: dicomtag.DA, Value: []byte("20200101")})
	e := New().Set(Sequence{Tag: seqTag, Items: []Item{{Index: 1, Elements: nested}}})

	path := tagpath.FromItem(seqTag, 1).ThenTag(innerTag)
	e = e.RemovePath(path)
	if _, ok := e.GetPath(path); ok {
		t.Fatalf("expected the nested element removed")
	}
}

func TestFilterTagsKeepsOnlyMatching(t *testing.T) {
	keep := dicomtag.NewTag(0x0010, 0x0020)
	drop := dicomtag.NewTag(0x0010, 0x0010)

	e := New()
	e = e.Set(ValueElement{Tag: keep, VR: dicomtag.LO, Value: []byte("1")})
	e = e.Set(ValueElement{Tag: drop, VR: dicomtag.PN, Value: []byte("Doe^Jane")})

	filtered := e.FilterTags(func(tag dicomtag.Tag) bool { return tag == keep })
	if len(filtered.Tags()) != 1 || filtered.Tags()[0] != keep {
		t.Fatalf("expected only %v to survive filtering, got %v", keep, filtered.Tags())
	}
}
