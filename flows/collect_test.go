package flows

import (
	"errors"
	"reflect"
	"testing"

	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
	"github.com/slicebox/dicom-streams-go/elements"
	"github.com/slicebox/dicom-streams-go/flow"
	"github.com/slicebox/dicom-streams-go/tagpath"
)

func alwaysTrue(tagpath.TagPath) bool  { return true }
func alwaysFalse(tagpath.TagPath) bool { return false }

func runCollectFlow(t *testing.T, cb flow.Callbacks, parts ...dicompart.Part) []dicompart.Part {
	t.Helper()
	f := flow.Create(cb)
	var out []dicompart.Part
	must := func(got []dicompart.Part, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, got...)
	}
	must(f.Start())
	for _, p := range parts {
		must(f.HandlePart(p))
	}
	must(f.End())
	return out
}

func TestCollectFlowBuildsAggregateAndReplaysBufferedParts(t *testing.T) {
	tag := dicomtag.NewTag(0x0010, 0x0020)
	h := dicompart.Header{Tag: tag, VR: dicomtag.LO, ValueLength: 3, RawBytes: make([]byte, 8)}
	v := dicompart.ValueChunk{Bytes: []byte("123"), Last: true}

	cb := CollectFlow(alwaysTrue, alwaysFalse, "test", 1<<20)
	out := runCollectFlow(t, cb, h, v)

	if len(out) != 3 {
		t.Fatalf("expected [CollectedElements, header, value], got %d parts: %v", len(out), out)
	}
	collected, ok := out[0].(dicompart.CollectedElements)
	if !ok || collected.Label != "test" {
		t.Fatalf("expected a CollectedElements part labeled test, got %#v", out[0])
	}
	agg, ok := collected.Aggregate.(*elements.Elements)
	if !ok {
		t.Fatalf("expected Aggregate to be *elements.Elements, got %T", collected.Aggregate)
	}
	val, ok := agg.GetSingleString(tag)
	if !ok || val != "123" {
		t.Fatalf("expected collected value %q, got %q (ok=%v)", "123", val, ok)
	}
	if !reflect.DeepEqual(out[1], dicompart.Part(h)) {
		t.Fatalf("expected the original header replayed verbatim, got %#v", out[1])
	}
}

func TestCollectFlowStopsCollectingAtStopConditionAndPassesThrough(t *testing.T) {
	beforeTag := dicomtag.NewTag(0x0010, 0x0010)
	stopTag := dicomtag.PixelDataTag

	stopCondition := func(p tagpath.TagPath) bool {
		head, ok := p.Head()
		return ok && head.Tag == stopTag
	}

	cb := CollectFlow(alwaysTrue, stopCondition, "hdr", 1<<20)
	beforeHeader := dicompart.Header{Tag: beforeTag, VR: dicomtag.PN, ValueLength: 8, RawBytes: make([]byte, 8)}
	beforeValue := dicompart.ValueChunk{Bytes: []byte("Doe^Jane"), Last: true}
	stopHeader := dicompart.Header{Tag: stopTag, VR: dicomtag.OW, ValueLength: 4, RawBytes: make([]byte, 8)}
	stopValue := dicompart.ValueChunk{Bytes: []byte{1, 2, 3, 4}, Last: true}

	out := runCollectFlow(t, cb, beforeHeader, beforeValue, stopHeader, stopValue)

	// The CollectedElements flush must appear exactly once, immediately
	// before the part that tripped the stop condition -- never after it.
	flushIdx := -1
	for i, p := range out {
		if _, ok := p.(dicompart.CollectedElements); ok {
			flushIdx = i
		}
	}
	if flushIdx == -1 {
		t.Fatalf("expected a CollectedElements part in output, got %v", out)
	}
	if !reflect.DeepEqual(out[flushIdx+1], dicompart.Part(beforeHeader)) {
		t.Fatalf("expected the buffered pre-stop header immediately after the flush, got %#v", out[flushIdx+1])
	}

	var stopHeaderIdx = -1
	for i, p := range out {
		if h, ok := p.(dicompart.Header); ok && h.Tag == stopTag {
			stopHeaderIdx = i
		}
	}
	if stopHeaderIdx <= flushIdx {
		t.Fatalf("expected the triggering stop-tag header to arrive after the flush, flush at %d, stop header at %d", flushIdx, stopHeaderIdx)
	}
	if !reflect.DeepEqual(out[stopHeaderIdx], dicompart.Part(stopHeader)) || !reflect.DeepEqual(out[stopHeaderIdx+1], dicompart.Part(stopValue)) {
		t.Fatalf("expected the stop-tag header/value forwarded verbatim once collection ended")
	}
}

func TestCollectFlowFailsWhenBufferExceeded(t *testing.T) {
	h := dicompart.Header{Tag: dicomtag.NewTag(0x0010, 0x0020), VR: dicomtag.LO, RawBytes: make([]byte, 8)}
	v := dicompart.ValueChunk{Bytes: make([]byte, 64), Last: true}

	cb := CollectFlow(alwaysTrue, alwaysFalse, "tiny", 16)
	f := flow.Create(cb)
	if _, err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.HandlePart(h); err != nil {
		t.Fatalf("unexpected error on header: %v", err)
	}
	_, err := f.HandlePart(v)
	if !errors.Is(err, ErrBufferExceeded) {
		t.Fatalf("expected ErrBufferExceeded, got %v", err)
	}
}
