package flow

import (
	"github.com/slicebox/dicom-streams-go/dicompart"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// partSize returns the number of wire bytes part represents, for the
// purpose of decrementing the enclosing containers' remaining-byte budget.
// Structural header-only parts (ItemStart, real delimitations) count their
// own fixed 8-byte header; value-bearing parts count their payload.
func partSize(p dicompart.Part) int {
	switch v := p.(type) {
	case dicompart.Header:
		return len(v.RawBytes)
	case dicompart.ValueChunk:
		return len(v.Bytes)
	case dicompart.ItemStart:
		return 8
	case dicompart.ItemEnd:
		if len(v.Bytes) > 0 {
			return len(v.Bytes)
		}
		return 0
	case dicompart.SequenceEnd:
		if len(v.Bytes) > 0 {
			return len(v.Bytes)
		}
		return 0
	case dicompart.FragmentsItem:
		return 8
	default:
		return 0
	}
}

// frame tracks one open sequence or item container on the delimitation
// stack: its declared length (if any) and remaining byte budget.
type frame struct {
	isSequence    bool
	tag           dicomtag.Tag
	index         int // item number, meaningful only when !isSequence
	indeterminate bool
	remaining     int64
}

// guaranteedDelimitationEvents keeps an explicit stack of open containers
// and their remaining byte budgets. Every byte-bearing part consumed
// decrements every open frame; when a determinate-length frame's budget
// reaches zero, a matching ItemEnd/SequenceEnd is synthesized with an empty
// Bytes payload and delivered downstream -- exactly once, whether the
// original stream used determinate or indeterminate length. Real
// delimitation parts arriving from the parser replace, never supplement,
// the synthetic ones: seeing a real one for a frame that already
// auto-closed would be a parser bug, so this layer trusts the parser and
// only pops frames it has not already closed.
type guaranteedDelimitationEvents struct {
	Callbacks
	stack []frame
}

// GuaranteedDelimitationEvents wraps next with the synthesis described above.
func GuaranteedDelimitationEvents(next Callbacks) Callbacks {
	return &guaranteedDelimitationEvents{Callbacks: next}
}

func (g *guaranteedDelimitationEvents) decrement(n int) ([]dicompart.Part, error) {
	if n <= 0 || len(g.stack) == 0 {
		return nil, nil
	}
	for i := range g.stack {
		if !g.stack[i].indeterminate {
			g.stack[i].remaining -= int64(n)
		}
	}

	var out []dicompart.Part
	for len(g.stack) > 0 {
		top := g.stack[len(g.stack)-1]
		if top.indeterminate || top.remaining > 0 {
			break
		}
		g.stack = g.stack[:len(g.stack)-1]

		var (
			parts []dicompart.Part
			err   error
		)
		if top.isSequence {
			parts, err = g.Callbacks.OnSequenceEnd(dicompart.SequenceEnd{Tag: top.tag})
		} else {
			parts, err = g.Callbacks.OnItemEnd(dicompart.ItemEnd{Tag: top.tag, Index: top.index})
		}
		if err != nil {
			return out, err
		}
		out = append(out, parts...)
	}
	return out, nil
}

func (g *guaranteedDelimitationEvents) OnSequenceStart(p dicompart.SequenceStart) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnSequenceStart(p)
	if err != nil {
		return out, err
	}
	g.stack = append(g.stack, frame{
		isSequence:    true,
		tag:           p.Tag,
		indeterminate: p.Length == dicompart.UndefinedLength,
		remaining:     int64(p.Length),
	})
	return out, nil
}

func (g *guaranteedDelimitationEvents) OnSequenceEnd(p dicompart.SequenceEnd) ([]dicompart.Part, error) {
	g.popIfOpen(true, p.Tag, 0)
	out, err := g.Callbacks.OnSequenceEnd(p)
	if err != nil {
		return out, err
	}
	extra, err := g.decrement(partSize(p))
	return append(out, extra...), err
}

func (g *guaranteedDelimitationEvents) OnItemStart(p dicompart.ItemStart) ([]dicompart.Part, error) {
	// The item's own 8 header bytes belong to the enclosing sequence's
	// remaining budget, not the item's own (its declared Length already
	// excludes its header) -- so the enclosing frames are decremented
	// before this item's frame is pushed.
	extra, err := g.decrement(partSize(p))
	if err != nil {
		return extra, err
	}
	out, err := g.Callbacks.OnItemStart(p)
	if err != nil {
		return append(extra, out...), err
	}
	g.stack = append(g.stack, frame{
		isSequence:    false,
		tag:           p.Tag,
		index:         p.Index,
		indeterminate: p.Length == dicompart.UndefinedLength,
		remaining:     int64(p.Length),
	})
	return append(extra, out...), nil
}

func (g *guaranteedDelimitationEvents) OnItemEnd(p dicompart.ItemEnd) ([]dicompart.Part, error) {
	g.popIfOpen(false, p.Tag, p.Index)
	out, err := g.Callbacks.OnItemEnd(p)
	if err != nil {
		return out, err
	}
	extra, err := g.decrement(partSize(p))
	return append(out, extra...), err
}

// popIfOpen removes the top frame if it matches (tag/index) and has not
// already been synthetically closed, so a real delimitation from the
// parser does not get double-processed once this layer already closed it.
func (g *guaranteedDelimitationEvents) popIfOpen(isSequence bool, tag dicomtag.Tag, index int) {
	if len(g.stack) == 0 {
		return
	}
	top := g.stack[len(g.stack)-1]
	if top.isSequence == isSequence && top.tag == tag && (isSequence || top.index == index) {
		g.stack = g.stack[:len(g.stack)-1]
	}
}

func (g *guaranteedDelimitationEvents) OnHeader(p dicompart.Header) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnHeader(p)
	if err != nil {
		return out, err
	}
	extra, err := g.decrement(partSize(p))
	return append(out, extra...), err
}

func (g *guaranteedDelimitationEvents) OnValueChunk(p dicompart.ValueChunk) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnValueChunk(p)
	if err != nil {
		return out, err
	}
	extra, err := g.decrement(partSize(p))
	return append(out, extra...), err
}

func (g *guaranteedDelimitationEvents) OnFragmentsItem(p dicompart.FragmentsItem) ([]dicompart.Part, error) {
	out, err := g.Callbacks.OnFragmentsItem(p)
	if err != nil {
		return out, err
	}
	extra, err := g.decrement(partSize(p))
	return append(out, extra...), err
}
