// Package tagpath implements the tag-path and tag-tree addressing calculus
// shared by the flow framework (for live tracking), the elements aggregate
// (for addressing), and flows (for match conditions).
//
// This package keeps a full, five-kind node representation (distinguishing
// SequenceStart/SequenceEnd from Item/ItemEnd) rather than a simplified
// variant carrying only Item nodes, because the flow framework's
// delimitation and tracking mix-ins need to observe sequence and item
// boundaries as distinct events. The textual syntax (Parse/String) is
// defined only over the "address" subset of paths -- chains of Item nodes
// terminated by a single Tag node -- since that is exactly what addressing
// an element requires; TagPaths containing SequenceStart/SequenceEnd/ItemEnd
// nodes are a tracking-only concern and are never round-tripped as text.
package tagpath

import (
	"fmt"

	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// Kind distinguishes the five node variants a TagPath can be built from.
type Kind int

const (
	// KindTag addresses a plain data element.
	KindTag Kind = iota
	// KindSequenceStart marks entry into a sequence.
	KindSequenceStart
	// KindSequenceEnd marks the matching exit from a sequence.
	KindSequenceEnd
	// KindItem addresses one (1-based) item of a sequence.
	KindItem
	// KindItemEnd marks the matching exit from an item.
	KindItemEnd
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "Tag"
	case KindSequenceStart:
		return "SequenceStart"
	case KindSequenceEnd:
		return "SequenceEnd"
	case KindItem:
		return "Item"
	case KindItemEnd:
		return "ItemEnd"
	default:
		return "Unknown"
	}
}

// rank orders node kinds that share the same tag value: SequenceStart <
// Item < ItemEnd < SequenceEnd. Tag nodes are always leaves in the paths
// this package constructs, so their rank only matters for totality of the
// comparison, not for any case exercised in practice.
func (k Kind) rank() int {
	switch k {
	case KindSequenceStart:
		return 0
	case KindItem:
		return 1
	case KindTag:
		return 2
	case KindItemEnd:
		return 3
	case KindSequenceEnd:
		return 4
	default:
		return 5
	}
}

// Node is one element of a TagPath.
type Node struct {
	Kind  Kind
	Tag   dicomtag.Tag
	Index int // 1-based, meaningful only for KindItem and KindItemEnd
}

func (n Node) equal(o Node) bool {
	return n.Kind == o.Kind && n.Tag == o.Tag && (n.Kind != KindItem && n.Kind != KindItemEnd || n.Index == o.Index)
}

// less compares two nodes that occupy the same depth in their respective
// paths.
func (n Node) less(o Node) bool {
	if n.Tag != o.Tag {
		return uint32(n.Tag) < uint32(o.Tag)
	}
	if n.Kind != o.Kind {
		return n.Kind.rank() < o.Kind.rank()
	}
	if n.Kind == KindItem || n.Kind == KindItemEnd {
		return n.Index < o.Index
	}
	return false
}

// TagPath is an immutable, ordered list of Nodes from the dataset root to a
// leaf. The zero value is NOT valid; use Empty.
type TagPath struct {
	nodes []Node
}

// Empty is the canonical empty tag path (the dataset root).
var Empty = TagPath{}

// IsEmpty reports whether p is the root path.
func (p TagPath) IsEmpty() bool { return len(p.nodes) == 0 }

// Depth returns the number of nodes in p.
func (p TagPath) Depth() int { return len(p.nodes) }

// Nodes returns the root-to-leaf node sequence. The returned slice must not
// be mutated by the caller.
func (p TagPath) Nodes() []Node { return p.nodes }

// isTrunk reports whether p can be extended: the root, or ending in an
// Item node -- only an Item node is a trunk.
func (p TagPath) isTrunk() bool {
	return p.IsEmpty() || p.nodes[len(p.nodes)-1].Kind == KindItem
}

func (p TagPath) extend(n Node) TagPath {
	if !p.isTrunk() {
		panic(fmt.Sprintf("tagpath: cannot extend non-trunk path %v with %v", p, n))
	}
	next := make([]Node, len(p.nodes)+1)
	copy(next, p.nodes)
	next[len(p.nodes)] = n
	return TagPath{next}
}

// Builders, constructing a single-node path from the root.

func FromTag(tag dicomtag.Tag) TagPath { return Empty.extend(Node{KindTag, tag, 0}) }

func FromSequence(tag dicomtag.Tag) TagPath { return Empty.extend(Node{KindSequenceStart, tag, 0}) }

func FromSequenceEnd(tag dicomtag.Tag) TagPath { return Empty.extend(Node{KindSequenceEnd, tag, 0}) }

func FromItem(tag dicomtag.Tag, index int) TagPath {
	return Empty.extend(Node{KindItem, tag, index})
}

func FromItemEnd(tag dicomtag.Tag, index int) TagPath {
	return Empty.extend(Node{KindItemEnd, tag, index})
}

// Extension operators, only valid when p.isTrunk().

func (p TagPath) ThenTag(tag dicomtag.Tag) TagPath { return p.extend(Node{KindTag, tag, 0}) }

func (p TagPath) ThenSequence(tag dicomtag.Tag) TagPath {
	return p.extend(Node{KindSequenceStart, tag, 0})
}

func (p TagPath) ThenSequenceEnd(tag dicomtag.Tag) TagPath {
	return p.extend(Node{KindSequenceEnd, tag, 0})
}

func (p TagPath) ThenItem(tag dicomtag.Tag, index int) TagPath {
	return p.extend(Node{KindItem, tag, index})
}

func (p TagPath) ThenItemEnd(tag dicomtag.Tag, index int) TagPath {
	return p.extend(Node{KindItemEnd, tag, index})
}

// Equal reports whether p and o are the same sequence of nodes.
func (p TagPath) Equal(o TagPath) bool {
	if len(p.nodes) != len(o.nodes) {
		return false
	}
	for i := range p.nodes {
		if !p.nodes[i].equal(o.nodes[i]) {
			return false
		}
	}
	return true
}

// Less implements a total order: lexicographic over nodes from the root,
// shorter-is-less on a common prefix.
func (p TagPath) Less(o TagPath) bool {
	n := len(p.nodes)
	if len(o.nodes) < n {
		n = len(o.nodes)
	}
	for i := 0; i < n; i++ {
		if p.nodes[i].equal(o.nodes[i]) {
			continue
		}
		return p.nodes[i].less(o.nodes[i])
	}
	return len(p.nodes) < len(o.nodes)
}

// StartsWith reports whether other is a node-wise prefix of p.
func (p TagPath) StartsWith(other TagPath) bool {
	if len(other.nodes) > len(p.nodes) {
		return false
	}
	for i := range other.nodes {
		if !p.nodes[i].equal(other.nodes[i]) {
			return false
		}
	}
	return true
}

// EndsWith reports whether other is a node-wise suffix of p.
func (p TagPath) EndsWith(other TagPath) bool {
	if len(other.nodes) > len(p.nodes) {
		return false
	}
	offset := len(p.nodes) - len(other.nodes)
	for i := range other.nodes {
		if !p.nodes[offset+i].equal(other.nodes[i]) {
			return false
		}
	}
	return true
}

// FromNodes builds a TagPath from an explicit node sequence, e.g. a suffix
// sliced out of another path's Nodes().
func FromNodes(nodes []Node) TagPath {
	return TagPath{append([]Node(nil), nodes...)}
}

// Contains reports whether any node in p addresses tag.
func (p TagPath) Contains(tag dicomtag.Tag) bool {
	for _, n := range p.nodes {
		if n.Tag == tag {
			return true
		}
	}
	return false
}

// Take returns the first k nodes of p (root side). k is clamped to [0, Depth()].
func (p TagPath) Take(k int) TagPath {
	if k < 0 {
		k = 0
	}
	if k > len(p.nodes) {
		k = len(p.nodes)
	}
	return TagPath{append([]Node(nil), p.nodes[:k]...)}
}

// Drop removes the first k nodes of p (root side). k is clamped to [0, Depth()].
func (p TagPath) Drop(k int) TagPath {
	if k < 0 {
		k = 0
	}
	if k > len(p.nodes) {
		k = len(p.nodes)
	}
	return TagPath{append([]Node(nil), p.nodes[k:]...)}
}

// Head returns the leaf node of p, the second return is false for Empty.
func (p TagPath) Head() (Node, bool) {
	if p.IsEmpty() {
		return Node{}, false
	}
	return p.nodes[len(p.nodes)-1], true
}
