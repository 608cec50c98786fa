package tagpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/slicebox/dicom-streams-go/dicomtag"
)

// TreeNode is one segment of a TagTree: like a TagPath Node, but an item
// position may be a wildcard (AnyItem) instead of a concrete index.
type TreeNode struct {
	Kind Kind
	Tag  dicomtag.Tag
	// Index is nil for a wildcard item position (AnyItem), and for all
	// non-item kinds. A non-nil Index matches only that 1-based position.
	Index *int
}

func (n TreeNode) matches(o Node) bool {
	if n.Kind != o.Kind || n.Tag != o.Tag {
		return false
	}
	if (n.Kind == KindItem || n.Kind == KindItemEnd) && n.Index != nil {
		return *n.Index == o.Index
	}
	return true
}

// TagTree is an ordered wildcard-capable pattern over TagPaths.
type TagTree struct {
	nodes []TreeNode
}

// EmptyTree is the tree that matches only the root.
var EmptyTree = TagTree{}

func (t TagTree) isTrunk() bool {
	return len(t.nodes) == 0 || t.nodes[len(t.nodes)-1].Kind == KindItem
}

func (t TagTree) extend(n TreeNode) TagTree {
	if !t.isTrunk() {
		panic(fmt.Sprintf("tagpath: cannot extend non-trunk tree %v with %v", t, n))
	}
	next := make([]TreeNode, len(t.nodes)+1)
	copy(next, t.nodes)
	next[len(t.nodes)] = n
	return TagTree{next}
}

// TreeFromTag builds a single-segment TagTree addressing a plain tag.
func TreeFromTag(tag dicomtag.Tag) TagTree { return EmptyTree.extend(TreeNode{Kind: KindTag, Tag: tag}) }

// TreeFromAnyItem builds a single-segment TagTree addressing any item
// position of the sequence at tag.
func TreeFromAnyItem(tag dicomtag.Tag) TagTree {
	return EmptyTree.extend(TreeNode{Kind: KindItem, Tag: tag})
}

// TreeFromItem builds a single-segment TagTree addressing one concrete
// item position of the sequence at tag.
func TreeFromItem(tag dicomtag.Tag, index int) TagTree {
	return EmptyTree.extend(TreeNode{Kind: KindItem, Tag: tag, Index: &index})
}

func (t TagTree) ThenTag(tag dicomtag.Tag) TagTree {
	return t.extend(TreeNode{Kind: KindTag, Tag: tag})
}

func (t TagTree) ThenAnyItem(tag dicomtag.Tag) TagTree {
	return t.extend(TreeNode{Kind: KindItem, Tag: tag})
}

func (t TagTree) ThenItem(tag dicomtag.Tag, index int) TagTree {
	return t.extend(TreeNode{Kind: KindItem, Tag: tag, Index: &index})
}

// HasTrunk reports whether t matches a prefix of path, under wildcard-
// tolerant comparison.
func (t TagTree) HasTrunk(path TagPath) bool {
	if len(t.nodes) > path.Depth() {
		return false
	}
	for i, tn := range t.nodes {
		if !tn.matches(path.nodes[i]) {
			return false
		}
	}
	return true
}

// HasTwig reports whether t matches a suffix of path, under wildcard-
// tolerant comparison.
func (t TagTree) HasTwig(path TagPath) bool {
	if len(t.nodes) > path.Depth() {
		return false
	}
	offset := path.Depth() - len(t.nodes)
	for i, tn := range t.nodes {
		if !tn.matches(path.nodes[offset+i]) {
			return false
		}
	}
	return true
}

// Matches reports whether t matches path exactly, node for node.
func (t TagTree) Matches(path TagPath) bool {
	if len(t.nodes) != path.Depth() {
		return false
	}
	return t.HasTrunk(path)
}

// Depth returns the number of segments in t.
func (t TagTree) Depth() int { return len(t.nodes) }

// Tag returns the tag of t's last segment and true, unless t is empty or
// its last segment is an item position rather than a plain tag.
func (t TagTree) Tag() (dicomtag.Tag, bool) {
	if len(t.nodes) == 0 {
		return 0, false
	}
	last := t.nodes[len(t.nodes)-1]
	return last.Tag, last.Kind == KindTag
}

// Compatible reports whether t and path agree along their shared prefix,
// under wildcard-tolerant comparison. It holds both when t addresses path
// or a descendant of it (t is at least as deep and matches path's nodes),
// and when path is still short of t (path matches a prefix of t, meaning
// the traversal has not yet reached t's depth but could still descend into
// it). Used by whitelist-style filters, where a container must stay open
// whenever a deeper, still-unreached position might match.
func (t TagTree) Compatible(path TagPath) bool {
	n := len(t.nodes)
	if path.Depth() < n {
		n = path.Depth()
	}
	for i := 0; i < n; i++ {
		if !t.nodes[i].matches(path.nodes[i]) {
			return false
		}
	}
	return true
}

// String renders t using the same grammar as TagPath.String, with "*" for
// wildcard item positions.
func (t TagTree) String() string {
	parts := make([]string, len(t.nodes))
	for i, n := range t.nodes {
		if n.Kind == KindItem {
			if n.Index == nil {
				parts[i] = fmt.Sprintf("%s[*]", n.Tag)
			} else {
				parts[i] = fmt.Sprintf("%s[%d]", n.Tag, *n.Index)
			}
			continue
		}
		parts[i] = n.Tag.String()
	}
	return strings.Join(parts, ".")
}

// ParseTree reads the TagTree textual syntax: the same grammar as
// TagPath.Parse, but "[*]" is accepted at any position to build an AnyItem
// wildcard node.
func ParseTree(s string) (TagTree, error) {
	if s == "" {
		return EmptyTree, fmt.Errorf("%w: empty string", ErrMalformedTagPath)
	}
	segments := strings.Split(s, ".")
	tree := EmptyTree
	for i, seg := range segments {
		tag, idxStr, hasIndex, err := parseTreeElem(seg)
		if err != nil {
			return EmptyTree, err
		}
		last := i == len(segments)-1
		switch {
		case hasIndex && idxStr == "*":
			tree = tree.ThenAnyItem(tag)
		case hasIndex:
			n, convErr := strconv.Atoi(idxStr)
			if convErr != nil || n < 1 {
				return EmptyTree, fmt.Errorf("%w: %q: invalid item index", ErrMalformedTagPath, seg)
			}
			tree = tree.ThenItem(tag, n)
		case last:
			tree = tree.ThenTag(tag)
		default:
			return EmptyTree, fmt.Errorf("%w: %q: intermediate segment must have an index", ErrMalformedTagPath, seg)
		}
	}
	return tree, nil
}

func parseTreeElem(seg string) (tag dicomtag.Tag, idx string, hasIndex bool, err error) {
	body := seg
	if br := strings.IndexByte(seg, '['); br >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return 0, "", false, fmt.Errorf("%w: %q: unterminated index", ErrMalformedTagPath, seg)
		}
		body = seg[:br]
		idx, hasIndex = seg[br+1:len(seg)-1], true
	}
	if strings.HasPrefix(body, "(") {
		tag, err = parseTagLiteral(body)
		return tag, idx, hasIndex, err
	}
	t, ok := dicomtag.TagOf(body)
	if !ok {
		return 0, "", false, fmt.Errorf("%w: unknown keyword %q", ErrMalformedTagPath, body)
	}
	return t, idx, hasIndex, nil
}

// Glob reports whether name matches the given glob-style keyword pattern
// (e.g. "Patient*"), for callers that select elements by keyword pattern
// rather than by an explicit TagTree. The built-in filter flows do not call
// it; they match TagTrees only.
func Glob(pattern, name string) (bool, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("tagpath: compiling glob %q: %w", pattern, err)
	}
	return g.Match(name), nil
}
