package parser

import (
	"slices"

	"github.com/dhamidi/yarn/grammar"
)

type nodeKey struct {
	start, end int
	symbol     grammar.Symbol
	depth      int
}

type treeIndex struct {
	offsets map[*subtree][]int
	keys    map[nodeKey]bool
}

func indexTree(t *Tree) treeIndex {
	idx := treeIndex{offsets: map[*subtree][]int{}, keys: map[nodeKey]bool{}}
	var walk func(s *subtree, off length, depth int)
	walk = func(s *subtree, off length, depth int) {
		idx.offsets[s] = append(idx.offsets[s], off.bytes)
		start := off.add(s.padding).bytes
		idx.keys[nodeKey{start, start + s.size.bytes, s.symbol, depth}] = true
		for _, c := range s.children {
			walk(c, off, depth+1)
			off = off.add(c.total())
		}
	}
	walk(t.root, length{}, 0)
	return idx
}

// ChangedRanges returns the ranges of the new tree whose syntactic
// structure differs from the old one. old must be the edited tree the new
// tree was reparsed from, so that both use the same coordinates. Subtrees
// shared by pointer at the same offset are skipped without being visited.
func ChangedRanges(old, new *Tree) []Range {
	oldIdx, newIdx := indexTree(old), indexTree(new)
	var out []Range
	diff(new.root, oldIdx, &out)
	diff(old.root, newIdx, &out)
	return mergeRanges(out)
}

func diff(root *subtree, other treeIndex, out *[]Range) {
	var walk func(s *subtree, off length, depth int)
	walk = func(s *subtree, off length, depth int) {
		if slices.Contains(other.offsets[s], off.bytes) {
			return
		}
		start := off.add(s.padding)
		end := start.add(s.size)
		key := nodeKey{start.bytes, end.bytes, s.symbol, depth}
		if s.isLeaf() || !other.keys[key] {
			if end.bytes > start.bytes || s.missing {
				*out = append(*out, Range{StartByte: start.bytes, EndByte: end.bytes, StartPoint: start.extent, EndPoint: end.extent})
			}
		}
		for _, c := range s.children {
			walk(c, off, depth+1)
			off = off.add(c.total())
		}
	}
	walk(root, length{}, 0)
}

func mergeRanges(rs []Range) []Range {
	if len(rs) == 0 {
		return nil
	}
	slices.SortFunc(rs, func(a, b Range) int { return a.StartByte - b.StartByte })
	out := []Range{rs[0]}
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.StartByte <= last.EndByte {
			if r.EndByte > last.EndByte {
				last.EndByte, last.EndPoint = r.EndByte, r.EndPoint
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
