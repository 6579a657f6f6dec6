package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeTreeHash computes a deterministic hash of a tree's shape: every
// node key and every parent's ordered child list. Node order does not affect
// the hash, so two exports of the same graph match even if they were
// produced with a different walk order.
func ComputeTreeHash(nodes []Node, edges []Edge) string {
	h := sha256.New()

	keys := make([]string, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "node:%s\n", k)
	}

	// Edges sorted by (parent, ordinal) so each child list keeps its order.
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ParentKey != sorted[j].ParentKey {
			return sorted[i].ParentKey < sorted[j].ParentKey
		}
		return sorted[i].Ordinal < sorted[j].Ordinal
	})
	for _, e := range sorted {
		fmt.Fprintf(h, "edge:%s:%d:%s\n", e.ParentKey, e.Ordinal, e.ChildKey)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
