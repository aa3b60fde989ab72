package checkpoint

import "sort"

// SortDescending orders metadata highest first by Compare
func SortDescending(mds []Metadata) {
	sort.SliceStable(mds, func(i, j int) bool {
		return Compare(mds[i], mds[j]) > 0
	})
}

// Prune decides which checkpoints to delete so that at most maxCheckpoints
// remain. The highest-ordered entries by (Epoch, Batch, CreatedAt) are kept;
// the rest are returned. The result depends only on the set of entries, not
// on their order in all, and pruning an already-pruned set returns nothing.
// A maxCheckpoints of zero or less disables retention.
func Prune(all []Metadata, maxCheckpoints int) []Metadata {
	if maxCheckpoints <= 0 || len(all) <= maxCheckpoints {
		return nil
	}

	sorted := make([]Metadata, len(all))
	copy(sorted, all)
	SortDescending(sorted)

	return sorted[maxCheckpoints:]
}

// best returns the highest-ordered entry, or nil if mds is empty
func best(mds []Metadata) *Metadata {
	if len(mds) == 0 {
		return nil
	}
	top := mds[0]
	for _, md := range mds[1:] {
		if Compare(md, top) > 0 {
			top = md
		}
	}
	return &top
}
