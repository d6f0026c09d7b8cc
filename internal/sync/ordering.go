package sync

import "sort"

// SortForApply reorders a pull batch so FK constraints hold during
// replay, regardless of the input array order.
//
// Upserts are sorted ascending by table rank so parents are written
// before children; deletes are sorted descending so children are removed
// before parents. Sorting is stable, so the server's relative order
// within a table is preserved.
func SortForApply(records []ChangeRecord) (upserts, deletes []ChangeRecord) {
	for _, r := range records {
		if r.Deleted {
			deletes = append(deletes, r)
		} else {
			upserts = append(upserts, r)
		}
	}

	sort.SliceStable(upserts, func(i, j int) bool {
		return Rank(upserts[i].TableName) < Rank(upserts[j].TableName)
	})
	sort.SliceStable(deletes, func(i, j int) bool {
		return Rank(deletes[i].TableName) > Rank(deletes[j].TableName)
	})

	return upserts, deletes
}
