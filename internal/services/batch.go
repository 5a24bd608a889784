package services

// batches splits items into bounded-size chunks so each datastore commit
// stays under the per-commit operation ceiling. Batches are committed
// independently; a failed batch is reported and the run moves on, which is
// what makes partial progress resumable by re-invocation.
func batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
