package fileproc

import (
	"github.com/sourcegraph/conc/pool"
)

// Reduce combines items pairwise, level by level, until one value is left:
// ((a·b)·(c·d))·e for five items. merge must be associative; pairs within
// a level are merged concurrently on up to workers goroutines. Reduce
// reports false for an empty input.
func Reduce[T any](items []T, workers int, merge func(a, b T) T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}

	level := append([]T(nil), items...)
	for len(level) > 1 {
		next := make([]T, (len(level)+1)/2)
		p := pool.New().WithMaxGoroutines(Workers(workers))
		for i := 0; i+1 < len(level); i += 2 {
			p.Go(func() {
				next[i/2] = merge(level[i], level[i+1])
			})
		}
		p.Wait()
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		level = next
	}
	return level[0], true
}
