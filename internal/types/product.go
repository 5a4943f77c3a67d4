package types

import (
	"iter"
	"slices"
)

// product yields the cartesian product of the axes, first axis slowest. Each
// axis is re-iterated once per combination of the axes before it, and nothing
// is computed ahead of the consumer. No axes yields one empty combination.
func product[T any](axes []iter.Seq[T]) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		prefix := make([]T, 0, len(axes))
		var walk func(i int) bool
		walk = func(i int) bool {
			if i == len(axes) {
				return yield(slices.Clone(prefix))
			}
			for v := range axes[i] {
				prefix = append(prefix[:i], v)
				if !walk(i + 1) {
					return false
				}
			}
			return true
		}
		walk(0)
	}
}
