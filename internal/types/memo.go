package types

type memoState int

const (
	memoUnset memoState = iota
	memoComputing
	memoDone
)

// memo caches one fallible derived value of a class. Asking for the value while
// it is being computed is reported instead of recursing. A memo is written only
// before or during Freeze; afterwards it is read-only. Failures are kept only
// once final is true: before the table is frozen a failure may come from
// classes not loaded yet, so the next call computes again.
type memo[T any] struct {
	state memoState
	value T
	err   error
}

func (m *memo[T]) get(what string, final bool, compute func() (T, error)) (T, error) {
	switch m.state {
	case memoDone:
		return m.value, m.err
	case memoComputing:
		var zero T
		return zero, &ReentrancyError{What: what}
	}
	m.state = memoComputing
	value, err := compute()
	if err != nil && !final {
		m.state = memoUnset
		return value, err
	}
	m.value, m.err = value, err
	m.state = memoDone
	return m.value, m.err
}
