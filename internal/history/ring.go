package history

// Ring is a fixed-capacity FIFO. Once full, each Push overwrites the oldest
// element. The zero value is unusable; call NewRing.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRing creates a ring holding at most capacity elements. Capacities
// below 1 are raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, dropping the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.n }

// At returns the i-th oldest element. It panics if i is out of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("history: ring index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Tail returns a copy of the newest n elements, oldest first.
func (r *Ring[T]) Tail(n int) []T {
	if n <= 0 || r.n == 0 {
		return nil
	}
	n = min(n, r.n)
	out := make([]T, n)
	for i := range out {
		out[i] = r.At(r.n - n + i)
	}
	return out
}

// Slice returns a copy of every element, oldest first.
func (r *Ring[T]) Slice() []T {
	return r.Tail(r.n)
}
