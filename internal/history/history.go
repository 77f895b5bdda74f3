// Package history keeps bounded per-sensor temperature histories with
// min/peak/avg statistics.
package history

import (
	"math"
	"time"
)

// Point is a single data point in the temperature history.
type Point struct {
	Temp float64
	Time time.Time
}

// Buffer stores the recent readings of one sensor. Min and Peak cover every
// reading pushed, including ones the ring has since dropped.
type Buffer struct {
	points *Ring[Point]
	Min    float64
	Peak   float64
}

// NewBuffer creates a new history buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		points: NewRing[Point](capacity),
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push adds a new temperature reading to the history.
func (b *Buffer) Push(temp float64, t time.Time) {
	b.points.Push(Point{Temp: temp, Time: t})
	if temp < b.Min {
		b.Min = temp
	}
	if temp > b.Peak {
		b.Peak = temp
	}
}

// Len returns the number of stored points.
func (b *Buffer) Len() int {
	return b.points.Len()
}

// Avg returns the average temperature across all stored points.
func (b *Buffer) Avg() float64 {
	n := b.points.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += b.points.At(i).Temp
	}
	return sum / float64(n)
}

// LastN returns the last n temperature values (for sparklines).
func (b *Buffer) LastN(n int) []float64 {
	pts := b.points.Tail(n)
	if pts == nil {
		return nil
	}
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.Temp
	}
	return vals
}

// Store manages histories for all sensors, keyed by K.
type Store[K comparable] struct {
	data     map[K]*Buffer
	capacity int
}

// NewStore creates a new store with the given per-sensor capacity.
func NewStore[K comparable](capacity int) *Store[K] {
	return &Store[K]{
		data:     make(map[K]*Buffer),
		capacity: capacity,
	}
}

// Record adds a reading for the given sensor key.
func (s *Store[K]) Record(key K, temp float64, t time.Time) {
	b, ok := s.data[key]
	if !ok {
		b = NewBuffer(s.capacity)
		s.data[key] = b
	}
	b.Push(temp, t)
}

// Get returns the history buffer for a sensor key, or nil.
func (s *Store[K]) Get(key K) *Buffer {
	return s.data[key]
}

// Len returns the number of sensors tracked.
func (s *Store[K]) Len() int {
	return len(s.data)
}
