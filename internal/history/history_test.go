package history

import (
	"testing"
	"time"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(float64(30+i), now.Add(time.Duration(i)*time.Second))
	}

	if h.Len() != 5 {
		t.Errorf("expected 5 points, got %d", h.Len())
	}

	if last := h.LastN(1); len(last) != 1 || last[0] != 36.0 {
		t.Errorf("LastN(1): got %v, want [36]", last)
	}

	if h.Min != 30.0 {
		t.Errorf("Min: got %f, want 30.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	if avg := h.Avg(); avg != 34.0 {
		t.Errorf("Avg(): got %f, want 34.0", avg)
	}

	vals := h.LastN(3)
	if len(vals) != 3 || vals[0] != 34 || vals[2] != 36 {
		t.Errorf("LastN(3): got %v, want [34 35 36]", vals)
	}
}

func TestAvgCoversOnlyKeptPoints(t *testing.T) {
	h := NewBuffer(100)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 0; i < 120; i++ {
		h.Push(float64(30+i%10), base.Add(time.Duration(i)*time.Second))
	}

	if h.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", h.Len())
	}
	if avg := h.Avg(); avg != 34.5 {
		t.Errorf("Avg() = %f, want 34.5", avg)
	}
	if h.Min != 30 || h.Peak != 39 {
		t.Errorf("Min/Peak = %f/%f", h.Min, h.Peak)
	}
}

func TestEmptyBuffer(t *testing.T) {
	h := NewBuffer(4)
	if h.Len() != 0 || h.Avg() != 0 {
		t.Errorf("empty buffer: Len=%d Avg=%f", h.Len(), h.Avg())
	}
	if h.LastN(3) != nil {
		t.Error("LastN on empty buffer should be nil")
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	if r.Len() != 3 {
		t.Fatalf("Len=%d, want 3", r.Len())
	}
	got := r.Slice()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice() = %v, want %v", got, want)
		}
	}
	if r.At(2) != 5 {
		t.Errorf("At(2) = %d, want 5", r.At(2))
	}
	if tail := r.Tail(10); len(tail) != 3 {
		t.Errorf("Tail(10) len = %d, want 3", len(tail))
	}
}

func TestStore(t *testing.T) {
	s := NewStore[int](10)
	now := time.Now()
	s.Record(1, 40, now)
	s.Record(1, 42, now)
	s.Record(2, 55, now)

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if b := s.Get(1); b == nil || b.Avg() != 41 {
		t.Errorf("Get(1) = %+v", b)
	}
	if s.Get(3) != nil {
		t.Error("Get(3) should be nil")
	}
}
