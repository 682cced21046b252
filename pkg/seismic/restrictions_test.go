package seismic

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return parsed
}

func TestRestrictionsValidate(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-02T00:00:00Z")

	r := NewDefaultRestrictions(start, end)
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid restrictions, got %v", err)
	}

	bad := r
	bad.EndTime = start
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for endtime <= starttime")
	}

	badLen := r
	badLen.MinimumLength = 1.5
	if err := badLen.Validate(); err == nil {
		t.Fatal("expected error for minimum_length > 1")
	}

	badLenNeg := r
	badLenNeg.MinimumLength = -0.1
	if err := badLenNeg.Validate(); err == nil {
		t.Fatal("expected error for minimum_length < 0")
	}
}

func TestRestrictionsChunksNoChunking(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-02T00:00:00Z")
	r := Restrictions{StartTime: start, EndTime: end}

	var got [][2]time.Time
	r.Chunks()(func(s, e time.Time) bool {
		got = append(got, [2]time.Time{s, e})
		return true
	})

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(got))
	}
	if !got[0][0].Equal(start) || !got[0][1].Equal(end) {
		t.Fatalf("expected (%v, %v), got (%v, %v)", start, end, got[0][0], got[0][1])
	}
}

func TestRestrictionsChunksWithChunkLength(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-01T02:30:00Z")
	r := Restrictions{StartTime: start, EndTime: end, ChunkLength: time.Hour}

	var got [][2]time.Time
	r.Chunks()(func(s, e time.Time) bool {
		got = append(got, [2]time.Time{s, e})
		return true
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if !got[2][1].Equal(end) {
		t.Fatalf("expected last chunk to end at %v, got %v", end, got[2][1])
	}
	if got[2][0] != start.Add(2*time.Hour) {
		t.Fatalf("expected last chunk to start at %v, got %v", start.Add(2*time.Hour), got[2][0])
	}
}

func TestRestrictionsChunksIsRestartable(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-01T03:00:00Z")
	r := Restrictions{StartTime: start, EndTime: end, ChunkLength: time.Hour}

	seq := r.Chunks()
	var first, second int
	seq(func(s, e time.Time) bool { first++; return true })
	seq(func(s, e time.Time) bool { second++; return true })

	if first != second || first != 3 {
		t.Fatalf("expected the same restartable sequence both times, got %d and %d", first, second)
	}
}

func TestRestrictionsChunksEarlyStop(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-01T05:00:00Z")
	r := Restrictions{StartTime: start, EndTime: end, ChunkLength: time.Hour}

	count := 0
	r.Chunks()(func(s, e time.Time) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("expected iteration to stop after yield returns false, got %d calls", count)
	}
}

func TestRestrictionsEqual(t *testing.T) {
	start := mustTime(t, "2024-01-01T00:00:00Z")
	end := mustTime(t, "2024-01-02T00:00:00Z")
	a := NewDefaultRestrictions(start, end)
	b := NewDefaultRestrictions(start, end)
	if !a.Equal(b) {
		t.Fatal("expected identical restrictions to be equal")
	}
	b.Network = "XX"
	if a.Equal(b) {
		t.Fatal("expected restrictions differing by Network to be unequal")
	}
}
