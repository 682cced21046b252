package seismic

import (
	"testing"
	"time"
)

func TestNewTimeIntervalDefaultsToNone(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	iv := NewTimeInterval(start, end)
	if iv.Status != StatusNone {
		t.Errorf("expected new interval status None, got %s", iv.Status)
	}
	if iv.Duration() != time.Hour {
		t.Errorf("expected duration 1h, got %v", iv.Duration())
	}
}
