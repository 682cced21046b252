package seismic

import (
	"testing"
	"time"
)

func TestChannelTemporalBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ch := &Channel{Location: "00", Channel: "HHZ", Intervals: []*TimeInterval{
		NewTimeInterval(start.Add(time.Hour), start.Add(2*time.Hour)),
		NewTimeInterval(start, start.Add(30*time.Minute)),
		NewTimeInterval(start.Add(3*time.Hour), start.Add(4*time.Hour)),
	}}
	min, max := ch.TemporalBounds()
	if !min.Equal(start) {
		t.Errorf("expected min %v, got %v", start, min)
	}
	if !max.Equal(start.Add(4 * time.Hour)) {
		t.Errorf("expected max %v, got %v", start.Add(4*time.Hour), max)
	}
}

func TestChannelWantsMetadata(t *testing.T) {
	ch := &Channel{Intervals: []*TimeInterval{{Status: StatusDownloadFailed}, {Status: StatusIgnore}}}
	if ch.WantsMetadata() {
		t.Error("expected WantsMetadata false when no interval has data")
	}
	ch.Intervals = append(ch.Intervals, &TimeInterval{Status: StatusExists})
	if !ch.WantsMetadata() {
		t.Error("expected WantsMetadata true once an interval Exists")
	}
}

func TestChannelBandCode(t *testing.T) {
	cases := []struct {
		code string
		want byte
	}{
		{"HHZ", 'H'},
		{"bhz", 'B'},
		{"", 0},
	}
	for _, c := range cases {
		ch := &Channel{Channel: c.code}
		if got := ch.BandCode(); got != c.want {
			t.Errorf("BandCode(%q) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestChannelID(t *testing.T) {
	ch := &Channel{Location: "00", Channel: "HHZ"}
	if ch.ID() != (ChannelID{Location: "00", Channel: "HHZ"}) {
		t.Errorf("unexpected ChannelID: %+v", ch.ID())
	}
}
