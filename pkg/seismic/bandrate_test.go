package seismic

import "testing"

func TestBandSampleRate(t *testing.T) {
	cases := []struct {
		band byte
		want float64
	}{
		{'H', 250},
		{'B', 80},
		{'L', 1},
		{'M', 10},
		{'Z', defaultBandSampleRate}, // unknown band code falls back
	}
	for _, c := range cases {
		if got := BandSampleRate(c.band); got != c.want {
			t.Errorf("BandSampleRate(%q) = %v, want %v", c.band, got, c.want)
		}
	}
}

func TestEstimateBytes(t *testing.T) {
	got := estimateBytes('H', 3600)
	want := 250.0 * 3600 * 4.0 / 3.0
	if got != want {
		t.Errorf("estimateBytes('H', 3600) = %v, want %v", got, want)
	}
}
