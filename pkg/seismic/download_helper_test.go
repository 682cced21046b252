package seismic

import (
	"context"
	"testing"
	"time"
)

func TestResolveProviderOrderDefaultsIRISOrfeusFirst(t *testing.T) {
	registry := map[string]struct{}{"ZZZ": {}, "ORFEUS": {}, "AAA": {}, "IRIS": {}}
	got := ResolveProviderOrder(nil, registry)
	want := []string{"IRIS", "ORFEUS", "AAA", "ZZZ"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestResolveProviderOrderExplicitPreserved(t *testing.T) {
	explicit := []string{"ZZZ", "IRIS"}
	got := ResolveProviderOrder(explicit, map[string]struct{}{"IRIS": {}, "ZZZ": {}, "ORFEUS": {}})
	if len(got) != 2 || got[0] != "ZZZ" || got[1] != "IRIS" {
		t.Fatalf("expected explicit order preserved verbatim, got %v", got)
	}
}

func TestResolveProviderOrderMissingReservedSkipped(t *testing.T) {
	got := ResolveProviderOrder(nil, map[string]struct{}{"AAA": {}, "BBB": {}})
	want := []string{"AAA", "BBB"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func capableClient(services map[string]struct{}) *fakeProviderClient {
	return &fakeProviderClient{services: services}
}

func TestNewDownloadHelperDropsIncapableAndFailedProviders(t *testing.T) {
	registry := map[string]struct{}{"IRIS": {}, "ORFEUS": {}, "BAD": {}}
	factory := func(ctx context.Context, name string) (ProviderClient, error) {
		switch name {
		case "IRIS":
			return capableClient(map[string]struct{}{"dataselect": {}, "station": {}}), nil
		case "ORFEUS":
			// Missing "station": should be dropped with an init error.
			return capableClient(map[string]struct{}{"dataselect": {}}), nil
		default:
			return nil, errLike("connection refused")
		}
	}
	helper, errs := NewDownloadHelper(context.Background(), nil, registry, factory, nil)
	if helper == nil {
		t.Fatal("expected non-nil helper")
	}
	providers := helper.Providers()
	if len(providers) != 1 || providers[0] != "IRIS" {
		t.Fatalf("expected only IRIS to survive, got %v", providers)
	}
	if errs == nil || len(errs.Errors) != 2 {
		t.Fatalf("expected 2 aggregated init errors (ORFEUS incapable + BAD failed), got %v", errs)
	}
}

func TestDownloadHelperDownloadInvalidRestrictions(t *testing.T) {
	helper := &DownloadHelper{providers: nil, clients: map[string]ProviderClient{}}
	helper.Logger = nil
	restrictions := Restrictions{StartTime: time.Now(), EndTime: time.Now().Add(-time.Hour)}
	_, err := helper.Download(context.Background(), globalDomain{}, restrictions, DownloadOptions{})
	if err == nil {
		t.Fatal("expected an error for invalid restrictions (endtime before starttime)")
	}
}

func TestDownloadHelperDownloadCrossProviderDedup(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	sameStation := []ServiceStation{
		{Network: "XX", Station: "A", Latitude: 0, Longitude: 0, Channels: []ServiceChannel{
			{Location: "00", Channel: "HHZ", StartDate: start.Add(-time.Hour), EndDate: end.Add(time.Hour)},
		}},
	}

	iris := &fakeProviderClient{
		stations: sameStation,
		services: map[string]struct{}{"dataselect": {}, "station": {}},
	}
	orfeus := &fakeProviderClient{
		// ORFEUS offers the exact same station; it must be excluded since
		// IRIS (queried first) already acquired it.
		stations: sameStation,
		services: map[string]struct{}{"dataselect": {}, "station": {}},
	}

	registry := map[string]struct{}{"IRIS": {}, "ORFEUS": {}}
	factory := func(ctx context.Context, name string) (ProviderClient, error) {
		if name == "IRIS" {
			return iris, nil
		}
		return orfeus, nil
	}
	helper, _ := NewDownloadHelper(context.Background(), nil, registry, factory, nil)

	restrictions := NewDefaultRestrictions(start, end)
	restrictions.MinInterstationDistanceM = 0 // isolate cross-provider already-acquired dedup from distance filtering

	fs := newFakeFS()
	opts := DownloadOptions{
		WaveformStorage: CallbackWaveformResolver(func(network, station, location, channel string, s, e time.Time) (string, bool, error) {
			return network + "." + station + ".mseed", true, nil
		}),
		MetadataStorage: CallbackMetadataResolver(func(network, station string, ids []ChannelID, s, e time.Time) (string, any, error) {
			return network + "." + station + ".xml", nil, nil
		}),
		ChunkSizeMB:      1,
		ThreadsPerClient: 2,
		MetadataThreads:  2,
		FS:               fs,
		Inspector: &fakeInspector{info: map[string]WaveformInfo{
			"XX.A.mseed": {TraceCount: 1, CoveredDuration: 3 * time.Hour},
		}},
		ParseMetadata: func(path string) ([]MetadataCoverage, error) {
			return nil, errLike("no such file")
		},
		FetchMetadata: func(network, station string, ids []ChannelID, s, e time.Time, path string) ([]MetadataCoverage, error) {
			rows := make([]MetadataCoverage, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, MetadataCoverage{Network: network, Station: station, Location: id.Location, Channel: id.Channel, Start: s, End: e})
			}
			return rows, nil
		},
	}

	iris.segments = []WaveformSegment{{Request: WaveformRequest{Filename: "XX.A.mseed"}, Data: []byte("data")}}

	report, err := helper.Download(context.Background(), globalDomain{}, restrictions, opts)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(report.Providers) != 2 {
		t.Fatalf("expected a ProviderReport for both providers, got %d", len(report.Providers))
	}
	if report.Providers[0].Provider != "IRIS" || len(report.Providers[0].Stations) != 1 {
		t.Fatalf("expected IRIS to acquire station A, got %+v", report.Providers[0])
	}
	if report.Providers[1].Provider != "ORFEUS" || len(report.Providers[1].Stations) != 0 {
		t.Fatalf("expected ORFEUS to find 0 stations (deduped against IRIS), got %+v", report.Providers[1])
	}
}
