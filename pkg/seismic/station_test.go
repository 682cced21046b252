package seismic

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/seismic-go/seismicd/pkg/logger"
)

var errNoMetadataFile = errors.New("station_test: no metadata file on disk")

func mkStation(statuses ...Status) *Station {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	intervals := make([]*TimeInterval, len(statuses))
	for i, st := range statuses {
		intervals[i] = NewTimeInterval(start.Add(time.Duration(i)*time.Hour), start.Add(time.Duration(i+1)*time.Hour))
		intervals[i].Status = st
		intervals[i].Filename = "waveform.mseed"
	}
	return &Station{
		Network: "XX",
		Station: "AAA",
		Channels: []*Channel{
			{Location: "00", Channel: "HHZ", Intervals: intervals},
		},
	}
}

func TestPrepareMetadataDownloadNoExistingFile(t *testing.T) {
	s := mkStation(StatusDownloaded)
	resolver := CallbackMetadataResolver(func(network, station string, ids []ChannelID, start, end time.Time) (string, any, error) {
		return "meta.xml", nil, nil
	})
	notFound := func(path string) ([]MetadataCoverage, error) {
		return nil, errNoMetadataFile
	}
	if err := s.PrepareMetadataDownload(resolver, notFound); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.HaveMetadata) != 0 {
		t.Errorf("expected no metadata on hand, got %+v", s.HaveMetadata)
	}
	if len(s.MissMetadata) != 1 {
		t.Errorf("expected 1 missing metadata entry, got %+v", s.MissMetadata)
	}
}

func TestPrepareMetadataDownloadFullyCovered(t *testing.T) {
	s := mkStation(StatusDownloaded)
	start, end := s.Channels[0].TemporalBounds()
	resolver := CallbackMetadataResolver(func(network, station string, ids []ChannelID, qstart, qend time.Time) (string, any, error) {
		return "meta.xml", nil, nil
	})
	existing := func(path string) ([]MetadataCoverage, error) {
		return []MetadataCoverage{
			{Network: "XX", Station: "AAA", Location: "00", Channel: "HHZ", Start: start, End: end},
		}, nil
	}
	if err := s.PrepareMetadataDownload(resolver, existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.HaveMetadata) != 1 {
		t.Errorf("expected fully-covered channel to be in HaveMetadata, got have=%+v miss=%+v", s.HaveMetadata, s.MissMetadata)
	}
	if len(s.MissMetadata) != 0 {
		t.Errorf("expected nothing missing, got %+v", s.MissMetadata)
	}
}

func TestPrepareMetadataDownloadPartialCoverage(t *testing.T) {
	s := mkStation(StatusDownloaded)
	start, end := s.Channels[0].TemporalBounds()
	resolver := CallbackMetadataResolver(func(network, station string, ids []ChannelID, qstart, qend time.Time) (string, any, error) {
		return "meta.xml", nil, nil
	})
	existing := func(path string) ([]MetadataCoverage, error) {
		// Covers only the first half of the channel's temporal bounds.
		mid := start.Add(end.Sub(start) / 2)
		return []MetadataCoverage{
			{Network: "XX", Station: "AAA", Location: "00", Channel: "HHZ", Start: start, End: mid},
		}, nil
	}
	if err := s.PrepareMetadataDownload(resolver, existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.HaveMetadata) != 0 {
		t.Errorf("expected partial coverage to not satisfy Contains, got have=%+v", s.HaveMetadata)
	}
	if len(s.MissMetadata) != 1 {
		t.Errorf("expected channel to remain missing, got %+v", s.MissMetadata)
	}
}

func TestPrepareMetadataDownloadUnsupportedDirective(t *testing.T) {
	s := mkStation(StatusDownloaded)
	resolver := CallbackMetadataResolver(func(network, station string, ids []ChannelID, start, end time.Time) (string, any, error) {
		return "", "some-directive", nil
	})
	err := s.PrepareMetadataDownload(resolver, func(string) ([]MetadataCoverage, error) { return nil, errNoMetadataFile })
	if err != ErrMetadataDirectiveUnsupported {
		t.Fatalf("expected ErrMetadataDirectiveUnsupported, got %v", err)
	}
}

func TestSanitizeDownloadsDeletesOnlyDownloaded(t *testing.T) {
	s := mkStation(StatusDownloaded, StatusExists)
	s.Channels[0].Intervals[0].Filename = "downloaded.mseed"
	s.Channels[0].Intervals[1].Filename = "exists.mseed"
	s.MissMetadata = map[ChannelID]TimeSpan{s.Channels[0].ID(): {}}

	mem := afero.NewMemMapFs()
	for _, name := range []string{"downloaded.mseed", "exists.mseed"} {
		if err := afero.WriteFile(mem, name, []byte("data"), 0o644); err != nil {
			t.Fatalf("seed fs: %v", err)
		}
	}
	fs := &AferoFileDeleter{Fs: mem}
	log := logger.NewNopLogger()

	s.SanitizeDownloads(fs, log)

	if s.Channels[0].Intervals[0].Status != StatusDownloadRejected {
		t.Errorf("expected Downloaded interval to become DownloadRejected, got %s", s.Channels[0].Intervals[0].Status)
	}
	if fs.Exists("downloaded.mseed") {
		t.Error("expected downloaded.mseed to be deleted")
	}
	if s.Channels[0].Intervals[1].Status != StatusExists {
		t.Errorf("expected Exists interval to be untouched, got %s", s.Channels[0].Intervals[1].Status)
	}
	if !fs.Exists("exists.mseed") {
		t.Error("expected exists.mseed to survive sanitize")
	}
}

func TestSanitizeDownloadsNoopWhenNothingMissing(t *testing.T) {
	s := mkStation(StatusDownloaded)
	s.MissMetadata = nil
	mem := afero.NewMemMapFs()
	fs := &AferoFileDeleter{Fs: mem}
	s.SanitizeDownloads(fs, logger.NewNopLogger())
	if s.Channels[0].Intervals[0].Status != StatusDownloaded {
		t.Error("expected no change when MissMetadata is empty")
	}
}
