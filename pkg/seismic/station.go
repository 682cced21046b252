package seismic

import (
	"fmt"
	"time"

	"github.com/seismic-go/seismicd/pkg/logger"
)

// TimeSpan is a half-open [Start, End) range used for the want/have/miss
// metadata coverage maps.
type TimeSpan struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether s fully covers other: s.Start <= other.Start &&
// s.End >= other.End.
func (s TimeSpan) Contains(other TimeSpan) bool {
	return !s.Start.After(other.Start) && !s.End.Before(other.End)
}

// StationID identifies a station by (network, station) code, the key used
// by ClientDownloadHelper.stations and the cross-provider dedup sets.
type StationID struct {
	Network string
	Station string
}

func (id StationID) String() string {
	return fmt.Sprintf("%s.%s", id.Network, id.Station)
}

// Station groups one (network, station) pair with its coordinates and
// channels. Channels has no duplicate (location, channel) pair.
//
// Invariant: WantMetadata = HaveMetadata ⊎ MissMetadata (disjoint union) at
// every observable point after PrepareMetadataDownload.
type Station struct {
	Network  string
	Station  string
	Latitude float64
	Longitude float64
	Channels []*Channel

	MetadataFilename string

	WantMetadata map[ChannelID]TimeSpan
	HaveMetadata map[ChannelID]TimeSpan
	MissMetadata map[ChannelID]TimeSpan
}

// ID returns the (network, station) key for this station.
func (s *Station) ID() StationID {
	return StationID{Network: s.Network, Station: s.Station}
}

// TemporalBounds returns (min start, max end) across all channels.
func (s *Station) TemporalBounds() (time.Time, time.Time) {
	start, end := s.Channels[0].TemporalBounds()
	for _, ch := range s.Channels[1:] {
		cs, ce := ch.TemporalBounds()
		if cs.Before(start) {
			start = cs
		}
		if ce.After(end) {
			end = ce
		}
	}
	return start, end
}

// PrepareMetadataDownload computes WantMetadata from every channel whose
// WantsMetadata() is true, then asks resolver for the station's metadata
// path. If existing is nil, or returns an error (e.g. because the file does
// not exist), everything wanted is missing. Otherwise each wanted
// (location, channel) entry that the returned rows fully cover moves into
// HaveMetadata, and anything left uncovered goes into MissMetadata.
//
// existing is a caller-supplied function that parses the coverage rows of
// the StationXML file at path, since StationXML parsing is out of scope
// here.
func (s *Station) PrepareMetadataDownload(resolver MetadataResolver, existing func(path string) ([]MetadataCoverage, error)) error {
	s.WantMetadata = map[ChannelID]TimeSpan{}
	for _, ch := range s.Channels {
		if !ch.WantsMetadata() {
			continue
		}
		start, end := ch.TemporalBounds()
		s.WantMetadata[ch.ID()] = TimeSpan{Start: start, End: end}
	}

	ids := make([]ChannelID, 0, len(s.Channels))
	for _, ch := range s.Channels {
		ids = append(ids, ch.ID())
	}
	start, end := s.TemporalBounds()

	path, directive, err := resolver.Resolve(s.Network, s.Station, ids, start, end)
	if err != nil {
		return err
	}
	if directive != nil {
		return ErrMetadataDirectiveUnsupported
	}
	s.MetadataFilename = path

	var rows []MetadataCoverage
	if existing != nil {
		rows, err = existing(path)
	}
	if existing == nil || err != nil {
		// No parser, or the file does not exist (or cannot be read):
		// everything is missing.
		s.MissMetadata = cloneSpans(s.WantMetadata)
		s.HaveMetadata = map[ChannelID]TimeSpan{}
		return nil
	}

	have := map[ChannelID]TimeSpan{}
	miss := map[ChannelID]TimeSpan{}
	for id, want := range s.WantMetadata {
		covered := false
		var stored TimeSpan
		found := false
		for _, row := range rows {
			if row.Network != s.Network || row.Station != s.Station ||
				row.Location != id.Location || row.Channel != id.Channel {
				continue
			}
			if !found || row.Start.Before(stored.Start) {
				stored.Start = row.Start
			}
			if !found || row.End.After(stored.End) {
				stored.End = row.End
			}
			found = true
		}
		if found && stored.Contains(want) {
			covered = true
		}
		if covered {
			have[id] = want
		} else {
			miss[id] = want
		}
	}
	s.HaveMetadata = have
	s.MissMetadata = miss
	return nil
}

// MetadataCoverage is one (location, channel) coverage row parsed from an
// existing StationXML file, used by PrepareMetadataDownload and
// DownloadMetadata to decide whether re-download is required.
type MetadataCoverage struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// SanitizeDownloads enforces invariant 1 (spec.md §8): no station leaves a
// run with a Downloaded waveform interval for a channel whose metadata
// coverage is still missing. For every (location, channel) still in
// MissMetadata, every interval of the matching channel that reached
// Downloaded is deleted and moved to DownloadRejected. Intervals that were
// already Exists before the run are left untouched — they predate this run
// and are not ours to delete.
func (s *Station) SanitizeDownloads(fs FileDeleter, log logger.Logger) {
	if len(s.MissMetadata) == 0 {
		return
	}
	byID := make(map[ChannelID]*Channel, len(s.Channels))
	for _, ch := range s.Channels {
		byID[ch.ID()] = ch
	}
	for id := range s.MissMetadata {
		log.Warning("%s.%s - no station information could be downloaded for %s.%s; downloaded waveform files will be deleted",
			s.Network, s.Station, id.Location, id.Channel)
		ch, ok := byID[id]
		if !ok {
			continue
		}
		for _, iv := range ch.Intervals {
			if iv.Status != StatusDownloaded {
				continue
			}
			_ = fs.Delete(iv.Filename)
			iv.Status = StatusDownloadRejected
		}
	}
}

func cloneSpans(m map[ChannelID]TimeSpan) map[ChannelID]TimeSpan {
	out := make(map[ChannelID]TimeSpan, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
