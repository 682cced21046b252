package seismic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seismic-go/seismicd/pkg/logger"
	"github.com/seismic-go/seismicd/pkg/seismic/workpool"
)

// WaveformInfo is the minimal result of parsing a downloaded MiniSEED file
// that the QC pass needs. Parsing MiniSEED itself is out of scope for this
// module (spec.md §1); WaveformInspector is the external collaborator
// interface the QC pass consumes.
type WaveformInfo struct {
	TraceCount      int
	CoveredDuration time.Duration
}

// WaveformInspector parses a downloaded waveform file header-only, as the
// original's `obspy.read(filename, headonly=True)` does.
type WaveformInspector interface {
	Inspect(path string) (WaveformInfo, error)
}

// ClientDownloadHelper drives one provider from availability through fully
// reconciled storage (spec.md §4.3). Stations is owned exclusively by this
// helper and mutated only between phases, never concurrently by the
// waveform/metadata worker pools (spec.md §5).
type ClientDownloadHelper struct {
	Client       ProviderClient
	ClientName   string
	Restrictions Restrictions
	Domain       Domain
	WaveformRes  WaveformResolver
	MetadataRes  MetadataResolver
	Logger       logger.Logger
	FS           FileDeleter
	Inspector    WaveformInspector
	Overrides    map[string]CapabilityMode

	Stations map[StationID]*Station

	reliable   bool
	reliableOK bool
}

// NewClientDownloadHelper builds a helper ready for GetAvailability. l may
// be nil, in which case a NopLogger is installed (matching the teacher's
// Handlers.setDefault pattern of never requiring callers to nil-check).
func NewClientDownloadHelper(client ProviderClient, name string, restrictions Restrictions, domain Domain, waveformRes WaveformResolver, metadataRes MetadataResolver, fs FileDeleter, inspector WaveformInspector, l logger.Logger) *ClientDownloadHelper {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &ClientDownloadHelper{
		Client:       client,
		ClientName:   name,
		Restrictions: restrictions,
		Domain:       domain,
		WaveformRes:  waveformRes,
		MetadataRes:  metadataRes,
		Logger:       l,
		FS:           fs,
		Inspector:    inspector,
		Stations:     map[StationID]*Station{},
	}
}

// Len reports the number of stations currently tracked.
func (c *ClientDownloadHelper) Len() int { return len(c.Stations) }

// IsAvailabilityReliable returns the tri-state reliability flag (value,
// known), matching the original's is_availability_reliable None/True/
// False, confirmed in download_status.py's ClientDownloadHelper.__str__.
func (c *ClientDownloadHelper) IsAvailabilityReliable() (reliable bool, known bool) {
	return c.reliable, c.reliableOK
}

// GetAvailability issues a station-level listing and applies the spatial,
// temporal, per-channel-availability and priority filters of spec.md
// §4.3. Returns an error classified as provider_rpc_error unless the
// provider's error text contains "no data available", in which case it
// logs and returns nil with Stations left empty.
func (c *ClientDownloadHelper) GetAvailability() error {
	mode, reliable := ResolveCapability(strings.ToLower(c.ClientName), c.Overrides, c.Client.Services())
	c.reliable, c.reliableOK = reliable, true

	q := AvailabilityQuery{
		Network:             c.Restrictions.Network,
		Station:             c.Restrictions.Station,
		Location:            c.Restrictions.Location,
		Channel:             c.Restrictions.Channel,
		StartTime:           c.Restrictions.StartTime,
		EndTime:             c.Restrictions.EndTime,
		DomainParams:        c.Domain.GetQueryParameters(),
		MatchTimeseries:     mode == CapabilityMatchTimeseries,
		IncludeAvailability: mode == CapabilityIncludeAvailability,
	}

	if reliable {
		c.Logger.Info("Client '%s' - Requesting reliable availability.", c.ClientName)
	} else {
		c.Logger.Info("Client '%s' - Requesting unreliable availability.", c.ClientName)
	}

	stations, err := c.Client.GetStations(q)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no data available") {
			c.Logger.Info("Client '%s' - No data available for request.", c.ClientName)
			return nil
		}
		return newError(KindProviderRPCError, c.ClientName, err)
	}

	bounded, hasBoundedDomain := c.Domain.(BoundedDomain)

	for _, sv := range stations {
		if hasBoundedDomain && !bounded.IsInDomain(sv.Latitude, sv.Longitude) {
			continue
		}

		var channels []*Channel
		for _, sc := range sv.Channels {
			if sc.StartDate.After(c.Restrictions.StartTime) || sc.EndDate.Before(c.Restrictions.EndTime) {
				continue
			}
			if q.IncludeAvailability {
				if !sc.HasAvailability {
					if c.Restrictions.KeepUnknownAvailability {
						// fall through and keep the channel
					} else {
						c.Logger.Warning("Client '%s' supports 'includeavailability' but returned a channel without availability information; dropping it.", c.ClientName)
						continue
					}
				} else if sc.AvailabilityFrom.After(c.Restrictions.StartTime) || sc.AvailabilityTo.Before(c.Restrictions.EndTime) {
					continue
				}
			}

			ch := &Channel{Location: sc.Location, Channel: sc.Channel}
			c.Restrictions.Chunks()(func(start, end time.Time) bool {
				ch.Intervals = append(ch.Intervals, NewTimeInterval(start, end))
				return true
			})
			channels = append(channels, ch)
		}

		channels = ApplyChannelAndLocationPriority(channels, c.Restrictions.ChannelPriorities, c.Restrictions.LocationPriorities, c.Restrictions.Channel, c.Restrictions.Location)
		if len(channels) == 0 {
			continue
		}

		id := StationID{Network: sv.Network, Station: sv.Station}
		c.Stations[id] = &Station{
			Network:   sv.Network,
			Station:   sv.Station,
			Latitude:  sv.Latitude,
			Longitude: sv.Longitude,
			Channels:  channels,
		}
	}

	nChannels := 0
	for _, s := range c.Stations {
		nChannels += len(s.Channels)
	}
	c.Logger.Info("Client '%s' - Found %d station(s) (%d channel(s)).", c.ClientName, len(c.Stations), nChannels)
	return nil
}

// DiscardStations removes the given (net, sta) entries if present, used
// by DownloadHelper for cross-provider deduplication.
func (c *ClientDownloadHelper) DiscardStations(ids map[StationID]struct{}) {
	for id := range ids {
		delete(c.Stations, id)
	}
}

// StationPoints returns the coordinates of every tracked station, for the
// distance filter (see distance.go).
func (c *ClientDownloadHelper) StationPoints() []stationPoint {
	pts := make([]stationPoint, 0, len(c.Stations))
	for id, s := range c.Stations {
		pts = append(pts, stationPoint{ID: id, Latitude: s.Latitude, Longitude: s.Longitude})
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].ID.Network != pts[j].ID.Network {
			return pts[i].ID.Network < pts[j].ID.Network
		}
		return pts[i].ID.Station < pts[j].ID.Station
	})
	return pts
}

// PrepareWaveformDownload asks WaveformRes for every interval's planned
// path and sets its status to Ignore, Exists or NeedsDownloading (spec.md
// §4.3).
func (c *ClientDownloadHelper) PrepareWaveformDownload() error {
	for _, sta := range c.Stations {
		for _, ch := range sta.Channels {
			for _, iv := range ch.Intervals {
				path, ok, err := c.WaveformRes.Resolve(sta.Network, sta.Station, ch.Location, ch.Channel, iv.Start, iv.End)
				if err != nil {
					return newError(KindStoragePermissionError, c.ClientName, err)
				}
				if !ok {
					iv.Status = StatusIgnore
					continue
				}
				iv.Filename = path
				if c.FS.Exists(path) {
					iv.Status = StatusExists
				} else {
					iv.Status = StatusNeedsDownloading
				}
			}
		}
	}
	return nil
}

// waveformChunk is one batch submitted to the waveform pool.
type waveformChunk struct {
	requests []WaveformRequest
}

// buildWaveformChunks packs every NeedsDownloading interval into chunks
// whose estimated size approximately equals chunkSizeMB, in station order
// (sorted by (network, station) code, see orderedStations, not the order
// in which availability listed the stations), then channel, then interval
// order.
func (c *ClientDownloadHelper) buildWaveformChunks(chunkSizeMB float64) []waveformChunk {
	targetBytes := chunkSizeMB * 1024 * 1024
	var chunks []waveformChunk
	var curr []WaveformRequest
	currBytes := 0.0

	for _, sta := range c.orderedStations() {
		for _, ch := range sta.Channels {
			band := ch.BandCode()
			for _, iv := range ch.Intervals {
				if iv.Status != StatusNeedsDownloading {
					continue
				}
				curr = append(curr, WaveformRequest{
					Network: sta.Network, Station: sta.Station,
					Location: ch.Location, Channel: ch.Channel,
					Start: iv.Start, End: iv.End, Filename: iv.Filename,
				})
				currBytes += estimateBytes(band, iv.Duration().Seconds())
				if currBytes >= targetBytes {
					chunks = append(chunks, waveformChunk{requests: curr})
					curr = nil
					currBytes = 0
				}
			}
		}
	}
	if len(curr) > 0 {
		chunks = append(chunks, waveformChunk{requests: curr})
	}
	return chunks
}

// orderedStations returns stations in a deterministic order (by (network,
// station) code) so chunk packing is reproducible across runs even though
// Stations is a map. The original relies on dict insertion order from a
// single-threaded availability parse; Go maps have none, so this
// specification defines chunk order as identifier order instead (spec.md
// §4.5 only requires "otherwise order-independent" results, which this
// satisfies while remaining deterministic).
func (c *ClientDownloadHelper) orderedStations() []*Station {
	out := make([]*Station, 0, len(c.Stations))
	for _, s := range c.Stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Station < out[j].Station
	})
	return out
}

// DownloadWaveforms batches and downloads every NeedsDownloading interval
// (spec.md §4.3 download_waveforms), then runs the QC pass. Returns
// (downloadedBytes, discardedBytes).
func (c *ClientDownloadHelper) DownloadWaveforms(ctx context.Context, chunkSizeMB float64, threads int, h *Handlers) (int64, int64, error) {
	if h == nil {
		h = &Handlers{}
	}
	h.setDefaults()

	chunks := c.buildWaveformChunks(chunkSizeMB)
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	size := workpool.Size(threads, len(chunks))
	retryCfg := DefaultRetryConfig()

	err := workpool.Run(ctx, len(chunks), size, func(ctx context.Context, i int) error {
		chunk := chunks[i]
		state := &RetryState{}
		var segments []WaveformSegment
		var rpcErr error
		for {
			segments, rpcErr = c.Client.GetWaveformsBulk(chunk.requests)
			if rpcErr == nil {
				break
			}
			noData := strings.Contains(strings.ToLower(rpcErr.Error()), "no data available")
			category := ClassifyError(rpcErr)
			if noData || category == ErrCategoryEmptyResponse {
				c.Logger.Info("Client '%s' - %s", c.ClientName, rpcErr.Error())
				rpcErr = nil
				break
			}
			if !retryCfg.ShouldRetry(state, rpcErr) {
				break
			}
			state.Attempts++
			state.LastError = rpcErr
			if waitErr := retryCfg.WaitForRetry(ctx, state, category); waitErr != nil {
				return waitErr
			}
		}
		if rpcErr != nil {
			c.Logger.Error("Client '%s' - %s", c.ClientName, rpcErr.Error())
			h.ChunkComplete(c.ClientName, i+1, len(chunks))
			return nil // intervals remain NeedsDownloading; QC marks them DownloadFailed
		}
		for _, seg := range segments {
			if err := writeWaveformSegment(c.FS, seg); err != nil {
				c.Logger.Warning("Client '%s' - failed writing %s: %s", c.ClientName, seg.Request.Filename, err.Error())
			}
		}
		h.ChunkComplete(c.ClientName, i+1, len(chunks))
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	downloaded, discarded := c.checkDownloadedData()
	h.QCResult(c.ClientName, downloaded, discarded)
	return downloaded, discarded, nil
}

// writeWaveformSegment is the narrow filesystem-writing seam; FileDeleter
// only covers delete/exists/size, so a segment writer is a separate,
// minimal interface implemented alongside it in real deployments (e.g. by
// an os.WriteFile-backed adapter). It writes through fs when fs also
// implements WaveformWriter and returns an error otherwise, since a
// concrete write path is storage-backend specific.
var writeWaveformSegment = func(fs FileDeleter, seg WaveformSegment) error {
	if w, ok := fs.(WaveformWriter); ok {
		return w.Write(seg.Request.Filename, seg.Data)
	}
	return fmt.Errorf("filesystem does not support waveform writes")
}

// WaveformWriter is an optional extension of FileDeleter; implementations
// that back real writes (as opposed to read-only test fixtures) add it.
type WaveformWriter interface {
	Write(path string, data []byte) error
}

// checkDownloadedData is the QC pass of spec.md §4.3: for every interval
// still NeedsDownloading, inspect the file on disk and transition it to
// Downloaded, DownloadFailed or DownloadRejected.
func (c *ClientDownloadHelper) checkDownloadedData() (downloadedBytes, discardedBytes int64) {
	for _, sta := range c.Stations {
		for _, ch := range sta.Channels {
			for _, iv := range ch.Intervals {
				if iv.Status != StatusNeedsDownloading {
					continue
				}

				if !c.FS.Exists(iv.Filename) {
					iv.Status = StatusDownloadFailed
					continue
				}

				size, err := c.FS.Size(iv.Filename)
				if err != nil {
					iv.Status = StatusDownloadFailed
					continue
				}
				if size == 0 {
					c.Logger.Warning("Zero byte file '%s'. Will be deleted.", iv.Filename)
					_ = c.FS.Delete(iv.Filename)
					iv.Status = StatusDownloadFailed
					continue
				}

				info, err := c.Inspector.Inspect(iv.Filename)
				if err != nil {
					c.Logger.Warning("Could not read file '%s': %s. Will be discarded.", iv.Filename, err.Error())
					_ = c.FS.Delete(iv.Filename)
					discardedBytes += size
					iv.Status = StatusDownloadFailed
					continue
				}

				if info.TraceCount == 0 {
					c.Logger.Warning("Empty file '%s'. Will be deleted.", iv.Filename)
					_ = c.FS.Delete(iv.Filename)
					discardedBytes += size
					iv.Status = StatusDownloadFailed
					continue
				}

				if c.Restrictions.RejectChannelsWithGaps && info.TraceCount > 1 {
					c.Logger.Info("File '%s' contains %d traces. Will be deleted.", iv.Filename, info.TraceCount)
					_ = c.FS.Delete(iv.Filename)
					discardedBytes += size
					iv.Status = StatusDownloadRejected
					continue
				}

				if c.Restrictions.MinimumLength > 0 {
					expected := time.Duration(c.Restrictions.MinimumLength * float64(iv.Duration()))
					if info.CoveredDuration < expected {
						c.Logger.Info("File '%s' has only %s of data, %s required. Will be deleted.", iv.Filename, info.CoveredDuration, expected)
						_ = c.FS.Delete(iv.Filename)
						discardedBytes += size
						iv.Status = StatusDownloadRejected
						continue
					}
				}

				downloadedBytes += size
				iv.Status = StatusDownloaded
			}
		}
	}
	return downloadedBytes, discardedBytes
}

// PrepareMetadataDownload runs Station.PrepareMetadataDownload for every
// station (spec.md §4.3).
func (c *ClientDownloadHelper) PrepareMetadataDownload(parseExisting func(path string) ([]MetadataCoverage, error)) error {
	for _, sta := range c.Stations {
		if err := sta.PrepareMetadataDownload(c.MetadataRes, parseExisting); err != nil {
			return newError(KindStoragePermissionError, c.ClientName, err)
		}
	}
	return nil
}

// DownloadMetadata requests metadata for every station with non-empty
// MissMetadata, bounded by a pool of size min(threads, len(requests))
// (spec.md §4.3 download_metadata). fetchAndParse performs the actual RPC
// and returns the coverage rows of the resulting file; metadata RPC
// wire format is out of scope for this module.
func (c *ClientDownloadHelper) DownloadMetadata(ctx context.Context, threads int, fetchAndParse func(network, station string, ids []ChannelID, start, end time.Time, path string) ([]MetadataCoverage, error)) error {
	type job struct {
		sta *Station
	}
	var jobs []job
	for _, sta := range c.Stations {
		if len(sta.MissMetadata) == 0 {
			continue
		}
		jobs = append(jobs, job{sta: sta})
	}
	if len(jobs) == 0 {
		c.Logger.Info("Client '%s' - No station information to download.", c.ClientName)
		return nil
	}

	size := workpool.Size(threads, len(jobs))
	return workpool.Run(ctx, len(jobs), size, func(ctx context.Context, i int) error {
		sta := jobs[i].sta
		ids := make([]ChannelID, 0, len(sta.MissMetadata))
		for id := range sta.MissMetadata {
			ids = append(ids, id)
		}
		start, end := sta.TemporalBounds()
		rows, err := fetchAndParse(sta.Network, sta.Station, ids, start, end, sta.MetadataFilename)
		if err != nil {
			c.Logger.Error("Client '%s' - %s", c.ClientName, err.Error())
			return nil
		}
		stillMissing := map[ChannelID]TimeSpan{}
		for id, want := range sta.MissMetadata {
			var stored TimeSpan
			found := false
			for _, row := range rows {
				if row.Network != sta.Network || row.Station != sta.Station ||
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
				sta.HaveMetadata[id] = want
			} else {
				stillMissing[id] = want
			}
		}
		sta.MissMetadata = stillMissing
		return nil
	})
}

// SanitizeDownloads runs Station.SanitizeDownloads for every station
// (spec.md §4.3).
func (c *ClientDownloadHelper) SanitizeDownloads() {
	for _, sta := range c.Stations {
		sta.SanitizeDownloads(c.FS, c.Logger)
	}
}
