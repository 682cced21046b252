package seismic

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// IntervalReport is one TimeInterval's final state in the report.
type IntervalReport struct {
	Start    string
	End      string
	Filename string
	Status   string
}

type ChannelReport struct {
	Location  string
	Channel   string
	Intervals []IntervalReport
}

type StationReport struct {
	Network  string
	Station  string
	Channels []ChannelReport
}

// ProviderReport is one provider's contribution to the final Report
// (spec.md §6).
type ProviderReport struct {
	Provider        string
	Stations        []StationReport
	DownloadedBytes int64
	DiscardedBytes  int64
}

// Report is the ground truth of outcomes for a Download run (spec.md §7:
// "The final report is the ground truth of outcomes").
type Report struct {
	RunID           string
	Providers       []ProviderReport
	ProviderInitErrors []ProviderInitError
}

// ProviderInitError records one provider that failed to initialize or
// lacked required capabilities. NewDownloadHelper reports such failures
// through its returned *multierror.Error (spec.md §4.4.EXT) in addition to
// logging them; Download does not fill Report.ProviderInitErrors.
type ProviderInitError struct {
	Provider string
	Err      error
}

// TotalBytes returns the summed downloaded and discarded bytes across
// every provider in the report.
func (r *Report) TotalBytes() (downloaded, discarded int64) {
	for _, p := range r.Providers {
		downloaded += p.DownloadedBytes
		discarded += p.DiscardedBytes
	}
	return downloaded, discarded
}

// HumanSummary renders a one-line summary using dustin/go-humanize for
// byte formatting (promoted from an indirect-only teacher dependency).
func (r *Report) HumanSummary() string {
	downloaded, discarded := r.TotalBytes()
	return fmt.Sprintf("run %s: %d provider(s), %s downloaded, %s discarded",
		r.RunID, len(r.Providers), humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(discarded)))
}

func statusToReport(s Status) string { return s.String() }

// BuildStationReport walks a ClientDownloadHelper's Stations into the
// report shape, in the same deterministic (network, station) order used
// for chunk packing (see orderedStations).
func BuildStationReport(c *ClientDownloadHelper) []StationReport {
	var out []StationReport
	for _, sta := range c.orderedStations() {
		sr := StationReport{Network: sta.Network, Station: sta.Station}
		for _, ch := range sta.Channels {
			cr := ChannelReport{Location: ch.Location, Channel: ch.Channel}
			for _, iv := range ch.Intervals {
				cr.Intervals = append(cr.Intervals, IntervalReport{
					Start:    iv.Start.UTC().Format("2006-01-02T15:04:05Z"),
					End:      iv.End.UTC().Format("2006-01-02T15:04:05Z"),
					Filename: iv.Filename,
					Status:   statusToReport(iv.Status),
				})
			}
			sr.Channels = append(sr.Channels, cr)
		}
		out = append(out, sr)
	}
	return out
}
