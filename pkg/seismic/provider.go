package seismic

import "time"

// Domain is consumed, not implemented, by this package (spec.md §1: the
// geographic domain predicates are an external collaborator). Concrete
// implementations — circular, rectangular, global — live outside this
// module.
type Domain interface {
	// GetQueryParameters returns provider-specific spatial filter
	// parameters to merge into the station-availability query.
	GetQueryParameters() map[string]any
}

// BoundedDomain is an optional extension of Domain: when implemented,
// GetAvailability drops stations for which IsInDomain returns false. If a
// Domain does not implement this, no spatial post-filter is applied.
type BoundedDomain interface {
	Domain
	IsInDomain(lat, lon float64) bool
}

// ServiceChannel and ServiceStation are the parsed result of a provider's
// station-level availability query (ProviderClient.GetStations): one
// ServiceStation per station, holding one ServiceChannel per channel
// surviving the provider's own query filters, before this package's
// spatial/temporal/priority filtering runs.
type ServiceChannel struct {
	Location         string
	Channel          string
	StartDate        time.Time
	EndDate          time.Time
	HasAvailability  bool
	AvailabilityFrom time.Time
	AvailabilityTo   time.Time
}

type ServiceStation struct {
	Network   string
	Station   string
	Latitude  float64
	Longitude float64
	Channels  []ServiceChannel
}

// AvailabilityQuery bundles the parameters GetAvailability sends to
// ProviderClient.GetStations: the identifier filters and time window from
// Restrictions, the domain's query parameters, and the capability flags
// decided by ResolveCapability.
type AvailabilityQuery struct {
	Network             string
	Station             string
	Location            string
	Channel             string
	StartTime           time.Time
	EndTime             time.Time
	DomainParams        map[string]any
	MatchTimeseries     bool
	IncludeAvailability bool
}

// WaveformRequest is one (net, sta, loc, cha, start, end) tuple submitted
// in bulk to ProviderClient.GetWaveformsBulk.
type WaveformRequest struct {
	Network   string
	Station   string
	Location  string
	Channel   string
	Start     time.Time
	End       time.Time
	Filename  string
}

// WaveformSegment is one result of a bulk waveform request: the bytes
// written (or to be written) to Filename, and the request it answers.
type WaveformSegment struct {
	Request WaveformRequest
	Data    []byte
}

// ProviderClient is the station-availability and bulk-waveform RPC
// surface consumed by the orchestrator (spec.md §6). Concrete
// implementations speak the FDSN wire protocol or any equivalent; that
// protocol is explicitly out of scope for this module.
type ProviderClient interface {
	GetStations(q AvailabilityQuery) ([]ServiceStation, error)
	GetWaveformsBulk(reqs []WaveformRequest) ([]WaveformSegment, error)
	Services() map[string]struct{}
	BaseURL() string
}

// CapabilityMode is the provider capability override table's value type
// (spec.md §6).
type CapabilityMode int

const (
	CapabilityUnreliable CapabilityMode = iota
	CapabilityMatchTimeseries
	CapabilityIncludeAvailability
)

// DefaultCapabilityOverrides is a static provider-name → capability-mode
// table for providers whose advertised service WADL is known to be wrong,
// mirroring the original's OVERWRITE_CAPABILITIES = {"resif": None}.
// It is not a package-level singleton consulted implicitly (spec.md §9:
// "pass explicitly in a context object; avoid process-wide singletons") —
// NewDownloadHelper puts a copy in DownloadHelper.Overrides, which callers
// may extend or replace before calling Download.
var DefaultCapabilityOverrides = map[string]CapabilityMode{
	"resif": CapabilityUnreliable,
}

// ResolveCapability decides whether a provider's availability response can
// be trusted, and which query parameter to request it with, per spec.md
// §4.3 "get_availability": check the override table first, then the
// provider's advertised "station" service parameter list.
func ResolveCapability(providerName string, overrides map[string]CapabilityMode, stationServiceParams map[string]struct{}) (mode CapabilityMode, reliable bool) {
	if m, ok := overrides[providerName]; ok {
		return m, m != CapabilityUnreliable
	}
	if _, ok := stationServiceParams["matchtimeseries"]; ok {
		return CapabilityMatchTimeseries, true
	}
	if _, ok := stationServiceParams["includeavailability"]; ok {
		return CapabilityIncludeAvailability, true
	}
	return CapabilityUnreliable, false
}
