package seismic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/seismic-go/seismicd/pkg/logger"
	"github.com/seismic-go/seismicd/pkg/seismic/workpool"
)

// reservedProviderOrder forces "IRIS" first and "ORFEUS" second when the
// caller does not specify a provider order, confirmed verbatim against
// DownloadHelper.__init__ in the original download_helpers.py
// (`urls.pop("IRIS")`, then `urls.pop("ORFEUS")`, then
// `sorted(urls.keys())`).
var reservedProviderOrder = []string{"IRIS", "ORFEUS"}

// ProviderFactory builds a ProviderClient for the named provider. Building
// the concrete client (speaking the FDSN protocol or otherwise) is out of
// scope for this module; this is the seam a caller plugs a real
// implementation into.
type ProviderFactory func(ctx context.Context, name string) (ProviderClient, error)

// ResolveProviderOrder returns the final provider iteration order: if
// names is non-nil, it is used as given; otherwise registry's keys are
// ordered IRIS-first, ORFEUS-second, then alphabetically.
func ResolveProviderOrder(names []string, registry map[string]struct{}) []string {
	if names != nil {
		return names
	}
	remaining := map[string]struct{}{}
	for k := range registry {
		remaining[k] = struct{}{}
	}
	var ordered []string
	for _, reserved := range reservedProviderOrder {
		if _, ok := remaining[reserved]; ok {
			ordered = append(ordered, reserved)
			delete(remaining, reserved)
		}
	}
	rest := make([]string, 0, len(remaining))
	for k := range remaining {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// DownloadHelper is the cross-provider driver (spec.md §4.4): provider
// ordering, sequential iteration with a growing "already acquired" and
// "discarded" set, minimum-inter-station-distance dedup, final report.
type DownloadHelper struct {
	Logger    logger.Logger
	Overrides map[string]CapabilityMode

	providers []string
	clients   map[string]ProviderClient
}

// NewDownloadHelper builds one ProviderClient per name in parallel (with a
// bounded worker pool — spec.md §4.4), discarding providers that fail to
// initialize or whose Services() does not expose both "dataselect" and
// "station", grounded on the original's __initialize_clients
// ThreadPool(len(self.providers)) + service-key filter.
func NewDownloadHelper(ctx context.Context, names []string, registry map[string]struct{}, factory ProviderFactory, l logger.Logger) (*DownloadHelper, *multierror.Error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	order := ResolveProviderOrder(names, registry)

	clients := make(map[string]ProviderClient, len(order))
	var mu sync.Mutex
	var initErr *multierror.Error

	_ = workpool.Run(ctx, len(order), len(order), func(ctx context.Context, i int) error {
		name := order[i]
		client, err := factory(ctx, name)
		if err != nil {
			mu.Lock()
			initErr = multierror.Append(initErr, newError(KindProviderInitFailure, name, err))
			mu.Unlock()
			l.Warning("Client '%s' - failed to initialize: %s", name, err.Error())
			return nil
		}
		services := client.Services()
		_, hasDataselect := services["dataselect"]
		_, hasStation := services["station"]
		if !hasDataselect || !hasStation {
			mu.Lock()
			initErr = multierror.Append(initErr, newError(KindProviderInitFailure, name, fmt.Errorf("missing required service capability")))
			mu.Unlock()
			l.Warning("Client '%s' - missing required dataselect/station capability; dropped.", name)
			return nil
		}
		mu.Lock()
		clients[name] = client
		mu.Unlock()
		return nil
	})

	var surviving []string
	for _, name := range order {
		if _, ok := clients[name]; ok {
			surviving = append(surviving, name)
		}
	}

	overrides := make(map[string]CapabilityMode, len(DefaultCapabilityOverrides))
	for k, v := range DefaultCapabilityOverrides {
		overrides[k] = v
	}

	return &DownloadHelper{
		Logger:    l,
		Overrides: overrides,
		providers: surviving,
		clients:   clients,
	}, initErr
}

// Providers returns the surviving provider names in configured order.
func (d *DownloadHelper) Providers() []string {
	return append([]string(nil), d.providers...)
}

// DownloadOptions bundles the per-run parameters of spec.md §4.4's
// download(...) signature beyond Restrictions/Domain.
type DownloadOptions struct {
	WaveformStorage  WaveformResolver
	MetadataStorage  MetadataResolver
	ChunkSizeMB      float64
	ThreadsPerClient int
	MetadataThreads  int
	FS               FileDeleter
	Inspector        WaveformInspector
	ParseMetadata    func(path string) ([]MetadataCoverage, error)
	FetchMetadata    func(network, station string, ids []ChannelID, start, end time.Time, path string) ([]MetadataCoverage, error)
	Handlers         *Handlers
}

// Download runs spec.md §4.4's per-provider sequence across every
// surviving provider, strictly in order, maintaining already_acquired and
// discarded sets between providers (spec.md §4.4 steps 3-7, including the
// restored distance filter of step 4 — see distance.go).
func (d *DownloadHelper) Download(ctx context.Context, domain Domain, restrictions Restrictions, opts DownloadOptions) (*Report, error) {
	if err := restrictions.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}

	alreadyAcquired := map[StationID]struct{}{}
	discarded := map[StationID]struct{}{}
	var acceptedPoints []stationPoint

	if opts.Handlers != nil {
		opts.Handlers.setDefaults()
	}

	for _, name := range d.providers {
		if opts.Handlers != nil {
			opts.Handlers.ProviderStart(name)
		}

		helper := NewClientDownloadHelper(d.clients[name], name, restrictions, domain, opts.WaveformStorage, opts.MetadataStorage, opts.FS, opts.Inspector, d.Logger)
		helper.Overrides = d.Overrides

		if err := helper.GetAvailability(); err != nil {
			d.Logger.Error("Client '%s' - %s", name, err.Error())
			continue
		}
		if helper.Len() == 0 {
			continue
		}

		excluded := map[StationID]struct{}{}
		for id := range alreadyAcquired {
			excluded[id] = struct{}{}
		}
		for id := range discarded {
			excluded[id] = struct{}{}
		}
		helper.DiscardStations(excluded)

		candidates := helper.StationPoints()
		_, rejectedPts := FilterByInterstationDistance(acceptedPoints, candidates, restrictions.MinInterstationDistanceM)
		rejectedIDs := map[StationID]struct{}{}
		for _, p := range rejectedPts {
			rejectedIDs[p.ID] = struct{}{}
			discarded[p.ID] = struct{}{}
			if opts.Handlers != nil {
				opts.Handlers.StationDiscarded(name, p.ID, "minimum_interstation_distance")
			}
		}
		helper.DiscardStations(rejectedIDs)

		if err := helper.PrepareWaveformDownload(); err != nil {
			d.Logger.Error("Client '%s' - %s", name, err.Error())
			continue
		}

		downloaded, discardedBytes, err := helper.DownloadWaveforms(ctx, opts.ChunkSizeMB, opts.ThreadsPerClient, opts.Handlers)
		if err != nil {
			d.Logger.Error("Client '%s' - %s", name, err.Error())
			continue
		}

		if err := helper.PrepareMetadataDownload(opts.ParseMetadata); err != nil {
			d.Logger.Error("Client '%s' - %s", name, err.Error())
		} else if opts.FetchMetadata != nil {
			_ = helper.DownloadMetadata(ctx, opts.MetadataThreads, func(network, station string, ids []ChannelID, start, end time.Time, path string) ([]MetadataCoverage, error) {
				return opts.FetchMetadata(network, station, ids, start, end, path)
			})
		}

		helper.SanitizeDownloads()

		report.Providers = append(report.Providers, ProviderReport{
			Provider:        name,
			Stations:        BuildStationReport(helper),
			DownloadedBytes: downloaded,
			DiscardedBytes:  discardedBytes,
		})

		for id, sta := range helper.Stations {
			hasData := false
			for _, ch := range sta.Channels {
				if ch.WantsMetadata() {
					hasData = true
					break
				}
			}
			if hasData && len(sta.HaveMetadata) > 0 {
				alreadyAcquired[id] = struct{}{}
				acceptedPoints = append(acceptedPoints, stationPoint{ID: id, Latitude: sta.Latitude, Longitude: sta.Longitude})
			}
		}

		if opts.Handlers != nil {
			opts.Handlers.ProviderDone(name, helper.Len())
		}
	}

	return report, nil
}
