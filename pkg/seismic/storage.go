package seismic

import (
	"strings"
	"time"
)

// WaveformResolver resolves a single channel-interval to a local path, or
// signals that the interval should be ignored. It models spec.md §9's
// tagged variant `{Template(string) | Callback(fn)}` as a small interface
// with two implementations, matching the teacher's preference for small
// interfaces with few concrete implementations (e.g. ProtocolDownloader).
type WaveformResolver interface {
	// Resolve returns the planned path for the interval, or ok=false if
	// the interval should be ignored (status Ignore). The resolver is
	// responsible for ensuring the parent directory of any returned path
	// exists before returning.
	Resolve(network, station, location, channel string, start, end time.Time) (path string, ok bool, err error)
}

// MetadataResolver resolves a station's full metadata request to a local
// path (the simple case) or a directive (reserved, unsupported — see
// ErrMetadataDirectiveUnsupported). The parent directory of any returned
// path must exist after Resolve returns.
type MetadataResolver interface {
	Resolve(network, station string, ids []ChannelID, start, end time.Time) (path string, directive any, err error)
}

func substitute(tmpl, network, station, location, channel string, start, end time.Time) string {
	r := strings.NewReplacer(
		"{network}", network,
		"{station}", station,
		"{location}", location,
		"{channel}", channel,
		"{starttime}", start.UTC().Format(time.RFC3339),
		"{endtime}", end.UTC().Format(time.RFC3339),
	)
	return r.Replace(tmpl)
}

// TemplateWaveformResolver implements WaveformResolver from a literal
// template string with placeholders {network} {station} {location}
// {channel} {starttime} {endtime}.
type TemplateWaveformResolver struct {
	Template  string
	EnsureDir func(path string) error
}

func (t *TemplateWaveformResolver) Resolve(network, station, location, channel string, start, end time.Time) (string, bool, error) {
	path := substitute(t.Template, network, station, location, channel, start, end)
	if t.EnsureDir != nil {
		if err := t.EnsureDir(path); err != nil {
			return "", false, err
		}
	}
	return path, true, nil
}

// TemplateMetadataResolver implements MetadataResolver from a literal
// template keyed on network/station/temporal bounds; {location} and
// {channel} placeholders, if present, are substituted with the empty
// string since one metadata file covers every channel of a station.
type TemplateMetadataResolver struct {
	Template  string
	EnsureDir func(path string) error
}

func (t *TemplateMetadataResolver) Resolve(network, station string, ids []ChannelID, start, end time.Time) (string, any, error) {
	path := substitute(t.Template, network, station, "", "", start, end)
	if t.EnsureDir != nil {
		if err := t.EnsureDir(path); err != nil {
			return "", nil, err
		}
	}
	return path, nil, nil
}

// CallbackWaveformResolver implements WaveformResolver by delegating to an
// arbitrary function, modeling the "callable" half of spec.md §9's tagged
// variant.
type CallbackWaveformResolver func(network, station, location, channel string, start, end time.Time) (path string, ok bool, err error)

func (f CallbackWaveformResolver) Resolve(network, station, location, channel string, start, end time.Time) (string, bool, error) {
	return f(network, station, location, channel, start, end)
}

// CallbackMetadataResolver implements MetadataResolver by delegating to an
// arbitrary function.
type CallbackMetadataResolver func(network, station string, ids []ChannelID, start, end time.Time) (path string, directive any, err error)

func (f CallbackMetadataResolver) Resolve(network, station string, ids []ChannelID, start, end time.Time) (string, any, error) {
	return f(network, station, ids, start, end)
}

// FileDeleter abstracts filesystem deletion and inspection so QC/sanitize
// can be tested against an in-memory filesystem (afero.Fs-backed in
// tests) instead of real files.
type FileDeleter interface {
	Delete(path string) error
	Exists(path string) bool
	Size(path string) (int64, error)
}
