package seismic

import "time"

// DefaultChannelPriorities matches the original's default
// channel_priorities tuple.
var DefaultChannelPriorities = []string{"HH[ZNE]", "BH[ZNE]", "MH[ZNE]", "EH[ZNE]", "LH[ZNE]"}

// DefaultLocationPriorities matches the original's default
// location_priorities tuple.
var DefaultLocationPriorities = []string{"", "00", "10"}

// Restrictions is the configuration object of spec.md §3/§4.1: the
// non-domain-related query restrictions plus the minimum-length/gap QC
// policy and the dedup/priority knobs.
//
// Invariant: StartTime < EndTime; priority lists are honored only when the
// corresponding literal filter is absent (see isLiteralFilter).
type Restrictions struct {
	StartTime time.Time
	EndTime   time.Time

	// ChunkLength is zero when chunking is disabled (one interval covers
	// the whole [StartTime, EndTime) window).
	ChunkLength time.Duration

	Network  string
	Station  string
	Location string
	Channel  string

	RejectChannelsWithGaps bool
	MinimumLength          float64 // in [0, 1]

	MinInterstationDistanceM float64

	ChannelPriorities  []string
	LocationPriorities []string

	// KeepUnknownAvailability resolves spec.md §9's first Open Question:
	// when includeavailability is advertised but a channel comes back
	// without a data_availability sub-element, the original drops the
	// channel. This specification keeps that default (false) but makes it
	// explicit and configurable, per the spec's own note that the policy
	// "should" be made so.
	KeepUnknownAvailability bool
}

// NewDefaultRestrictions returns a Restrictions with the original's
// documented defaults (chunklength unset, reject_channels_with_gaps=true,
// minimum_length=0.9, minimum_interstation_distance_in_m=1000, and the
// default channel/location priority lists), confirmed against
// Restrictions.__init__ in download_helpers.py.
func NewDefaultRestrictions(start, end time.Time) Restrictions {
	return Restrictions{
		StartTime:                start,
		EndTime:                  end,
		RejectChannelsWithGaps:   true,
		MinimumLength:            0.9,
		MinInterstationDistanceM: 1000,
		ChannelPriorities:        append([]string(nil), DefaultChannelPriorities...),
		LocationPriorities:       append([]string(nil), DefaultLocationPriorities...),
	}
}

// Validate returns ErrInvalidConfiguration-wrapped errors for the two
// synchronous checks spec.md §7 names: endtime <= starttime, and
// minimum_length outside [0, 1].
func (r Restrictions) Validate() error {
	if !r.StartTime.Before(r.EndTime) {
		return newError(KindInvalidConfiguration, "", ErrInvalidConfiguration)
	}
	if r.MinimumLength < 0 || r.MinimumLength > 1 {
		return newError(KindInvalidConfiguration, "", ErrInvalidConfiguration)
	}
	return nil
}

// Equal compares every field, matching the original's
// `__eq__`/`self.__dict__ == other.__dict__`.
func (r Restrictions) Equal(other Restrictions) bool {
	if !r.StartTime.Equal(other.StartTime) || !r.EndTime.Equal(other.EndTime) {
		return false
	}
	if r.ChunkLength != other.ChunkLength {
		return false
	}
	if r.Network != other.Network || r.Station != other.Station ||
		r.Location != other.Location || r.Channel != other.Channel {
		return false
	}
	if r.RejectChannelsWithGaps != other.RejectChannelsWithGaps ||
		r.MinimumLength != other.MinimumLength ||
		r.MinInterstationDistanceM != other.MinInterstationDistanceM ||
		r.KeepUnknownAvailability != other.KeepUnknownAvailability {
		return false
	}
	return stringSliceEqual(r.ChannelPriorities, other.ChannelPriorities) &&
		stringSliceEqual(r.LocationPriorities, other.LocationPriorities)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Chunks returns a fresh, restartable sequence of (start, end) sub-
// intervals, per spec.md §4.1 and spec.md §9's "Iterator-as-restartable-
// sequence" note: a function returning a fresh generator on every call,
// never a stateful object. When ChunkLength is zero, the sequence yields
// exactly one pair (StartTime, EndTime). Otherwise it yields
// (t, min(t+ChunkLength, EndTime)) starting at t=StartTime, advancing
// t += ChunkLength, stopping once t >= EndTime — confirmed verbatim
// against Restrictions.__iter__ in the original download_helpers.py.
func (r Restrictions) Chunks() func(yield func(start, end time.Time) bool) {
	return func(yield func(start, end time.Time) bool) {
		if r.ChunkLength <= 0 {
			yield(r.StartTime, r.EndTime)
			return
		}
		t := r.StartTime
		for t.Before(r.EndTime) {
			next := t.Add(r.ChunkLength)
			end := next
			if end.After(r.EndTime) {
				end = r.EndTime
			}
			if !yield(t, end) {
				return
			}
			t = next
		}
	}
}
