package seismic

import "time"

// ChannelID identifies a (location, channel) pair within a station, used
// as the key for Station's want/have/miss metadata maps.
type ChannelID struct {
	Location string
	Channel  string
}

// Channel groups one (location, channel) pair together with its ordered
// TimeIntervals. Channel owns its intervals; there is no back-pointer to
// the owning Station (spec.md §9's "reference cycles" note: channels are
// owned by stations and never traverse back up).
type Channel struct {
	Location  string
	Channel   string
	Intervals []*TimeInterval
}

// ID returns the (location, channel) key for this channel.
func (c *Channel) ID() ChannelID {
	return ChannelID{Location: c.Location, Channel: c.Channel}
}

// TemporalBounds returns (min start, max end) across all intervals.
// Panics if Intervals is empty — callers only invoke this on channels
// built from a non-empty Restrictions chunk sequence.
func (c *Channel) TemporalBounds() (time.Time, time.Time) {
	start := c.Intervals[0].Start
	end := c.Intervals[0].End
	for _, iv := range c.Intervals[1:] {
		if iv.Start.Before(start) {
			start = iv.Start
		}
		if iv.End.After(end) {
			end = iv.End
		}
	}
	return start, end
}

// WantsMetadata reports whether at least one interval ended in a status
// that requires station metadata coverage (Downloaded or Exists).
func (c *Channel) WantsMetadata() bool {
	for _, iv := range c.Intervals {
		if iv.Status.HasData() {
			return true
		}
	}
	return false
}

// BandCode returns the first letter of the channel code, upper-cased, used
// to estimate a nominal sample rate for chunk sizing (see BandSampleRate).
func (c *Channel) BandCode() byte {
	if len(c.Channel) == 0 {
		return 0
	}
	b := c.Channel[0]
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	return b
}
