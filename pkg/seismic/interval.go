package seismic

import "time"

// TimeInterval is the leaf value of the data model: a half-open time span
// `[Start, End)`, its planned on-disk filename, and its current status.
//
// Invariant: Start < End. Once Status is Downloaded or Exists, the file at
// Filename must be readable and parseable by the waveform library.
type TimeInterval struct {
	Start    time.Time
	End      time.Time
	Filename string
	Status   Status
}

// NewTimeInterval builds an interval with status None, matching the status
// every interval starts in once instantiated by GetAvailability.
func NewTimeInterval(start, end time.Time) *TimeInterval {
	return &TimeInterval{Start: start, End: end, Status: StatusNone}
}

// Duration returns End - Start.
func (t *TimeInterval) Duration() time.Duration {
	return t.End.Sub(t.Start)
}
