// Package scheduler fires named orchestrator runs at their scheduled times.
// It implements a single-goroutine scheduler using a min-heap of ScheduleEvents
// sorted by trigger time, with a 60-second max-sleep-cap to handle NTP steps,
// DST transitions, and system sleep (macOS monotonic clock pause).
//
// The scheduler is a daemon-level component that fires events and calls the
// onTrigger callback given to New with the run name; cmd/seismicd's serve
// command uses it to start a Download. It does not persist state.
// LoadSchedules builds ScheduleEvents from RunConfig values, but the serve
// command does not call it, so the heap starts empty on every daemon start.
package scheduler
