// Package scheduler drives recurring and one-shot orchestrator runs
// (spec.md §11.3: scheduled Download invocations) from an in-memory min-heap,
// active-object style: a single goroutine owns the heap and is only ever
// touched through its channels.
package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// overlapRetryInterval is how soon a due occurrence is retried when the
// previous invocation of the same run is still in flight. A var, not a
// const, so tests can shrink it instead of sleeping out a real-world delay.
var overlapRetryInterval = 30 * time.Second

// Scheduler manages scheduled run events using a min-heap.
// It runs a background goroutine that sleeps until the next event's
// trigger time, then calls the onTrigger callback with the run name.
//
// Unlike a one-shot file download, a federated multi-provider Download
// invocation can run far longer than its own cron interval (a provider
// can be slow or a full resync can simply take hours). Firing onTrigger
// again for a run name whose previous invocation hasn't reported back via
// Done would pile up overlapping Download calls against the same output
// directory and history record, so the scheduler tracks in-flight run
// names and defers a due occurrence instead of firing it again.
type Scheduler struct {
	addChan    chan ScheduleEvent
	removeChan chan string
	doneChan   chan string
	ctx        context.Context
}

// New creates and starts a new Scheduler.
// The onTrigger callback is invoked when a scheduled event fires.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(string)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan ScheduleEvent, 64),
		removeChan: make(chan string, 64),
		doneChan:   make(chan string, 64),
		ctx:        ctx,
	}
	go s.run(onTrigger)
	return s
}

// Add enqueues a new schedule event.
func (s *Scheduler) Add(event ScheduleEvent) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove cancels a scheduled event by run name.
func (s *Scheduler) Remove(runName string) {
	select {
	case s.removeChan <- runName:
	case <-s.ctx.Done():
	}
}

// Done marks runName's most recently triggered invocation as finished,
// letting the scheduler fire its next due occurrence (if any) instead of
// treating it as still in flight. Callers invoke this once the work
// launched by onTrigger actually completes, which may be long after
// onTrigger itself returned.
func (s *Scheduler) Done(runName string) {
	select {
	case s.doneChan <- runName:
	case <-s.ctx.Done():
	}
}

// run is the core scheduler goroutine. It maintains a min-heap of events
// and sleeps with a 60s max-sleep-cap. For recurring events (CronExpr !=
// ""), after firing it computes the next occurrence and re-adds it to the
// heap automatically.
func (s *Scheduler) run(onTrigger func(string)) {
	h := &scheduleHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No events — block indefinitely on channels
			return nil
		}
		next := (*h)[0].TriggerAt
		dur := time.Until(next)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()
	inFlight := map[string]bool{}

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapPush(h, event)
			timerCh = resetTimer()

		case name := <-s.removeChan:
			heapRemoveByName(h, name)
			timerCh = resetTimer()

		case name := <-s.doneChan:
			delete(inFlight, name)

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				event := heapPop(h)

				if inFlight[event.RunName] {
					// Previous firing hasn't reported Done yet; defer this
					// occurrence instead of starting an overlapping run.
					heapPush(h, ScheduleEvent{
						RunName:   event.RunName,
						TriggerAt: now.Add(overlapRetryInterval),
						CronExpr:  event.CronExpr,
					})
					continue
				}

				inFlight[event.RunName] = true
				onTrigger(event.RunName)
				if event.CronExpr != "" {
					next, err := nextCronOccurrence(event.CronExpr, time.Now())
					if err == nil {
						heapPush(h, ScheduleEvent{
							RunName:   event.RunName,
							TriggerAt: next,
							CronExpr:  event.CronExpr,
						})
					}
				}
			}
			timerCh = resetTimer()
		}
	}
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// hasOccurrenceWithinYear checks if a cron expression has any occurrence
// within 1 year from the given time. Returns false for invalid expressions
// or if no occurrence exists within the 1-year window.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}

// LoadSchedules scans configured runs at daemon startup to detect missed
// schedules and identify future scheduled events to add to the scheduler
// heap.
//
// Runs with State=RunStateScheduled and ScheduledAt before now are marked
// RunStateMissed and returned in missed for immediate enqueueing. Runs with
// State=RunStateScheduled and ScheduledAt after now are returned in future
// as ScheduleEvents ready to push into the heap. Runs without ScheduledAt
// set or with other states are skipped.
//
// For missed recurring runs (CronExpr != ""), the next cron occurrence is
// computed and added to future so the recurring schedule continues.
func LoadSchedules(runs []*RunConfig, now time.Time) (missed []*RunConfig, future []ScheduleEvent) {
	for _, run := range runs {
		if run.State != RunStateScheduled {
			continue
		}
		if run.ScheduledAt.IsZero() {
			continue
		}
		if run.ScheduledAt.Before(now) {
			run.State = RunStateMissed
			missed = append(missed, run)
			if run.CronExpr != "" {
				next, err := nextCronOccurrence(run.CronExpr, now)
				if err == nil {
					future = append(future, ScheduleEvent{
						RunName:   run.Name,
						TriggerAt: next,
						CronExpr:  run.CronExpr,
					})
				}
			}
		} else {
			future = append(future, ScheduleEvent{
				RunName:   run.Name,
				TriggerAt: run.ScheduledAt,
				CronExpr:  run.CronExpr,
			})
		}
	}
	return missed, future
}
