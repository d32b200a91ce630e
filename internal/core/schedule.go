package core

import (
	"time"

	"github.com/scaproust-go/scaproust/agent/times"
	"github.com/scaproust-go/scaproust/protocol"
)

// scheduleEntry is a still-armed or just-fired timer. Only the dispatcher
// goroutine ever reads or writes a Scheduler's entries map: the goroutine
// backing a timer never touches it directly, it only pushes a signal onto
// the bus naming the ScheduledID, so there is no lock to take here.
type scheduleEntry struct {
	task func()
	stop chan struct{}
}

// Scheduler hands out ScheduledIDs backing Context.Schedule/Cancel. A fired
// timer does not run its task inline — it enqueues a Timer signal, so the
// task still only ever executes on the dispatcher goroutine, preserving
// spec.md §3's single-threaded-protocol-execution invariant even though the
// timer itself fires from a separate goroutine. Timing is read through a
// times.Clock rather than the time package directly, so a test can swap in
// times.NewMockedClock and drive REQ resend / SURVEYOR deadline firing
// deterministically instead of sleeping real wall-clock delays.
type Scheduler struct {
	next    uint32
	entries map[protocol.ScheduledID]*scheduleEntry
	bus     *SignalBus
	clock   times.Clock
}

// NewScheduler returns a Scheduler that posts fired timers onto bus, timed
// by the real clock.
func NewScheduler(bus *SignalBus) *Scheduler {
	return NewSchedulerWithClock(bus, times.DefaultClock)
}

// NewSchedulerWithClock is NewScheduler with an injectable time source.
func NewSchedulerWithClock(bus *SignalBus, clock times.Clock) *Scheduler {
	return &Scheduler{next: 1, entries: make(map[protocol.ScheduledID]*scheduleEntry), bus: bus, clock: clock}
}

// Schedule arms a timer that, after delay, enqueues a signal which the
// dispatcher resolves back to task.
func (s *Scheduler) Schedule(task func(), delay time.Duration) protocol.ScheduledID {
	id := protocol.ScheduledID(s.next)
	s.next++
	entry := &scheduleEntry{task: task, stop: make(chan struct{})}
	go func() {
		select {
		case <-s.clock.After(delay):
			s.bus.Push(Signal{Kind: SignalTimer, Scheduled: id})
		case <-entry.stop:
		}
	}()
	s.entries[id] = entry
	return id
}

// Cancel stops id's timer and forgets it. Canceling an id whose timer has
// already fired — whether or not its signal has been dispatched yet — is a
// harmless no-op: if the signal is still in flight, Resolve's lookup will
// simply miss.
func (s *Scheduler) Cancel(id protocol.ScheduledID) {
	entry, ok := s.entries[id]
	if !ok {
		return
	}
	close(entry.stop)
	delete(s.entries, id)
}

// Resolve looks up and forgets id's task, running it if still armed. Called
// by the dispatcher when it pops a Timer signal.
func (s *Scheduler) Resolve(id protocol.ScheduledID) {
	entry, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	entry.task()
}

// Close stops every still-armed timer, e.g. on dispatcher shutdown.
func (s *Scheduler) Close() {
	for id, entry := range s.entries {
		close(entry.stop)
		delete(s.entries, id)
	}
}
