package device

import "time"

// Event marks a point in a stream's execution. It is recorded when the
// stream reaches it, not when RecordEvent is called.
type Event struct {
	at       time.Time
	recorded bool
}

// RecordEvent queues an event on the stream.
func (s *Stream) RecordEvent() *Event {
	ev := &Event{}
	s.Submit(func() {
		ev.at = time.Now()
		ev.recorded = true
	})
	return ev
}

// ElapsedTime returns the time between two recorded events. Both events
// must have completed, which Synchronize guarantees.
func ElapsedTime(start, end *Event) (time.Duration, error) {
	if start == nil || end == nil || !start.recorded || !end.recorded {
		return 0, ErrEventNotReady
	}
	return end.at.Sub(start.at), nil
}
