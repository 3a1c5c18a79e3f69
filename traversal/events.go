package traversal

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a traversal progress event.
type EventType string

const (
	EventInit           EventType = "init"
	EventStepStarted    EventType = "step_started"
	EventStepCompleted  EventType = "step_completed"
	EventStepError      EventType = "step_error"
	EventOptionSelected EventType = "option_selected"
	EventFormFilled     EventType = "form_filled"
	EventBlocked        EventType = "blocked"
	EventCompleted      EventType = "completed"
)

// Event is a progress notification emitted while a run is in flight.
type Event struct {
	Type         EventType `json:"type"`
	EvaluationID uuid.UUID `json:"evaluation_id"`
	StepNumber   int       `json:"step_number,omitempty"`
	URL          string    `json:"url,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventSink receives progress events. Implementations must not block: the
// engine publishes from the traversal hot path.
type EventSink interface {
	Publish(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// ChannelSink forwards events to a channel, dropping when the receiver is
// not keeping up.
type ChannelSink struct {
	C chan Event
}

// NewChannelSink creates a sink buffered to the given size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(event Event) {
	select {
	case s.C <- event:
	default:
	}
}

// CaptureSink records every event; used in tests.
type CaptureSink struct {
	events []Event
}

func (s *CaptureSink) Publish(event Event) {
	s.events = append(s.events, event)
}

// Events returns the recorded events in publish order.
func (s *CaptureSink) Events() []Event {
	return s.events
}

// ByType filters recorded events.
func (s *CaptureSink) ByType(t EventType) []Event {
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
