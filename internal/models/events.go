package models

type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventDone     EventType = "done"
)

// Event is one step of a conversation turn as seen by a transport. Progress
// events carry display text, result events one annotation outcome.
type Event struct {
	Type   EventType         `json:"type"`
	Text   string            `json:"text,omitempty"`
	Result *AnnotationResult `json:"result,omitempty"`
}

// Emitter receives events in the order the work completes. Implementations
// must not block indefinitely.
type Emitter func(Event)

func (e Emitter) Progress(text string) {
	if e != nil {
		e(Event{Type: EventProgress, Text: text})
	}
}

func (e Emitter) Result(r AnnotationResult) {
	if e != nil {
		e(Event{Type: EventResult, Result: &r})
	}
}

func (e Emitter) Done() {
	if e != nil {
		e(Event{Type: EventDone})
	}
}
