package models

import "time"

// EventType discriminates the known kinds of persona memory event. Modeled
// as a tagged sum type (Design Note 9) rather than an arbitrary payload the
// core dispatches on at runtime.
type EventType string

const (
	EventQuestionAsked EventType = "question_asked"
	EventResponseGiven EventType = "response_given"
)

// EventPayload is the structured, schema-validated body of a PersonaEvent.
// Exactly one of the typed sub-fields is populated, selected by Kind.
type EventPayload struct {
	Kind     EventType        `json:"kind"`
	Question *QuestionPayload `json:"question,omitempty"`
	Response *ResponsePayload `json:"response,omitempty"`
}

// QuestionPayload backs EventQuestionAsked.
type QuestionPayload struct {
	FocusGroupID  string `json:"focus_group_id"`
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
}

// ResponsePayload backs EventResponseGiven.
type ResponsePayload struct {
	FocusGroupID  string `json:"focus_group_id"`
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	Response      string `json:"response"`
}

// RenderText produces the textual rendering embedded synchronously on append:
// question+response for response events, question alone otherwise.
func (p EventPayload) RenderText() string {
	switch p.Kind {
	case EventResponseGiven:
		if p.Response == nil {
			return ""
		}
		return p.Response.Question + "\n" + p.Response.Response
	case EventQuestionAsked:
		if p.Question == nil {
			return ""
		}
		return p.Question.Question
	default:
		return ""
	}
}

// PersonaEvent is one append-only row in a persona's memory log.
type PersonaEvent struct {
	ID             string       `json:"id"`
	PersonaID      string       `json:"persona_id"`
	FocusGroupID   string       `json:"focus_group_id,omitempty"`
	SequenceNumber int64        `json:"sequence_number"`
	EventType      EventType    `json:"event_type"`
	EventData      EventPayload `json:"event_data"`
	Embedding      []float64    `json:"embedding,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// HasEmbedding reports whether the event carries a non-null embedding and is
// therefore eligible for semantic scoring by the retriever.
func (e *PersonaEvent) HasEmbedding() bool {
	return len(e.Embedding) > 0
}
