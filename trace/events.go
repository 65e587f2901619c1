package trace

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the type of a trace event.
type Kind string

const (
	// KindStart marks an agent beginning its work.
	KindStart Kind = "agent_start"
	// KindProgress reports intermediate agent progress.
	KindProgress Kind = "agent_progress"
	// KindResult reports an agent's final outcome.
	KindResult Kind = "agent_result"
	// KindError reports an agent failure. The failing source abstains; the
	// pipeline itself continues.
	KindError Kind = "agent_error"
	// KindToken carries one token of the streamed answer.
	KindToken Kind = "stream_token"
	// KindStreamEnd marks the clean end of the answer stream.
	KindStreamEnd Kind = "stream_end"
	// KindPlanStep records an orchestrator routing decision.
	KindPlanStep Kind = "plan_step"
)

// Event is one entry in a query's trace. The concrete type is one of the
// closed set of variants below; consumers switch on Kind for exhaustive
// handling.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Start marks an agent beginning its work.
type Start struct {
	Agent string    `json:"agent"`
	Note  string    `json:"message"`
	At    time.Time `json:"timestamp"`
}

func (e Start) Kind() Kind           { return KindStart }
func (e Start) Timestamp() time.Time { return e.At }

// Progress reports intermediate agent progress.
type Progress struct {
	Agent string    `json:"agent"`
	Note  string    `json:"message"`
	URLs  []string  `json:"urls,omitempty"`
	At    time.Time `json:"timestamp"`
}

func (e Progress) Kind() Kind           { return KindProgress }
func (e Progress) Timestamp() time.Time { return e.At }

// Result reports an agent's outcome. Only the fields relevant to the
// emitting agent are populated.
type Result struct {
	Agent          string    `json:"agent"`
	Note           string    `json:"message"`
	Count          int       `json:"count,omitempty"`
	GoodCount      int       `json:"good_count,omitempty"`
	BestDistance   float64   `json:"best_distance,omitempty"`
	Sufficient     bool      `json:"sufficient,omitempty"`
	Confident      bool      `json:"confident,omitempty"`
	Stored         int       `json:"stored,omitempty"`
	ResponseLength int       `json:"response_length,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
	Cached         bool      `json:"cached,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
	At             time.Time `json:"timestamp"`
}

func (e Result) Kind() Kind           { return KindResult }
func (e Result) Timestamp() time.Time { return e.At }

// Error reports an agent failure.
type Error struct {
	Agent string    `json:"agent"`
	Note  string    `json:"message"`
	At    time.Time `json:"timestamp"`
}

func (e Error) Kind() Kind           { return KindError }
func (e Error) Timestamp() time.Time { return e.At }

// Token carries one token of the streamed answer.
type Token struct {
	Text string    `json:"text"`
	At   time.Time `json:"timestamp"`
}

func (e Token) Kind() Kind           { return KindToken }
func (e Token) Timestamp() time.Time { return e.At }

// StreamEnd marks the clean end of the answer stream.
type StreamEnd struct {
	At time.Time `json:"timestamp"`
}

func (e StreamEnd) Kind() Kind           { return KindStreamEnd }
func (e StreamEnd) Timestamp() time.Time { return e.At }

// PlanStep records an orchestrator routing decision.
type PlanStep struct {
	Note   string    `json:"message"`
	Intent string    `json:"intent,omitempty"`
	At     time.Time `json:"timestamp"`
}

func (e PlanStep) Kind() Kind           { return KindPlanStep }
func (e PlanStep) Timestamp() time.Time { return e.At }

// envelope is the serialized form of a single event.
type envelope struct {
	Kind  Kind            `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// MarshalTrace serializes an ordered trace for persistence.
func MarshalTrace(events []Event) ([]byte, error) {
	envelopes := make([]envelope, len(events))
	for i, event := range events {
		raw, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("marshal trace event %d: %w", i, err)
		}
		envelopes[i] = envelope{Kind: event.Kind(), Event: raw}
	}
	return json.Marshal(envelopes)
}

// UnmarshalTrace deserializes a persisted trace back into typed events,
// for audit and replay.
func UnmarshalTrace(data []byte) ([]Event, error) {
	var envelopes []envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(envelopes))
	for i, env := range envelopes {
		event, err := decodeEvent(env)
		if err != nil {
			return nil, fmt.Errorf("decode trace event %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeEvent(env envelope) (Event, error) {
	switch env.Kind {
	case KindStart:
		var e Start
		return e, json.Unmarshal(env.Event, &e)
	case KindProgress:
		var e Progress
		return e, json.Unmarshal(env.Event, &e)
	case KindResult:
		var e Result
		return e, json.Unmarshal(env.Event, &e)
	case KindError:
		var e Error
		return e, json.Unmarshal(env.Event, &e)
	case KindToken:
		var e Token
		return e, json.Unmarshal(env.Event, &e)
	case KindStreamEnd:
		var e StreamEnd
		return e, json.Unmarshal(env.Event, &e)
	case KindPlanStep:
		var e PlanStep
		return e, json.Unmarshal(env.Event, &e)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, env.Kind)
	}
}
