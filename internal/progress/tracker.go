// Package progress tracks the forward-only progress of research runs and
// fans every transition out to the configured sinks and live subscribers.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Step is a progress step.
type Step string

// Steps in the order a run passes through them.
const (
	StepDataGatheringStart         Step = "data_gathering_start"
	StepDataGatheringComplete      Step = "data_gathering_complete"
	StepAISynthesisStart           Step = "ai_synthesis_start"
	StepAISynthesisComplete        Step = "ai_synthesis_complete"
	StepQuestionGenerationStart    Step = "question_generation_start"
	StepQuestionGenerationComplete Step = "question_generation_complete"
	StepCompleted                  Step = "completed"
	StepFailed                     Step = "failed"
)

var rank = map[Step]int{
	StepDataGatheringStart:         1,
	StepDataGatheringComplete:      2,
	StepAISynthesisStart:           3,
	StepAISynthesisComplete:        4,
	StepQuestionGenerationStart:    5,
	StepQuestionGenerationComplete: 6,
	StepCompleted:                  7,
}

// IsTerminal reports whether no further transition is accepted.
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := rank[s]
	return ok || s == StepFailed
}

// ErrInvalidTransition is returned for a transition that does not move forward.
var ErrInvalidTransition = errors.New("invalid progress transition")

// Event is one recorded transition.
type Event struct {
	SearchID string    `json:"search_id"`
	Step     Step      `json:"step"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Sink persists transitions.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Tracker holds the last step of every run it has seen.
type Tracker struct {
	mu          sync.Mutex
	last        map[string]Step
	subscribers map[string]map[chan Event]struct{}
	sinks       []Sink
	now         func() time.Time
}

// NewTracker creates a Tracker writing to sinks.
func NewTracker(sinks ...Sink) *Tracker {
	return &Tracker{
		last:        map[string]Step{},
		subscribers: map[string]map[chan Event]struct{}{},
		sinks:       sinks,
		now:         time.Now,
	}
}

// Advance moves searchID to step. The step must be strictly later than the
// last one recorded; failed is only reachable through Fail. Sink errors are
// returned joined after the in-memory state has moved.
func (t *Tracker) Advance(ctx context.Context, searchID string, step Step) error {
	return t.transition(ctx, searchID, step, "")
}

// Fail moves searchID to failed from any non-terminal step.
func (t *Tracker) Fail(ctx context.Context, searchID, message string) error {
	return t.transition(ctx, searchID, StepFailed, message)
}

func (t *Tracker) transition(ctx context.Context, searchID string, step Step, message string) error {
	t.mu.Lock()
	last, seen := t.last[searchID]
	if err := checkTransition(last, seen, step); err != nil {
		t.mu.Unlock()
		return err
	}
	t.last[searchID] = step
	ev := Event{SearchID: searchID, Step: step, Message: message, At: t.now().UTC()}
	for ch := range t.subscribers[searchID] {
		select {
		case ch <- ev:
		default:
		}
	}
	t.mu.Unlock()

	var errs []error
	for _, s := range t.sinks {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("record %s: %w", step, errors.Join(errs...))
	}
	return nil
}

func checkTransition(last Step, seen bool, next Step) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, next)
	}
	if !seen {
		return nil
	}
	if last.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, last)
	}
	if next == StepFailed {
		return nil
	}
	if rank[next] <= rank[last] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, last, next)
	}
	return nil
}

// Current returns the last step recorded for searchID.
func (t *Tracker) Current(searchID string) (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.last[searchID]
	return s, ok
}

// Subscribe returns a channel receiving the future events of searchID and a
// function that unsubscribes. Slow readers miss events rather than block runs.
func (t *Tracker) Subscribe(searchID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	t.mu.Lock()
	if t.subscribers[searchID] == nil {
		t.subscribers[searchID] = map[chan Event]struct{}{}
	}
	t.subscribers[searchID][ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers[searchID], ch)
			if len(t.subscribers[searchID]) == 0 {
				delete(t.subscribers, searchID)
			}
			t.mu.Unlock()
		})
	}
}

// Forget drops the in-memory state of a finished run.
func (t *Tracker) Forget(searchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.last[searchID]; ok && s.IsTerminal() {
		delete(t.last, searchID)
	}
}
