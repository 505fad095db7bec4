package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event names emitted by the governance engine.
const (
	PrivilegeDriftDetected = "privilege_drift.detected"
	OverprivilegedDetected = "overprivileged_account.detected"
	AccessReviewCompleted  = "access_review.completed"
	DepartmentHighRisk     = "department.high_risk"
)

// Sink receives engine events. Delivery is fire-and-forget: emitters never
// treat a sink failure as their own failure. Each component receives its
// sink at construction so tests can substitute a recording sink.
type Sink interface {
	Emit(ctx context.Context, name string, payload map[string]any)
}

type logSink struct{}

func NewLogSink() Sink {
	return logSink{}
}

func (logSink) Emit(_ context.Context, name string, payload map[string]any) {
	slog.Info("event emitted", "event", name, "payload", payload)
}

// Recorded is one captured emission.
type Recorded struct {
	Name    string
	Payload map[string]any
}

// Recorder is a Sink that captures emissions for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, name string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Name: name, Payload: payload})
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Named(name string) []Recorded {
	var out []Recorded
	for _, evt := range r.Events() {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}
