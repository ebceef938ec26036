package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stage names one step of the chat pipeline.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageNormalize Stage = "normalize"
	StageClassify  Stage = "classify"
	StagePrompt    Stage = "prompt"
	StageComplete  Stage = "complete"
	StageLocalize  Stage = "localize"
	StagePersist   Stage = "persist"
	StageRespond   Stage = "respond"
)

// Outcome 描述某个阶段的执行结果。
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
)

// Event is emitted once per pipeline stage.
type Event struct {
	RequestID string
	Entry     string
	Stage     Stage
	Outcome   Outcome
	Detail    string
	Err       error
	Elapsed   time.Duration
}

// Observer receives pipeline events. Implementations must be safe for
// concurrent use.
type Observer interface {
	Observe(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Observe(context.Context, Event) {}

// SlogObserver writes events as structured log records.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns an observer bound to logger, or slog.Default() when nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger.With("component", "pipeline")}
}

func (o *SlogObserver) Observe(ctx context.Context, event Event) {
	level := slog.LevelDebug
	switch event.Outcome {
	case OutcomeDegraded, OutcomeRejected:
		level = slog.LevelWarn
	case OutcomeFailed:
		level = slog.LevelError
	}
	if event.Stage == StageRespond && event.Outcome == OutcomeOK {
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{
		slog.String("request_id", event.RequestID),
		slog.String("entry", event.Entry),
		slog.String("stage", string(event.Stage)),
		slog.String("outcome", string(event.Outcome)),
		slog.Duration("elapsed", event.Elapsed),
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	o.logger.LogAttrs(ctx, level, "pipeline stage", attrs...)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(_ context.Context, event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Find returns the first event recorded for stage.
func (r *Recorder) Find(stage Stage) (Event, bool) {
	for _, ev := range r.Events() {
		if ev.Stage == stage {
			return ev, true
		}
	}
	return Event{}, false
}
