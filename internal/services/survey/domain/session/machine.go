package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
)

const tracerName = "github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/session"

// ErrPhase is returned when an operation does not match the session phase.
var ErrPhase = apperrors.New(apperrors.CodeSessionPhaseMismatch, "session phase mismatch")

// Machine owns one session's state. All methods are safe for concurrent use;
// submissions are serialized.
type Machine struct {
	env            Environment
	now            func() time.Time
	tracer         trace.Tracer
	uploadTimeout  time.Duration
	persistTimeout time.Duration

	finalizeMu sync.Mutex
	report     *Report

	mu    sync.RWMutex
	state State
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Machine) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithTimeouts overrides the per-call bounds used by Finalize.
func WithTimeouts(upload, persist time.Duration) Option {
	return func(m *Machine) {
		if upload > 0 {
			m.uploadTimeout = upload
		}
		if persist > 0 {
			m.persistTimeout = persist
		}
	}
}

// NewMachine starts a session over def and items.
func NewMachine(def questionnaire.Definition, items []worklist.WorkItem, opts ...Option) *Machine {
	m := &Machine{
		env:            Environment{Definition: def, Worklist: slices.Clone(items)},
		now:            time.Now,
		tracer:         otel.Tracer(tracerName),
		uploadTimeout:  timeouts.AssetUpload,
		persistTimeout: timeouts.Persist,
		state:          NewState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SubmitIntake records the consent form. It fails with a
// *questionnaire.ValidationError and changes nothing when a field is missing.
func (m *Machine) SubmitIntake(intake Intake) error {
	return m.execute(Command{Type: CommandTypeSubmitIntake, Intake: intake})
}

// SubmitItem validates answers against the current item. On success the
// record is committed and the position advances; on failure only the
// retained answers change.
func (m *Machine) SubmitItem(answers questionnaire.Answers) error {
	return m.execute(Command{Type: CommandTypeSubmitItem, Answers: answers})
}

// State returns a snapshot of the session.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Definition returns the survey the session runs.
func (m *Machine) Definition() questionnaire.Definition {
	return m.env.Definition
}

func (m *Machine) execute(cmd Command) error {
	m.mu.Lock()
	decision := Decide(m.state, m.env, cmd, m.now)
	if len(decision.Events) > 0 {
		next := m.state.clone()
		for _, evt := range decision.Events {
			next = Fold(next, evt)
		}
		m.state = next
	}
	m.mu.Unlock()
	return rejectionError(decision.Rejections)
}

func rejectionError(rejections []Rejection) error {
	if len(rejections) == 0 {
		return nil
	}
	r := rejections[0]
	switch r.Code {
	case rejectionCodeValidation:
		return &questionnaire.ValidationError{Missing: r.Missing, Invalid: r.Invalid}
	case rejectionCodePhaseMismatch:
		return fmt.Errorf("%w: %s", ErrPhase, r.Message)
	case rejectionCodeDataUnavailable:
		return fmt.Errorf("%w: %s", worklist.ErrDataUnavailable, r.Message)
	default:
		return fmt.Errorf("session command rejected: %s: %s", r.Code, r.Message)
	}
}
