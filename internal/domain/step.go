package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Step Identifiers
// ============================================================================

// StepID identifies one screen of the KYC onboarding wizard
type StepID string

const (
	StepSignin          StepID = "signin"
	StepPersonalDetails StepID = "personal-details"
	StepNomineePOA      StepID = "nominee-poa"
	StepBank            StepID = "bank"
	StepExchange        StepID = "exchange"
	StepCompletion      StepID = "completion"
)

// DefaultKYCSteps returns the production onboarding order
func DefaultKYCSteps() []StepID {
	return []StepID{
		StepSignin,
		StepPersonalDetails,
		StepNomineePOA,
		StepBank,
		StepExchange,
		StepCompletion,
	}
}

// ============================================================================
// Step Status
// ============================================================================

type StepStatus string

const (
	StatusNotStarted StepStatus = "not_started"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
	StatusCancelled  StepStatus = "cancelled"
)

// ValidStepStatuses returns all valid step statuses
func ValidStepStatuses() []StepStatus {
	return []StepStatus{StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled}
}

// IsValid checks if the status is one of the known values
func (s StepStatus) IsValid() bool {
	for _, valid := range ValidStepStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// stepTransitions lists every allowed (from -> to) pair for client-driven updates.
//
//	not_started ──► in_progress ──► completed
//	     ▲               ├────────► failed ────┐
//	     │               └────────► cancelled ─┤
//	     └─────────────────────────────────────┘
var stepTransitions = map[StepStatus][]StepStatus{
	StatusNotStarted: {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusNotStarted},
	StatusCancelled:  {StatusNotStarted},
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-applying the current status is always allowed.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ============================================================================
// Step Sequence
// ============================================================================

var (
	ErrUnknownStep       = errors.New("unknown onboarding step")
	ErrUnknownStatus     = errors.New("unknown step status")
	ErrInvalidTransition = errors.New("invalid step status transition")
	ErrStepNotAccessible = errors.New("onboarding step is not accessible")
	ErrStepDataNotFound  = errors.New("step data not found")
	ErrSessionMismatch   = errors.New("verification session mismatch")
	ErrEmptySequence     = errors.New("step sequence must not be empty")
)

// StepSequence is the fixed, ordered list of wizard steps.
type StepSequence struct {
	steps []StepID
	index map[StepID]int
}

// NewStepSequence builds a sequence, rejecting empty, duplicate or key-unsafe entries.
func NewStepSequence(steps ...StepID) (StepSequence, error) {
	if len(steps) == 0 {
		return StepSequence{}, ErrEmptySequence
	}

	index := make(map[StepID]int, len(steps))
	for i, step := range steps {
		if strings.TrimSpace(string(step)) == "" {
			return StepSequence{}, fmt.Errorf("step at position %d is blank", i)
		}
		// ':' separates storage key segments and '/' path segments on disk
		if strings.ContainsAny(string(step), ":/") {
			return StepSequence{}, fmt.Errorf("step %q must not contain ':' or '/'", step)
		}
		if _, dup := index[step]; dup {
			return StepSequence{}, fmt.Errorf("duplicate step %q in sequence", step)
		}
		index[step] = i
	}

	return StepSequence{
		steps: append([]StepID(nil), steps...),
		index: index,
	}, nil
}

// MustStepSequence is NewStepSequence for static sequences
func MustStepSequence(steps ...StepID) StepSequence {
	seq, err := NewStepSequence(steps...)
	if err != nil {
		panic(err)
	}
	return seq
}

// ParseStepSequence reads a comma separated list such as "signin,bank,completion"
func ParseStepSequence(raw string) (StepSequence, error) {
	var steps []StepID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		steps = append(steps, StepID(part))
	}
	return NewStepSequence(steps...)
}

// DefaultStepSequence returns the sequence of DefaultKYCSteps
func DefaultStepSequence() StepSequence {
	return MustStepSequence(DefaultKYCSteps()...)
}

func (s StepSequence) Steps() []StepID {
	return append([]StepID(nil), s.steps...)
}

func (s StepSequence) Len() int { return len(s.steps) }

func (s StepSequence) First() StepID { return s.steps[0] }

func (s StepSequence) Last() StepID { return s.steps[len(s.steps)-1] }

func (s StepSequence) Contains(step StepID) bool {
	_, ok := s.index[step]
	return ok
}

// IndexOf returns the position of step, or -1 when it is not part of the sequence
func (s StepSequence) IndexOf(step StepID) int {
	if i, ok := s.index[step]; ok {
		return i
	}
	return -1
}

// Next returns the step immediately after step.
// The boolean is false for the last step and for unknown steps.
func (s StepSequence) Next(step StepID) (StepID, bool) {
	i := s.IndexOf(step)
	if i < 0 || i == len(s.steps)-1 {
		return "", false
	}
	return s.steps[i+1], true
}

// Before returns the steps strictly before step
func (s StepSequence) Before(step StepID) []StepID {
	i := s.IndexOf(step)
	if i <= 0 {
		return nil
	}
	return append([]StepID(nil), s.steps[:i]...)
}
