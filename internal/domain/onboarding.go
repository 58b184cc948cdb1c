package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ============================================================================
// Onboarding State (persisted blob)
// ============================================================================

// OnboardingState is the persisted aggregate of the wizard.
// Field names match the blob the portal has always stored.
type OnboardingState struct {
	CurrentStep StepID                `json:"currentStep"`
	Steps       map[StepID]StepStatus `json:"steps"`
	SessionID   *string               `json:"sessionId,omitempty"`
	UpdatedAt   *time.Time            `json:"updatedAt,omitempty"`
}

// NewOnboardingState returns the state of a first visit
func NewOnboardingState(seq StepSequence) *OnboardingState {
	return &OnboardingState{
		CurrentStep: seq.First(),
		Steps:       make(map[StepID]StepStatus, seq.Len()),
	}
}

// StatusOf returns the status of step. Absent entries are not_started.
func (s *OnboardingState) StatusOf(step StepID) StepStatus {
	if status, ok := s.Steps[step]; ok && status != "" {
		return status
	}
	return StatusNotStarted
}

// Clone returns a deep copy
func (s *OnboardingState) Clone() *OnboardingState {
	out := &OnboardingState{
		CurrentStep: s.CurrentStep,
		Steps:       make(map[StepID]StepStatus, len(s.Steps)),
	}
	for k, v := range s.Steps {
		out.Steps[k] = v
	}
	if s.SessionID != nil {
		id := *s.SessionID
		out.SessionID = &id
	}
	if s.UpdatedAt != nil {
		at := *s.UpdatedAt
		out.UpdatedAt = &at
	}
	return out
}

// Normalize repairs a rehydrated state against seq: unknown steps and statuses
// are dropped and an unknown current step falls back to the first step.
func (s *OnboardingState) Normalize(seq StepSequence) {
	if s.Steps == nil {
		s.Steps = make(map[StepID]StepStatus, seq.Len())
	}
	for step, status := range s.Steps {
		if !seq.Contains(step) || !status.IsValid() {
			delete(s.Steps, step)
		}
	}
	if !seq.Contains(s.CurrentStep) {
		s.CurrentStep = seq.First()
	}
}

// ============================================================================
// Verification Outcome
// ============================================================================

// VerificationOutcome is the result reported by the identity-verification redirect
type VerificationOutcome string

const (
	OutcomeSuccess   VerificationOutcome = "success"
	OutcomeFailure   VerificationOutcome = "failure"
	OutcomeCancelled VerificationOutcome = "cancelled"
)

// ParseRedirectStatus maps the provider's `status` query value to an outcome.
// Anything other than success or cancel is a failure.
func ParseRedirectStatus(raw string) VerificationOutcome {
	switch raw {
	case "success":
		return OutcomeSuccess
	case "cancel", "cancelled":
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}

// VerificationRecord is stored as the step payload after a successful verification
type VerificationRecord struct {
	SessionID  string    `json:"session_id"`
	Outcome    string    `json:"outcome"`
	VerifiedAt time.Time `json:"verified_at"`
}

// ============================================================================
// Onboarding Data Transfer Objects
// ============================================================================

// StepView describes one step for the wizard navigation bar
type StepView struct {
	Step       StepID     `json:"step"`
	Status     StepStatus `json:"status"`
	Accessible bool       `json:"accessible"`
	Current    bool       `json:"current"`
}

// OnboardingView is the response for the wizard state
type OnboardingView struct {
	CurrentStep StepID     `json:"current_step"`
	ResumeStep  StepID     `json:"resume_step"`
	IsComplete  bool       `json:"is_complete"`
	SessionID   *string    `json:"session_id,omitempty"`
	Steps       []StepView `json:"steps"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// NavigationResult is returned by navigation requests
type NavigationResult struct {
	Moved bool           `json:"moved"`
	State OnboardingView `json:"state"`
}

// ReconcileResult lists steps downgraded by a reconciliation pass
type ReconcileResult struct {
	ResetSteps []StepID       `json:"reset_steps"`
	State      OnboardingView `json:"state"`
}

type NavigateRequest struct {
	Step StepID `json:"step" validate:"required"`
}

type UpdateStatusRequest struct {
	Status StepStatus `json:"status" validate:"required"`
}

type StartVerificationRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// VerificationReturn carries the two fields consumed from the provider's return URL
type VerificationReturn struct {
	Step      StepID
	Status    string
	SessionID string
}

// ============================================================================
// Repository Interfaces
// ============================================================================

// KeyValueStore is the raw storage port every backend implements.
// Get returns found=false without error for absent keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OnboardingStore persists one client's wizard state and step payloads
type OnboardingStore interface {
	// LoadState returns nil without error when nothing was persisted yet
	LoadState(ctx context.Context) (*OnboardingState, error)
	SaveState(ctx context.Context, state *OnboardingState) error

	HasStepData(ctx context.Context, step StepID) (bool, error)
	LoadStepData(ctx context.Context, step StepID) (json.RawMessage, error)
	SaveStepData(ctx context.Context, step StepID, data json.RawMessage) error
	DeleteStepData(ctx context.Context, step StepID) error

	// Reset removes the state blob and the payload of every given step
	Reset(ctx context.Context, steps []StepID) error
}

// OnboardingStoreFactory scopes storage to one client
type OnboardingStoreFactory interface {
	ForClient(clientID string) OnboardingStore
}

// ============================================================================
// Usecase Interface
// ============================================================================

type OnboardingUsecase interface {
	GetState(ctx context.Context, clientID string) (*OnboardingView, error)
	Navigate(ctx context.Context, clientID string, step StepID) (*NavigationResult, error)
	UpdateStatus(ctx context.Context, clientID string, step StepID, status StepStatus) (*OnboardingView, error)
	CanAccess(ctx context.Context, clientID string, step StepID) (bool, error)
	NextStep(ctx context.Context, clientID string, step StepID) (*StepID, error)

	GetStepData(ctx context.Context, clientID string, step StepID) (json.RawMessage, error)
	SubmitStepData(ctx context.Context, clientID string, step StepID, payload json.RawMessage) (*OnboardingView, error)

	StartVerification(ctx context.Context, clientID string, step StepID, sessionID string) (*OnboardingView, error)
	CompleteVerification(ctx context.Context, clientID string, ret VerificationReturn) (*OnboardingView, VerificationOutcome, error)

	Reconcile(ctx context.Context, clientID string) (*ReconcileResult, error)
	Reset(ctx context.Context, clientID string) error
}
