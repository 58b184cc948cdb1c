package usecase

import (
	"context"
	"fmt"
	"time"

	"brokerage-onboarding-backend/internal/domain"
)

// StepController is the single source of truth for where a client is in the
// onboarding wizard and which steps they may reach. One instance serves one
// client for the duration of a request; every mutation is written through
// to the injected store.
type StepController struct {
	seq   domain.StepSequence
	store domain.OnboardingStore
	state *domain.OnboardingState
	now   func() time.Time
}

// LoadStepController rehydrates the client's state from store, defaulting it
// on first visit.
func LoadStepController(ctx context.Context, seq domain.StepSequence, store domain.OnboardingStore) (*StepController, error) {
	state, err := store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding state: %w", err)
	}
	if state == nil {
		state = domain.NewOnboardingState(seq)
	}
	state.Normalize(seq)

	return &StepController{
		seq:   seq,
		store: store,
		state: state,
		now:   time.Now,
	}, nil
}

// State returns a copy of the current state
func (c *StepController) State() *domain.OnboardingState {
	return c.state.Clone()
}

func (c *StepController) Sequence() domain.StepSequence {
	return c.seq
}

func (c *StepController) CurrentStep() domain.StepID {
	return c.state.CurrentStep
}

func (c *StepController) StatusOf(step domain.StepID) domain.StepStatus {
	return c.state.StatusOf(step)
}

// ============================================================================
// Mutations
// ============================================================================

// SetCurrentStep records which screen is displayed. It does not check access.
func (c *StepController) SetCurrentStep(ctx context.Context, step domain.StepID) error {
	if !c.seq.Contains(step) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, step)
	}
	c.state.CurrentStep = step
	return c.persist(ctx)
}

// UpdateStepStatus writes status for step. Callers report real outcomes only,
// so no transition guard is applied here.
func (c *StepController) UpdateStepStatus(ctx context.Context, step domain.StepID, status domain.StepStatus) error {
	if !c.seq.Contains(step) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, step)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStatus, status)
	}
	c.state.Steps[step] = status
	return c.persist(ctx)
}

// SetSessionID records the external verification correlator
func (c *StepController) SetSessionID(ctx context.Context, sessionID string) error {
	c.state.SessionID = &sessionID
	return c.persist(ctx)
}

// ============================================================================
// Guards & Navigation
// ============================================================================

// CanAccessStep reports whether step may be entered: the first step always,
// any other step only once every earlier step is completed.
func (c *StepController) CanAccessStep(step domain.StepID) bool {
	if !c.seq.Contains(step) {
		return false
	}
	for _, prior := range c.seq.Before(step) {
		if c.state.StatusOf(prior) != domain.StatusCompleted {
			return false
		}
	}
	return true
}

// NavigateToStep moves to step when it is accessible. An inaccessible step is
// a silent no-op and reports false.
func (c *StepController) NavigateToStep(ctx context.Context, step domain.StepID) (bool, error) {
	if !c.CanAccessStep(step) {
		return false, nil
	}
	if err := c.SetCurrentStep(ctx, step); err != nil {
		return false, err
	}
	return true, nil
}

// GetNextStep returns the step following step, false for the last step
func (c *StepController) GetNextStep(step domain.StepID) (domain.StepID, bool) {
	return c.seq.Next(step)
}

// ResumeStep is the furthest accessible step: the first step not completed,
// or the last step when the whole flow is done.
func (c *StepController) ResumeStep() domain.StepID {
	for _, step := range c.seq.Steps() {
		if c.state.StatusOf(step) != domain.StatusCompleted {
			return step
		}
	}
	return c.seq.Last()
}

// IsComplete reports whether the last step of the flow is completed
func (c *StepController) IsComplete() bool {
	return c.state.StatusOf(c.seq.Last()) == domain.StatusCompleted
}

// ============================================================================
// Reconciliation
// ============================================================================

// ValidateStepStatuses downgrades every completed step whose form payload is
// missing back to not_started. Failed and cancelled steps keep their status so
// the retry prompt survives a reload. The state is persisted only when
// something changed, so repeated calls are idempotent.
func (c *StepController) ValidateStepStatuses(ctx context.Context) ([]domain.StepID, error) {
	var reset []domain.StepID

	for _, step := range c.seq.Steps() {
		if c.state.StatusOf(step) != domain.StatusCompleted {
			continue
		}

		has, err := c.store.HasStepData(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("failed to check data for step %s: %w", step, err)
		}
		if !has {
			c.state.Steps[step] = domain.StatusNotStarted
			reset = append(reset, step)
		}
	}

	if len(reset) == 0 {
		return nil, nil
	}

	// A healed flow must not leave the client parked past the first gap
	if !c.CanAccessStep(c.state.CurrentStep) {
		c.state.CurrentStep = c.ResumeStep()
	}

	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	return reset, nil
}

// ============================================================================
// External Verification
// ============================================================================

// HandleDigioReturn applies the outcome of an identity-verification redirect.
// Success completes step and advances to the next one (staying put on the
// last step); failure and cancellation only record the status.
func (c *StepController) HandleDigioReturn(ctx context.Context, step domain.StepID, outcome domain.VerificationOutcome) error {
	if !c.seq.Contains(step) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, step)
	}

	switch outcome {
	case domain.OutcomeSuccess:
		c.state.Steps[step] = domain.StatusCompleted
		if next, ok := c.seq.Next(step); ok {
			c.state.CurrentStep = next
		}
	case domain.OutcomeCancelled:
		c.state.Steps[step] = domain.StatusCancelled
	default:
		c.state.Steps[step] = domain.StatusFailed
	}

	return c.persist(ctx)
}

// ============================================================================
// Views
// ============================================================================

// View renders the state for the wizard navigation
func (c *StepController) View() *domain.OnboardingView {
	steps := make([]domain.StepView, 0, c.seq.Len())
	for _, step := range c.seq.Steps() {
		steps = append(steps, domain.StepView{
			Step:       step,
			Status:     c.state.StatusOf(step),
			Accessible: c.CanAccessStep(step),
			Current:    step == c.state.CurrentStep,
		})
	}

	state := c.state.Clone()
	return &domain.OnboardingView{
		CurrentStep: state.CurrentStep,
		ResumeStep:  c.ResumeStep(),
		IsComplete:  c.IsComplete(),
		SessionID:   state.SessionID,
		Steps:       steps,
		UpdatedAt:   state.UpdatedAt,
	}
}

func (c *StepController) persist(ctx context.Context) error {
	now := c.now().UTC()
	c.state.UpdatedAt = &now
	if err := c.store.SaveState(ctx, c.state); err != nil {
		return fmt.Errorf("failed to persist onboarding state: %w", err)
	}
	return nil
}
