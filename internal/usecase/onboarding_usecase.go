package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/pkg/apperror"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type onboardingUsecase struct {
	stores   domain.OnboardingStoreFactory
	seq      domain.StepSequence
	validate *validator.Validate
	audit    *audit.Logger
	now      func() time.Time
}

func NewOnboardingUsecase(stores domain.OnboardingStoreFactory, seq domain.StepSequence, validate *validator.Validate, auditLogger *audit.Logger) domain.OnboardingUsecase {
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &onboardingUsecase{
		stores:   stores,
		seq:      seq,
		validate: validate,
		audit:    auditLogger,
		now:      time.Now,
	}
}

// ============================================================================
// Loading
// ============================================================================

// authorize verifies the context user may act on clientID
func (u *onboardingUsecase) authorize(ctx context.Context, clientID string) error {
	if clientID == "" {
		return apperror.BadRequest("Client ID is required")
	}

	if role, _ := ctx.Value(domain.KeyUserRole).(string); role == domain.RoleOperator {
		return nil
	}

	ctxUserID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || ctxUserID == "" {
		return apperror.Unauthorized("User not authenticated")
	}
	if ctxUserID != clientID {
		return apperror.Forbidden("You can only access your own onboarding")
	}
	return nil
}

func (u *onboardingUsecase) checkStep(step domain.StepID) error {
	if !u.seq.Contains(step) {
		return apperror.BadRequest("Unknown onboarding step: " + string(step))
	}
	return nil
}

// load rehydrates the client's controller and heals stale statuses, so every
// guard below runs against reconciled state.
func (u *onboardingUsecase) load(ctx context.Context, clientID string) (*StepController, []domain.StepID, error) {
	if err := u.authorize(ctx, clientID); err != nil {
		return nil, nil, err
	}

	ctrl, err := LoadStepController(ctx, u.seq, u.stores.ForClient(clientID))
	if err != nil {
		return nil, nil, apperror.New(http.StatusInternalServerError, "Failed to load onboarding state", err)
	}
	ctrl.now = u.now

	reset, err := ctrl.ValidateStepStatuses(ctx)
	if err != nil {
		return nil, nil, apperror.New(http.StatusInternalServerError, "Failed to reconcile onboarding state", err)
	}
	if len(reset) > 0 {
		u.audit.StepsReset(ctx, clientID, stepNames(reset))
	}

	return ctrl, reset, nil
}

// ============================================================================
// State & Navigation
// ============================================================================

func (u *onboardingUsecase) GetState(ctx context.Context, clientID string) (*domain.OnboardingView, error) {
	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ctrl.View(), nil
}

func (u *onboardingUsecase) Navigate(ctx context.Context, clientID string, step domain.StepID) (*domain.NavigationResult, error) {
	if err := u.checkStep(step); err != nil {
		return nil, err
	}

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	from := ctrl.CurrentStep()
	moved, err := ctrl.NavigateToStep(ctx, step)
	if err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}

	if moved {
		u.audit.Log(ctx, audit.Event{
			Event:    audit.EventStepNavigated,
			ClientID: clientID,
			Step:     string(step),
			Details:  map[string]interface{}{"from": string(from)},
		})
	} else {
		u.audit.NavigationDenied(ctx, clientID, string(step), string(from))
	}

	return &domain.NavigationResult{Moved: moved, State: *ctrl.View()}, nil
}

func (u *onboardingUsecase) UpdateStatus(ctx context.Context, clientID string, step domain.StepID, status domain.StepStatus) (*domain.OnboardingView, error) {
	if err := u.checkStep(step); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperror.BadRequest("Unknown step status: " + string(status))
	}

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if !ctrl.CanAccessStep(step) {
		return nil, apperror.Forbidden("Complete the previous steps first")
	}

	from := ctrl.StatusOf(step)
	if !from.CanTransitionTo(status) {
		return nil, apperror.BadRequest(fmt.Sprintf("Cannot change step %s from %s to %s", step, from, status))
	}

	if err := ctrl.UpdateStepStatus(ctx, step, status); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}
	u.audit.StepStatusChanged(ctx, clientID, string(step), string(from), string(status))

	return ctrl.View(), nil
}

func (u *onboardingUsecase) CanAccess(ctx context.Context, clientID string, step domain.StepID) (bool, error) {
	if err := u.checkStep(step); err != nil {
		return false, err
	}

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return false, err
	}
	return ctrl.CanAccessStep(step), nil
}

// NextStep returns nil for the last step
func (u *onboardingUsecase) NextStep(ctx context.Context, clientID string, step domain.StepID) (*domain.StepID, error) {
	if err := u.authorize(ctx, clientID); err != nil {
		return nil, err
	}
	if err := u.checkStep(step); err != nil {
		return nil, err
	}

	next, ok := u.seq.Next(step)
	if !ok {
		return nil, nil
	}
	return &next, nil
}

// ============================================================================
// Step Data
// ============================================================================

func (u *onboardingUsecase) GetStepData(ctx context.Context, clientID string, step domain.StepID) (json.RawMessage, error) {
	if err := u.authorize(ctx, clientID); err != nil {
		return nil, err
	}
	if err := u.checkStep(step); err != nil {
		return nil, err
	}

	data, err := u.stores.ForClient(clientID).LoadStepData(ctx, step)
	if err != nil {
		if errors.Is(err, domain.ErrStepDataNotFound) {
			return nil, apperror.NotFound("No data saved for step " + string(step))
		}
		return nil, apperror.New(http.StatusInternalServerError, "Failed to read step data", err)
	}
	return data, nil
}

func (u *onboardingUsecase) SubmitStepData(ctx context.Context, clientID string, step domain.StepID, payload json.RawMessage) (*domain.OnboardingView, error) {
	if err := u.checkStep(step); err != nil {
		return nil, err
	}

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if !ctrl.CanAccessStep(step) {
		u.audit.NavigationDenied(ctx, clientID, string(step), string(ctrl.CurrentStep()))
		return nil, apperror.Forbidden("Complete the previous steps first")
	}

	normalized, err := u.validateStepPayload(step, payload)
	if err != nil {
		return nil, err
	}

	store := u.stores.ForClient(clientID)
	if err := store.SaveStepData(ctx, step, normalized); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save step data", err)
	}
	u.audit.Log(ctx, audit.Event{Event: audit.EventStepDataSaved, ClientID: clientID, Step: string(step)})

	from := ctrl.StatusOf(step)
	if err := ctrl.UpdateStepStatus(ctx, step, domain.StatusCompleted); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}
	u.audit.StepStatusChanged(ctx, clientID, string(step), string(from), string(domain.StatusCompleted))

	if next, ok := ctrl.GetNextStep(step); ok {
		if _, err := ctrl.NavigateToStep(ctx, next); err != nil {
			return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
		}
	}

	return ctrl.View(), nil
}

// validateStepPayload decodes payload into the step's form, validates it and
// returns the normalized JSON that gets stored
func (u *onboardingUsecase) validateStepPayload(step domain.StepID, payload json.RawMessage) (json.RawMessage, error) {
	form := domain.NewStepForm(step)
	if form == nil {
		// Steps without a typed form accept any JSON object
		var obj map[string]interface{}
		if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
			return nil, apperror.BadRequest("Step data must be a JSON object")
		}
		return payload, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(form); err != nil {
		return nil, apperror.BadRequest("Invalid step data: " + err.Error())
	}

	if n, ok := form.(interface{ Normalize() }); ok {
		n.Normalize()
	}

	if err := u.validate.Struct(form); err != nil {
		return nil, apperror.BadRequest("Validation failed").WithDetails(validation.FormatValidationErrors(err))
	}

	if nominee, ok := form.(*domain.NomineePOAForm); ok {
		if err := u.validateNominees(nominee); err != nil {
			return nil, err
		}
	}

	normalized, err := json.Marshal(form)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return normalized, nil
}

// validateNominees enforces the opt-out / share rules of the nominee step
func (u *onboardingUsecase) validateNominees(form *domain.NomineePOAForm) error {
	if form.OptOut {
		if len(form.Nominees) > 0 {
			return apperror.BadRequest("Cannot add nominees after opting out of nomination")
		}
		return nil
	}

	if len(form.Nominees) == 0 {
		return apperror.BadRequest("Add at least one nominee or opt out of nomination")
	}

	total := 0
	for _, n := range form.Nominees {
		total += n.SharePercent

		if n.DateOfBirth == "" {
			continue
		}
		dob, err := time.Parse("2006-01-02", n.DateOfBirth)
		if err != nil {
			return apperror.BadRequest("Nominee date of birth must be YYYY-MM-DD")
		}
		if !validation.IsAdult(dob, u.now()) && n.GuardianName == "" {
			return apperror.BadRequest("Guardian name is required for a minor nominee: " + n.Name)
		}
	}

	if total != 100 {
		return apperror.BadRequest(fmt.Sprintf("Nominee shares must add up to 100%%, got %d%%", total))
	}
	return nil
}

// ============================================================================
// External Verification
// ============================================================================

func (u *onboardingUsecase) StartVerification(ctx context.Context, clientID string, step domain.StepID, sessionID string) (*domain.OnboardingView, error) {
	if err := u.checkStep(step); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, apperror.BadRequest("Session ID is required")
	}

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if !ctrl.CanAccessStep(step) {
		u.audit.NavigationDenied(ctx, clientID, string(step), string(ctrl.CurrentStep()))
		return nil, apperror.Forbidden("Complete the previous steps first")
	}

	from := ctrl.StatusOf(step)
	if from == domain.StatusCompleted {
		return nil, apperror.Conflict("Step " + string(step) + " is already completed")
	}

	// Retrying after failed/cancelled goes straight back to in_progress
	if err := ctrl.UpdateStepStatus(ctx, step, domain.StatusInProgress); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}
	if err := ctrl.SetSessionID(ctx, sessionID); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}
	if _, err := ctrl.NavigateToStep(ctx, step); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}

	u.audit.Log(ctx, audit.Event{
		Event:    audit.EventVerificationStarted,
		ClientID: clientID,
		Step:     string(step),
		Details:  map[string]interface{}{"from": string(from)},
	})

	return ctrl.View(), nil
}

func (u *onboardingUsecase) CompleteVerification(ctx context.Context, clientID string, ret domain.VerificationReturn) (*domain.OnboardingView, domain.VerificationOutcome, error) {
	if err := u.checkStep(ret.Step); err != nil {
		return nil, "", err
	}
	outcome := domain.ParseRedirectStatus(ret.Status)

	ctrl, _, err := u.load(ctx, clientID)
	if err != nil {
		return nil, "", err
	}

	state := ctrl.State()
	// Once a session is recorded, every return must carry it, including failures
	if state.SessionID != nil && *state.SessionID != ret.SessionID {
		u.audit.Log(ctx, audit.Event{
			Event:    audit.EventVerificationFailed,
			ClientID: clientID,
			Step:     string(ret.Step),
			Details:  map[string]interface{}{"reason": "session_mismatch"},
		})
		return nil, "", apperror.New(http.StatusBadRequest, "Verification session does not match", domain.ErrSessionMismatch)
	}

	status := ctrl.StatusOf(ret.Step)
	if status == domain.StatusCompleted && outcome == domain.OutcomeSuccess {
		// Replayed return URL
		return ctrl.View(), outcome, nil
	}
	if status != domain.StatusInProgress {
		return nil, "", apperror.Conflict("No verification in progress for step " + string(ret.Step))
	}

	if outcome == domain.OutcomeSuccess {
		if ret.SessionID == "" {
			return nil, "", apperror.BadRequest("Verification session is required")
		}

		record, err := json.Marshal(domain.VerificationRecord{
			SessionID:  ret.SessionID,
			Outcome:    string(outcome),
			VerifiedAt: u.now().UTC(),
		})
		if err != nil {
			return nil, "", apperror.Internal(err)
		}
		if err := u.stores.ForClient(clientID).SaveStepData(ctx, ret.Step, record); err != nil {
			return nil, "", apperror.New(http.StatusInternalServerError, "Failed to save verification result", err)
		}
	}

	if err := ctrl.HandleDigioReturn(ctx, ret.Step, outcome); err != nil {
		return nil, "", apperror.New(http.StatusInternalServerError, "Failed to save onboarding state", err)
	}

	event := audit.EventVerificationCompleted
	if outcome != domain.OutcomeSuccess {
		event = audit.EventVerificationFailed
	}
	u.audit.Log(ctx, audit.Event{
		Event:    event,
		ClientID: clientID,
		Step:     string(ret.Step),
		Details:  map[string]interface{}{"outcome": string(outcome)},
	})

	return ctrl.View(), outcome, nil
}

// ============================================================================
// Maintenance
// ============================================================================

func (u *onboardingUsecase) Reconcile(ctx context.Context, clientID string) (*domain.ReconcileResult, error) {
	ctrl, reset, err := u.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if reset == nil {
		reset = []domain.StepID{}
	}
	return &domain.ReconcileResult{ResetSteps: reset, State: *ctrl.View()}, nil
}

func (u *onboardingUsecase) Reset(ctx context.Context, clientID string) error {
	if err := u.authorize(ctx, clientID); err != nil {
		return err
	}

	if err := u.stores.ForClient(clientID).Reset(ctx, u.seq.Steps()); err != nil {
		return apperror.New(http.StatusInternalServerError, "Failed to reset onboarding", err)
	}
	u.audit.Log(ctx, audit.Event{Event: audit.EventOnboardingReset, ClientID: clientID})
	return nil
}

func stepNames(steps []domain.StepID) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}
