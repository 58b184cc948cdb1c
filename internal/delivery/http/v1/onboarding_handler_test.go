package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brokerage-onboarding-backend/config"
	"brokerage-onboarding-backend/internal/delivery/http/middleware"
	"brokerage-onboarding-backend/internal/delivery/http/response"
	v1 "brokerage-onboarding-backend/internal/delivery/http/v1"
	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/internal/repository/memstore"
	"brokerage-onboarding-backend/internal/usecase"
	"brokerage-onboarding-backend/pkg/apperror"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testClient   = "client-42"
	testFrontend = "https://app.example.com"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockOnboardingUsecase struct {
	mock.Mock
}

func (m *MockOnboardingUsecase) GetState(ctx context.Context, clientID string) (*domain.OnboardingView, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingView), args.Error(1)
}

func (m *MockOnboardingUsecase) Navigate(ctx context.Context, clientID string, step domain.StepID) (*domain.NavigationResult, error) {
	args := m.Called(ctx, clientID, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NavigationResult), args.Error(1)
}

func (m *MockOnboardingUsecase) UpdateStatus(ctx context.Context, clientID string, step domain.StepID, status domain.StepStatus) (*domain.OnboardingView, error) {
	args := m.Called(ctx, clientID, step, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingView), args.Error(1)
}

func (m *MockOnboardingUsecase) CanAccess(ctx context.Context, clientID string, step domain.StepID) (bool, error) {
	args := m.Called(ctx, clientID, step)
	return args.Bool(0), args.Error(1)
}

func (m *MockOnboardingUsecase) NextStep(ctx context.Context, clientID string, step domain.StepID) (*domain.StepID, error) {
	args := m.Called(ctx, clientID, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StepID), args.Error(1)
}

func (m *MockOnboardingUsecase) GetStepData(ctx context.Context, clientID string, step domain.StepID) (json.RawMessage, error) {
	args := m.Called(ctx, clientID, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockOnboardingUsecase) SubmitStepData(ctx context.Context, clientID string, step domain.StepID, payload json.RawMessage) (*domain.OnboardingView, error) {
	args := m.Called(ctx, clientID, step, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingView), args.Error(1)
}

func (m *MockOnboardingUsecase) StartVerification(ctx context.Context, clientID string, step domain.StepID, sessionID string) (*domain.OnboardingView, error) {
	args := m.Called(ctx, clientID, step, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingView), args.Error(1)
}

func (m *MockOnboardingUsecase) CompleteVerification(ctx context.Context, clientID string, ret domain.VerificationReturn) (*domain.OnboardingView, domain.VerificationOutcome, error) {
	args := m.Called(ctx, clientID, ret)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.OnboardingView), args.Get(1).(domain.VerificationOutcome), args.Error(2)
}

func (m *MockOnboardingUsecase) Reconcile(ctx context.Context, clientID string) (*domain.ReconcileResult, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileResult), args.Error(1)
}

func (m *MockOnboardingUsecase) Reset(ctx context.Context, clientID string) error {
	return m.Called(ctx, clientID).Error(0)
}

// newEngine mounts the handler behind a stub identity instead of JWT auth
func newEngine(uc domain.OnboardingUsecase) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	group := r.Group("/v1")
	group.Use(func(c *gin.Context) {
		c.Set(string(domain.KeyUserID), testClient)
		c.Next()
	})
	v1.NewOnboardingHandler(group, uc, testFrontend, func(c *gin.Context) { c.Next() })
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleView(current domain.StepID) *domain.OnboardingView {
	return &domain.OnboardingView{CurrentStep: current, ResumeStep: current}
}

func TestOnboardingHandlerGetState(t *testing.T) {
	uc := new(MockOnboardingUsecase)
	uc.On("GetState", mock.Anything, testClient).Return(sampleView(domain.StepBank), nil)

	w := serve(newEngine(uc), http.MethodGet, "/v1/onboarding/state", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_step":"bank"`)
	assert.Equal(t, "Onboarding state retrieved", decode(t, w).Message)
	uc.AssertExpectations(t)
}

func TestOnboardingHandlerNavigate(t *testing.T) {
	t.Run("Should report a move", func(t *testing.T) {
		uc := new(MockOnboardingUsecase)
		uc.On("Navigate", mock.Anything, testClient, domain.StepPersonalDetails).
			Return(&domain.NavigationResult{Moved: true, State: *sampleView(domain.StepPersonalDetails)}, nil)

		w := serve(newEngine(uc), http.MethodPost, "/v1/onboarding/navigate", `{"step":"personal-details"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Navigated to step", decode(t, w).Message)
	})

	t.Run("Should report a locked step without failing", func(t *testing.T) {
		uc := new(MockOnboardingUsecase)
		uc.On("Navigate", mock.Anything, testClient, domain.StepExchange).
			Return(&domain.NavigationResult{Moved: false, State: *sampleView(domain.StepSignin)}, nil)

		w := serve(newEngine(uc), http.MethodPost, "/v1/onboarding/navigate", `{"step":"exchange"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Step is not accessible yet", decode(t, w).Message)
		assert.Contains(t, w.Body.String(), `"moved":false`)
	})

	t.Run("Should reject a missing step", func(t *testing.T) {
		uc := new(MockOnboardingUsecase)

		w := serve(newEngine(uc), http.MethodPost, "/v1/onboarding/navigate", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		uc.AssertNotCalled(t, "Navigate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOnboardingHandlerUpdateStatus(t *testing.T) {
	uc := new(MockOnboardingUsecase)
	uc.On("UpdateStatus", mock.Anything, testClient, domain.StepBank, domain.StatusInProgress).
		Return(sampleView(domain.StepBank), nil)
	uc.On("UpdateStatus", mock.Anything, testClient, domain.StepExchange, domain.StatusInProgress).
		Return(nil, apperror.Forbidden("Step is not accessible"))

	r := newEngine(uc)

	w := serve(r, http.MethodPut, "/v1/onboarding/steps/bank/status", `{"status":"in_progress"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPut, "/v1/onboarding/steps/exchange/status", `{"status":"in_progress"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Step is not accessible", decode(t, w).Message)

	w = serve(r, http.MethodPut, "/v1/onboarding/steps/bank/status", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboardingHandlerAccessAndNext(t *testing.T) {
	next := domain.StepExchange
	uc := new(MockOnboardingUsecase)
	uc.On("CanAccess", mock.Anything, testClient, domain.StepBank).Return(true, nil)
	uc.On("NextStep", mock.Anything, testClient, domain.StepBank).Return(&next, nil)
	uc.On("NextStep", mock.Anything, testClient, domain.StepCompletion).Return(nil, nil)

	r := newEngine(uc)

	w := serve(r, http.MethodGet, "/v1/onboarding/steps/bank/access", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":"bank","accessible":true}`, mustData(t, w))

	w = serve(r, http.MethodGet, "/v1/onboarding/steps/bank/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":"bank","next":"exchange"}`, mustData(t, w))

	w = serve(r, http.MethodGet, "/v1/onboarding/steps/completion/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":"completion","next":null}`, mustData(t, w))
}

func mustData(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return string(body.Data)
}

func TestOnboardingHandlerStepData(t *testing.T) {
	payload := `{"account_number":"123456789012","ifsc":"HDFC0001234"}`
	uc := new(MockOnboardingUsecase)
	uc.On("GetStepData", mock.Anything, testClient, domain.StepBank).Return(json.RawMessage(payload), nil)
	uc.On("GetStepData", mock.Anything, testClient, domain.StepExchange).Return(nil, apperror.NotFound("No data saved for this step"))
	uc.On("SubmitStepData", mock.Anything, testClient, domain.StepBank, json.RawMessage(payload)).
		Return(sampleView(domain.StepExchange), nil)

	r := newEngine(uc)

	w := serve(r, http.MethodGet, "/v1/onboarding/steps/bank/data", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, payload, mustData(t, w))

	w = serve(r, http.MethodGet, "/v1/onboarding/steps/exchange/data", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/v1/onboarding/steps/bank/data", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Step completed", decode(t, w).Message)

	w = serve(r, http.MethodPost, "/v1/onboarding/steps/bank/data", `{"ifsc":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNumberOfCalls(t, "SubmitStepData", 1)
}

func TestOnboardingHandlerVerification(t *testing.T) {
	t.Run("Should start a verification", func(t *testing.T) {
		uc := new(MockOnboardingUsecase)
		uc.On("StartVerification", mock.Anything, testClient, domain.StepPersonalDetails, "DID-1").
			Return(sampleView(domain.StepPersonalDetails), nil)

		w := serve(newEngine(uc), http.MethodPost, "/v1/onboarding/steps/personal-details/verification", `{"session_id":"DID-1"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Verification started", decode(t, w).Message)
	})

	t.Run("Should redirect back to the wizard after the provider returns", func(t *testing.T) {
		ret := domain.VerificationReturn{Step: domain.StepPersonalDetails, Status: "success", SessionID: "DID-1"}
		uc := new(MockOnboardingUsecase)
		uc.On("CompleteVerification", mock.Anything, testClient, ret).
			Return(sampleView(domain.StepNomineePOA), domain.OutcomeSuccess, nil)

		w := serve(newEngine(uc), http.MethodGet,
			"/v1/onboarding/verification/return?step=personal-details&status=success&digio_doc_id=DID-1", "")

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, testFrontend+"/onboarding/nominee-poa?verification=success", w.Header().Get("Location"))
	})

	t.Run("Should surface a session mismatch as JSON", func(t *testing.T) {
		uc := new(MockOnboardingUsecase)
		uc.On("CompleteVerification", mock.Anything, testClient, mock.Anything).
			Return(nil, domain.VerificationOutcome(""), apperror.BadRequest("Verification session does not match"))

		w := serve(newEngine(uc), http.MethodGet, "/v1/onboarding/verification/return?step=bank&status=success&digio_doc_id=other", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
	})
}

func TestOnboardingHandlerReconcile(t *testing.T) {
	uc := new(MockOnboardingUsecase)
	uc.On("Reconcile", mock.Anything, testClient).Return(&domain.ReconcileResult{
		ResetSteps: []domain.StepID{domain.StepBank},
		State:      *sampleView(domain.StepBank),
	}, nil)

	w := serve(newEngine(uc), http.MethodPost, "/v1/onboarding/reconcile", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reset_steps":["bank"]`)
}

func TestRouter(t *testing.T) {
	const secret = "router-test-secret"
	uc := new(MockOnboardingUsecase)
	uc.On("GetState", mock.Anything, "client-9").Return(sampleView(domain.StepSignin), nil)

	r := v1.NewRouter(v1.RouterDeps{
		OnboardingUC: uc,
		HealthUC:     usecase.NewHealthUsecase(memstore.NewKeyValueStore(), "memory", nil),
		Verifier:     auth.NewVerifier(secret, nil),
		Config: &config.Config{
			GinMode:                      "release",
			FrontendURL:                  testFrontend,
			RateLimitWindowSeconds:       60,
			RateLimitOnboardingThreshold: 10,
		},
		Audit: audit.Nop(),
	})

	w := serve(r, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = serve(r, http.MethodGet, "/v1/onboarding/state", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "client-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/onboarding/state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	uc.AssertExpectations(t)
}
