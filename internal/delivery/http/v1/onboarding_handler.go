package v1

import (
	"encoding/json"
	"net/http"
	"net/url"

	"brokerage-onboarding-backend/internal/delivery/http/response"
	"brokerage-onboarding-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
	frontendURL  string
}

func NewOnboardingHandler(r *gin.RouterGroup, onboardingUC domain.OnboardingUsecase, frontendURL string, mutationLimit gin.HandlerFunc) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC, frontendURL: frontendURL}

	onboarding := r.Group("/onboarding")
	{
		onboarding.GET("/state", handler.GetState)
		onboarding.GET("/steps/:step/access", handler.CanAccess)
		onboarding.GET("/steps/:step/next", handler.NextStep)
		onboarding.GET("/steps/:step/data", handler.GetStepData)
		onboarding.GET("/verification/return", handler.VerificationReturn)

		mutations := onboarding.Group("")
		mutations.Use(mutationLimit)
		mutations.POST("/navigate", handler.Navigate)
		mutations.PUT("/steps/:step/status", handler.UpdateStatus)
		mutations.POST("/steps/:step/data", handler.SubmitStepData)
		mutations.POST("/steps/:step/verification", handler.StartVerification)
		mutations.POST("/reconcile", handler.Reconcile)
	}
}

func clientID(c *gin.Context) string {
	return c.GetString(string(domain.KeyUserID))
}

// GetState godoc
// @Summary      Get onboarding state
// @Description  Rehydrates the wizard, heals stale step statuses and returns every step with its access flag
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.OnboardingView}
// @Failure      401  {object}  response.Response
// @Router       /onboarding/state [get]
// @Security     BearerAuth
func (h *OnboardingHandler) GetState(c *gin.Context) {
	view, err := h.onboardingUC.GetState(c.Request.Context(), clientID(c))
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding state retrieved", view)
}

// Navigate godoc
// @Summary      Navigate to a step
// @Description  Moves the wizard to a step when every earlier step is completed. Locked steps are a no-op (moved=false).
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.NavigateRequest  true  "Target step"
// @Success      200      {object}  response.Response{data=domain.NavigationResult}
// @Failure      400      {object}  response.Response
// @Router       /onboarding/navigate [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Navigate(c *gin.Context) {
	var req domain.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Step == "" {
		response.Error(c, http.StatusBadRequest, "Invalid request body: step is required", nil)
		return
	}

	result, err := h.onboardingUC.Navigate(c.Request.Context(), clientID(c), req.Step)
	if err != nil {
		c.Error(err)
		return
	}

	message := "Navigated to step"
	if !result.Moved {
		message = "Step is not accessible yet"
	}
	response.Success(c, http.StatusOK, message, result)
}

// UpdateStatus godoc
// @Summary      Update a step status
// @Description  Applies an allowed status transition (not_started -> in_progress -> completed|failed|cancelled, failed|cancelled -> not_started)
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        step     path      string                      true  "Step ID"
// @Param        request  body      domain.UpdateStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /onboarding/steps/{step}/status [put]
// @Security     BearerAuth
func (h *OnboardingHandler) UpdateStatus(c *gin.Context) {
	var req domain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		response.Error(c, http.StatusBadRequest, "Invalid request body: status is required", nil)
		return
	}

	view, err := h.onboardingUC.UpdateStatus(c.Request.Context(), clientID(c), domain.StepID(c.Param("step")), req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Step status updated", view)
}

// CanAccess godoc
// @Summary      Check step access
// @Tags         onboarding
// @Produce      json
// @Param        step  path      string  true  "Step ID"
// @Success      200   {object}  response.Response
// @Router       /onboarding/steps/{step}/access [get]
// @Security     BearerAuth
func (h *OnboardingHandler) CanAccess(c *gin.Context) {
	step := domain.StepID(c.Param("step"))

	ok, err := h.onboardingUC.CanAccess(c.Request.Context(), clientID(c), step)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Step access checked", gin.H{"step": step, "accessible": ok})
}

// NextStep godoc
// @Summary      Get the following step
// @Description  Returns null after the last step
// @Tags         onboarding
// @Produce      json
// @Param        step  path      string  true  "Step ID"
// @Success      200   {object}  response.Response
// @Router       /onboarding/steps/{step}/next [get]
// @Security     BearerAuth
func (h *OnboardingHandler) NextStep(c *gin.Context) {
	step := domain.StepID(c.Param("step"))

	next, err := h.onboardingUC.NextStep(c.Request.Context(), clientID(c), step)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Next step resolved", gin.H{"step": step, "next": next})
}

// GetStepData godoc
// @Summary      Get saved step data
// @Tags         onboarding
// @Produce      json
// @Param        step  path      string  true  "Step ID"
// @Success      200   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /onboarding/steps/{step}/data [get]
// @Security     BearerAuth
func (h *OnboardingHandler) GetStepData(c *gin.Context) {
	data, err := h.onboardingUC.GetStepData(c.Request.Context(), clientID(c), domain.StepID(c.Param("step")))
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Step data retrieved", data)
}

// SubmitStepData godoc
// @Summary      Submit a step form
// @Description  Validates and stores the step form, completes the step and advances to the next one
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        step     path      string  true  "Step ID"
// @Param        request  body      object  true  "Step form payload"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /onboarding/steps/{step}/data [post]
// @Security     BearerAuth
func (h *OnboardingHandler) SubmitStepData(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || !json.Valid(raw) {
		response.Error(c, http.StatusBadRequest, "Invalid request body: expected JSON", nil)
		return
	}

	view, err := h.onboardingUC.SubmitStepData(c.Request.Context(), clientID(c), domain.StepID(c.Param("step")), raw)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Step completed", view)
}

// StartVerification godoc
// @Summary      Start external verification
// @Description  Marks the step in progress and records the provider session before redirecting the client out
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        step     path      string                           true  "Step ID"
// @Param        request  body      domain.StartVerificationRequest  true  "Provider session"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /onboarding/steps/{step}/verification [post]
// @Security     BearerAuth
func (h *OnboardingHandler) StartVerification(c *gin.Context) {
	var req domain.StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		response.Error(c, http.StatusBadRequest, "Invalid request body: session_id is required", nil)
		return
	}

	view, err := h.onboardingUC.StartVerification(c.Request.Context(), clientID(c), domain.StepID(c.Param("step")), req.SessionID)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Verification started", view)
}

// VerificationReturn godoc
// @Summary      Verification provider return URL
// @Description  Applies the provider outcome and redirects the browser back to the wizard
// @Tags         onboarding
// @Param        step          query  string  true   "Step ID"
// @Param        status        query  string  true   "success, cancel or anything else for failure"
// @Param        digio_doc_id  query  string  false  "Provider session"
// @Success      302
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /onboarding/verification/return [get]
// @Security     BearerAuth
func (h *OnboardingHandler) VerificationReturn(c *gin.Context) {
	ret := domain.VerificationReturn{
		Step:      domain.StepID(c.Query("step")),
		Status:    c.Query("status"),
		SessionID: c.Query("digio_doc_id"),
	}

	view, outcome, err := h.onboardingUC.CompleteVerification(c.Request.Context(), clientID(c), ret)
	if err != nil {
		c.Error(err)
		return
	}

	target := h.frontendURL + "/onboarding/" + url.PathEscape(string(view.CurrentStep)) +
		"?verification=" + url.QueryEscape(string(outcome))
	c.Redirect(http.StatusFound, target)
}

// Reconcile godoc
// @Summary      Reconcile step statuses
// @Description  Downgrades completed steps whose form data is missing and returns the reset steps
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.ReconcileResult}
// @Router       /onboarding/reconcile [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Reconcile(c *gin.Context) {
	result, err := h.onboardingUC.Reconcile(c.Request.Context(), clientID(c))
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding reconciled", result)
}
