package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/service"
	"pipeline_backend/internal/pipeline/transport"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/httpkit"
	"pipeline_backend/platform/validator"
)

// Handler handles HTTP requests for pipeline stages.
type Handler struct {
	svc    *service.Service
	policy *service.AutoAdvancePolicy
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid pipeline stage ID"
	msgCompanyMismatch  = "companyId does not match the authenticated company"
)

// New creates a new pipeline stage handler.
func New(svc *service.Service, policy *service.AutoAdvancePolicy, val *validator.Validator) *Handler {
	return &Handler{svc: svc, policy: policy, val: val}
}

// List retrieves the company's stages.
// GET /api/v1/pipeline-stages?category=&isActive=
func (h *Handler) List(c *gin.Context) {
	var req transport.ListStagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}
	companyID, _, ok := h.scope(c)
	if !ok {
		return
	}

	filter := repository.ListFilter{IsActive: req.IsActive}
	if req.Category != "" {
		category := domain.Category(req.Category)
		filter.Category = &category
	}

	result, err := h.svc.List(c.Request.Context(), companyID, filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a single stage.
// GET /api/v1/pipeline-stages/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	companyID, _, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), companyID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new stage.
// POST /api/v1/pipeline-stages
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateStageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), companyID, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update patches an existing stage.
// PUT /api/v1/pipeline-stages/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), companyID, actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a non-default stage.
// DELETE /api/v1/pipeline-stages/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), companyID, actor, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}

// Reorder applies a full new ordering.
// PATCH /api/v1/pipeline-stages/reorder
func (h *Handler) Reorder(c *gin.Context) {
	var req transport.ReorderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.Reorder(c.Request.Context(), companyID, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Stats returns the company's pipeline summary.
// GET /api/v1/pipeline-stages/stats
func (h *Handler) Stats(c *gin.Context) {
	companyID, _, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.Stats(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition moves a deal into a stage.
// POST /api/v1/pipeline-stages/transitions
func (h *Handler) Transition(c *gin.Context) {
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.TransitionDeal(c.Request.Context(), companyID, actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CheckTransition reports whether a transition would be accepted.
// POST /api/v1/pipeline-stages/transitions/check
func (h *Handler) CheckTransition(c *gin.Context) {
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	companyID, _, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.CheckTransition(c.Request.Context(), companyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SeedDefaults creates the default pipeline for the company.
// POST /api/v1/admin/pipeline-stages/seed
func (h *Handler) SeedDefaults(c *gin.Context) {
	companyID, actor, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.svc.SeedDefaults(c.Request.Context(), companyID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Seeded {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, result)
}

// Sweep lists the company's current auto-advance candidates without enqueueing them.
// POST /api/v1/admin/pipeline-stages/auto-advance/sweep
func (h *Handler) Sweep(c *gin.Context) {
	companyID, _, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.policy.SweepPreview(c.Request.Context(), companyID, time.Now().UTC())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithCode(domain.CodeValidationFailed).WithDetails(err.Error()))
		return false
	}
	return true
}

// scope resolves the company and actor of the request. A companyId query
// parameter, when present, must name the token's company.
func (h *Handler) scope(c *gin.Context) (uuid.UUID, domain.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, domain.Actor{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, "company ID is required", nil)
		return uuid.UUID{}, domain.Actor{}, false
	}
	if raw := c.Query("companyId"); raw != "" {
		requested, err := uuid.Parse(raw)
		if err != nil || requested != *tenantID {
			httpkit.Error(c, http.StatusForbidden, msgCompanyMismatch, nil)
			return uuid.UUID{}, domain.Actor{}, false
		}
	}
	return *tenantID, domain.Actor{ID: identity.UserID(), Name: identity.DisplayName()}, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
