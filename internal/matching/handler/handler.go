package handler

import (
	"context"
	"net/http"

	"realty_crm_backend/internal/matching/transport"
	"realty_crm_backend/platform/httpkit"
	"realty_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service is the part of the matching service the HTTP layer calls.
type Service interface {
	LeadsForProperty(ctx context.Context, clientID string, propertyID uuid.UUID) (transport.LeadsForPropertyResponse, error)
	SearchNearby(ctx context.Context, clientID string, req transport.NearbyRequest) (transport.NearbyResponse, error)
	Stats(ctx context.Context, clientID string) (transport.StatsResponse, error)
	ListLeadMatches(ctx context.Context, leadID uuid.UUID, scope string) (transport.LeadMatchesResponse, error)
	LatestReport(ctx context.Context, clientID string) (transport.ReportLinkResponse, error)
}

// RunEnqueuer queues a batch run for the worker, which holds the per-client
// run lock and delivers the notifications.
type RunEnqueuer interface {
	EnqueueRunClient(ctx context.Context, clientID string) error
}

type Handler struct {
	svc  Service
	runs RunEnqueuer
	val  *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgEnqueueFailed    = "could not queue the matching run"
	paramClientID       = "clientId"
)

func New(svc Service, runs RunEnqueuer, val *validator.Validator) *Handler {
	return &Handler{svc: svc, runs: runs, val: val}
}

// RegisterRoutes mounts the matching routes. runGuards run before the
// batch endpoint, after the client access check.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, runGuards ...gin.HandlerFunc) {
	clients := rg.Group("/clients/:"+paramClientID, httpkit.RequireClientAccess(paramClientID))
	clients.POST("/run", append(runGuards, h.Run)...)
	clients.GET("/properties/nearby", h.Nearby)
	clients.GET("/properties/:propertyId/leads", h.LeadsForProperty)
	clients.GET("/stats", h.Stats)
	clients.GET("/reports/latest", h.LatestReport)

	rg.GET("/leads/:leadId/matches", h.LeadMatches)
}

// Run queues the batch run and answers 202; the report is archived and the
// digest mailed when the worker finishes it.
func (h *Handler) Run(c *gin.Context) {
	clientID := c.Param(paramClientID)
	if err := h.runs.EnqueueRunClient(c.Request.Context(), clientID); err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusServiceUnavailable, msgEnqueueFailed, nil)
		return
	}
	c.JSON(http.StatusAccepted, transport.RunQueuedResponse{ClientID: clientID, Status: transport.RunStatusQueued})
}

func (h *Handler) Nearby(c *gin.Context) {
	var req transport.NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.SearchNearby(c.Request.Context(), c.Param(paramClientID), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) LeadsForProperty(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("propertyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.LeadsForProperty(c.Request.Context(), c.Param(paramClientID), propertyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context(), c.Param(paramClientID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) LatestReport(c *gin.Context) {
	resp, err := h.svc.LatestReport(c.Request.Context(), c.Param(paramClientID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) LeadMatches(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	id := httpkit.GetIdentity(c)
	scope := id.ClientID()
	if id.HasRole(httpkit.RoleAdmin) {
		scope = ""
	} else if scope == "" {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	resp, err := h.svc.ListLeadMatches(c.Request.Context(), leadID, scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
