package cev

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the party-facing surface. The authority callback is
// registered separately so it can sit behind its own authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	cert := rg.Group("/certification")
	{
		cert.GET("/leases/:leaseId/prerequisites", h.CheckPrerequisites)
		cert.GET("/leases/:leaseId/request", h.GetRequestForLease)
		cert.POST("/requests", h.CreateRequest)
		cert.GET("/requests/:id", h.GetRequest)
		cert.POST("/requests/:id/documents", h.AttachDocument)
		cert.POST("/requests/:id/submit", h.Submit)
	}
}

// RegisterAuthorityRoutes mounts the decision callback endpoint.
func (h *Handler) RegisterAuthorityRoutes(rg *gin.RouterGroup) {
	rg.POST("/certification/requests/:id/decision", h.ApplyDecision)
}

func (h *Handler) CheckPrerequisites(c *gin.Context) {
	leaseID, err := uuid.Parse(c.Param("leaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	report, err := h.service.CheckPrerequisites(c.Request.Context(), leaseID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var body struct {
		LeaseID uuid.UUID `json:"lease_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lease_id is required"})
		return
	}

	req, err := h.service.CreateRequest(c.Request.Context(), body.LeaseID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	req, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) GetRequestForLease(c *gin.Context) {
	leaseID, err := uuid.Parse(c.Param("leaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	req, err := h.service.GetRequestForLease(c.Request.Context(), leaseID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no certification request in progress"})
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) AttachDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var body struct {
		Slot string `json:"slot" binding:"required"`
		URL  string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot and url are required"})
		return
	}

	if err := h.service.AttachDocument(c.Request.Context(), id, DocumentSlot(body.Slot), body.URL); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attached": body.Slot})
}

func (h *Handler) Submit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	req, err := h.service.Submit(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) ApplyDecision(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var decision Decision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid decision payload"})
		return
	}

	req, err := h.service.ApplyAuthorityDecision(c.Request.Context(), id, &decision)
	var rejection *errs.AuthorityRejectionError
	if errors.As(err, &rejection) {
		// Rejection is a decision outcome, not a callback failure.
		c.JSON(http.StatusOK, req)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var validation *errs.ValidationError
	var conflict *errs.ConflictError
	var incomplete *errs.IncompleteDocumentsError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "fields": validation.Fields})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "required documents are missing",
			"missing": incomplete.Missing,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.Is(err, ErrNotFound), errors.Is(err, leases.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsRetryable(err):
		h.logger.Error("Certification operation failed upstream", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "certification service temporarily unavailable, try again"})
	default:
		h.logger.Error("Certification operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "certification operation failed"})
	}
}
