package verification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/auth"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	v := rg.Group("/verification")
	{
		v.GET("/status", h.Status)
		v.POST("/:stage/request", h.RequestStage)
		v.POST("/:stage/reset", h.ResetStage)
		v.GET("/events", h.Events)
	}
}

func (h *Handler) Status(c *gin.Context) {
	subjectID := auth.SubjectID(c)
	status, err := h.service.GetCertificationStatus(c.Request.Context(), subjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) RequestStage(c *gin.Context) {
	subjectID := auth.SubjectID(c)
	stage := Stage(c.Param("stage"))

	var evidence Evidence
	if err := c.ShouldBindJSON(&evidence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.service.RequestStageVerification(c.Request.Context(), subjectID, stage, evidence)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) ResetStage(c *gin.Context) {
	subjectID := auth.SubjectID(c)
	stage := Stage(c.Param("stage"))

	if err := h.service.ResetStage(c.Request.Context(), subjectID, stage, subjectID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage, "status": StatusPending})
}

func (h *Handler) Events(c *gin.Context) {
	subjectID := auth.SubjectID(c)
	evts, err := h.service.repo.ListEvents(c.Request.Context(), subjectID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evts})
}

// respondError maps the error taxonomy onto HTTP statuses. Validation and
// conflict details go back verbatim; retryable upstream failures surface as
// "try again" without leaking provider internals.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *errs.ValidationError
	var ce *errs.ConflictError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "fields": ve.Fields})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": ce.Error()})
	case errs.IsRetryable(err):
		h.logger.Error("Verification upstream failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification service temporarily unavailable, try again"})
	default:
		h.logger.Error("Verification request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
