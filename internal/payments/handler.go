package payments

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/auth"
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.ScheduleInstallment)
		payments.GET("/mine", h.ListMine)
		payments.GET("/leases/:leaseId", h.ListForLease)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/pay", h.RecordPayment)
	}
}

func (h *Handler) ScheduleInstallment(c *gin.Context) {
	var body struct {
		LeaseID uuid.UUID `json:"lease_id" binding:"required"`
		Amount  string    `json:"amount" binding:"required"`
		DueAt   time.Time `json:"due_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lease_id, amount and due_at are required"})
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	payment, err := h.service.ScheduleInstallment(c.Request.Context(), body.LeaseID, amount, body.DueAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var body struct {
		Method    string `json:"method" binding:"required"`
		Reference string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method is required"})
		return
	}

	payment, err := h.service.RecordPayment(c.Request.Context(), id, Method(body.Method), body.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) ListForLease(c *gin.Context) {
	leaseID, err := uuid.Parse(c.Param("leaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	payments, err := h.service.ListLeasePayments(c.Request.Context(), leaseID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) ListMine(c *gin.Context) {
	payerID := auth.SubjectID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	payments, err := h.service.ListPayerPayments(c.Request.Context(), payerID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var validation *errs.ValidationError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "fields": validation.Fields})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found or already settled"})
	case errors.Is(err, leases.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "lease not found"})
	default:
		h.logger.Error("Payment operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment operation failed"})
	}
}
