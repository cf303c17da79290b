package trustscore

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	scores := rg.Group("/trust-score")
	{
		scores.GET("", h.GetCurrentScore)
		scores.POST("/recompute", h.Recompute)
		scores.GET("/history", h.GetHistory)
	}
}

func (h *Handler) GetCurrentScore(c *gin.Context) {
	score, err := h.service.GetCurrentScore(c.Request.Context(), auth.SubjectID(c))
	if err != nil {
		h.logger.Error("Failed to get trust score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trust score"})
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) Recompute(c *gin.Context) {
	score, err := h.service.Recompute(c.Request.Context(), auth.SubjectID(c), "recompute requested")
	if err != nil {
		h.logger.Error("Failed to recompute trust score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to recompute trust score"})
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.service.GetHistory(c.Request.Context(), auth.SubjectID(c), limit)
	if err != nil {
		h.logger.Error("Failed to get trust score history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trust score history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
