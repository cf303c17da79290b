package providers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes the administrative provider surface. Mutations here are the
// only way to change priorities and enablement; dispatch ordering stays stable
// during a request.
type Handler struct {
	router   *Router
	repo     Repository
	exporter *AttemptExporter
	logger   *zap.Logger
}

func NewHandler(router *Router, repo Repository, logger *zap.Logger) *Handler {
	return &Handler{
		router:   router,
		repo:     repo,
		exporter: NewAttemptExporter(repo),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/providers")
	{
		admin.GET("", h.List)
		admin.GET("/attempts/export", h.ExportAttempts)
		admin.PUT("/:id/enabled", h.SetEnabled)
		admin.PUT("/:id/priority", h.SetPriority)
		admin.POST("/optimize-costs", h.OptimizeCosts)
	}
}

func (h *Handler) List(c *gin.Context) {
	configs, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": configs})
}

func (h *Handler) SetEnabled(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.SetEnabled(c.Request.Context(), id, body.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": body.Enabled})
}

func (h *Handler) SetPriority(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return
	}

	var body struct {
		Priority int `json:"priority"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Priority < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be a positive integer"})
		return
	}

	if err := h.repo.SetPriority(c.Request.Context(), id, body.Priority); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "priority": body.Priority})
}

// ExportAttempts streams the recent dispatch history as an xlsx workbook.
func (h *Handler) ExportAttempts(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	buf, err := h.exporter.Export(c.Request.Context(), since, 10000)
	if err != nil {
		h.logger.Error("Failed to export dispatch attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export dispatch attempts"})
		return
	}

	filename := fmt.Sprintf("dispatch-attempts-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

func (h *Handler) OptimizeCosts(c *gin.Context) {
	var body struct {
		Capability string `json:"capability"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Capability == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capability is required"})
		return
	}

	if err := h.router.OptimizeCosts(c.Request.Context(), Capability(body.Capability)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Provider costs optimized", zap.String("capability", body.Capability))
	c.JSON(http.StatusOK, gin.H{"capability": body.Capability, "status": "reordered"})
}
