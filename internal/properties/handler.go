package properties

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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
	props := rg.Group("/properties")
	{
		props.POST("", h.CreateProperty)
		props.GET("/mine", h.ListMine)
		props.GET("/nearby", h.FindNearby)
		props.GET("/:id", h.GetProperty)
		props.POST("/:id/publish", h.Publish)
		props.POST("/:id/geocode", h.RefreshCoordinates)
	}
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var property Property
	if err := c.ShouldBindJSON(&property); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property payload"})
		return
	}
	property.OwnerID = auth.SubjectID(c)
	property.Published = false

	created, err := h.service.CreateProperty(c.Request.Context(), &property)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	property, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (h *Handler) ListMine(c *gin.Context) {
	properties, err := h.service.ListOwnerProperties(c.Request.Context(), auth.SubjectID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": properties})
}

func (h *Handler) Publish(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	if err := h.service.Publish(c.Request.Context(), id, auth.SubjectID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": true})
}

func (h *Handler) RefreshCoordinates(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property id"})
		return
	}

	property, err := h.service.RefreshCoordinates(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (h *Handler) FindNearby(c *gin.Context) {
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	if lonErr != nil || latErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "longitude and latitude are required"})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_m", "2000"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	results, err := h.service.FindNearby(c.Request.Context(), c.Query("city"), NearbyQuery{
		Longitude: lon,
		Latitude:  lat,
		RadiusM:   radius,
		Limit:     limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var validation *errs.ValidationError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "fields": validation.Fields})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
	case errs.IsRetryable(err):
		h.logger.Error("Geocoding failed upstream", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoding temporarily unavailable, try again"})
	default:
		h.logger.Error("Property operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "property operation failed"})
	}
}
