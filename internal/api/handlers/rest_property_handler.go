package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusnest/market/internal/services"
)

// RestPropertyHandler handles REST requests for properties.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
	distanceService services.IDistanceService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService, distanceService services.IDistanceService) *RestPropertyHandler {
	return &RestPropertyHandler{
		propertyService: propertyService,
		distanceService: distanceService,
	}
}

// ListProperties handles GET /api/properties/all. Query parameters are read
// by search.ParseFilter.
func (h *RestPropertyHandler) ListProperties(c *gin.Context) {
	properties, err := h.propertyService.ListActive(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, err, "Failed to fetch properties")
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": properties, "count": len(properties)})
}

// GetProperty handles GET /api/properties/:id
func (h *RestPropertyHandler) GetProperty(c *gin.Context) {
	propertyID, ok := objectIDParam(c, "id", "property")
	if !ok {
		return
	}
	property, err := h.propertyService.GetByID(c.Request.Context(), propertyID)
	if err != nil {
		respondError(c, err, "Failed to fetch property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": property})
}

type distanceRequest struct {
	Origin      string   `json:"origin" binding:"required"`
	PropertyIDs []string `json:"propertyIds" binding:"required"`
}

// CalculateDistances handles POST /api/properties/distances
func (h *RestPropertyHandler) CalculateDistances(c *gin.Context) {
	var req distanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and propertyIds are required"})
		return
	}
	report, err := h.distanceService.Compute(c.Request.Context(), req.Origin, req.PropertyIDs)
	if err != nil {
		respondError(c, err, "Failed to calculate distances")
		return
	}
	c.JSON(http.StatusOK, report)
}
