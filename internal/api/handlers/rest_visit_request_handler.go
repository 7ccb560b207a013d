package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
)

// RestVisitRequestHandler handles property viewing requests.
type RestVisitRequestHandler struct {
	visitService services.IVisitRequestService
}

// NewRestVisitRequestHandler creates a new RestVisitRequestHandler.
func NewRestVisitRequestHandler(visitService services.IVisitRequestService) *RestVisitRequestHandler {
	return &RestVisitRequestHandler{visitService: visitService}
}

type createVisitRequest struct {
	PropertyID string           `json:"propertyId"`
	VisitType  models.VisitType `json:"visitType"`
	VisitDate  string           `json:"visitDate"`
	VisitTime  string           `json:"visitTime"`
}

// Create handles POST /api/visit-requests
func (h *RestVisitRequestHandler) Create(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PropertyID == "" || req.VisitType == "" || req.VisitDate == "" || req.VisitTime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}
	visitDate, err := parseDay(req.VisitDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visitDate must be YYYY-MM-DD"})
		return
	}

	vr, err := h.visitService.Create(c.Request.Context(), studentID, services.VisitRequestInput{
		PropertyID: propertyID,
		VisitType:  req.VisitType,
		VisitDate:  visitDate,
		VisitTime:  req.VisitTime,
	})
	if err != nil {
		respondError(c, err, "Failed to create visit request")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"visitRequest": vr})
}

// ListForStudent handles GET /api/visit-requests/student
func (h *RestVisitRequestHandler) ListForStudent(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.visitService.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err, "Failed to fetch visit requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitRequests": list})
}

// ListForLandlord handles GET /api/visit-requests/landlord
func (h *RestVisitRequestHandler) ListForLandlord(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.visitService.ListForLandlord(c.Request.Context(), landlordID)
	if err != nil {
		respondError(c, err, "Failed to fetch visit requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitRequests": list})
}

// Confirm handles PUT /api/visit-requests/:id/confirm
func (h *RestVisitRequestHandler) Confirm(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "visit request")
	if !ok {
		return
	}
	var req struct {
		MeetLink string `json:"meetLink"`
	}
	_ = c.ShouldBindJSON(&req)

	vr, err := h.visitService.Confirm(c.Request.Context(), landlordID, requestID, req.MeetLink)
	if err != nil {
		respondError(c, err, "Failed to confirm visit request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitRequest": vr})
}

// Reschedule handles PUT /api/visit-requests/:id/reschedule
func (h *RestVisitRequestHandler) Reschedule(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "visit request")
	if !ok {
		return
	}
	var req struct {
		NewDate       string `json:"newDate"`
		NewTime       string `json:"newTime"`
		LandlordNotes string `json:"landlordNotes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NewDate == "" || req.NewTime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newDate and newTime are required"})
		return
	}
	newDate, err := parseDay(req.NewDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newDate must be YYYY-MM-DD"})
		return
	}

	vr, err := h.visitService.Reschedule(c.Request.Context(), landlordID, requestID, newDate, req.NewTime, req.LandlordNotes)
	if err != nil {
		respondError(c, err, "Failed to reschedule visit request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitRequest": vr})
}

// Reject handles PUT /api/visit-requests/:id/reject. Both "rejectionReason"
// and "reason" are accepted.
func (h *RestVisitRequestHandler) Reject(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "visit request")
	if !ok {
		return
	}
	var req struct {
		RejectionReason string `json:"rejectionReason"`
		Reason          string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	reason := req.RejectionReason
	if reason == "" {
		reason = req.Reason
	}

	vr, err := h.visitService.Reject(c.Request.Context(), landlordID, requestID, reason)
	if err != nil {
		respondError(c, err, "Failed to reject visit request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitRequest": vr})
}
