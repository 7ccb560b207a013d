package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
)

// RestJoinRequestHandler handles bids to join a property.
type RestJoinRequestHandler struct {
	joinService    services.IJoinRequestService
	studentService services.IStudentService
	visitService   services.IVisitRequestService
}

// NewRestJoinRequestHandler creates a new RestJoinRequestHandler.
func NewRestJoinRequestHandler(
	joinService services.IJoinRequestService,
	studentService services.IStudentService,
	visitService services.IVisitRequestService,
) *RestJoinRequestHandler {
	return &RestJoinRequestHandler{
		joinService:    joinService,
		studentService: studentService,
		visitService:   visitService,
	}
}

// CheckProfile handles GET /api/join-requests/check-profile
func (h *RestJoinRequestHandler) CheckProfile(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	completion, err := h.studentService.CheckProfileCompleteness(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err, "Failed to check profile")
		return
	}
	c.JSON(http.StatusOK, completion)
}

// CheckVisit handles GET /api/join-requests/check-visit/:propertyId
func (h *RestJoinRequestHandler) CheckVisit(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := objectIDParam(c, "propertyId", "property")
	if !ok {
		return
	}
	visited, err := h.visitService.HasRecordedVisit(c.Request.Context(), studentID, propertyID)
	if err != nil {
		respondError(c, err, "Failed to check visit status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasVisited": visited})
}

// CheckHigherBids handles POST /api/join-requests/check-bids/:propertyId
func (h *RestJoinRequestHandler) CheckHigherBids(c *gin.Context) {
	propertyID, ok := objectIDParam(c, "propertyId", "property")
	if !ok {
		return
	}
	var req struct {
		BidAmount float64 `json:"bidAmount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BidAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bidAmount must be a positive number"})
		return
	}
	summary, err := h.joinService.CheckHigherBids(c.Request.Context(), propertyID, req.BidAmount)
	if err != nil {
		respondError(c, err, "Failed to check bids")
		return
	}
	c.JSON(http.StatusOK, summary)
}

type createJoinRequest struct {
	PropertyID string  `json:"propertyId"`
	MovingDate string  `json:"movingDate"`
	BidAmount  float64 `json:"bidAmount"`
	Message    string  `json:"message"`
}

// Create handles POST /api/join-requests
func (h *RestJoinRequestHandler) Create(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PropertyID == "" || req.MovingDate == "" || req.BidAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "propertyId, movingDate and bidAmount are required"})
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}
	movingDate, err := parseDay(req.MovingDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movingDate must be YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	jr, err := h.joinService.Create(ctx, studentID, services.JoinRequestInput{
		PropertyID: propertyID,
		MovingDate: movingDate,
		BidAmount:  req.BidAmount,
		Message:    req.Message,
	})
	if errors.Is(err, services.ErrProfileIncomplete) {
		body := gin.H{"error": "Profile incomplete"}
		if completion, cerr := h.studentService.CheckProfileCompleteness(ctx, studentID); cerr == nil {
			body["missingFields"] = completion.MissingFields
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	if err != nil {
		respondError(c, err, "Failed to create join request")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"joinRequest": jr})
}

// ListForStudent handles GET /api/join-requests/student?status=
func (h *RestJoinRequestHandler) ListForStudent(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.joinService.ListForStudent(c.Request.Context(), studentID, models.JoinStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "Failed to fetch join requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequests": list})
}

// ListForLandlord handles GET /api/join-requests/landlord?status=
func (h *RestJoinRequestHandler) ListForLandlord(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.joinService.ListForLandlord(c.Request.Context(), landlordID, models.JoinStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "Failed to fetch join requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequests": list})
}

// Delete handles DELETE /api/join-requests/:id. Only pending requests can be withdrawn.
func (h *RestJoinRequestHandler) Delete(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "join request")
	if !ok {
		return
	}
	err := h.joinService.Delete(c.Request.Context(), studentID, requestID)
	if errors.Is(err, services.ErrJoinRequestNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Join request not found or cannot be deleted"})
		return
	}
	if err != nil {
		respondError(c, err, "Failed to delete join request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Join request deleted"})
}

// Accept handles POST /api/join-requests/:id/accept
func (h *RestJoinRequestHandler) Accept(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "join request")
	if !ok {
		return
	}
	jr, err := h.joinService.Accept(c.Request.Context(), landlordID, requestID)
	if err != nil {
		respondError(c, err, "Failed to accept join request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequest": jr})
}

// Reject handles POST /api/join-requests/:id/reject
func (h *RestJoinRequestHandler) Reject(c *gin.Context) {
	landlordID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id", "join request")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	jr, err := h.joinService.Reject(c.Request.Context(), landlordID, requestID, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to reject join request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequest": jr})
}
