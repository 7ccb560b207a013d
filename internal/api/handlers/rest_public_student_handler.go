package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusnest/market/internal/services"
)

// RestPublicStudentHandler serves other students' public profiles and the
// student dashboard.
type RestPublicStudentHandler struct {
	publicService    services.IPublicStudentService
	dashboardService services.IStudentDashboardService
}

// NewRestPublicStudentHandler creates a new RestPublicStudentHandler.
func NewRestPublicStudentHandler(publicService services.IPublicStudentService, dashboardService services.IStudentDashboardService) *RestPublicStudentHandler {
	return &RestPublicStudentHandler{publicService: publicService, dashboardService: dashboardService}
}

// List handles GET /api/public/students?search=&university=&nationality=
func (h *RestPublicStudentHandler) List(c *gin.Context) {
	q := services.PublicStudentQuery{
		Search:      c.Query("search"),
		University:  c.Query("university"),
		Nationality: c.Query("nationality"),
	}
	students, err := h.publicService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to fetch students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "count": len(students)})
}

// Get handles GET /api/public/students/:studentId
func (h *RestPublicStudentHandler) Get(c *gin.Context) {
	studentID, ok := objectIDParam(c, "studentId", "student")
	if !ok {
		return
	}
	student, err := h.publicService.Get(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err, "Failed to fetch student profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// WithCompatibility handles GET /api/public/students-compatibility
func (h *RestPublicStudentHandler) WithCompatibility(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	students, err := h.publicService.WithCompatibility(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch compatible students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "count": len(students)})
}

// Metrics handles GET /api/student-dashboard/metrics
func (h *RestPublicStudentHandler) Metrics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	metrics, err := h.dashboardService.Metrics(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch dashboard metrics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}
