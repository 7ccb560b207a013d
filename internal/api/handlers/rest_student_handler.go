package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
)

// RestStudentHandler serves the student's own profile, documents and wishlist.
type RestStudentHandler struct {
	studentService  services.IStudentService
	wishlistService services.IWishlistService
}

// NewRestStudentHandler creates a new RestStudentHandler.
func NewRestStudentHandler(studentService services.IStudentService, wishlistService services.IWishlistService) *RestStudentHandler {
	return &RestStudentHandler{
		studentService:  studentService,
		wishlistService: wishlistService,
	}
}

// GetProfile handles GET /api/student/profile. The profile is created on first access.
func (h *RestStudentHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	profile, err := h.studentService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfile handles PUT /api/student/profile
func (h *RestStudentHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile data"})
		return
	}
	profile, err := h.studentService.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UploadDocument handles POST /api/student/profile/upload-document
// (multipart field "document", form value "documentType").
func (h *RestStudentHandler) UploadDocument(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docType := models.DocumentType(c.PostForm("documentType"))
	if !docType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document type"})
		return
	}
	header, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	url, profile, err := h.studentService.UploadDocument(c.Request.Context(), userID, services.DocumentUpload{
		Type:     docType,
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		respondError(c, err, "Failed to upload document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "profile": profile})
}

// DeleteDocument handles DELETE /api/student/profile/document/:documentType
func (h *RestStudentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docType := models.DocumentType(c.Param("documentType"))
	if !docType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document type"})
		return
	}
	profile, err := h.studentService.DeleteDocument(c.Request.Context(), userID, docType)
	if err != nil {
		respondError(c, err, "Failed to delete document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetDocumentLink handles GET /api/student/profile/document/:documentType/link
func (h *RestStudentHandler) GetDocumentLink(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	docType := models.DocumentType(c.Param("documentType"))
	if !docType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document type"})
		return
	}
	link, err := h.studentService.DocumentLink(c.Request.Context(), userID, docType)
	if err != nil {
		respondError(c, err, "Failed to create document link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "expiresIn": int(services.DocumentLinkTTL.Seconds())})
}

// GetVerification handles GET /api/student/verification
func (h *RestStudentHandler) GetVerification(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	report, err := h.studentService.Verification(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch verification status")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetWishlist handles GET /api/student/wishlist
func (h *RestStudentHandler) GetWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	properties, err := h.wishlistService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": properties})
}

type wishlistRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
}

// AddToWishlist handles POST /api/student/wishlist
func (h *RestStudentHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "propertyId is required"})
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}
	if err := h.wishlistService.Add(c.Request.Context(), userID, propertyID); err != nil {
		respondError(c, err, "Failed to add to wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property added to wishlist"})
}

// RemoveFromWishlist handles DELETE /api/student/wishlist/:propertyId
func (h *RestStudentHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	propertyID, ok := objectIDParam(c, "propertyId", "property")
	if !ok {
		return
	}
	if err := h.wishlistService.Remove(c.Request.Context(), userID, propertyID); err != nil {
		respondError(c, err, "Failed to remove from wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property removed from wishlist"})
}
