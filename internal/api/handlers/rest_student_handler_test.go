package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/api/handlers"
	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
	"campusnest/market/internal/verification"
)

func studentEngine(userID primitive.ObjectID, students *MockStudentService, wishlist *MockWishlistService) http.Handler {
	h := handlers.NewRestStudentHandler(students, wishlist)
	r := newEngine(userID, models.RoleStudent)
	r.GET("/api/student/profile", h.GetProfile)
	r.PUT("/api/student/profile", h.UpdateProfile)
	r.POST("/api/student/profile/upload-document", h.UploadDocument)
	r.DELETE("/api/student/profile/document/:documentType", h.DeleteDocument)
	r.GET("/api/student/profile/document/:documentType/link", h.GetDocumentLink)
	r.GET("/api/student/verification", h.GetVerification)
	r.GET("/api/student/wishlist", h.GetWishlist)
	r.POST("/api/student/wishlist", h.AddToWishlist)
	r.DELETE("/api/student/wishlist/:propertyId", h.RemoveFromWishlist)
	return r
}

func TestRestStudentHandler_Profile(t *testing.T) {
	userID := primitive.NewObjectID()
	students := new(MockStudentService)
	r := studentEngine(userID, students, new(MockWishlistService))

	view := &models.StudentProfileView{StudentProfile: &models.StudentProfile{User: userID, Bio: "Hi"}, Name: "Ada"}
	students.On("GetProfile", mock.Anything, userID).Return(view, nil)

	w := doJSON(t, r, http.MethodGet, "/api/student/profile", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode(t, w)["profile"].(map[string]any)["name"])

	bio := "Quiet"
	students.On("UpdateProfile", mock.Anything, userID, mock.MatchedBy(func(u services.ProfileUpdate) bool {
		return u.Bio != nil && *u.Bio == bio && u.Name == nil
	})).Return(view, nil)
	w = doJSON(t, r, http.MethodPut, "/api/student/profile", map[string]any{"bio": bio})
	assert.Equal(t, http.StatusOK, w.Code)

	students.On("UpdateProfile", mock.Anything, userID, mock.MatchedBy(func(u services.ProfileUpdate) bool {
		return u.Name != nil && *u.Name == ""
	})).Return(nil, services.ErrInvalidInput)
	w = doJSON(t, r, http.MethodPut, "/api/student/profile", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	students.AssertExpectations(t)
}

func multipartUpload(t *testing.T, docType, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if docType != "" {
		require.NoError(t, mw.WriteField("documentType", docType))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("document", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, "/api/student/profile/upload-document", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRestStudentHandler_UploadDocument(t *testing.T) {
	userID := primitive.NewObjectID()
	students := new(MockStudentService)
	r := studentEngine(userID, students, new(MockWishlistService))
	content := []byte("%PDF-1.4 passport")

	students.On("UploadDocument", mock.Anything, userID, mock.MatchedBy(func(u services.DocumentUpload) bool {
		if u.Type != models.DocumentPassport || u.Filename != "passport.pdf" || u.Size != int64(len(content)) {
			return false
		}
		got, err := io.ReadAll(u.Body)
		return err == nil && bytes.Equal(got, content)
	})).Return("https://cdn.test/passport.pdf", &models.StudentProfileView{}, nil).Once()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "passport", "passport.pdf", content))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.test/passport.pdf", decode(t, w)["url"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "selfie", "x.pdf", content))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "passport", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decode(t, w)["error"])

	students.On("UploadDocument", mock.Anything, userID, mock.Anything).Return("", nil, services.ErrDocumentTooLarge).Once()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "passport", "big.pdf", content))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	students.AssertExpectations(t)
}

func TestRestStudentHandler_DeleteDocumentAndVerification(t *testing.T) {
	userID := primitive.NewObjectID()
	students := new(MockStudentService)
	r := studentEngine(userID, students, new(MockWishlistService))

	students.On("DeleteDocument", mock.Anything, userID, models.DocumentStudentID).Return(&models.StudentProfileView{}, nil)
	students.On("Verification", mock.Anything, userID).Return(&verification.Report{ReputationScore: 40, TrustLevel: "Medium"}, nil)

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodDelete, "/api/student/profile/document/studentId", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodDelete, "/api/student/profile/document/selfie", nil).Code)

	students.On("DocumentLink", mock.Anything, userID, models.DocumentPassport).Return("https://signed.example/p", nil)
	students.On("DocumentLink", mock.Anything, userID, models.DocumentNationalID).Return("", services.ErrDocumentNotFound)

	w := doJSON(t, r, http.MethodGet, "/api/student/profile/document/passport/link", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://signed.example/p", decode(t, w)["url"])
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/student/profile/document/nationalId/link", nil).Code)

	w = doJSON(t, r, http.MethodGet, "/api/student/verification", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 40, body["reputationScore"])
	assert.Equal(t, "Medium", body["trustLevel"])
}

func TestRestStudentHandler_Wishlist(t *testing.T) {
	userID := primitive.NewObjectID()
	wishlist := new(MockWishlistService)
	r := studentEngine(userID, new(MockStudentService), wishlist)
	propertyID := primitive.NewObjectID()
	dup := primitive.NewObjectID()

	wishlist.On("List", mock.Anything, userID).Return([]models.Property{{ID: propertyID}}, nil)
	wishlist.On("Add", mock.Anything, userID, propertyID).Return(nil)
	wishlist.On("Add", mock.Anything, userID, dup).Return(services.ErrAlreadyInWishlist)
	wishlist.On("Remove", mock.Anything, userID, propertyID).Return(nil)

	w := doJSON(t, r, http.MethodGet, "/api/student/wishlist", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["wishlist"], 1)

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/student/wishlist", map[string]string{"propertyId": propertyID.Hex()}).Code)

	w = doJSON(t, r, http.MethodPost, "/api/student/wishlist", map[string]string{"propertyId": dup.Hex()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.ErrAlreadyInWishlist.Error(), decode(t, w)["error"])

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/student/wishlist", map[string]string{}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/student/wishlist", map[string]string{"propertyId": "zzz"}).Code)

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodDelete, "/api/student/wishlist/"+propertyID.Hex(), nil).Code)
	wishlist.AssertExpectations(t)
}
