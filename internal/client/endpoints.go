package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"campusnest/market/internal/joinflow"
	"campusnest/market/internal/models"
	"campusnest/market/internal/verification"
)

// Properties

func (c *Client) GetAllProperties(ctx context.Context, filter url.Values) ([]models.Property, error) {
	path := "/properties/all"
	if len(filter) > 0 {
		path += "?" + filter.Encode()
	}
	var out struct {
		Properties []models.Property `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "Failed to fetch properties"); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

func (c *Client) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var out struct {
		Property *models.Property `json:"property"`
	}
	if err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(id), nil, &out, "Failed to fetch property"); err != nil {
		return nil, err
	}
	return out.Property, nil
}

// DistanceResult maps property id to miles; Failed lists ids that could not be measured.
type DistanceResult struct {
	Distances map[string]float64 `json:"distances"`
	Failed    []string           `json:"failed"`
}

func (c *Client) CalculateDistances(ctx context.Context, origin string, propertyIDs []string) (*DistanceResult, error) {
	body := map[string]any{"origin": origin, "propertyIds": propertyIDs}
	var out DistanceResult
	if err := c.do(ctx, http.MethodPost, "/properties/distances", body, &out, "Failed to calculate distances"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wishlist

func (c *Client) GetWishlist(ctx context.Context) ([]models.Property, error) {
	var out struct {
		Wishlist []models.Property `json:"wishlist"`
	}
	if err := c.do(ctx, http.MethodGet, "/student/wishlist", nil, &out, "Failed to fetch wishlist"); err != nil {
		return nil, err
	}
	return out.Wishlist, nil
}

func (c *Client) AddToWishlist(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodPost, "/student/wishlist", map[string]string{"propertyId": propertyID}, nil, "Failed to add to wishlist")
}

func (c *Client) RemoveFromWishlist(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodDelete, "/student/wishlist/"+url.PathEscape(propertyID), nil, nil, "Failed to remove from wishlist")
}

// Profile

func (c *Client) GetProfile(ctx context.Context) (*models.StudentProfileView, error) {
	var out struct {
		Profile *models.StudentProfileView `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/student/profile", nil, &out, "Failed to fetch profile"); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// UpdateProfile sends a partial update; only the keys present are changed.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (*models.StudentProfileView, error) {
	var out struct {
		Profile *models.StudentProfileView `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPut, "/student/profile", fields, &out, "Failed to update profile"); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// UploadDocument sends a multipart upload and returns the stored document URL.
func (c *Client) UploadDocument(ctx context.Context, docType models.DocumentType, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("documentType", string(docType)); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/student/profile/upload-document", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		URL string `json:"url"`
	}
	if err := c.send(req, &out, "Failed to upload document"); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docType models.DocumentType) error {
	return c.do(ctx, http.MethodDelete, "/student/profile/document/"+url.PathEscape(string(docType)), nil, nil, "Failed to delete document")
}

// GetDocumentLink returns a short-lived download link for one of the caller's documents.
func (c *Client) GetDocumentLink(ctx context.Context, docType models.DocumentType) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/student/profile/document/"+url.PathEscape(string(docType))+"/link", nil, &out, "Failed to fetch document link"); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) GetVerification(ctx context.Context) (*verification.Report, error) {
	var out verification.Report
	if err := c.do(ctx, http.MethodGet, "/student/verification", nil, &out, "Failed to fetch verification status"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Visit requests

// VisitRequestInput is the body of a new visit request. VisitDate is YYYY-MM-DD.
type VisitRequestInput struct {
	PropertyID string           `json:"propertyId"`
	VisitDate  string           `json:"visitDate"`
	VisitTime  string           `json:"visitTime"`
	VisitType  models.VisitType `json:"visitType"`
}

func (c *Client) CreateVisitRequest(ctx context.Context, in VisitRequestInput) (*models.VisitRequest, error) {
	var out struct {
		VisitRequest *models.VisitRequest `json:"visitRequest"`
	}
	if err := c.do(ctx, http.MethodPost, "/visit-requests", in, &out, "Failed to create visit request"); err != nil {
		return nil, err
	}
	return out.VisitRequest, nil
}

func (c *Client) GetStudentVisitRequests(ctx context.Context) ([]models.VisitRequest, error) {
	var out struct {
		VisitRequests []models.VisitRequest `json:"visitRequests"`
	}
	if err := c.do(ctx, http.MethodGet, "/visit-requests/student", nil, &out, "Failed to fetch visit requests"); err != nil {
		return nil, err
	}
	return out.VisitRequests, nil
}

// Join requests

func (c *Client) CheckProfile(ctx context.Context) (models.ProfileCompletion, error) {
	var out models.ProfileCompletion
	err := c.do(ctx, http.MethodGet, "/join-requests/check-profile", nil, &out, "Failed to check profile")
	return out, err
}

func (c *Client) CheckVisit(ctx context.Context, propertyID string) (bool, error) {
	var out struct {
		HasVisited bool `json:"hasVisited"`
	}
	err := c.do(ctx, http.MethodGet, "/join-requests/check-visit/"+url.PathEscape(propertyID), nil, &out, "Failed to check visit status")
	return out.HasVisited, err
}

func (c *Client) CheckHigherBids(ctx context.Context, propertyID string, bidAmount float64) (models.BidSummary, error) {
	var out models.BidSummary
	body := map[string]float64{"bidAmount": bidAmount}
	err := c.do(ctx, http.MethodPost, "/join-requests/check-bids/"+url.PathEscape(propertyID), body, &out, "Failed to check bids")
	return out, err
}

// JoinRequestInput is the body of a new join request. MovingDate is YYYY-MM-DD.
type JoinRequestInput struct {
	PropertyID string  `json:"propertyId"`
	MovingDate string  `json:"movingDate"`
	BidAmount  float64 `json:"bidAmount"`
	Message    string  `json:"message,omitempty"`
}

func (c *Client) CreateJoinRequest(ctx context.Context, in JoinRequestInput) (*models.JoinRequest, error) {
	var out struct {
		JoinRequest *models.JoinRequest `json:"joinRequest"`
	}
	if err := c.do(ctx, http.MethodPost, "/join-requests", in, &out, "Failed to create join request"); err != nil {
		return nil, err
	}
	return out.JoinRequest, nil
}

func (c *Client) GetStudentJoinRequests(ctx context.Context) ([]models.JoinRequest, error) {
	var out struct {
		JoinRequests []models.JoinRequest `json:"joinRequests"`
	}
	if err := c.do(ctx, http.MethodGet, "/join-requests/student", nil, &out, "Failed to fetch join requests"); err != nil {
		return nil, err
	}
	return out.JoinRequests, nil
}

func (c *Client) DeleteJoinRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/join-requests/"+url.PathEscape(id), nil, nil, "Failed to delete join request")
}

// Notifications

// NotificationList is the latest notifications plus the unread total.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

func (c *Client) GetNotifications(ctx context.Context) (*NotificationList, error) {
	var out NotificationList
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &out, "Failed to fetch notifications"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out, "Failed to fetch unread count")
	return out.Count, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, "Failed to mark notification as read")
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/mark-all-read", nil, nil, "Failed to mark notifications as read")
}

// JoinChecker runs the join pipeline's remote checks through a Client.
type JoinChecker struct {
	c *Client
}

func NewJoinChecker(c *Client) *JoinChecker { return &JoinChecker{c: c} }

var _ joinflow.Checker = (*JoinChecker)(nil)

func (j *JoinChecker) CheckProfile(ctx context.Context) (models.ProfileCompletion, error) {
	return j.c.CheckProfile(ctx)
}

func (j *JoinChecker) CheckVisit(ctx context.Context, propertyID string) (bool, error) {
	return j.c.CheckVisit(ctx, propertyID)
}

func (j *JoinChecker) CheckHigherBids(ctx context.Context, propertyID string, bidAmount float64) (models.BidSummary, error) {
	return j.c.CheckHigherBids(ctx, propertyID, bidAmount)
}

// CreateJoinRequest expects an input that already passed local validation.
func (j *JoinChecker) CreateJoinRequest(ctx context.Context, in joinflow.Input) (*models.JoinRequest, error) {
	if in.BidAmount == nil || in.MovingDate == nil {
		return nil, fmt.Errorf("join request needs an offer and a moving date")
	}
	return j.c.CreateJoinRequest(ctx, JoinRequestInput{
		PropertyID: in.PropertyID,
		MovingDate: in.MovingDate.Format(time.DateOnly),
		BidAmount:  *in.BidAmount,
		Message:    in.Message,
	})
}
