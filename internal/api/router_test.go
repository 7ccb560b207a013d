package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/auth"
	"campusnest/market/internal/config"
	"campusnest/market/internal/models"
)

const testSecret = "router-secret"

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:               testSecret,
		AllowedOrigin:           "*",
		DocumentMaxSizeMB:       10,
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 100,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 100,
	}
}

func bearer(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := auth.GenerateJWT(primitive.NewObjectID().Hex(), role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestSetupRouter_AccessRules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := SetupRouter(ctx, testConfig(), Services{}, nil)

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/health", "", http.StatusOK},
		{"profile needs a token", http.MethodGet, "/api/student/profile", "", http.StatusUnauthorized},
		{"landlord cannot read student profile", http.MethodGet, "/api/student/profile", bearer(t, models.RoleLandlord), http.StatusForbidden},
		{"student cannot list landlord visits", http.MethodGet, "/api/visit-requests/landlord", bearer(t, models.RoleStudent), http.StatusForbidden},
		{"student cannot accept join requests", http.MethodPost, "/api/join-requests/" + primitive.NewObjectID().Hex() + "/accept", bearer(t, models.RoleStudent), http.StatusForbidden},
		{"notifications need a token", http.MethodGet, "/api/notifications", "", http.StatusUnauthorized},
		{"public students need a token", http.MethodGet, "/api/public/students", "", http.StatusUnauthorized},
		{"landlord cannot rank flatmates", http.MethodGet, "/api/public/students-compatibility", bearer(t, models.RoleLandlord), http.StatusForbidden},
		{"landlord has no student dashboard", http.MethodGet, "/api/student-dashboard/metrics", bearer(t, models.RoleLandlord), http.StatusForbidden},
		{"no websocket without a hub", http.MethodGet, "/api/ws", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func serviceCall(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(testConfig(), nil, shutdown)

	w := serviceCall(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	// A second request must not block on the full channel.
	shutdown <- struct{}{}
	w = serviceCall(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serviceCall(r, `{"method":"getTestEmail","arguments":["only-one"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serviceCall(r, `{"method":"getTestEmail","arguments":["join_request_new","a@b.c"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serviceCall(r, `{"method":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}
