package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	"github.com/SscSPs/therapy_app/internal/core/domain"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/core/services"
	"github.com/SscSPs/therapy_app/internal/middleware"
	"github.com/SscSPs/therapy_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type GateTestSuite struct {
	suite.Suite
	codec  portssvc.TokenCodec
	router *gin.Engine
	logs   *bytes.Buffer
}

func (s *GateTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	codec, err := services.NewTokenService(&config.Config{
		AccessTokenSecret:          "access-secret-for-tests",
		RefreshTokenSecret:         "refresh-secret-for-tests",
		AccessTokenExpiryDuration:  15 * time.Minute,
		RefreshTokenExpiryDuration: time.Hour,
		JWTIssuer:                  "therapy-app-test",
	})
	s.Require().NoError(err)
	s.codec = codec

	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.router = gin.New()
	s.router.Use(middleware.StructuredLoggingMiddleware(logger))
	whoami := func(c *gin.Context) {
		identity, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": identity.SubjectID, "role": identity.Role})
	}
	gated := s.router.Group("/", middleware.AuthGate(codec))
	gated.GET("/any", whoami)
	gated.GET("/therapist", middleware.RequireRole(domain.RoleTherapist), whoami)
	gated.GET("/patient", middleware.RequireRoles(domain.RolePatient), whoami)
	gated.GET("/both", middleware.RequireRoles(domain.RolePatient, domain.RoleTherapist), whoami)
	s.router.GET("/ungated", middleware.RequireRoles(domain.RolePatient), whoami)
}

func TestGateTestSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (s *GateTestSuite) do(path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *GateTestSuite) bearer(subject string, role domain.Role) string {
	token, err := s.codec.IssueAccess(subject, role)
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *GateTestSuite) assertSessionRejected(w *httptest.ResponseRecorder) {
	s.Equal(http.StatusUnauthorized, w.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(map[string]string{"message": apperrors.MsgSessionInvalid}, body)
}

func (s *GateTestSuite) TestValidTokenAttachesIdentity() {
	w := s.do("/any", s.bearer("user-1", domain.RolePatient))
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"id":"user-1","role":"patient"}`, w.Body.String())
	s.NotEmpty(w.Header().Get(middleware.RequestIDHeader))
	s.Contains(s.logs.String(), `"user_id":"user-1"`)
}

func (s *GateTestSuite) TestSchemeIsCaseInsensitive() {
	token, err := s.codec.IssueAccess("user-1", domain.RoleTherapist)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, s.do("/any", "bearer "+token).Code)
	s.Equal(http.StatusOK, s.do("/any", "BEARER "+token).Code)
}

func (s *GateTestSuite) TestFailuresShareOneResponse() {
	refresh, err := s.codec.IssueRefresh("user-1")
	s.Require().NoError(err)

	for name, header := range map[string]string{
		"missing header":    "",
		"wrong scheme":      "Basic dXNlcjpwYXNz",
		"no token":          "Bearer ",
		"garbage":           "Bearer not.a.jwt",
		"refresh as access": "Bearer " + refresh,
	} {
		s.Run(name, func() {
			s.assertSessionRejected(s.do("/any", header))
		})
	}
}

func (s *GateTestSuite) TestRoleGatingBothWays() {
	patient := s.bearer("p-1", domain.RolePatient)
	therapist := s.bearer("t-1", domain.RoleTherapist)

	s.Equal(http.StatusForbidden, s.do("/therapist", patient).Code)
	s.Equal(http.StatusForbidden, s.do("/patient", therapist).Code)
	s.Equal(http.StatusOK, s.do("/therapist", therapist).Code)
	s.Equal(http.StatusOK, s.do("/patient", patient).Code)
	s.Equal(http.StatusOK, s.do("/both", patient).Code)
	s.Equal(http.StatusOK, s.do("/both", therapist).Code)

	w := s.do("/therapist", s.bearer("does-not-exist", domain.RolePatient))
	s.Equal(http.StatusForbidden, w.Code, "gate does not consult the store")
	s.JSONEq(`{"message":"forbidden"}`, w.Body.String())
}

func (s *GateTestSuite) TestRoleGateWithoutIdentityFailsClosed() {
	s.assertSessionRejected(s.do("/ungated", ""))
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/login", middleware.RateLimit(middleware.NewIPRateLimiter(2, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "limits are per client IP")
}

type observedRequest struct {
	method, route string
	status        int
}

type requestRecorder struct {
	seen []observedRequest
}

func (r *requestRecorder) ObserveRequest(method, route string, status int, _ float64) {
	r.seen = append(r.seen, observedRequest{method, route, status})
}

func TestRequestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &requestRecorder{}
	router := gin.New()
	router.Use(middleware.RequestMetrics(rec))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, rec.seen, 2)
	assert.Equal(t, observedRequest{"GET", "/items/:id", http.StatusOK}, rec.seen[0])
	assert.Equal(t, observedRequest{"GET", "", http.StatusNotFound}, rec.seen[1])
}

func TestGetLoggerFromCtxFallsBackToDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Same(t, slog.Default(), middleware.GetLoggerFromCtx(req.Context()))
}
