package handlers

import (
	"errors"
	"net/http"

	"github.com/SscSPs/therapy_app/internal/apperrors"
	portssvc "github.com/SscSPs/therapy_app/internal/core/ports/services"
	"github.com/SscSPs/therapy_app/internal/dto"
	"github.com/SscSPs/therapy_app/internal/middleware"
	"github.com/SscSPs/therapy_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// cookieSettings describes the refresh-token cookie.
type cookieSettings struct {
	name   string
	path   string
	maxAge int
	secure bool
}

// AuthHandler handles authentication related requests.
type AuthHandler struct {
	session portssvc.SessionSvcFacade
	cookie  cookieSettings
	errors  errorResponder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(session portssvc.SessionSvcFacade, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		session: session,
		cookie: cookieSettings{
			name:   cfg.RefreshTokenCookieName,
			path:   cfg.RefreshTokenCookiePath,
			maxAge: int(cfg.RefreshTokenExpiryDuration.Seconds()),
			secure: cfg.SecureCookies(),
		},
		errors: errorResponder{exposeDetail: cfg.IsLocal()},
	}
}

// registerAuthRoutes sets up the /auth group. Register and login share one
// per-IP limiter.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer, ipLimiter *limiter.Limiter) {
	h := NewAuthHandler(services.Session, cfg)
	limitMiddleware := middleware.RateLimit(ipLimiter)

	auth := r.Group("/auth")
	{
		auth.POST("/register", limitMiddleware, h.Register)
		auth.POST("/login", limitMiddleware, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.AuthGate(services.Tokens), h.Me)
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.name, token, h.cookie.maxAge, h.cookie.path, "", h.cookie.secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.name, "", -1, h.cookie.path, "", h.cookie.secure, true)
}

// refreshCookie returns the raw refresh token, or "" when the cookie is absent.
func (h *AuthHandler) refreshCookie(c *gin.Context) string {
	token, err := c.Cookie(h.cookie.name)
	if err != nil {
		return ""
	}
	return token
}

// Register godoc
// @Summary Register new user
// @Description Creates a patient or therapist account and opens a session. The refresh token is set as an HttpOnly cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.session.Register(c.Request.Context(), portssvc.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Consent:  req.Consent,
	})
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)
	c.JSON(http.StatusCreated, dto.AuthResponse{
		AccessToken: result.Tokens.AccessToken,
		User:        dto.ToUserResponse(result.User),
	})
}

// Login godoc
// @Summary User login
// @Description Authenticates a user, returns an access token and sets the refresh cookie. Any previous session is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login Credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)
	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken: result.Tokens.AccessToken,
		User:        dto.ToUserResponse(result.User),
	})
}

// Refresh godoc
// @Summary Rotate session
// @Description Exchanges the refresh cookie for a new access token and a rotated refresh cookie. Each refresh token works once.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.RefreshTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	pair, err := h.session.Refresh(c.Request.Context(), h.refreshCookie(c))
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, dto.RefreshTokenResponse{AccessToken: pair.AccessToken})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the current refresh credential when the cookie identifies a user and always clears the cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.EmptyResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.session.Logout(c.Request.Context(), h.refreshCookie(c))
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, dto.EmptyResponse{})
}

// Me godoc
// @Summary Current user
// @Description Returns the redacted account of the caller.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		h.errors.respond(c, apperrors.ErrMissingToken)
		return
	}

	user, err := h.session.WhoAmI(c.Request.Context(), identity.SubjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownUser) {
			h.errors.respond(c, apperrors.NewAppError(http.StatusNotFound, "user not found", err))
			return
		}
		h.errors.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{User: dto.ToUserResponse(*user)})
}
