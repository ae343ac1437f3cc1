package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/api/middleware"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
	"github.com/connectmarket/session-gateway/internal/core/service"
	"github.com/connectmarket/session-gateway/internal/infrastructure/identity"
)

// AuthHandler exposes the session operations over the gateway's HTTP
// surface. Each request operates on the visitor's own session store.
// audit may be nil.
type AuthHandler struct {
	bridge *identity.Bridge
	audit  ports.AuditSink
	log    zerolog.Logger
}

func NewAuthHandler(bridge *identity.Bridge, audit ports.AuditSink, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{bridge: bridge, audit: audit, log: log}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// Surface is the role of the entry screen issuing the call, used to
	// detect cross-role sign-ins.
	Surface string `json:"surface,omitempty" validate:"omitempty,oneof=buyer seller admin"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=buyer seller"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

type googleRequest struct {
	IDToken  string  `json:"idToken" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=buyer seller"`
	Location *string `json:"location"`
	Surface  string  `json:"surface,omitempty" validate:"omitempty,oneof=buyer seller admin"`
}

type profileRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type sessionResponse struct {
	User *domain.User `json:"user"`
	Role domain.Role  `json:"role"`
}

type authResponse struct {
	User      *domain.User `json:"user"`
	Role      domain.Role  `json:"role"`
	Redirect  string       `json:"redirect"`
	IsNewUser bool         `json:"isNewUser,omitempty"`
	// Notice is set when the authenticated role disagrees with the surface
	// the visitor signed in from; the redirect already points at the
	// account's actual dashboard.
	Notice string `json:"notice,omitempty"`
}

type googleButtonResponse struct {
	Available bool   `json:"available"`
	ClientID  string `json:"clientId,omitempty"`
	Width     int    `json:"width,omitempty"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Session resolves the visitor's current identity.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	// Settles the bootstrap if it has not run yet; failures inside
	// degrade to anonymous rather than erroring here.
	store.Bootstrap(c.Request().Context())

	snap := store.Snapshot()
	return c.JSON(http.StatusOK, sessionResponse{User: snap.User, Role: snap.Role})
}

// Login authenticates with email and password.
//
// @Summary      Password login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	user, err := store.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.authResponseFor(c, user, domain.Role(req.Surface), false))
}

// Register creates an account; the server establishes a session on success,
// so a successful response means the visitor is signed in.
//
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "New account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	user, err := store.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		return err
	}

	resp := h.authResponseFor(c, user, "", false)
	return c.JSON(http.StatusCreated, resp)
}

// Google exchanges a federated credential for a session. A 422 whose
// message contains "location is required" means the caller should collect a
// location and replay the same credential.
//
// @Summary      Google credential exchange
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      googleRequest  true  "Credential and requested role"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /api/auth/google [post]
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if claims, err := identity.DecodeCredential(req.IDToken, h.bridge.ClientID()); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	} else if claims.Email != "" {
		h.log.Debug().Str("email", claims.Email).Msg("google credential received")
	}

	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	res, err := store.ExchangeGoogleCredential(c.Request().Context(), req.IDToken, domain.Role(req.Role), req.Location)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.authResponseFor(c, res.User, domain.Role(req.Surface), res.IsNewUser))
}

// Logout tears down the session. The visitor is signed out locally even
// when the upstream call fails.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	if err := store.Logout(c.Request().Context()); err != nil {
		// Local state is already anonymous; report the degraded call.
		return c.JSON(http.StatusOK, map[string]string{
			"status": "signed out",
			"detail": "upstream logout failed, session cleared locally",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "signed out"})
}

// UpdateProfile relays a profile mutation and echoes the updated record.
//
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      profileRequest  true  "Profile fields"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Router       /api/users/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}

	user, err := store.UpdateProfile(c.Request().Context(), ports.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		Location: req.Location,
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{User: user, Role: domain.EffectiveRole(user)})
}

// GoogleButton returns the render configuration for the provider's sign-in
// button, or the disabled fallback when the provider cannot load.
//
// @Summary      Google button configuration
// @Tags         auth
// @Produce      json
// @Param        width  query     int  false  "Container width"
// @Success      200    {object}  googleButtonResponse
// @Router       /api/auth/google/button [get]
func (h *AuthHandler) GoogleButton(c echo.Context) error {
	width, _ := strconv.Atoi(c.QueryParam("width"))
	slot := identity.NewSlot(width)

	handle, err := h.bridge.AttachButton(c.Request().Context(), slot, func(string) {})
	defer handle.Close()
	if err != nil {
		msg, _ := h.bridge.Unavailable()
		return c.JSON(http.StatusOK, googleButtonResponse{Available: false, Message: msg})
	}

	for _, control := range slot.Controls() {
		if btn, ok := control.(identity.SignInControl); ok {
			return c.JSON(http.StatusOK, googleButtonResponse{
				Available: true,
				ClientID:  btn.ClientID,
				Width:     btn.Width,
				Text:      btn.Text,
			})
		}
	}
	msg, _ := h.bridge.Unavailable()
	return c.JSON(http.StatusOK, googleButtonResponse{Available: false, Message: msg})
}

// authResponseFor assembles the post-auth payload. A sign-in that succeeds
// on the wrong surface never completes silently: the redirect targets the
// account's actual dashboard and the notice names the mismatch.
func (h *AuthHandler) authResponseFor(c echo.Context, user *domain.User, surface domain.Role, isNew bool) authResponse {
	role := domain.EffectiveRole(user)
	resp := authResponse{
		User:      user,
		Role:      role,
		Redirect:  service.DashboardFor(role),
		IsNewUser: isNew,
	}
	if surface != "" && surface != role {
		resp.Notice = fmt.Sprintf("this account is registered as a %s; taking you to your %s dashboard", role, role)
		h.recordMismatch(c, user, surface)
	}
	return resp
}

func (h *AuthHandler) recordMismatch(c echo.Context, user *domain.User, surface domain.Role) {
	h.log.Info().
		Str("user_id", user.ID).
		Str("surface", string(surface)).
		Str("role", string(domain.EffectiveRole(user))).
		Msg("cross-role sign-in detected")
	if h.audit == nil {
		return
	}
	ev := domain.AuditEvent{
		Action:    domain.AuditRoleMismatch,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      domain.EffectiveRole(user),
		Succeeded: true,
		Detail:    fmt.Sprintf("signed in from %s surface", surface),
		At:        time.Now().UTC(),
	}
	if err := h.audit.Record(c.Request().Context(), ev); err != nil {
		h.log.Warn().Err(err).Msg("audit write failed")
	}
}
