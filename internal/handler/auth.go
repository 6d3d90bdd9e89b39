package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/starwars-api/internal/apperr"
	"github.com/iliyamo/starwars-api/internal/auth"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type forgotPasswordReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	ResetToken      string `json:"resetToken"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register: create an account and send the confirmation mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.BadRequest("invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return fail(c, apperr.BadRequest("firstName, lastName, email and password are required"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.Svc.Register(ctx, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusCreated,
		"User account was created successfully, please check your email for confirmation", profile)
}

// VerifyEmail: activate an account by its verification token and log it in.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	session, err := h.Svc.VerifyEmail(ctx, c.QueryParam("token"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Email was successfully verified", session)
}

// ResendVerification: send a fresh verification link for an unverified account.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return fail(c, apperr.BadRequest("email is required"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ResendVerification(ctx, email); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "A verification mail has been sent to you", nil)
}

// Login: verify credentials and return a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.BadRequest("invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, apperr.BadRequest("email and password are required"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	session, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Logged in successfully", session)
}

// Refresh: rotate a refresh token into a new session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, apperr.Unauthorized("Invalid refresh token"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	session, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Successfully renewed session", session)
}

// Logout: revoke the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Successfully logged out", nil)
}

// ForgotPassword: start the password reset flow.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return fail(c, apperr.BadRequest("email is required"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.InitiatePasswordReset(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "We have sent a mail to you", nil)
}

// ResetPassword: finish the password reset flow.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.BadRequest("invalid body"))
	}
	if req.ResetToken == "" {
		return fail(c, apperr.BadRequest("Invalid token"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ResetPassword(ctx, req.ResetToken, req.Password, req.ConfirmPassword); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Your password was reset successfully", nil)
}

// ChangePassword: replace the password of the authenticated user (protected).
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.BadRequest("invalid body"))
	}
	uid, ok := c.Get("user_id").(uint64)
	if !ok {
		return fail(c, apperr.Unauthorized("Please sign in or create an account"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, "Password was changed successfully", nil)
}

// reqCtx bounds the duration of storage calls made by a handler.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
