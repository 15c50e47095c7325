// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/app/middleware"
	businessflow "github.com/araw/ship-ledger/business_flow"
	"github.com/araw/ship-ledger/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	VerifyOTP(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	VerifyResetOTP(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	loginFlow    businessflow.LoginFlow
	resetFlow    businessflow.PasswordResetFlow
	secureCookie bool
	validator    *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.LoginFlow, resetFlow businessflow.PasswordResetFlow, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		loginFlow:    loginFlow,
		resetFlow:    resetFlow,
		secureCookie: secureCookie,
		validator:    validator.New(),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Login checks the password and dispatches a login code to the admin's mailbox
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loginFlow.Login(h.createRequestContext(c, "/api/login"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsNotAllowListed(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "NOT_ALLOW_LISTED", nil)
		}
		if businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect password", "INCORRECT_PASSWORD", nil)
		}
		if businessflow.IsMailDispatchFailed(err) {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send OTP email", "MAIL_DISPATCH_FAILED", nil)
		}

		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "OTP sent to your email", result)
}

// VerifyOTP checks the login code and sets the session cookie on success
func (h *AuthHandler) VerifyOTP(c fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	session, err := h.loginFlow.VerifyOTP(h.createRequestContext(c, "/api/verify-otp"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsNoValidOTPFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "No valid OTP found", "NO_VALID_OTP", nil)
		}
		if businessflow.IsOTPExpired(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "OTP expired", "OTP_EXPIRED", nil)
		}
		if businessflow.IsInvalidOTPCode(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid OTP code", "INVALID_OTP_CODE", nil)
		}

		log.Println("OTP verification failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "OTP verification failed", "OTP_VERIFICATION_FAILED", nil)
	}

	h.setSessionCookie(c, session.Token)

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", dto.SessionResponse{
		Email:     session.Email,
		ExpiresIn: utils.SessionTokenTTLSeconds,
	})
}

// Logout clears the session cookie. Sessions are stateless, so the cookie is
// the only thing to remove.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if claims, ok := middleware.GetSessionClaimsFromContext(c); ok {
		metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
		_ = h.loginFlow.Logout(h.createRequestContext(c, "/api/logout"), claims.Email, metadata)
	}

	h.clearSessionCookie(c)

	return h.SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

// ForgotPassword dispatches a password reset code
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.resetFlow.RequestReset(h.createRequestContext(c, "/api/forgot-password"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsMailDispatchFailed(err) {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send reset email", "MAIL_DISPATCH_FAILED", nil)
		}

		log.Println("Password reset request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Password reset request failed", "RESET_REQUEST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reset code sent to your email", result)
}

// VerifyResetOTP checks the reset code without consuming it
func (h *AuthHandler) VerifyResetOTP(c fiber.Ctx) error {
	var req dto.VerifyResetOTPRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.resetFlow.VerifyResetOTP(h.createRequestContext(c, "/api/verify-reset-otp"), &req, metadata)
	if err != nil {
		if businessflow.IsNotAllowListed(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "NOT_ALLOW_LISTED", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsNoValidOTPFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "No valid OTP found", "NO_VALID_OTP", nil)
		}
		if businessflow.IsOTPExpired(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "OTP expired", "OTP_EXPIRED", nil)
		}
		if businessflow.IsInvalidOTPCode(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid OTP code", "INVALID_OTP_CODE", nil)
		}

		log.Println("Reset OTP verification failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reset OTP verification failed", "RESET_OTP_VERIFICATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "OTP verified", nil)
}

// ResetPassword stores the new password
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.resetFlow.ResetPassword(h.createRequestContext(c, "/api/reset-password"), &req, metadata)
	if err != nil {
		if businessflow.IsPasswordTooShort(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Password must be at least 6 characters", "PASSWORD_TOO_SHORT", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsNoValidOTPFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "No valid OTP found", "NO_VALID_OTP", nil)
		}
		if businessflow.IsOTPExpired(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "OTP expired", "OTP_EXPIRED", nil)
		}
		if businessflow.IsInvalidOTPCode(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid OTP code", "INVALID_OTP_CODE", nil)
		}

		log.Println("Password reset failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Password reset failed", "PASSWORD_RESET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Password reset successful", nil)
}

func (h *AuthHandler) setSessionCookie(c fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   utils.SessionTokenTTLSeconds,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AuthHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
