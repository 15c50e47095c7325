// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for admin login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	Password string `json:"password" validate:"required,min=1,max=100" example:"SecurePass123"`
}

// VerifyOTPRequest represents the request payload for login OTP verification
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	OTP   string `json:"otp" validate:"required,len=6,numeric" example:"123456"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
}

// VerifyResetOTPRequest represents the request payload for reset OTP verification
type VerifyResetOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	OTP   string `json:"otp" validate:"required,len=6,numeric" example:"123456"`
}

// ResetPasswordRequest represents the request to set a new password. The OTP
// is optional on the wire; when present it is re-checked before the write.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=100" example:"NewSecurePass123"`
	OTP         string `json:"otp,omitempty" validate:"omitempty,len=6,numeric" example:"123456"`
}

// OTPIssuedResponse is returned when an OTP has been generated and dispatched
type OTPIssuedResponse struct {
	Email string `json:"email" example:"admin@example.com"`
}

// SessionResponse is returned after a successful OTP verification
type SessionResponse struct {
	Email     string `json:"email" example:"admin@example.com"`
	ExpiresIn int    `json:"expires_in" example:"3600"`
}
