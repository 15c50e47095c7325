package businessflow

import (
	"context"
	"fmt"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/app/services"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/repository"
	"github.com/araw/ship-ledger/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordResetFlow handles the mail-verified password reset sequence
type PasswordResetFlow interface {
	RequestReset(ctx context.Context, request *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.OTPIssuedResponse, error)
	VerifyResetOTP(ctx context.Context, request *dto.VerifyResetOTPRequest, metadata *ClientMetadata) error
	ResetPassword(ctx context.Context, request *dto.ResetPasswordRequest, metadata *ClientMetadata) error
}

// PasswordResetFlowImpl implements the password reset business flow
type PasswordResetFlowImpl struct {
	userRepo        repository.AdminUserRepository
	auditRepo       repository.AuditLogRepository
	notificationSvc services.NotificationService
	allowedEmails   map[string]struct{}
	db              *gorm.DB
}

// NewPasswordResetFlow creates a new password reset flow instance. The allow
// list gates reset verification only; requesting a code needs nothing more
// than a known account.
func NewPasswordResetFlow(
	userRepo repository.AdminUserRepository,
	auditRepo repository.AuditLogRepository,
	notificationSvc services.NotificationService,
	allowedEmails []string,
	db *gorm.DB,
) PasswordResetFlow {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		allowed[utils.NormalizeEmail(email)] = struct{}{}
	}

	return &PasswordResetFlowImpl{
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		notificationSvc: notificationSvc,
		allowedEmails:   allowed,
		db:              db,
	}
}

// RequestReset dispatches a reset code to a known account. Unknown emails are
// reported as not found rather than masked; this is an internal tool and the
// operator wants the distinction.
func (pf *PasswordResetFlowImpl) RequestReset(ctx context.Context, request *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.OTPIssuedResponse, error) {
	email := utils.NormalizeEmail(request.Email)

	resp, err := runInTransaction(ctx, pf.db, func(ctx context.Context) (*dto.OTPIssuedResponse, error) {
		user, err := pf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		otpCode, err := GenerateOTP()
		if err != nil {
			return nil, err
		}

		if err := pf.userRepo.SetOTP(ctx, user.ID, otpCode, utils.UTCNow()); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Your password reset code is: %s. It expires in %d minutes.", otpCode, int(utils.OTPExpiry.Minutes()))
		if err := pf.notificationSvc.SendEmail(user.Email, "Password reset code", message); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMailDispatchFailed, err)
		}

		return &dto.OTPIssuedResponse{Email: user.Email}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password reset request failed: %s", err.Error())
		_ = pf.logResetEvent(ctx, email, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESET_REQUEST_FAILED", "Password reset request failed", err)
	}

	msg := fmt.Sprintf("Reset OTP dispatched to %s", email)
	_ = pf.logResetEvent(ctx, email, models.AuditActionResetOTPSent, msg, true, nil, metadata)

	return resp, nil
}

// VerifyResetOTP checks the code without consuming it so the subsequent
// password write can re-verify it.
func (pf *PasswordResetFlowImpl) VerifyResetOTP(ctx context.Context, request *dto.VerifyResetOTPRequest, metadata *ClientMetadata) error {
	email := utils.NormalizeEmail(request.Email)

	_, err := runInTransaction(ctx, pf.db, func(ctx context.Context) (struct{}, error) {
		if _, ok := pf.allowedEmails[email]; !ok {
			return struct{}{}, ErrNotAllowListed
		}

		user, err := pf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return struct{}{}, err
		}
		if user == nil {
			return struct{}{}, ErrUserNotFound
		}

		if err := checkPendingOTP(user, request.OTP); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Reset OTP verification failed: %s", err.Error())
		_ = pf.logResetEvent(ctx, email, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return NewBusinessError("RESET_OTP_VERIFICATION_FAILED", "Reset OTP verification failed", err)
	}

	msg := fmt.Sprintf("Reset OTP verified for %s", email)
	_ = pf.logResetEvent(ctx, email, models.AuditActionResetOTPVerified, msg, true, nil, metadata)

	return nil
}

// ResetPassword stores the new credential. When the request carries an OTP it
// is re-checked against the pending one before the write; the write itself
// clears the pending code either way.
func (pf *PasswordResetFlowImpl) ResetPassword(ctx context.Context, request *dto.ResetPasswordRequest, metadata *ClientMetadata) error {
	email := utils.NormalizeEmail(request.Email)

	_, err := runInTransaction(ctx, pf.db, func(ctx context.Context) (struct{}, error) {
		if len(request.NewPassword) < utils.MinPasswordLength {
			return struct{}{}, ErrPasswordTooShort
		}

		user, err := pf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return struct{}{}, err
		}
		if user == nil {
			return struct{}{}, ErrUserNotFound
		}

		if request.OTP != "" {
			if err := checkPendingOTP(user, request.OTP); err != nil {
				return struct{}{}, err
			}
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return struct{}{}, err
		}

		if err := pf.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password reset failed: %s", err.Error())
		_ = pf.logResetEvent(ctx, email, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	msg := fmt.Sprintf("Password reset completed for %s", email)
	_ = pf.logResetEvent(ctx, email, models.AuditActionPasswordResetDone, msg, true, nil, metadata)

	return nil
}

// checkPendingOTP validates a submitted code against the user's pending one.
func checkPendingOTP(user *models.AdminUser, code string) error {
	if !user.HasPendingOTP() {
		return ErrNoValidOTPFound
	}
	if user.OTPExpired(utils.OTPExpiry, utils.UTCNow()) {
		return ErrOTPExpired
	}
	if *user.OTP != code {
		return ErrInvalidOTPCode
	}
	return nil
}

func (pf *PasswordResetFlowImpl) logResetEvent(ctx context.Context, email string, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CorrelationID: uuid.New(),
		Email:         &email,
		Action:        action,
		Description:   &description,
		Success:       utils.ToPtr(success),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		ErrorMessage:  errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return pf.auditRepo.Save(ctx, audit)
}
