// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/app/services"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/repository"
	"github.com/araw/ship-ledger/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IssuedSession carries a freshly minted session token back to the handler,
// which turns it into a cookie. The token never appears in a response body.
type IssuedSession struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// LoginFlow handles admin authentication: password check, OTP issuance, and
// OTP verification that mints the session token.
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.OTPIssuedResponse, error)
	VerifyOTP(ctx context.Context, request *dto.VerifyOTPRequest, metadata *ClientMetadata) (*IssuedSession, error)
	Logout(ctx context.Context, email string, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo        repository.AdminUserRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	allowedEmails   map[string]struct{}
	db              *gorm.DB
}

// NewLoginFlow creates a new login flow instance. allowedEmails is the
// operator-managed allow list; entries are normalized on the way in.
func NewLoginFlow(
	userRepo repository.AdminUserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	allowedEmails []string,
	db *gorm.DB,
) LoginFlow {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		allowed[utils.NormalizeEmail(email)] = struct{}{}
	}

	return &LoginFlowImpl{
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		allowedEmails:   allowed,
		db:              db,
	}
}

// Login validates the password and dispatches a one-time code to the admin's
// mailbox. The code is persisted before dispatch so a delivered mail always
// refers to a code the server knows about.
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.OTPIssuedResponse, error) {
	email := utils.NormalizeEmail(request.Email)

	resp, err := runInTransaction(ctx, lf.db, func(ctx context.Context) (*dto.OTPIssuedResponse, error) {
		if _, ok := lf.allowedEmails[email]; !ok {
			return nil, ErrNotAllowListed
		}

		user, err := lf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		otpCode, err := GenerateOTP()
		if err != nil {
			return nil, err
		}

		// Overwrites any previously pending code; the old one stops working.
		if err := lf.userRepo.SetOTP(ctx, user.ID, otpCode, utils.UTCNow()); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Your login code is: %s. It expires in %d minutes.", otpCode, int(utils.OTPExpiry.Minutes()))
		if err := lf.notificationSvc.SendEmail(user.Email, "Your login code", message); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMailDispatchFailed, err)
		}

		return &dto.OTPIssuedResponse{Email: user.Email}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = lf.logAuthEvent(ctx, email, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("Login OTP dispatched to %s", email)
	_ = lf.logAuthEvent(ctx, email, models.AuditActionLoginOTPSent, msg, true, nil, metadata)

	return resp, nil
}

// VerifyOTP checks the submitted code against the pending one and, on match,
// consumes it and issues the session token.
func (lf *LoginFlowImpl) VerifyOTP(ctx context.Context, request *dto.VerifyOTPRequest, metadata *ClientMetadata) (*IssuedSession, error) {
	email := utils.NormalizeEmail(request.Email)

	session, err := runInTransaction(ctx, lf.db, func(ctx context.Context) (*IssuedSession, error) {
		user, err := lf.userRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		if !user.HasPendingOTP() {
			return nil, ErrNoValidOTPFound
		}
		if user.OTPExpired(utils.OTPExpiry, utils.UTCNow()) {
			return nil, ErrOTPExpired
		}
		if *user.OTP != request.OTP {
			return nil, ErrInvalidOTPCode
		}

		if err := lf.userRepo.ClearOTP(ctx, user.ID); err != nil {
			return nil, err
		}

		token, expiresAt, err := lf.tokenService.IssueSessionToken(user.Email)
		if err != nil {
			return nil, err
		}

		return &IssuedSession{
			Email:     user.Email,
			Token:     token,
			ExpiresAt: expiresAt,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("OTP verification failed: %s", err.Error())
		_ = lf.logAuthEvent(ctx, email, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %s", email)
	_ = lf.logAuthEvent(ctx, email, models.AuditActionLoginSuccess, msg, true, nil, metadata)

	return session, nil
}

// Logout only records the event. Sessions are stateless JWT cookies, so the
// actual invalidation is the handler clearing the cookie.
func (lf *LoginFlowImpl) Logout(ctx context.Context, email string, metadata *ClientMetadata) error {
	msg := "User logged out"
	return lf.logAuthEvent(ctx, utils.NormalizeEmail(email), models.AuditActionLogout, msg, true, nil, metadata)
}

// GenerateOTP produces a secure 6-digit code using crypto/rand
func GenerateOTP() (string, error) {
	// Uniform over 100000..999999 inclusive.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (lf *LoginFlowImpl) logAuthEvent(ctx context.Context, email string, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

	return lf.auditRepo.Save(ctx, audit)
}

// runInTransaction wraps fn in a database transaction. A nil db runs the
// callback directly; callers without a shared connection manage their own
// persistence.
func runInTransaction[T any](ctx context.Context, db *gorm.DB, fn func(context.Context) (T, error)) (T, error) {
	if db == nil {
		return fn(ctx)
	}

	var result T
	var fnErr error

	err := repository.WithTransaction(ctx, db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		var zero T
		return zero, err
	}
	return result, fnErr
}
