// Package businessflow contains the core business logic and use cases for the ship ledger workflows
package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/araw/ship-ledger/app/dto"
	"github.com/araw/ship-ledger/app/services"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type resetFlowFixture struct {
	flow     PasswordResetFlow
	users    *fakeUserRepo
	audit    *fakeAuditRepo
	provider *services.MockEmailProvider
}

func newResetFlowFixture(t *testing.T) *resetFlowFixture {
	t.Helper()

	users := newFakeUserRepo()
	audit := newFakeAuditRepo()
	provider := services.NewMockEmailProvider()

	flow := NewPasswordResetFlow(users, audit, services.NewNotificationService(provider), []string{testAdminEmail}, nil)
	return &resetFlowFixture{
		flow:     flow,
		users:    users,
		audit:    audit,
		provider: provider,
	}
}

func (f *resetFlowFixture) seedAdmin(t *testing.T) *models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return f.users.addUser(testAdminEmail, string(hash))
}

func (f *resetFlowFixture) lastOTP(t *testing.T) string {
	t.Helper()
	sent := f.provider.Sent()
	require.NotEmpty(t, sent)
	match := otpPattern.FindStringSubmatch(sent[len(sent)-1].Message)
	require.Len(t, match, 2)
	return match[1]
}

func TestRequestReset_DispatchesCode(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	resp, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: testAdminEmail}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, testAdminEmail, resp.Email)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testAdminEmail, sent[0].To)

	code := f.lastOTP(t)
	user, err := f.users.ByEmail(context.Background(), testAdminEmail)
	require.NoError(t, err)
	require.True(t, user.HasPendingOTP())
	assert.Equal(t, code, *user.OTP)

	assert.Contains(t, f.audit.actions(), models.AuditActionResetOTPSent)
}

func TestRequestReset_UnknownUser(t *testing.T) {
	f := newResetFlowFixture(t)

	resp, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: "nobody@example.com"}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsUserNotFound(err))
	assert.Empty(t, f.provider.Sent())
}

func TestVerifyResetOTP_DoesNotConsumeCode(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	_, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: testAdminEmail}, testMetadata())
	require.NoError(t, err)
	code := f.lastOTP(t)

	err = f.flow.VerifyResetOTP(context.Background(), &dto.VerifyResetOTPRequest{Email: testAdminEmail, OTP: code}, testMetadata())
	require.NoError(t, err)

	// Verification leaves the code in place so the reset itself can re-check it
	err = f.flow.VerifyResetOTP(context.Background(), &dto.VerifyResetOTPRequest{Email: testAdminEmail, OTP: code}, testMetadata())
	assert.NoError(t, err)
	assert.Contains(t, f.audit.actions(), models.AuditActionResetOTPVerified)
}

func TestVerifyResetOTP_RejectsUnlistedEmail(t *testing.T) {
	f := newResetFlowFixture(t)
	f.users.addUser("outsider@example.com", "irrelevant")

	err := f.flow.VerifyResetOTP(context.Background(), &dto.VerifyResetOTPRequest{Email: "outsider@example.com", OTP: "123456"}, testMetadata())
	assert.True(t, IsNotAllowListed(err))
}

func TestVerifyResetOTP_WrongCode(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	_, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: testAdminEmail}, testMetadata())
	require.NoError(t, err)

	err = f.flow.VerifyResetOTP(context.Background(), &dto.VerifyResetOTPRequest{Email: testAdminEmail, OTP: "000000"}, testMetadata())
	assert.True(t, IsInvalidOTPCode(err))
}

func TestVerifyResetOTP_Expired(t *testing.T) {
	f := newResetFlowFixture(t)
	user := f.seedAdmin(t)

	issuedAt := utils.UTCNow().Add(-utils.OTPExpiry - time.Minute)
	require.NoError(t, f.users.SetOTP(context.Background(), user.ID, "123456", issuedAt))

	err := f.flow.VerifyResetOTP(context.Background(), &dto.VerifyResetOTPRequest{Email: testAdminEmail, OTP: "123456"}, testMetadata())
	assert.True(t, IsOTPExpired(err))
}

func TestResetPassword_RotatesCredential(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	_, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: testAdminEmail}, testMetadata())
	require.NoError(t, err)
	code := f.lastOTP(t)

	err = f.flow.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email:       testAdminEmail,
		OTP:         code,
		NewPassword: "brand-new-password",
	}, testMetadata())
	require.NoError(t, err)

	user, err := f.users.ByEmail(context.Background(), testAdminEmail)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("brand-new-password")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(testAdminPassword)))

	// The pending code is cleared alongside the credential write
	assert.False(t, user.HasPendingOTP())
	assert.Contains(t, f.audit.actions(), models.AuditActionPasswordResetDone)
}

func TestResetPassword_WithoutOTP(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	err := f.flow.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email:       testAdminEmail,
		NewPassword: "brand-new-password",
	}, testMetadata())
	require.NoError(t, err)

	user, err := f.users.ByEmail(context.Background(), testAdminEmail)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("brand-new-password")))
}

func TestResetPassword_TooShort(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	err := f.flow.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email:       testAdminEmail,
		NewPassword: "short",
	}, testMetadata())
	assert.True(t, IsPasswordTooShort(err))

	// Credential untouched
	user, lookupErr := f.users.ByEmail(context.Background(), testAdminEmail)
	require.NoError(t, lookupErr)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(testAdminPassword)))
}

func TestResetPassword_WrongOTP(t *testing.T) {
	f := newResetFlowFixture(t)
	f.seedAdmin(t)

	_, err := f.flow.RequestReset(context.Background(), &dto.ForgotPasswordRequest{Email: testAdminEmail}, testMetadata())
	require.NoError(t, err)

	err = f.flow.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email:       testAdminEmail,
		OTP:         "000000",
		NewPassword: "brand-new-password",
	}, testMetadata())
	assert.True(t, IsInvalidOTPCode(err))
}
