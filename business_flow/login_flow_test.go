// Package businessflow contains the core business logic and use cases for the ship ledger workflows
package businessflow

import (
	"context"
	"regexp"
	"strconv"
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

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "secret123"
)

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

type loginFlowFixture struct {
	flow     LoginFlow
	users    *fakeUserRepo
	audit    *fakeAuditRepo
	provider *services.MockEmailProvider
	tokens   services.TokenService
}

func newLoginFlowFixture(t *testing.T, allowedEmails []string) *loginFlowFixture {
	t.Helper()

	users := newFakeUserRepo()
	audit := newFakeAuditRepo()
	provider := services.NewMockEmailProvider()

	tokens, err := services.NewTokenService(time.Hour, "test-issuer", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	flow := NewLoginFlow(users, audit, tokens, services.NewNotificationService(provider), allowedEmails, nil)
	return &loginFlowFixture{
		flow:     flow,
		users:    users,
		audit:    audit,
		provider: provider,
		tokens:   tokens,
	}
}

func (f *loginFlowFixture) seedAdmin(t *testing.T) *models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return f.users.addUser(testAdminEmail, string(hash))
}

// lastOTP extracts the code from the most recently dispatched mail
func (f *loginFlowFixture) lastOTP(t *testing.T) string {
	t.Helper()
	sent := f.provider.Sent()
	require.NotEmpty(t, sent)
	match := otpPattern.FindStringSubmatch(sent[len(sent)-1].Message)
	require.Len(t, match, 2)
	return match[1]
}

func testMetadata() *ClientMetadata {
	return NewClientMetadata("198.51.100.7", "go-test")
}

func TestLogin_DispatchesOTP(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	resp, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
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

	assert.Contains(t, f.audit.actions(), models.AuditActionLoginOTPSent)
}

func TestLogin_NormalizesEmail(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	resp, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "  Admin@Example.COM ",
		Password: testAdminPassword,
	}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, testAdminEmail, resp.Email)
}

func TestLogin_RejectsUnlistedEmail(t *testing.T) {
	f := newLoginFlowFixture(t, []string{"someone.else@example.com"})
	f.seedAdmin(t)

	resp, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsNotAllowListed(err))
	assert.Empty(t, f.provider.Sent())
	assert.Contains(t, f.audit.actions(), models.AuditActionLoginFailed)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})

	resp, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsUserNotFound(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	resp, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: "not-the-password",
	}, testMetadata())
	assert.Nil(t, resp)
	assert.True(t, IsIncorrectPassword(err))
	assert.Empty(t, f.provider.Sent())
}

func TestVerifyOTP_IssuesSession(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	_, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	require.NoError(t, err)

	session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{
		Email: testAdminEmail,
		OTP:   f.lastOTP(t),
	}, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, testAdminEmail, session.Email)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	claims, err := f.tokens.ValidateSessionToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, testAdminEmail, claims.Email)

	assert.Contains(t, f.audit.actions(), models.AuditActionLoginSuccess)
}

func TestVerifyOTP_ConsumesCode(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	_, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	require.NoError(t, err)
	code := f.lastOTP(t)

	_, err = f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: code}, testMetadata())
	require.NoError(t, err)

	// The code was consumed on the first successful verification
	session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: code}, testMetadata())
	assert.Nil(t, session)
	assert.True(t, IsNoValidOTPFound(err))
}

func TestVerifyOTP_SupersededCode(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	_, err := f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	require.NoError(t, err)
	firstCode := f.lastOTP(t)

	_, err = f.flow.Login(context.Background(), &dto.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	}, testMetadata())
	require.NoError(t, err)
	secondCode := f.lastOTP(t)

	if firstCode != secondCode {
		session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: firstCode}, testMetadata())
		assert.Nil(t, session)
		assert.True(t, IsInvalidOTPCode(err))
	}

	_, err = f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: secondCode}, testMetadata())
	assert.NoError(t, err)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	user := f.seedAdmin(t)

	issuedAt := utils.UTCNow().Add(-utils.OTPExpiry - time.Minute)
	require.NoError(t, f.users.SetOTP(context.Background(), user.ID, "123456", issuedAt))

	session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: "123456"}, testMetadata())
	assert.Nil(t, session)
	assert.True(t, IsOTPExpired(err))
}

func TestVerifyOTP_NoPendingCode(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	f.seedAdmin(t)

	session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: "123456"}, testMetadata())
	assert.Nil(t, session)
	assert.True(t, IsNoValidOTPFound(err))
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})
	user := f.seedAdmin(t)

	require.NoError(t, f.users.SetOTP(context.Background(), user.ID, "654321", utils.UTCNow()))

	session, err := f.flow.VerifyOTP(context.Background(), &dto.VerifyOTPRequest{Email: testAdminEmail, OTP: "111111"}, testMetadata())
	assert.Nil(t, session)
	assert.True(t, IsInvalidOTPCode(err))
}

func TestLogout_RecordsAudit(t *testing.T) {
	f := newLoginFlowFixture(t, []string{testAdminEmail})

	err := f.flow.Logout(context.Background(), testAdminEmail, testMetadata())
	require.NoError(t, err)
	assert.Contains(t, f.audit.actions(), models.AuditActionLogout)
}

func TestGenerateOTP(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}
