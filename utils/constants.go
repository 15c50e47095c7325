package utils

import (
	"time"
)

// Token and session time constants
const (
	// SessionTokenTTL is the validity window for session cookies (1 hour)
	SessionTokenTTL = 1 * time.Hour

	// SessionTokenTTLSeconds is the session cookie lifetime in seconds
	SessionTokenTTLSeconds = 3600

	// OTPExpiry is the time-to-live for OTP codes (10 minutes)
	OTPExpiry = 10 * time.Minute
)

// Session cookie constants
const (
	// SessionCookieName is the cookie under which the session token travels
	SessionCookieName = "token"
)

// Ledger constants
const (
	// DateLayout is the wire format for transaction dates
	DateLayout = "2006-01-02"

	// DefaultResultsWindowDays is how far back the results view reaches when
	// the caller gives no explicit start date
	DefaultResultsWindowDays = 30

	// MinPasswordLength is the minimum accepted admin password length
	MinPasswordLength = 6
)

// Context keys carried on request-scoped contexts
const (
	EndpointKey   = "endpoint"
	TimeoutKey    = "timeout"
	CancelFuncKey = "cancel_func"
)
