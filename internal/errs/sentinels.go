// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Storage and validation sentinels.
var (
	// ErrNotFound indicates the requested key or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input (empty name, unknown role, ...).
	ErrValidation = errors.New("validation error")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Identity sentinels surfaced to the UI layer.
var (
	// ErrDuplicateEmail indicates a credential already exists for the email.
	ErrDuplicateEmail = errors.New("user already exists with this email")

	// ErrInvalidCredentials indicates no credential matches email and password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRoleMismatch is matched by *RoleMismatchError.
	ErrRoleMismatch = errors.New("role mismatch")

	// ErrPendingApproval indicates the account awaits administrator approval.
	ErrPendingApproval = errors.New("your account is pending approval by an administrator")

	// ErrAccountDeactivated indicates an administrator deactivated the account.
	ErrAccountDeactivated = errors.New("your account has been deactivated, please contact an administrator")

	// ErrEmailNotVerified indicates the account must verify its email first.
	ErrEmailNotVerified = errors.New("please verify your email before logging in")

	// ErrUnknownAccount indicates no account exists for the email.
	ErrUnknownAccount = errors.New("no account found with this email")

	// ErrAlreadyVerified indicates the email was verified before.
	ErrAlreadyVerified = errors.New("email is already verified")

	// ErrInvalidOrExpiredToken indicates a verification or reset token is unknown or stale.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrWeakPassword indicates the password is shorter than the configured minimum.
	ErrWeakPassword = errors.New("password too short")
)

// RoleMismatchError reports a login attempt with a role other than the account's.
type RoleMismatchError struct {
	Actual    string
	Requested string
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("this account is registered as a %s, not a %s", e.Actual, e.Requested)
}

// Is makes errors.Is(err, ErrRoleMismatch) hold.
func (e *RoleMismatchError) Is(target error) bool { return target == ErrRoleMismatch }
