package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/model"
)

// Policy decides how new accounts start out and how long one-time links live.
type Policy struct {
	// AutoActivate lists roles that start active with a verified email and are
	// signed in right after registration.
	AutoActivate []model.Role
	// InitialStatus applies to every other role: pending or unverified.
	InitialStatus model.Status
	// MinPasswordLen is enforced on registration and password reset.
	MinPasswordLen int
	// ResetTokenTTL is the absolute lifetime of a password-reset token.
	ResetTokenTTL time.Duration
	// BaseURL prefixes verification and reset links.
	BaseURL string
}

// DefaultPolicy: admins auto-activate; everyone else verifies their email and
// then waits for an administrator in the pending state.
func DefaultPolicy() Policy {
	return Policy{
		AutoActivate:   []model.Role{model.RoleAdmin},
		InitialStatus:  model.StatusPending,
		MinPasswordLen: 6,
		ResetTokenTTL:  time.Hour,
		BaseURL:        "http://localhost:5173",
	}
}

func (p Policy) autoActivates(r model.Role) bool { return slices.Contains(p.AutoActivate, r) }

func (p Policy) validate() error {
	switch p.InitialStatus {
	case model.StatusPending, model.StatusUnverified:
	default:
		return fmt.Errorf("%w: initial status %q", errs.ErrValidation, p.InitialStatus)
	}
	for _, r := range p.AutoActivate {
		if _, ok := model.ParseRole(string(r)); !ok {
			return fmt.Errorf("%w: auto-activate role %q", errs.ErrValidation, r)
		}
	}
	if p.ResetTokenTTL <= 0 {
		return fmt.Errorf("%w: reset token ttl %s", errs.ErrValidation, p.ResetTokenTTL)
	}
	return nil
}
