package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/ids"
	"github.com/and161185/medrec/internal/mailer"
	"github.com/and161185/medrec/internal/model"
)

// VerifyEmail consumes a verification token. It returns false when no
// credential carries the token. Auto-activated roles become active; an
// unverified account of any other role moves to pending and waits for an
// administrator. Accounts already approved or deactivated keep their status.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return false, err
	}
	email, cred, ok := findCredential(creds, func(c model.Credential) bool { return c.VerificationToken == token })
	if !ok {
		return false, nil
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return false, err
	}
	p, ok := profiles[cred.UserID]
	if !ok {
		return false, nil
	}

	p.EmailVerified = true
	p.VerificationToken = ""
	switch {
	case s.policy.autoActivates(p.Role):
		p.Status = model.StatusActive
	case p.Status == model.StatusUnverified:
		p.Status = model.StatusPending
	}
	cred.VerificationToken = ""

	prev := creds[email]
	creds[email] = cred
	if err := s.tables.Credentials.Save(ctx, creds); err != nil {
		return false, err
	}
	profiles[p.ID] = p
	if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
		creds[email] = prev
		if rerr := s.tables.Credentials.Save(ctx, creds); rerr != nil {
			s.log.Error("rollback credentials", zap.String("user_id", p.ID), zap.Error(rerr))
		}
		return false, err
	}
	s.log.Info("email verified", zap.String("user_id", p.ID), zap.String("status", string(p.Status)))
	if err := s.refreshSession(ctx, p); err != nil {
		return true, err
	}
	return true, nil
}

// ResendVerificationEmail issues a fresh verification token and mails it.
func (s *AuthServiceImpl) ResendVerificationEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return err
	}
	cred, ok := creds[email]
	if !ok {
		return errs.ErrUnknownAccount
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return err
	}
	p, ok := profiles[cred.UserID]
	if !ok {
		return errs.ErrUnknownAccount
	}
	if p.EmailVerified {
		return errs.ErrAlreadyVerified
	}

	tok, err := ids.NewToken()
	if err != nil {
		return err
	}
	prev := cred
	cred.VerificationToken, p.VerificationToken = tok, tok
	creds[email] = cred
	if err := s.tables.Credentials.Save(ctx, creds); err != nil {
		return err
	}
	profiles[p.ID] = p
	if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
		creds[email] = prev
		if rerr := s.tables.Credentials.Save(ctx, creds); rerr != nil {
			s.log.Error("rollback credentials", zap.String("user_id", p.ID), zap.Error(rerr))
		}
		return err
	}
	if err := s.appendOutbox(ctx, mailer.BuildVerificationEmail(email, p.Name, s.policy.BaseURL, tok, s.now())); err != nil {
		return err
	}
	s.log.Info("verification email queued", zap.String("user_id", p.ID))
	return nil
}

// ForgotPassword issues a reset token valid for Policy.ResetTokenTTL and mails it.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return err
	}
	cred, ok := creds[email]
	if !ok {
		return errs.ErrUnknownAccount
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return err
	}
	name := email
	if p, ok := profiles[cred.UserID]; ok {
		name = p.Name
	}

	tok, err := ids.NewToken()
	if err != nil {
		return err
	}
	now := s.now()
	exp := now.Add(s.policy.ResetTokenTTL)
	cred.ResetToken, cred.ResetTokenExpiry = tok, &exp
	creds[email] = cred
	if err := s.tables.Credentials.Save(ctx, creds); err != nil {
		return err
	}
	if err := s.appendOutbox(ctx, mailer.BuildResetEmail(email, name, s.policy.BaseURL, tok, s.policy.ResetTokenTTL, now)); err != nil {
		return err
	}
	s.log.Info("password reset email queued", zap.String("user_id", cred.UserID))
	return nil
}

// ResetPassword sets a new password for the holder of a live reset token. An
// unknown or expired token yields false and leaves the credential untouched;
// only a live token gets its new password checked against MinPasswordLen.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	if token == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return false, err
	}
	email, cred, ok := findCredential(creds, func(c model.Credential) bool { return c.ResetToken == token })
	if !ok || cred.ResetTokenExpiry == nil || s.now().After(*cred.ResetTokenExpiry) {
		return false, nil
	}
	if len(newPassword) < s.policy.MinPasswordLen {
		return false, fmt.Errorf("%w: at least %d characters", errs.ErrWeakPassword, s.policy.MinPasswordLen)
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}
	cred.PwdHash, cred.Salt = hash, salt
	cred.ClearReset()
	creds[email] = cred
	if err := s.tables.Credentials.Save(ctx, creds); err != nil {
		return false, err
	}
	s.log.Info("password reset", zap.String("user_id", cred.UserID))
	return true, nil
}

// Outbox returns the simulated emails addressed to email, oldest first.
func (s *AuthServiceImpl) Outbox(ctx context.Context, email string) ([]model.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.tables.Outbox.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.OutboxEntry{}, all[normalizeEmail(email)]...), nil
}

func (s *AuthServiceImpl) appendOutbox(ctx context.Context, e model.OutboxEntry) error {
	all, err := s.tables.Outbox.Load(ctx)
	if err != nil {
		return err
	}
	all[e.Recipient] = append(all[e.Recipient], e)
	return s.tables.Outbox.Save(ctx, all)
}

func findCredential(creds map[string]model.Credential, match func(model.Credential) bool) (string, model.Credential, bool) {
	for email, c := range creds {
		if match(c) {
			return email, c, true
		}
	}
	return "", model.Credential{}, false
}
