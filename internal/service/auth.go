// Package service contains the identity and session store: accounts, credentials,
// the current session, per-user records and the simulated outbox.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/medrec/internal/crypto"
	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/ids"
	"github.com/and161185/medrec/internal/limiter"
	"github.com/and161185/medrec/internal/mailer"
	"github.com/and161185/medrec/internal/model"
	"github.com/and161185/medrec/internal/repository"
	"github.com/and161185/medrec/internal/sessiontoken"
)

// AuthService defines account, session and administration operations.
type AuthService interface {
	// Load restores a persisted session; IsLoading stays true until it returns.
	Load(ctx context.Context) error
	// State returns a snapshot of the session view.
	State() SessionState

	// Register creates a profile and credential together.
	Register(ctx context.Context, name, email, password string, role model.Role) (model.Profile, error)
	// Login authenticates and establishes the session.
	Login(ctx context.Context, email, password string, role model.Role) (model.Profile, error)
	// Logout clears the session; it is idempotent.
	Logout(ctx context.Context) error

	// AddRecord appends a record to the signed-in user's bucket.
	AddRecord(ctx context.Context, fields map[string]any) (*model.Record, error)

	// GetAllUsers lists profiles; non-admins get an empty list.
	GetAllUsers(ctx context.Context) ([]model.Profile, error)
	ApproveUser(ctx context.Context, id string) error
	ActivateUser(ctx context.Context, id string) error
	DeactivateUser(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error

	VerifyEmail(ctx context.Context, token string) (bool, error)
	ResendVerificationEmail(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (bool, error)
	// Outbox returns the simulated emails sent to email.
	Outbox(ctx context.Context, email string) ([]model.OutboxEntry, error)
}

// SessionState is what the UI renders from.
type SessionState struct {
	User            *model.Profile
	Records         []model.Record
	IsAuthenticated bool
	IsLoading       bool
}

// AuthServiceImpl implements AuthService over the typed tables. One mutex
// serialises every operation, so each table is read, mutated and written back
// without interleaving.
type AuthServiceImpl struct {
	mu sync.Mutex

	tables *repository.Tables
	signer *sessiontoken.Signer
	policy Policy
	hasher pkgcrypto.Hasher
	lim    limiter.Limiter
	recIDs *ids.RecordIDs
	log    *zap.Logger
	now    func() time.Time

	loading bool
	user    *model.Profile
	records []model.Record
}

// Option customises an AuthServiceImpl.
type Option func(*AuthServiceImpl)

// WithPolicy sets the registration policy.
func WithPolicy(p Policy) Option { return func(s *AuthServiceImpl) { s.policy = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *AuthServiceImpl) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *AuthServiceImpl) { s.now = now } }

// WithHasher overrides the Argon2id parameters.
func WithHasher(h pkgcrypto.Hasher) Option { return func(s *AuthServiceImpl) { s.hasher = h } }

// WithLimiter enables login rate limiting.
func WithLimiter(l limiter.Limiter) Option { return func(s *AuthServiceImpl) { s.lim = l } }

// WithRecordIDs sets the record id generator.
func WithRecordIDs(g *ids.RecordIDs) Option { return func(s *AuthServiceImpl) { s.recIDs = g } }

// NewAuthService constructs the store. Call Load before serving reads.
func NewAuthService(tables *repository.Tables, signer *sessiontoken.Signer, opts ...Option) (*AuthServiceImpl, error) {
	s := &AuthServiceImpl{
		tables:  tables,
		signer:  signer,
		policy:  DefaultPolicy(),
		hasher:  pkgcrypto.DefaultHasher(),
		log:     zap.NewNop(),
		now:     time.Now,
		loading: true,
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.policy.validate(); err != nil {
		return nil, err
	}
	if s.recIDs == nil {
		g, err := ids.NewRecordIDs(1)
		if err != nil {
			return nil, err
		}
		s.recIDs = g
	}
	return s, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Load restores the persisted session if its signed token still verifies and
// the profile still exists; otherwise the stale pointer is removed.
func (s *AuthServiceImpl) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	sess, err := s.tables.Session.Load(ctx)
	if err != nil || sess == nil {
		return err
	}
	claims, verr := s.signer.Verify(sess.Token, s.now())
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return err
	}
	p, ok := profiles[sess.User.ID]
	if verr != nil || !ok || claims.Subject != p.ID {
		s.log.Info("discarding stale session", zap.String("user_id", sess.User.ID))
		return s.tables.Session.Clear(ctx)
	}
	bucket, err := s.loadBucket(ctx, p.ID)
	if err != nil {
		return err
	}
	s.user, s.records = &p, bucket
	return nil
}

// State returns a copy of the session view.
func (s *AuthServiceImpl) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{IsLoading: s.loading, IsAuthenticated: s.user != nil}
	if s.user != nil {
		u := *s.user
		st.User = &u
		st.Records = append([]model.Record(nil), s.records...)
	}
	return st
}

// Register creates the profile and credential. If any write fails the tables
// already written are restored, so both exist or neither does.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string, role model.Role) (model.Profile, error) {
	name = mailer.CleanName(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return model.Profile{}, fmt.Errorf("%w: name and email are required", errs.ErrValidation)
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return model.Profile{}, fmt.Errorf("%w: unknown role %q", errs.ErrValidation, role)
	}
	if len(password) < s.policy.MinPasswordLen {
		return model.Profile{}, fmt.Errorf("%w: at least %d characters", errs.ErrWeakPassword, s.policy.MinPasswordLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	if _, exists := creds[email]; exists {
		return model.Profile{}, errs.ErrDuplicateEmail
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}

	now := s.now()
	p := model.Profile{Name: name, Email: email, Role: role, LastActivity: now}
	for p.ID == "" || profiles[p.ID].ID != "" {
		p.ID = ids.NewUserID()
	}
	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return model.Profile{}, err
	}
	cred := model.Credential{PwdHash: hash, Salt: salt, UserID: p.ID}

	auto := s.policy.autoActivates(role)
	var mail *model.OutboxEntry
	if auto {
		p.Status, p.EmailVerified = model.StatusActive, true
	} else {
		tok, err := ids.NewToken()
		if err != nil {
			return model.Profile{}, err
		}
		p.Status = s.policy.InitialStatus
		p.VerificationToken, cred.VerificationToken = tok, tok
		m := mailer.BuildVerificationEmail(email, name, s.policy.BaseURL, tok, now)
		mail = &m
	}

	creds[email] = cred
	if err := s.tables.Credentials.Save(ctx, creds); err != nil {
		return model.Profile{}, err
	}
	undoCreds := func() {
		delete(creds, email)
		if rerr := s.tables.Credentials.Save(ctx, creds); rerr != nil {
			s.log.Error("rollback credentials", zap.String("user_id", p.ID), zap.Error(rerr))
		}
	}
	profiles[p.ID] = p
	if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
		undoCreds()
		return model.Profile{}, err
	}
	if mail != nil {
		if err := s.appendOutbox(ctx, *mail); err != nil {
			delete(profiles, p.ID)
			if rerr := s.tables.Profiles.Save(ctx, profiles); rerr != nil {
				s.log.Error("rollback profiles", zap.String("user_id", p.ID), zap.Error(rerr))
			}
			undoCreds()
			return model.Profile{}, err
		}
	}
	s.log.Info("user registered",
		zap.String("user_id", p.ID),
		zap.String("role", string(p.Role)),
		zap.String("status", string(p.Status)),
	)

	if auto {
		if err := s.startSession(ctx, p); err != nil {
			return p, fmt.Errorf("start session: %w", err)
		}
	}
	return p, nil
}

// Login checks, in order: rate limit, credentials, role, then account status.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string, role model.Role) (model.Profile, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lim != nil {
		allowed, retry, err := s.lim.Allow(ctx, email)
		if err != nil {
			return model.Profile{}, err
		}
		if !allowed {
			return model.Profile{}, fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retry.Round(time.Second))
		}
	}

	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	cred, ok := creds[email]
	p, found := profiles[cred.UserID]
	if !ok || !found || !s.hasher.Verify(password, cred.Salt, cred.PwdHash) {
		return model.Profile{}, s.loginFailed(ctx, email)
	}

	if p.Role != role {
		return model.Profile{}, &errs.RoleMismatchError{Actual: string(p.Role), Requested: string(role)}
	}
	switch p.Status {
	case model.StatusPending:
		return model.Profile{}, errs.ErrPendingApproval
	case model.StatusInactive:
		return model.Profile{}, errs.ErrAccountDeactivated
	case model.StatusUnverified:
		return model.Profile{}, errs.ErrEmailNotVerified
	}

	if s.lim != nil {
		if err := s.lim.Success(ctx, email); err != nil {
			s.log.Warn("limiter reset failed", zap.Error(err))
		}
	}

	p.LastActivity = s.now()
	profiles[p.ID] = p
	if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
		return model.Profile{}, err
	}
	if err := s.startSession(ctx, p); err != nil {
		return model.Profile{}, err
	}
	s.log.Info("user logged in", zap.String("user_id", p.ID), zap.String("role", string(p.Role)))
	return p, nil
}

func (s *AuthServiceImpl) loginFailed(ctx context.Context, email string) error {
	if s.lim == nil {
		return errs.ErrInvalidCredentials
	}
	blocked, retry, err := s.lim.Failure(ctx, email)
	if err != nil {
		s.log.Warn("limiter failure not recorded", zap.Error(err))
		return errs.ErrInvalidCredentials
	}
	if blocked {
		return fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retry.Round(time.Second))
	}
	return errs.ErrInvalidCredentials
}

// Logout drops the in-memory session before clearing the persisted pointer.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endSession(ctx)
}

func (s *AuthServiceImpl) endSession(ctx context.Context) error {
	if s.user != nil {
		s.log.Info("user logged out", zap.String("user_id", s.user.ID))
	}
	s.user, s.records = nil, nil
	return s.tables.Session.Clear(ctx)
}

// startSession signs and persists the session pointer, then loads the bucket.
func (s *AuthServiceImpl) startSession(ctx context.Context, p model.Profile) error {
	tok, exp, err := s.signer.Issue(p.ID, string(p.Role), s.now())
	if err != nil {
		return err
	}
	bucket, err := s.loadBucket(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.tables.Session.Save(ctx, model.Session{User: p, Token: tok, ExpiresAt: exp}); err != nil {
		return err
	}
	s.user, s.records = &p, bucket
	return nil
}

// refreshSession mirrors a changed profile into the current session.
func (s *AuthServiceImpl) refreshSession(ctx context.Context, p model.Profile) error {
	if s.user == nil || s.user.ID != p.ID {
		return nil
	}
	sess, err := s.tables.Session.Load(ctx)
	if err != nil {
		return err
	}
	s.user = &p
	if sess == nil {
		return nil
	}
	sess.User = p
	return s.tables.Session.Save(ctx, *sess)
}

func (s *AuthServiceImpl) loadBucket(ctx context.Context, userID string) ([]model.Record, error) {
	all, err := s.tables.Records.Load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]model.Record(nil), all[userID]...), nil
}

func (s *AuthServiceImpl) isAdmin() bool {
	return s.user != nil && s.user.Role == model.RoleAdmin
}
