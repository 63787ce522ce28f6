package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/and161185/medrec/internal/model"
)

// GetAllUsers returns every profile sorted by email. Callers without an admin
// session get an empty list, not an error.
func (s *AuthServiceImpl) GetAllUsers(ctx context.Context) ([]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isAdmin() {
		return []model.Profile{}, nil
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// ApproveUser moves a pending account to active.
func (s *AuthServiceImpl) ApproveUser(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusActive)
}

// ActivateUser reactivates an account.
func (s *AuthServiceImpl) ActivateUser(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusActive)
}

// DeactivateUser blocks future logins of an account.
func (s *AuthServiceImpl) DeactivateUser(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusInactive)
}

// setStatus is a silent no-op for non-admins and unknown ids.
func (s *AuthServiceImpl) setStatus(ctx context.Context, id string, st model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isAdmin() {
		return nil
	}
	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return err
	}
	p, ok := profiles[id]
	if !ok {
		return nil
	}
	from := p.Status
	p.Status = st
	profiles[id] = p
	if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
		return err
	}
	s.log.Info("user status changed",
		zap.String("user_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(st)),
		zap.String("by", s.user.ID),
	)
	return s.refreshSession(ctx, p)
}

// DeleteUser removes the profile, the credential and the record bucket. Each is
// removed if present; a missing one does not stop the others.
func (s *AuthServiceImpl) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isAdmin() || id == "" {
		return nil
	}

	profiles, err := s.tables.Profiles.Load(ctx)
	if err != nil {
		return err
	}
	creds, err := s.tables.Credentials.Load(ctx)
	if err != nil {
		return err
	}
	records, err := s.tables.Records.Load(ctx)
	if err != nil {
		return err
	}

	var credKeys []string
	if p, ok := profiles[id]; ok {
		if c, ok := creds[p.Email]; ok && c.UserID == id {
			credKeys = append(credKeys, p.Email)
		}
	}
	if len(credKeys) == 0 {
		for email, c := range creds {
			if c.UserID == id {
				credKeys = append(credKeys, email)
			}
		}
	}

	if _, ok := profiles[id]; ok {
		delete(profiles, id)
		if err := s.tables.Profiles.Save(ctx, profiles); err != nil {
			return err
		}
	}
	if len(credKeys) > 0 {
		for _, k := range credKeys {
			delete(creds, k)
		}
		if err := s.tables.Credentials.Save(ctx, creds); err != nil {
			return err
		}
	}
	if _, ok := records[id]; ok {
		delete(records, id)
		if err := s.tables.Records.Save(ctx, records); err != nil {
			return err
		}
	}
	s.log.Info("user deleted", zap.String("user_id", id), zap.String("by", s.user.ID))

	if s.user.ID == id {
		return s.endSession(ctx)
	}
	return nil
}
