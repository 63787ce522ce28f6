package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/medrec/internal/model"
)

// AddRecord appends a record to the signed-in user's bucket. Without a session
// it does nothing and returns nil, nil.
func (s *AuthServiceImpl) AddRecord(ctx context.Context, fields map[string]any) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, nil
	}
	rec := model.Record{
		ID:        s.recIDs.Next(),
		CreatedAt: s.now(),
		UserID:    s.user.ID,
		Fields:    model.RecordFields(fields),
	}

	all, err := s.tables.Records.Load(ctx)
	if err != nil {
		return nil, err
	}
	bucket := append(all[rec.UserID], rec)
	all[rec.UserID] = bucket
	if err := s.tables.Records.Save(ctx, all); err != nil {
		return nil, err
	}
	s.records = append([]model.Record(nil), bucket...)
	s.log.Debug("record added", zap.String("user_id", rec.UserID), zap.String("record_id", rec.ID))
	return &rec, nil
}
