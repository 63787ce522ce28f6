package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/medrec/internal/model"
	"github.com/and161185/medrec/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestTable_LoadMissingIsEmpty(t *testing.T) {
	tbl := NewTables(memory.New()).Profiles
	rows, err := tbl.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestTable_SaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	tables := NewTables(kv)

	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := map[string]model.Credential{
		"a@x.com": {UserID: "u1", PwdHash: []byte{1, 2}, Salt: []byte{3}, ResetToken: "r", ResetTokenExpiry: &exp},
	}
	require.NoError(t, tables.Credentials.Save(ctx, in))

	out, err := tables.Credentials.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", out["a@x.com"].UserID)
	require.Equal(t, []byte{1, 2}, out["a@x.com"].PwdHash)
	require.True(t, exp.Equal(*out["a@x.com"].ResetTokenExpiry))

	recs := map[string][]model.Record{"u1": {{ID: "r1", UserID: "u1", Fields: map[string]any{"bp": "120/80"}}}}
	require.NoError(t, tables.Records.Save(ctx, recs))
	gotRecs, err := tables.Records.Load(ctx)
	require.NoError(t, err)
	require.Len(t, gotRecs["u1"], 1)
	require.Equal(t, "120/80", gotRecs["u1"][0].Fields["bp"])
}

func TestTable_DecodeErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, KeyProfiles, []byte("{not json")))
	_, err := NewTables(kv).Profiles.Load(ctx)
	require.Error(t, err)
}

func TestTable_SaveErrorSurfaces(t *testing.T) {
	kv := memory.New()
	boom := errors.New("quota exceeded")
	kv.FailSet = func(string) error { return boom }
	err := NewTables(kv).Outbox.Save(context.Background(), nil)
	require.ErrorIs(t, err, boom)
}

func TestDoc_LoadSaveClear(t *testing.T) {
	ctx := context.Background()
	doc := NewTables(memory.New()).Session

	s, err := doc.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	require.NoError(t, doc.Save(ctx, model.Session{User: model.Profile{ID: "u1", Role: model.RoleAdmin}, Token: "t"}))
	s, err = doc.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", s.User.ID)

	require.NoError(t, doc.Clear(ctx))
	require.NoError(t, doc.Clear(ctx))
	s, err = doc.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}
