// Package migrate applies the embedded SQL migrations of the Postgres store.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/medrec/migrations"
)

// gooseLogger routes goose output through zap.
type gooseLogger struct{ s *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...any) { l.s.Infof(format, v...) }

// Fatalf logs at error level; goose must not terminate the process.
func (l gooseLogger) Fatalf(format string, v ...any) { l.s.Errorf(format, v...) }

// gooseLog is shared by every goose call; setup(nil) keeps the last one set.
var gooseLog = gooseLogger{s: zap.NewNop().Sugar()}

func setup(log *zap.Logger) error {
	if log != nil {
		gooseLog = gooseLogger{s: log.Named("migrate").Sugar()}
	}
	goose.SetLogger(gooseLog)
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

// Up runs all pending migrations for dsn.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := setup(log); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Version reports the schema version recorded in dsn.
func Version(ctx context.Context, dsn string, log *zap.Logger) (int64, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := setup(log); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
