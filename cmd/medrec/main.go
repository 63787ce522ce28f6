// Command medrec drives the identity and session store from the shell. The
// session persists between invocations through the configured store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/medrec/internal/config"
	"github.com/and161185/medrec/internal/limiter"
	"github.com/and161185/medrec/internal/logging"
	"github.com/and161185/medrec/internal/migrate"
	"github.com/and161185/medrec/internal/repository"
	"github.com/and161185/medrec/internal/service"
	"github.com/and161185/medrec/internal/sessiontoken"
	"github.com/and161185/medrec/internal/storage"
	"github.com/and161185/medrec/internal/storage/file"
	"github.com/and161185/medrec/internal/storage/memory"
	"github.com/and161185/medrec/internal/storage/postgres"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `medrec CLI
Usage:
  medrec [-store memory|file|postgres] [-data-dir DIR] [-dsn DSN] [flags] <cmd> [args]

Commands:
  version
  register    -name <name> -email <email> -password <pw> -role <admin|patient|doctor|lab>
  login       -email <email> -password <pw> -role <role>
  logout
  whoami
  add-record  -json '{"k":"v"}' | -file <path|->
  records
  users                                           (admin)
  approve     -id <user-id>                       (admin)
  activate    -id <user-id>                       (admin)
  deactivate  -id <user-id>                       (admin)
  delete      -id <user-id>                       (admin)
  verify      -token <token>
  resend      -email <email>
  forgot      -email <email>
  reset       -token <token> -password <pw>
  outbox      -email <email>
`)
}

// run parses global flags, opens the store and dispatches one command.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}
	if len(rest) < 1 {
		usage(stderr)
		return 2
	}
	name, cmdArgs := rest[0], rest[1:]

	if name == "version" {
		fmt.Fprintf(stdout, "medrec %s (%s)\n", version, buildDate)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(stderr)
		return 2
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(stderr, "logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	svc, closeStore, err := openService(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", zap.String("store", cfg.Store), zap.Error(err))
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer closeStore()

	if err := cmd(ctx, svc, cmdArgs, stdout); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, ue.Error())
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// openStore returns the KV backend and the login limiter matching cfg.Store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.KV, limiter.Limiter, func(), error) {
	mem := limiter.NewMemory(cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), mem, func() {}, nil
	case config.StoreFile:
		st, err := file.New(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, mem, func() {}, nil
	case config.StorePostgres:
		if err := migrate.Up(ctx, cfg.DatabaseDSN, logger); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		if v, err := migrate.Version(ctx, cfg.DatabaseDSN, logger); err == nil {
			logger.Debug("schema ready", zap.Int64("version", v))
		}
		db, err := postgres.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		lim := limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
		return postgres.NewKV(db), lim, db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func policyFrom(cfg *config.Config) service.Policy {
	p := service.DefaultPolicy()
	p.AutoActivate = cfg.AutoActivateRoles
	p.InitialStatus = cfg.InitialStatus
	p.MinPasswordLen = cfg.MinPasswordLen
	p.ResetTokenTTL = cfg.ResetTokenTTL
	p.BaseURL = cfg.BaseURL
	return p
}

func openService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.AuthServiceImpl, func(), error) {
	kv, lim, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.NewAuthService(
		repository.NewTables(kv),
		sessiontoken.NewSigner([]byte(cfg.SessionKey), cfg.SessionTTL),
		service.WithPolicy(policyFrom(cfg)),
		service.WithLimiter(lim),
		service.WithLogger(logger),
	)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if err := svc.Load(ctx); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	return svc, closeStore, nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
