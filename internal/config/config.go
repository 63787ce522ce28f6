// Package config assembles runtime settings from defaults, an optional .env
// file, MEDREC_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/model"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds runtime settings.
//
// Fields:
//   - Store: persistence backend, one of memory, file, postgres.
//   - DataDir: directory of the file backend.
//   - DatabaseDSN: PostgreSQL DSN (pgx), required for the postgres backend.
//   - SessionKey: HMAC key signing the session pointer. The default is for development only.
//   - AutoActivateRoles / InitialStatus: registration policy.
//   - LoginMaxFails / LoginWindow / LoginBlockFor: login limiter; zero fails disables it.
type Config struct {
	Store       string
	DataDir     string
	DatabaseDSN string

	SessionKey     string
	SessionTTL     time.Duration
	ResetTokenTTL  time.Duration
	MinPasswordLen int
	BaseURL        string

	AutoActivateRoles []model.Role
	InitialStatus     model.Status

	LoginMaxFails int
	LoginWindow   time.Duration
	LoginBlockFor time.Duration

	LogLevel string
	LogDev   bool
	LogFile  string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Store = StoreFile
	c.DataDir = defaultDataDir()
	c.DatabaseDSN = ""
	c.SessionKey = "dev-session-key"
	c.SessionTTL = 24 * time.Hour
	c.ResetTokenTTL = time.Hour
	c.MinPasswordLen = 6
	c.BaseURL = "http://localhost:5173"
	c.AutoActivateRoles = []model.Role{model.RoleAdmin}
	c.InitialStatus = model.StatusPending
	c.LoginMaxFails = 5
	c.LoginWindow = 15 * time.Minute
	c.LoginBlockFor = 15 * time.Minute
	c.LogLevel = "info"
	c.LogDev = false
	c.LogFile = ""
}

func defaultDataDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "medrec")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "medrec")
}

// Load builds a Config for args (without the program name) and returns the
// arguments left after flag parsing.
func Load(args []string) (*Config, []string, error) {
	envFile := ".env"
	if v, ok := os.LookupEnv("MEDREC_ENV_FILE"); ok && v != "" {
		envFile = v
	}
	return load(args, envFile, os.LookupEnv)
}

func load(args []string, envFile string, lookup func(string) (string, bool)) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.applyEnv(withDotEnv(lookup, dotenv)); err != nil {
		return nil, nil, err
	}
	rest, err := cfg.parseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// readDotEnv parses path; a missing file yields no values.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	m, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

// withDotEnv prefers the real environment over .env values.
func withDotEnv(lookup func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		if v, ok := lookup(k); ok {
			return v, true
		}
		v, ok := dotenv[k]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var err error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%w: %s: %v", errs.ErrValidation, key, perr)
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%w: %s: %v", errs.ErrValidation, key, perr)
				return
			}
			*dst = n
		}
	}

	str("MEDREC_STORE", &c.Store)
	str("MEDREC_DATA_DIR", &c.DataDir)
	str("MEDREC_DATABASE_DSN", &c.DatabaseDSN)
	str("MEDREC_SESSION_KEY", &c.SessionKey)
	dur("MEDREC_SESSION_TTL", &c.SessionTTL)
	dur("MEDREC_RESET_TOKEN_TTL", &c.ResetTokenTTL)
	num("MEDREC_MIN_PASSWORD_LEN", &c.MinPasswordLen)
	str("MEDREC_BASE_URL", &c.BaseURL)
	num("MEDREC_LOGIN_MAX_FAILS", &c.LoginMaxFails)
	dur("MEDREC_LOGIN_WINDOW", &c.LoginWindow)
	dur("MEDREC_LOGIN_BLOCK_FOR", &c.LoginBlockFor)
	str("MEDREC_LOG_LEVEL", &c.LogLevel)
	str("MEDREC_LOG_FILE", &c.LogFile)
	if err != nil {
		return err
	}

	if v, ok := lookup("MEDREC_AUTO_ACTIVATE"); ok {
		roles, perr := ParseRoles(v)
		if perr != nil {
			return perr
		}
		c.AutoActivateRoles = roles
	}
	if v, ok := lookup("MEDREC_INITIAL_STATUS"); ok {
		c.InitialStatus = model.Status(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup("MEDREC_LOG_DEV"); ok {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return fmt.Errorf("%w: MEDREC_LOG_DEV: %v", errs.ErrValidation, perr)
		}
		c.LogDev = b
	}
	return nil
}

// parseFlags overlays the global flags and returns the remaining arguments.
//
// Supported flags:
//
//	-store string           memory, file or postgres
//	-data-dir string        file backend directory
//	-dsn string             PostgreSQL DSN
//	-session-key string     session signing key
//	-session-ttl duration   session lifetime
//	-reset-ttl duration     password reset token lifetime
//	-min-password int       minimum password length
//	-base-url string        prefix of emailed links
//	-auto-activate string   comma separated roles signed in at registration
//	-initial-status string  pending or unverified
//	-login-max-fails int    failures before lockout, 0 disables
//	-login-window duration  failure counting window
//	-login-block duration   lockout length
//	-log-level string       debug, info, warn, error
//	-log-dev                development logger
//	-log-file string        rotating log file
func (c *Config) parseFlags(args []string) ([]string, error) {
	fs := flag.NewFlagSet("medrec", flag.ContinueOnError)

	fs.StringVar(&c.Store, "store", c.Store, "storage backend: memory, file or postgres")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "file backend directory")
	fs.StringVar(&c.DatabaseDSN, "dsn", c.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&c.SessionKey, "session-key", c.SessionKey, "session signing key")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session lifetime")
	fs.DurationVar(&c.ResetTokenTTL, "reset-ttl", c.ResetTokenTTL, "password reset token lifetime")
	fs.IntVar(&c.MinPasswordLen, "min-password", c.MinPasswordLen, "minimum password length")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "prefix of emailed links")
	auto := fs.String("auto-activate", FormatRoles(c.AutoActivateRoles), "comma separated roles signed in at registration")
	initial := fs.String("initial-status", string(c.InitialStatus), "status of other new accounts: pending or unverified")
	fs.IntVar(&c.LoginMaxFails, "login-max-fails", c.LoginMaxFails, "failed logins before lockout, 0 disables")
	fs.DurationVar(&c.LoginWindow, "login-window", c.LoginWindow, "failure counting window")
	fs.DurationVar(&c.LoginBlockFor, "login-block", c.LoginBlockFor, "lockout length")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.BoolVar(&c.LogDev, "log-dev", c.LogDev, "development logger")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "rotating log file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	roles, err := ParseRoles(*auto)
	if err != nil {
		return nil, err
	}
	c.AutoActivateRoles = roles
	c.InitialStatus = model.Status(strings.ToLower(strings.TrimSpace(*initial)))
	return fs.Args(), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: data dir is required for the file store", errs.ErrValidation)
		}
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: dsn is required for the postgres store", errs.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", errs.ErrValidation, c.Store)
	}
	if c.SessionKey == "" {
		return fmt.Errorf("%w: session key is empty", errs.ErrValidation)
	}
	if c.SessionTTL <= 0 || c.ResetTokenTTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive", errs.ErrValidation)
	}
	if c.MinPasswordLen < 1 {
		return fmt.Errorf("%w: min password length %d", errs.ErrValidation, c.MinPasswordLen)
	}
	if st, ok := model.ParseStatus(string(c.InitialStatus)); !ok || (st != model.StatusPending && st != model.StatusUnverified) {
		return fmt.Errorf("%w: initial status %q", errs.ErrValidation, c.InitialStatus)
	}
	return nil
}

// ParseRoles reads a comma separated role list; blanks are skipped.
func ParseRoles(s string) ([]model.Role, error) {
	out := []model.Role{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, ok := model.ParseRole(part)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", errs.ErrValidation, strings.TrimSpace(part))
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatRoles is the inverse of ParseRoles.
func FormatRoles(roles []model.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}
