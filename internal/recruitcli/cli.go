package recruitcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phillip-england/recruitsuite/internal/apiapp"
	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/envutil"
	"github.com/phillip-england/recruitsuite/internal/security"
	"github.com/phillip-england/recruitsuite/internal/store"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "schema", "transform", "load", "pipeline":
		return runBatch(args[0], args[1:])
	case "run":
		return runCommand(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: recruitsuite <setup|schema|transform|load|pipeline|run> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: recruitsuite setup --admin-password <password> [--admin-username admin] [--database-url recruits.db] [--force]")
	fmt.Fprintln(w, "       recruitsuite schema")
	fmt.Fprintln(w, "       recruitsuite transform [--roster <workbook>] [--dir ExcelSheets]")
	fmt.Fprintln(w, "       recruitsuite load [--calendar <workbook>] [--dir ExcelSheets]")
	fmt.Fprintln(w, "       recruitsuite pipeline [--roster <workbook>] [--calendar <workbook>] [--dir ExcelSheets]")
	fmt.Fprintln(w, "       recruitsuite run api")
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	adminUser := fs.String("admin-username", "admin", "admin username for the member API")
	adminPass := fs.String("admin-password", "", "admin password (min 12 chars); only its hash is written")
	databaseURL := fs.String("database-url", "recruits.db", "postgres URL or sqlite file path")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *adminPass == "" {
		return errors.New("--admin-password is required")
	}
	hash, err := security.HashPassword(*adminPass)
	if err != nil {
		return fmt.Errorf("invalid admin password: %w", err)
	}

	values := map[string]string{
		"ADMIN_USERNAME":      *adminUser,
		"ADMIN_PASSWORD_HASH": hash,
		"DATABASE_URL":        *databaseURL,
		"API_ADDR":            ":8080",
		"TEAM_LEADERS":        strings.Join(domain.DefaultTeamLeaders, ","),
		"INTERMEDIATE_DIR":    defaultIntermediateDir,
		"STATEMENT_TIMEOUT":   store.DefaultStatementTimeout.String(),
		"RUN_DEADLINE":        defaultRunDeadline.String(),
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	if len(args) < 1 {
		return errors.New("missing run target: api")
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "api":
		return runAPI(ctx, newLogger())
	default:
		return fmt.Errorf("unknown run target %q", args[0])
	}
}

func runAPI(ctx context.Context, logger *slog.Logger) error {
	cfg := apiapp.DefaultConfigFromEnv()
	if err := ensureDatabaseDir(cfg.Database); err != nil {
		return err
	}
	if err := apiapp.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT (json or text).
func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(envutil.String("LOG_LEVEL", "info"))}
	var handler slog.Handler
	switch strings.ToLower(envutil.String("LOG_FORMAT", "json")) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureDatabaseDir creates the parent directory of a sqlite file.
func ensureDatabaseDir(cfg store.Config) error {
	dialect, err := store.DialectFor(cfg.Driver, cfg.URL)
	if err != nil {
		return err
	}
	if dialect != store.SQLite {
		return nil
	}
	return ensureParentDirs(cfg.URL)
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
