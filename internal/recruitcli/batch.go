package recruitcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/envutil"
	"github.com/phillip-england/recruitsuite/internal/loader"
	"github.com/phillip-england/recruitsuite/internal/metrics"
	"github.com/phillip-england/recruitsuite/internal/roster"
	"github.com/phillip-england/recruitsuite/internal/store"
)

const (
	defaultIntermediateDir = "ExcelSheets"
	defaultCalendarSheet   = "Training Calendar"
	defaultRunDeadline     = loader.DefaultRunDeadline
)

type batchConfig struct {
	Database         store.Config
	TeamLeaders      domain.TeamLeaderSet
	RosterWorkbook   string
	Intakes          []roster.Intake
	CalendarWorkbook string
	CalendarSheet    string
	IntermediateDir  string
	RunDeadline      time.Duration
	MetricsTextfile  string
}

func batchConfigFromEnv() (batchConfig, error) {
	cfg := batchConfig{
		Database: store.Config{
			Driver:           envutil.String("DATABASE_DRIVER", ""),
			URL:              envutil.String("DATABASE_URL", "recruits.db"),
			StatementTimeout: envutil.Duration("STATEMENT_TIMEOUT", store.DefaultStatementTimeout),
		},
		TeamLeaders:      domain.NewTeamLeaderSet(domain.DefaultTeamLeaders),
		RosterWorkbook:   envutil.String("ROSTER_WORKBOOK", "Recruits Tracker.xlsx"),
		Intakes:          roster.DefaultIntakes,
		CalendarWorkbook: envutil.String("CALENDAR_WORKBOOK", ""),
		CalendarSheet:    envutil.String("CALENDAR_SHEET", defaultCalendarSheet),
		IntermediateDir:  envutil.String("INTERMEDIATE_DIR", defaultIntermediateDir),
		RunDeadline:      envutil.Duration("RUN_DEADLINE", defaultRunDeadline),
		MetricsTextfile:  envutil.String("METRICS_TEXTFILE", ""),
	}
	if name := envutil.String("DATABASE_NAME", ""); name != "" {
		dialect, err := store.DialectFor(cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return batchConfig{}, err
		}
		if dialect == store.Postgres {
			if cfg.Database.URL, err = store.WithDatabaseName(cfg.Database.URL, name); err != nil {
				return batchConfig{}, fmt.Errorf("DATABASE_NAME: %w", err)
			}
		}
	}
	if raw := envutil.String("TEAM_LEADERS", ""); raw != "" {
		cfg.TeamLeaders = domain.ParseTeamLeaderSet(raw)
	}
	if raw := envutil.String("ROSTER_SHEETS", ""); raw != "" {
		intakes, err := roster.ParseIntakes(raw)
		if err != nil {
			return batchConfig{}, fmt.Errorf("ROSTER_SHEETS: %w", err)
		}
		cfg.Intakes = intakes
	}
	if cfg.TeamLeaders.Len() == 0 {
		return batchConfig{}, errors.New("TEAM_LEADERS names no team leaders")
	}
	return cfg, nil
}

func runBatch(command string, args []string) error {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := batchConfigFromEnv()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.StringVar(&cfg.RosterWorkbook, "roster", cfg.RosterWorkbook, "roster workbook (.xlsx or .xls)")
	fs.StringVar(&cfg.CalendarWorkbook, "calendar", cfg.CalendarWorkbook, "training calendar workbook")
	fs.StringVar(&cfg.CalendarSheet, "calendar-sheet", cfg.CalendarSheet, "sheet holding the training calendar")
	fs.StringVar(&cfg.IntermediateDir, "dir", cfg.IntermediateDir, "directory for the per-year CSV files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger := newLogger()

	switch command {
	case "schema":
		return runSchema(ctx, logger, cfg)
	case "transform":
		return runTransform(logger, cfg)
	case "load":
		return runLoad(ctx, logger, cfg)
	default:
		if err := runSchema(ctx, logger, cfg); err != nil {
			return err
		}
		if err := runTransform(logger, cfg); err != nil {
			return err
		}
		return runLoad(ctx, logger, cfg)
	}
}

// runSchema creates the Postgres database when needed, then the tables.
func runSchema(ctx context.Context, logger *slog.Logger, cfg batchConfig) error {
	dialect, err := store.DialectFor(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	if dialect == store.Postgres {
		name, err := store.DatabaseName(cfg.Database.URL)
		if err != nil {
			return err
		}
		if _, err := store.CreateDatabase(ctx, cfg.Database, name, logger); err != nil {
			return err
		}
	} else if err := ensureDatabaseDir(cfg.Database); err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateTables(ctx); err != nil {
		return err
	}
	logger.Info("schema ready", "dialect", db.Dialect().Driver())
	return nil
}

func runTransform(logger *slog.Logger, cfg batchConfig) error {
	outputs, err := roster.TransformWorkbook(cfg.RosterWorkbook, cfg.Intakes, cfg.IntermediateDir)
	if err != nil {
		return err
	}
	logger.Info("roster transformed", "workbook", cfg.RosterWorkbook, "outputs", strings.Join(outputs, ","))
	return nil
}

func runLoad(ctx context.Context, logger *slog.Logger, cfg batchConfig) error {
	var calendar []roster.CalendarRow
	if cfg.CalendarWorkbook != "" {
		rows, err := roster.ReadCalendarFile(cfg.CalendarWorkbook, cfg.CalendarSheet)
		if err != nil {
			return fmt.Errorf("read calendar: %w", err)
		}
		calendar = rows
	} else {
		logger.Warn("no calendar workbook configured; training dates resolve against existing entries only")
	}

	sources := make([]loader.MemberSource, 0, len(cfg.Intakes))
	for _, intake := range cfg.Intakes {
		path := roster.OutputPath(cfg.IntermediateDir, intake.Year)
		rows, err := roster.ReadCSVFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		sources = append(sources, loader.MemberSource{Name: intake.Year, Rows: rows})
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateTables(ctx); err != nil {
		return err
	}

	m := metrics.New()
	l := loader.New(db, loader.Config{TeamLeaders: cfg.TeamLeaders, RunDeadline: cfg.RunDeadline}, logger, m)
	report, runErr := l.Run(ctx, calendar, sources)
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("metrics textfile not written", "path", cfg.MetricsTextfile, "error", err)
	}
	for _, rowErr := range report.Errors {
		fmt.Fprintln(os.Stderr, rowErr.Error())
	}
	return runErr
}
