// Package loader reconciles calendar and roster rows into the relational store.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/metrics"
	"github.com/phillip-england/recruitsuite/internal/roster"
	"github.com/phillip-england/recruitsuite/internal/store"
)

const DefaultRunDeadline = 5 * time.Minute

type Config struct {
	TeamLeaders domain.TeamLeaderSet
	RunDeadline time.Duration
}

type Loader struct {
	db      *store.DB
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(db *store.DB, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Loader {
	if cfg.RunDeadline <= 0 {
		cfg.RunDeadline = DefaultRunDeadline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, cfg: cfg, logger: logger, metrics: m}
}

// MemberSource is one batch of roster rows and the name used for it in logs.
type MemberSource struct {
	Name string
	Rows []roster.MemberRow
}

// Run loads the calendar, seeds team leaders and reconciles every member row, in that order.
// Row-level failures land in the report; the returned error is fatal or ErrRowsRejected.
func (l *Loader) Run(ctx context.Context, calendar []roster.CalendarRow, sources []MemberSource) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.RunDeadline)
	defer cancel()

	report := Report{RunID: uuid.NewString()}
	logger := l.logger.With("run_id", report.RunID)
	started := time.Now()
	logger.Info("load started", "calendar_rows", len(calendar), "sources", len(sources))

	err := l.run(ctx, logger, calendar, sources, &report)
	if l.metrics != nil {
		l.metrics.RunDuration.Observe(time.Since(started).Seconds())
		success := 0.0
		if err == nil && report.Err() == nil {
			success = 1
		}
		l.metrics.LastRunStatus.Set(success)
	}
	if err != nil {
		logger.Error("load aborted", "error", err, "rows_loaded", report.RowsLoaded)
		return report, err
	}

	logger.Info("load finished",
		"calendar_inserted", report.CalendarInserted,
		"calendar_skipped", report.CalendarSkipped,
		"rows_loaded", report.RowsLoaded,
		"rows_rejected", report.RowsRejected,
		"members_created", report.MembersCreated,
		"advisors_created", report.AdvisorsCreated,
		"elapsed", time.Since(started).String(),
	)
	return report, report.Err()
}

func (l *Loader) run(ctx context.Context, logger *slog.Logger, calendar []roster.CalendarRow, sources []MemberSource, report *Report) error {
	if err := l.LoadCalendar(ctx, logger, calendar, report); err != nil {
		return err
	}
	if err := l.SeedTeamLeaders(ctx, logger, report); err != nil {
		return err
	}
	for _, src := range sources {
		if err := l.LoadMembers(ctx, logger, src, report); err != nil {
			return err
		}
	}
	return nil
}

// LoadCalendar inserts calendar entries keyed by label. Existing labels are skipped
// and rows with unparseable dates are rejected one by one.
func (l *Loader) LoadCalendar(ctx context.Context, logger *slog.Logger, rows []roster.CalendarRow, report *Report) error {
	q := l.db.Queries()
	for _, row := range rows {
		entry, err := row.Entry()
		if err != nil {
			report.CalendarRejected++
			report.reject(RowError{Source: "calendar", Line: row.Line, Name: row.TrainingDate, Stage: StageReceived, Err: err})
			l.count("calendar", "rejected")
			logger.Warn("calendar row rejected", "line", row.Line, "training_date", row.TrainingDate, "error", err)
			continue
		}
		inserted, err := q.InsertCalendarEntry(ctx, entry)
		if err != nil {
			return err
		}
		if inserted {
			report.CalendarInserted++
			l.count("calendar", "inserted")
		} else {
			report.CalendarSkipped++
			l.count("calendar", "skipped")
		}
	}
	logger.Info("calendar loaded", "inserted", report.CalendarInserted, "skipped", report.CalendarSkipped)
	return nil
}

// SeedTeamLeaders creates a TeamLeader member for every configured name that is missing.
func (l *Loader) SeedTeamLeaders(ctx context.Context, logger *slog.Logger, report *Report) error {
	q := l.db.Queries()
	for _, name := range l.cfg.TeamLeaders.Names() {
		inserted, err := q.InsertMember(ctx, name, domain.RoleTeamLeader)
		if err != nil {
			return err
		}
		if inserted {
			report.TeamLeadersSeeded++
			report.MembersCreated++
			l.created(domain.RoleTeamLeader)
		}
	}
	logger.Info("team leaders seeded", "configured", l.cfg.TeamLeaders.Len(), "created", report.TeamLeadersSeeded)
	return nil
}

// LoadMembers reconciles each row in its own transaction. Malformed rows and lookup
// misses are rejected and the batch continues; any other error aborts it.
func (l *Loader) LoadMembers(ctx context.Context, logger *slog.Logger, src MemberSource, report *Report) error {
	for _, row := range src.Rows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load %s: %w", src.Name, err)
		}
		result, err := l.ProcessRow(ctx, row)
		if err != nil {
			if !isRowError(err) {
				return fmt.Errorf("load %s line %d: %w", src.Name, row.Line, err)
			}
			rowErr := RowError{Source: src.Name, Line: row.Line, Name: row.Name, Stage: result.Stage, Err: err}
			report.RowsRejected++
			report.reject(rowErr)
			l.count("member", "rejected")
			logger.Warn("member row rejected",
				"source", src.Name,
				"line", row.Line,
				"name", row.Name,
				"stage", result.Stage.String(),
				"error", err,
			)
			continue
		}
		report.RowsLoaded++
		l.count("member", "loaded")
		if result.MemberCreated {
			report.MembersCreated++
			l.created(result.Role)
		}
		if result.AdvisorCreated {
			report.MembersCreated++
			report.AdvisorsCreated++
			l.created(domain.RoleRecruitOrAdvisor)
		}
	}
	logger.Info("member source loaded", "source", src.Name, "rows", len(src.Rows))
	return nil
}

func isRowError(err error) bool {
	return errors.Is(err, domain.ErrMalformedInput) || errors.Is(err, domain.ErrLookupMiss)
}

// RowResult describes one processed row. On failure Stage is the last completed step.
type RowResult struct {
	Stage          Stage
	Role           domain.Role
	MemberID       int64
	MemberCreated  bool
	AdvisorCreated bool
}

// ProcessRow reconciles a single roster row inside one transaction.
func (l *Loader) ProcessRow(ctx context.Context, row roster.MemberRow) (RowResult, error) {
	var result RowResult
	rec, err := row.Record()
	if err != nil {
		return result, err
	}
	err = l.db.WithTx(ctx, func(q *store.Queries) error {
		result = RowResult{}
		return reconcile(ctx, q, rec, l.cfg.TeamLeaders, &result)
	})
	if err != nil {
		// Nothing from a rolled back row survives.
		result.MemberCreated = false
		result.AdvisorCreated = false
		return result, err
	}
	return result, nil
}

func reconcile(ctx context.Context, q *store.Queries, rec roster.MemberRecord, leaders domain.TeamLeaderSet, result *RowResult) error {
	result.Role = domain.DeriveRole(rec.Name, leaders)
	result.Stage = StageRoleDerived

	created, err := q.InsertMember(ctx, rec.Name, result.Role)
	if err != nil {
		return err
	}
	member, err := q.MemberByName(ctx, rec.Name)
	if err != nil {
		return err
	}
	result.MemberID = member.ID
	result.MemberCreated = created
	result.Stage = StageMemberEnsured

	calendarID, err := resolveCalendar(ctx, q, rec.TrainingDate)
	if err != nil {
		return err
	}
	result.Stage = StageCalendarResolved

	if _, err := q.InsertDetails(ctx, domain.MemberDetails{
		MemberID:        member.ID,
		Purchase:        rec.Purchase,
		CalendarEntryID: calendarID,
	}); err != nil {
		return err
	}
	result.Stage = StageDetailsInserted

	sales := domain.MemberSales{MemberID: member.ID, NewcomerDemo: rec.NewcomerDemo, Sales: rec.Sales}
	if _, err := q.WriteSales(ctx, store.FullPatch(sales), store.InsertIfAbsent); err != nil {
		return err
	}
	result.Stage = StageSalesInserted

	leader, err := resolveMember(ctx, q, rec.TeamLeader, member.ID, domain.RoleTeamLeader)
	if err != nil {
		return fmt.Errorf("team leader: %w", err)
	}
	result.Stage = StageTeamLeaderResolved

	advisorID, advisorCreated, err := resolveAdvisor(ctx, q, rec.RecruitingAdvisor, member.ID)
	if err != nil {
		return fmt.Errorf("recruiting advisor: %w", err)
	}
	result.AdvisorCreated = advisorCreated
	result.Stage = StageAdvisorResolved

	if _, err := q.InsertRelationship(ctx, domain.MemberRelationship{
		MemberID:            member.ID,
		TeamLeaderID:        leader.ID,
		RecruitingAdvisorID: advisorID,
	}); err != nil {
		return err
	}
	result.Stage = StageRelationshipInserted

	result.Stage = StageLoaded
	return nil
}

// resolveAdvisor returns nil for a blank name and creates a RecruitOrAdvisor member on a miss.
// The recruit's own member never counts as a match.
func resolveAdvisor(ctx context.Context, q *store.Queries, name string, recruit int64) (*int64, bool, error) {
	if name == "" {
		return nil, false, nil
	}
	advisor, err := resolveMember(ctx, q, name, recruit, 0)
	if err == nil {
		return &advisor.ID, false, nil
	}
	if !errors.Is(err, domain.ErrLookupMiss) {
		return nil, false, err
	}
	created, err := q.InsertMember(ctx, name, domain.RoleRecruitOrAdvisor)
	if err != nil {
		return nil, false, err
	}
	advisor, err = resolveMember(ctx, q, name, recruit, 0)
	if err != nil {
		return nil, false, err
	}
	return &advisor.ID, created, nil
}

func (l *Loader) count(kind, outcome string) {
	if l.metrics == nil {
		return
	}
	switch kind {
	case "calendar":
		l.metrics.CalendarRows.WithLabelValues(outcome).Inc()
	default:
		l.metrics.MemberRows.WithLabelValues(outcome).Inc()
	}
}

func (l *Loader) created(role domain.Role) {
	if l.metrics != nil {
		l.metrics.MembersAdded.WithLabelValues(role.String()).Inc()
	}
}
