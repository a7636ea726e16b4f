package loader

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/metrics"
	"github.com/phillip-england/recruitsuite/internal/roster"
	"github.com/phillip-england/recruitsuite/internal/store"
	"github.com/phillip-england/recruitsuite/internal/store/storetest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newLoader(t *testing.T) (*Loader, *store.DB, *metrics.Metrics) {
	t.Helper()
	db := storetest.Open(t)
	m := metrics.New()
	l := New(db, Config{TeamLeaders: domain.NewTeamLeaderSet(domain.DefaultTeamLeaders)}, quietLogger(), m)
	return l, db, m
}

func memberRow(line int, name, purchase, leader, advisor, training string) roster.MemberRow {
	return roster.MemberRow{
		Line:              line,
		Name:              name,
		Purchase:          purchase,
		TeamLeader:        leader,
		RecruitingAdvisor: advisor,
		TrainingDate:      training,
	}
}

func memberByName(t *testing.T, db *store.DB, name string) domain.Member {
	t.Helper()
	m, err := db.Queries().MemberByName(context.Background(), name)
	require.NoError(t, err)
	return m
}

func insertCalendar(t *testing.T, db *store.DB, id int64, label, start string) {
	t.Helper()
	_, err := db.SQL().Exec(`INSERT INTO calendar_dates (training_date_id, training_date, start_date) VALUES (?, ?, ?)`, id, label, start)
	require.NoError(t, err)
}

func TestJaneDoeScenario(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)
	insertCalendar(t, db, 7, "JAN 2024", "2024-01-08")

	row := memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "", "JAN 2024")
	row.Sales[0] = "2024-01-19"
	row.Sales[1] = "dnq"

	report, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{row}}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowsLoaded)
	assert.NotEmpty(t, report.RunID)

	jane := memberByName(t, db, "Jane Doe")
	assert.Equal(t, domain.RoleRecruitOrAdvisor, jane.Role)

	q := db.Queries()
	details, err := q.DetailsByMember(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOwner, details.Purchase)
	assert.Equal(t, int64(7), details.CalendarEntryID)

	rel, err := q.RelationshipByMember(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, memberByName(t, db, "Miranda Quantrill").ID, rel.TeamLeaderID)
	assert.Nil(t, rel.RecruitingAdvisorID)

	sales, err := q.SalesByMember(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-19", sales.Sales[0].String())
	assert.Equal(t, domain.DNQ, sales.Sales[1].String())
	assert.True(t, sales.NewcomerDemo.IsAbsent())
}

func TestUnknownTrainingDateUsesSentinel(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)
	insertCalendar(t, db, 7, "JAN 2024", "2024-01-08")

	_, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "John Roe", "Earner", "Miranda Quantrill", "", "FEB 2024"),
	}}})
	require.NoError(t, err)

	details, err := db.Queries().DetailsByMember(ctx, memberByName(t, db, "John Roe").ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SentinelCalendarID, details.CalendarEntryID)
}

func TestTeamLeaderSubstringResolution(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)

	// A recruit whose name also contains the fragment does not make it ambiguous.
	_, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Diana Prince", "Owner", "Miranda Quantrill", "", ""),
		memberRow(4, "Jane Doe", "Owner", "ana", "", ""),
	}}})
	require.NoError(t, err)

	rel, err := db.Queries().RelationshipByMember(ctx, memberByName(t, db, "Jane Doe").ID)
	require.NoError(t, err)
	assert.Equal(t, memberByName(t, db, "Ana Maria Lumina").ID, rel.TeamLeaderID)
}

func TestExactMatchWinsOverSubstring(t *testing.T) {
	ctx := context.Background()
	db := storetest.Open(t)
	l := New(db, Config{TeamLeaders: domain.NewTeamLeaderSet([]string{"Ana", "Ana Maria Lumina"})}, quietLogger(), nil)

	_, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "ANA", "", ""),
	}}})
	require.NoError(t, err)

	rel, err := db.Queries().RelationshipByMember(ctx, memberByName(t, db, "Jane Doe").ID)
	require.NoError(t, err)
	assert.Equal(t, memberByName(t, db, "Ana").ID, rel.TeamLeaderID)
}

func TestAmbiguousTeamLeaderRejectsRowWithoutPartialWrites(t *testing.T) {
	ctx := context.Background()
	l, db, m := newLoader(t)

	report, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "a", "", ""),
		memberRow(4, "John Roe", "Owner", "Judi Hampton", "", ""),
	}}})
	require.ErrorIs(t, err, domain.ErrRowsRejected)
	assert.Equal(t, 1, report.RowsLoaded)
	assert.Equal(t, 1, report.RowsRejected)
	require.Len(t, report.Errors, 1)

	rejected := report.Errors[0]
	assert.ErrorIs(t, rejected, domain.ErrAmbiguousMatch)
	assert.ErrorIs(t, rejected, domain.ErrMalformedInput)
	assert.Equal(t, StageSalesInserted, rejected.Stage)
	assert.Equal(t, 3, rejected.Line)

	_, err = db.Queries().MemberByName(ctx, "Jane Doe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, storetest.Count(t, db, "member_details"))
	assert.Equal(t, 1, storetest.Count(t, db, "member_sales"))
	assert.Equal(t, 1, storetest.Count(t, db, "member_relationships"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MemberRows.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MemberRows.WithLabelValues("loaded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunStatus))
}

func TestTeamLeaderMissIsLookupMiss(t *testing.T) {
	l, _, _ := newLoader(t)
	report, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Nobody Known", "", ""),
	}}})
	require.ErrorIs(t, err, domain.ErrRowsRejected)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], domain.ErrLookupMiss)
}

func TestMalformedRowRejectedBeforeAnyWrite(t *testing.T) {
	l, db, _ := newLoader(t)
	bad := memberRow(5, "Jane Doe", "Renter", "Miranda Quantrill", "", "")
	report, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2023", Rows: []roster.MemberRow{bad}}})
	require.ErrorIs(t, err, domain.ErrRowsRejected)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, StageReceived, report.Errors[0].Stage)
	assert.Equal(t, "2023", report.Errors[0].Source)
	assert.ErrorIs(t, report.Errors[0], domain.ErrMalformedInput)
	assert.Equal(t, len(domain.DefaultTeamLeaders), storetest.Count(t, db, "members"))
}

func TestAdvisorCreatedOnMissAndBlankAdvisorIsNull(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)

	report, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "Brand New Advisor", ""),
		memberRow(4, "John Roe", "Earner", "Miranda Quantrill", "", ""),
	}}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AdvisorsCreated)

	advisor := memberByName(t, db, "Brand New Advisor")
	assert.Equal(t, domain.RoleRecruitOrAdvisor, advisor.Role)

	q := db.Queries()
	rel, err := q.RelationshipByMember(ctx, memberByName(t, db, "Jane Doe").ID)
	require.NoError(t, err)
	require.NotNil(t, rel.RecruitingAdvisorID)
	assert.Equal(t, advisor.ID, *rel.RecruitingAdvisorID)

	rel, err = q.RelationshipByMember(ctx, memberByName(t, db, "John Roe").ID)
	require.NoError(t, err)
	assert.Nil(t, rel.RecruitingAdvisorID)
}

func TestAdvisorNeverResolvesToTheRecruit(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)

	report, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Bobby Jones", "Owner", "Miranda Quantrill", "Bob", ""),
	}}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.AdvisorsCreated)

	bobby := memberByName(t, db, "Bobby Jones")
	bob := memberByName(t, db, "Bob")
	assert.Equal(t, domain.RoleRecruitOrAdvisor, bob.Role)

	rel, err := db.Queries().RelationshipByMember(ctx, bobby.ID)
	require.NoError(t, err)
	require.NotNil(t, rel.RecruitingAdvisorID)
	assert.Equal(t, bob.ID, *rel.RecruitingAdvisorID)
}

func TestTeamLeaderMatchingOnlyTheRowIsLookupMiss(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)

	report, err := l.Run(ctx, nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Jane", "", ""),
	}}})
	require.ErrorIs(t, err, domain.ErrRowsRejected)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], domain.ErrLookupMiss)
	assert.Equal(t, StageSalesInserted, report.Errors[0].Stage)

	_, err = db.Queries().MemberByName(ctx, "Jane Doe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, storetest.Count(t, db, "member_relationships"))
}

func TestRoleDerivedFromTeamLeaderSet(t *testing.T) {
	l, db, _ := newLoader(t)
	_, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2023", Rows: []roster.MemberRow{
		memberRow(3, "Judi Hampton", "Owner", "Miranda Quantrill", "", ""),
		memberRow(4, "Jane Doe", "Owner", "Judi Hampton", "", ""),
	}}})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamLeader, memberByName(t, db, "Judi Hampton").Role)
	assert.Equal(t, domain.RoleRecruitOrAdvisor, memberByName(t, db, "Jane Doe").Role)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, db, _ := newLoader(t)
	calendar := []roster.CalendarRow{
		{Line: 5, TrainingDate: "JAN 2024", StartDate: "08/01/2024", ThirtyDays: "07/02/2024", NinetyDays: "08/04/2024"},
	}
	sources := []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "Brand New Advisor", "JAN 2024"),
		memberRow(4, "John Roe", "Earner", "ana", "Jane Doe", "FEB 2024"),
	}}}

	first, err := l.Run(ctx, calendar, sources)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CalendarInserted)
	assert.Equal(t, len(domain.DefaultTeamLeaders), first.TeamLeadersSeeded)
	assert.Equal(t, len(domain.DefaultTeamLeaders)+3, first.MembersCreated)

	tables := []string{"members", "calendar_dates", "member_details", "member_sales", "member_relationships"}
	before := map[string]int{}
	for _, table := range tables {
		before[table] = storetest.Count(t, db, table)
	}

	second, err := l.Run(ctx, calendar, sources)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CalendarInserted)
	assert.Equal(t, 1, second.CalendarSkipped)
	assert.Equal(t, 0, second.MembersCreated)
	assert.Equal(t, 2, second.RowsLoaded)
	for _, table := range tables {
		assert.Equal(t, before[table], storetest.Count(t, db, table), table)
	}
}

func TestLoadCalendarDerivesOneEightyDays(t *testing.T) {
	ctx := context.Background()
	l, db, m := newLoader(t)
	report := Report{}
	err := l.LoadCalendar(ctx, quietLogger(), []roster.CalendarRow{
		{Line: 5, TrainingDate: "MAY 2024", StartDate: "2024-05-08", ThirtyDays: "2024-06-07", NinetyDays: "2024-08-06"},
		{Line: 6, TrainingDate: "BROKEN", StartDate: "soon", ThirtyDays: "", NinetyDays: ""},
	}, &report)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CalendarInserted)
	assert.Equal(t, 1, report.CalendarRejected)
	assert.ErrorIs(t, report.Err(), domain.ErrRowsRejected)

	entries, err := db.Queries().MatchCalendar(ctx, "MAY 2024", true, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-11-04", entries[0].OneEightyDays.Format(domain.DateLayout))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalendarRows.WithLabelValues("inserted")))
}

func TestAmbiguousTrainingDateRejected(t *testing.T) {
	l, db, _ := newLoader(t)
	insertCalendar(t, db, 7, "JAN 2024", "2024-01-08")
	insertCalendar(t, db, 8, "JAN 2024 (B)", "2024-01-22")

	report, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "", "JAN 2024"),
		memberRow(4, "John Roe", "Owner", "Miranda Quantrill", "", "JAN"),
	}}})
	require.ErrorIs(t, err, domain.ErrRowsRejected)
	assert.Equal(t, 1, report.RowsLoaded, "exact label resolves even though it is a substring of another")
	require.Len(t, report.Errors, 1)
	assert.Equal(t, StageMemberEnsured, report.Errors[0].Stage)
	assert.ErrorIs(t, report.Errors[0], domain.ErrAmbiguousMatch)
}

func TestDatabaseFailureAbortsRun(t *testing.T) {
	l, db, _ := newLoader(t)
	require.NoError(t, db.Close())

	_, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "", ""),
	}}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRowsRejected)
}

func TestRunDeadlineCancelsLoad(t *testing.T) {
	db := storetest.Open(t)
	l := New(db, Config{TeamLeaders: domain.NewTeamLeaderSet(domain.DefaultTeamLeaders), RunDeadline: time.Nanosecond}, quietLogger(), nil)
	time.Sleep(time.Millisecond)

	_, err := l.Run(context.Background(), nil, []MemberSource{{Name: "2024", Rows: []roster.MemberRow{
		memberRow(3, "Jane Doe", "Owner", "Miranda Quantrill", "", ""),
	}}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRowsRejected)
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "received", StageReceived.String())
	assert.Equal(t, "loaded", StageLoaded.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
