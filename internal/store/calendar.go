package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

const calendarColumns = `training_date_id, training_date, CAST(start_date AS TEXT), CAST(thirty_days AS TEXT),
	CAST(ninety_days AS TEXT), CAST(one_eighty_days AS TEXT)`

// InsertCalendarEntry adds an entry keyed by its label with conflict-skip.
func (q *Queries) InsertCalendarEntry(ctx context.Context, entry domain.CalendarEntry) (bool, error) {
	label := strings.TrimSpace(entry.TrainingDate)
	if label == "" {
		return false, domain.Malformed("calendar label is required")
	}
	inserted, err := q.execAffected(ctx, `INSERT INTO calendar_dates
		(training_date, start_date, thirty_days, ninety_days, one_eighty_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		label,
		formatDate(entry.StartDate),
		formatDate(entry.ThirtyDays),
		formatDate(entry.NinetyDays),
		formatDate(entry.OneEightyDays),
	)
	if err != nil {
		return false, fmt.Errorf("insert calendar entry %q: %w", label, err)
	}
	return inserted, nil
}

// MatchCalendar finds entries whose label equals (exact) or contains the
// fragment, ignoring letter case. The sentinel entry never matches.
func (q *Queries) MatchCalendar(ctx context.Context, fragment string, exact bool, limit int) ([]domain.CalendarEntry, error) {
	where := `LOWER(training_date) = LOWER(?)`
	arg := strings.TrimSpace(fragment)
	if !exact {
		where = `LOWER(training_date) LIKE ? ESCAPE '\'`
		arg = likeContains(fragment)
	}
	statement := `SELECT ` + calendarColumns + ` FROM calendar_dates
		WHERE training_date_id <> 0 AND ` + where + ` ORDER BY training_date_id LIMIT ?`
	entries, err := q.calendar(ctx, statement, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("match calendar %q: %w", fragment, err)
	}
	return entries, nil
}

// CalendarEntryForYear finds the entry with the exact label whose start date falls in year.
func (q *Queries) CalendarEntryForYear(ctx context.Context, label string, year int) (domain.CalendarEntry, error) {
	entries, err := q.calendar(ctx, `SELECT `+calendarColumns+` FROM calendar_dates
		WHERE training_date_id <> 0 AND LOWER(training_date) = LOWER(?)
		AND SUBSTR(CAST(start_date AS TEXT), 1, 4) = ?
		ORDER BY training_date_id LIMIT 1`, strings.TrimSpace(label), strconv.Itoa(year))
	if err != nil {
		return domain.CalendarEntry{}, fmt.Errorf("calendar entry %q in %d: %w", label, year, err)
	}
	if len(entries) == 0 {
		return domain.CalendarEntry{}, fmt.Errorf("calendar entry %q in %d: %w", label, year, domain.ErrNotFound)
	}
	return entries[0], nil
}

// ListCalendar returns all entries except the sentinel. A zero year lists every year.
func (q *Queries) ListCalendar(ctx context.Context, year int) ([]domain.CalendarEntry, error) {
	statement := `SELECT ` + calendarColumns + ` FROM calendar_dates WHERE training_date_id <> 0`
	var args []any
	if year > 0 {
		statement += ` AND SUBSTR(CAST(start_date AS TEXT), 1, 4) = ?`
		args = append(args, strconv.Itoa(year))
	}
	statement += ` ORDER BY start_date, training_date_id`
	entries, err := q.calendar(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("list calendar: %w", err)
	}
	return entries, nil
}

func (q *Queries) calendar(ctx context.Context, statement string, args ...any) ([]domain.CalendarEntry, error) {
	var out []domain.CalendarEntry
	err := q.query(ctx, statement, args, func(rows *sql.Rows) error {
		var e domain.CalendarEntry
		var start, thirty, ninety, oneEighty sql.NullString
		if err := rows.Scan(&e.ID, &e.TrainingDate, &start, &thirty, &ninety, &oneEighty); err != nil {
			return err
		}
		var err error
		if e.StartDate, err = parseDate(start); err != nil {
			return err
		}
		if e.ThirtyDays, err = parseDate(thirty); err != nil {
			return err
		}
		if e.NinetyDays, err = parseDate(ninety); err != nil {
			return err
		}
		if e.OneEightyDays, err = parseDate(oneEighty); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
