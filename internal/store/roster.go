package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// RosterEntry is one member joined with its role, details, calendar, sales and relationships.
type RosterEntry struct {
	MemberID          int64                             `json:"memberId"`
	Name              string                            `json:"name"`
	Role              string                            `json:"role"`
	TeamLeader        *string                           `json:"teamLeader"`
	RecruitingAdvisor *string                           `json:"recruitingAdvisor"`
	Purchase          *string                           `json:"purchase"`
	TrainingDate      *string                           `json:"trainingDate"`
	StartDate         *string                           `json:"startDate"`
	ThirtyDays        *string                           `json:"thirtyDays"`
	NinetyDays        *string                           `json:"ninetyDays"`
	OneEightyDays     *string                           `json:"oneEightyDays"`
	NewcomerDemo      domain.SaleMark                   `json:"newcomerDemo"`
	Sales             [domain.SaleSlots]domain.SaleMark `json:"sales"`
}

const rosterQuery = `SELECT
	m.member_id, m.name, r.role_name,
	tl.name, ra.name,
	d.purchase,
	c.training_date, CAST(c.start_date AS TEXT), CAST(c.thirty_days AS TEXT),
	CAST(c.ninety_days AS TEXT), CAST(c.one_eighty_days AS TEXT),
	s.newcomer_demo, s.first_sale, s.second_sale, s.third_sale, s.fourth_sale,
	s.fifth_sale, s.sixth_sale, s.seventh_sale, s.eighth_sale
FROM members m
JOIN roles r ON r.role_id = m.role_id_fk
LEFT JOIN member_details d ON d.member_id_details_fk = m.member_id
LEFT JOIN calendar_dates c ON c.training_date_id = d.training_date_id_fk
LEFT JOIN member_sales s ON s.member_id_fk = m.member_id
LEFT JOIN member_relationships rel ON rel.member_relationship_id_fk = m.member_id
LEFT JOIN members tl ON tl.member_id = rel.team_leader_id
LEFT JOIN members ra ON ra.member_id = rel.recruiting_advisor_id`

// Roster lists members, optionally filtered by a case-insensitive name fragment.
func (q *Queries) Roster(ctx context.Context, search string) ([]RosterEntry, error) {
	statement := rosterQuery
	var args []any
	if strings.TrimSpace(search) != "" {
		statement += ` WHERE LOWER(m.name) LIKE ? ESCAPE '\'`
		args = append(args, likeContains(search))
	}
	statement += ` ORDER BY COALESCE(tl.name, ''), r.role_name, m.name`

	var out []RosterEntry
	err := q.query(ctx, statement, args, func(rows *sql.Rows) error {
		var e RosterEntry
		var teamLeader, advisor, purchase, label, start, thirty, ninety, oneEighty sql.NullString
		dest := []any{&e.MemberID, &e.Name, &e.Role, &teamLeader, &advisor, &purchase,
			&label, &start, &thirty, &ninety, &oneEighty, &e.NewcomerDemo}
		for i := range e.Sales {
			dest = append(dest, &e.Sales[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		e.TeamLeader = nullString(teamLeader)
		e.RecruitingAdvisor = nullString(advisor)
		e.Purchase = nullString(purchase)
		e.TrainingDate = nullString(label)
		e.StartDate = nullString(start)
		e.ThirtyDays = nullString(thirty)
		e.NinetyDays = nullString(ninety)
		e.OneEightyDays = nullString(oneEighty)
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	return out, nil
}
