package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// InsertDetails writes a member's details with conflict-skip.
func (q *Queries) InsertDetails(ctx context.Context, d domain.MemberDetails) (bool, error) {
	inserted, err := q.execAffected(ctx, `INSERT INTO member_details
		(member_id_details_fk, purchase, training_date_id_fk) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`, d.MemberID, string(d.Purchase), d.CalendarEntryID)
	if err != nil {
		return false, fmt.Errorf("insert details for member %d: %w", d.MemberID, err)
	}
	return inserted, nil
}

// ReplaceDetails overwrites a member's details.
func (q *Queries) ReplaceDetails(ctx context.Context, d domain.MemberDetails) error {
	_, err := q.exec(ctx, `INSERT INTO member_details
		(member_id_details_fk, purchase, training_date_id_fk) VALUES (?, ?, ?)
		ON CONFLICT (member_id_details_fk) DO UPDATE SET
			purchase = excluded.purchase,
			training_date_id_fk = excluded.training_date_id_fk`,
		d.MemberID, string(d.Purchase), d.CalendarEntryID)
	if err != nil {
		return fmt.Errorf("replace details for member %d: %w", d.MemberID, err)
	}
	return nil
}

func (q *Queries) DetailsByMember(ctx context.Context, memberID int64) (domain.MemberDetails, error) {
	d := domain.MemberDetails{MemberID: memberID}
	var purchase string
	err := q.queryRow(ctx, `SELECT purchase, training_date_id_fk FROM member_details WHERE member_id_details_fk = ?`,
		[]any{memberID}, &purchase, &d.CalendarEntryID)
	if err != nil {
		return domain.MemberDetails{}, fmt.Errorf("details for member %d: %w", memberID, err)
	}
	d.Purchase = domain.Purchase(purchase)
	return d, nil
}

// SalesStrategy selects how WriteSales treats an existing sales row.
type SalesStrategy int

const (
	// InsertIfAbsent writes the row only when the member has none yet.
	InsertIfAbsent SalesStrategy = iota
	// MergeFields overlays the provided slots onto the stored row.
	MergeFields
)

func (s SalesStrategy) String() string {
	if s == MergeFields {
		return "merge-fields"
	}
	return "insert-if-absent"
}

// SalesPatch carries sales slots to write. A nil slot is not provided.
type SalesPatch struct {
	MemberID     int64
	NewcomerDemo *domain.SaleMark
	Sales        [domain.SaleSlots]*domain.SaleMark
}

// FullPatch provides every slot of s, absent slots included.
func FullPatch(s domain.MemberSales) SalesPatch {
	p := SalesPatch{MemberID: s.MemberID}
	demo := s.NewcomerDemo
	p.NewcomerDemo = &demo
	for i := range s.Sales {
		mark := s.Sales[i]
		p.Sales[i] = &mark
	}
	return p
}

// Apply overlays the provided slots onto base.
func (p SalesPatch) Apply(base domain.MemberSales) domain.MemberSales {
	base.MemberID = p.MemberID
	if p.NewcomerDemo != nil {
		base.NewcomerDemo = *p.NewcomerDemo
	}
	for i, mark := range p.Sales {
		if mark != nil {
			base.Sales[i] = *mark
		}
	}
	return base
}

const salesColumns = `newcomer_demo, first_sale, second_sale, third_sale, fourth_sale,
	fifth_sale, sixth_sale, seventh_sale, eighth_sale`

func salesArgs(s domain.MemberSales) []any {
	args := []any{s.MemberID, s.NewcomerDemo}
	for _, mark := range s.Sales {
		args = append(args, mark)
	}
	return args
}

// WriteSales stores a member's sales using the given strategy and reports whether a row changed.
func (q *Queries) WriteSales(ctx context.Context, patch SalesPatch, strategy SalesStrategy) (bool, error) {
	switch strategy {
	case InsertIfAbsent:
		written, err := q.execAffected(ctx, `INSERT INTO member_sales (member_id_fk, `+salesColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`, salesArgs(patch.Apply(domain.MemberSales{}))...)
		if err != nil {
			return false, fmt.Errorf("insert sales for member %d: %w", patch.MemberID, err)
		}
		return written, nil
	case MergeFields:
		base, err := q.SalesByMember(ctx, patch.MemberID)
		if err != nil && !isNotFound(err) {
			return false, err
		}
		_, err = q.exec(ctx, `INSERT INTO member_sales (member_id_fk, `+salesColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (member_id_fk) DO UPDATE SET
				newcomer_demo = excluded.newcomer_demo,
				first_sale = excluded.first_sale,
				second_sale = excluded.second_sale,
				third_sale = excluded.third_sale,
				fourth_sale = excluded.fourth_sale,
				fifth_sale = excluded.fifth_sale,
				sixth_sale = excluded.sixth_sale,
				seventh_sale = excluded.seventh_sale,
				eighth_sale = excluded.eighth_sale`, salesArgs(patch.Apply(base))...)
		if err != nil {
			return false, fmt.Errorf("merge sales for member %d: %w", patch.MemberID, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown sales strategy %d", strategy)
	}
}

func (q *Queries) SalesByMember(ctx context.Context, memberID int64) (domain.MemberSales, error) {
	s := domain.MemberSales{MemberID: memberID}
	dest := []any{&s.NewcomerDemo}
	for i := range s.Sales {
		dest = append(dest, &s.Sales[i])
	}
	err := q.queryRow(ctx, `SELECT `+salesColumns+` FROM member_sales WHERE member_id_fk = ?`, []any{memberID}, dest...)
	if err != nil {
		return domain.MemberSales{MemberID: memberID}, fmt.Errorf("sales for member %d: %w", memberID, err)
	}
	return s, nil
}

// InsertRelationship links a member to its team leader and optional advisor with conflict-skip.
func (q *Queries) InsertRelationship(ctx context.Context, r domain.MemberRelationship) (bool, error) {
	inserted, err := q.execAffected(ctx, `INSERT INTO member_relationships
		(member_relationship_id_fk, team_leader_id, recruiting_advisor_id) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`, r.MemberID, r.TeamLeaderID, advisorArg(r.RecruitingAdvisorID))
	if err != nil {
		return false, fmt.Errorf("insert relationship for member %d: %w", r.MemberID, err)
	}
	return inserted, nil
}

// ReplaceRelationship overwrites a member's team leader and advisor.
func (q *Queries) ReplaceRelationship(ctx context.Context, r domain.MemberRelationship) error {
	_, err := q.exec(ctx, `INSERT INTO member_relationships
		(member_relationship_id_fk, team_leader_id, recruiting_advisor_id) VALUES (?, ?, ?)
		ON CONFLICT (member_relationship_id_fk) DO UPDATE SET
			team_leader_id = excluded.team_leader_id,
			recruiting_advisor_id = excluded.recruiting_advisor_id`,
		r.MemberID, r.TeamLeaderID, advisorArg(r.RecruitingAdvisorID))
	if err != nil {
		return fmt.Errorf("replace relationship for member %d: %w", r.MemberID, err)
	}
	return nil
}

func (q *Queries) RelationshipByMember(ctx context.Context, memberID int64) (domain.MemberRelationship, error) {
	r := domain.MemberRelationship{MemberID: memberID}
	var advisor sql.NullInt64
	err := q.queryRow(ctx, `SELECT team_leader_id, recruiting_advisor_id FROM member_relationships
		WHERE member_relationship_id_fk = ?`, []any{memberID}, &r.TeamLeaderID, &advisor)
	if err != nil {
		return domain.MemberRelationship{}, fmt.Errorf("relationship for member %d: %w", memberID, err)
	}
	r.RecruitingAdvisorID = nullInt(advisor)
	return r, nil
}

func advisorArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
