package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// InsertMember adds a member by exact name with conflict-skip. An existing
// member keeps its role and the call reports false.
func (q *Queries) InsertMember(ctx context.Context, name string, role domain.Role) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, domain.Malformed("member name is required")
	}
	if !role.Valid() {
		return false, domain.Malformed("unknown role %d", role)
	}
	inserted, err := q.execAffected(ctx, `INSERT INTO members (name, role_id_fk) VALUES (?, ?) ON CONFLICT DO NOTHING`, name, int(role))
	if err != nil {
		return false, fmt.Errorf("insert member %q: %w", name, err)
	}
	return inserted, nil
}

func (q *Queries) MemberByName(ctx context.Context, name string) (domain.Member, error) {
	var m domain.Member
	var role int
	err := q.queryRow(ctx, `SELECT member_id, name, role_id_fk FROM members WHERE name = ?`,
		[]any{strings.TrimSpace(name)}, &m.ID, &m.Name, &role)
	if err != nil {
		return domain.Member{}, fmt.Errorf("member %q: %w", name, err)
	}
	m.Role = domain.Role(role)
	return m, nil
}

func (q *Queries) MemberByID(ctx context.Context, id int64) (domain.Member, error) {
	var m domain.Member
	var role int
	err := q.queryRow(ctx, `SELECT member_id, name, role_id_fk FROM members WHERE member_id = ?`,
		[]any{id}, &m.ID, &m.Name, &role)
	if err != nil {
		return domain.Member{}, fmt.Errorf("member %d: %w", id, err)
	}
	m.Role = domain.Role(role)
	return m, nil
}

// MatchMembers finds members whose name equals (exact) or contains the
// fragment, ignoring letter case. The member with id exclude is never returned
// (pass 0 to keep everyone). At most limit rows are returned.
func (q *Queries) MatchMembers(ctx context.Context, fragment string, exact bool, exclude int64, limit int) ([]domain.Member, error) {
	statement := `SELECT member_id, name, role_id_fk FROM members WHERE LOWER(name) = LOWER(?) AND member_id <> ? ORDER BY member_id LIMIT ?`
	arg := strings.TrimSpace(fragment)
	if !exact {
		statement = `SELECT member_id, name, role_id_fk FROM members WHERE LOWER(name) LIKE ? ESCAPE '\' AND member_id <> ? ORDER BY member_id LIMIT ?`
		arg = likeContains(fragment)
	}
	var out []domain.Member
	err := q.query(ctx, statement, []any{arg, exclude, limit}, func(rows *sql.Rows) error {
		var m domain.Member
		var role int
		if err := rows.Scan(&m.ID, &m.Name, &role); err != nil {
			return err
		}
		m.Role = domain.Role(role)
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("match members %q: %w", fragment, err)
	}
	return out, nil
}

func (q *Queries) MembersByRole(ctx context.Context, role domain.Role) ([]domain.Member, error) {
	var out []domain.Member
	err := q.query(ctx, `SELECT member_id, name, role_id_fk FROM members WHERE role_id_fk = ? ORDER BY name`,
		[]any{int(role)}, func(rows *sql.Rows) error {
			var m domain.Member
			var r int
			if err := rows.Scan(&m.ID, &m.Name, &r); err != nil {
				return err
			}
			m.Role = domain.Role(r)
			out = append(out, m)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list members with role %s: %w", role, err)
	}
	return out, nil
}

// RenameMember changes a member's name. A name already taken by another member is ErrConflict.
func (q *Queries) RenameMember(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Malformed("member name is required")
	}
	existing, err := q.MemberByName(ctx, name)
	switch {
	case err == nil && existing.ID != id:
		return fmt.Errorf("%w: member %q already exists", domain.ErrConflict, name)
	case err != nil && !isNotFound(err):
		return err
	}
	updated, err := q.execAffected(ctx, `UPDATE members SET name = ? WHERE member_id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename member %d: %w", id, err)
	}
	if !updated {
		return fmt.Errorf("member %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MemberReferences counts relationships that point at the member as team leader or advisor.
func (q *Queries) MemberReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM member_relationships
		WHERE member_relationship_id_fk <> ? AND (team_leader_id = ? OR recruiting_advisor_id = ?)`,
		[]any{id, id, id}, &n)
	if err != nil {
		return 0, fmt.Errorf("count references to member %d: %w", id, err)
	}
	return n, nil
}

// DeleteMember removes a member and its one-to-one rows. Referenced members are ErrConflict.
func (q *Queries) DeleteMember(ctx context.Context, id int64) error {
	refs, err := q.MemberReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: member %d is referenced by %d relationship(s)", domain.ErrConflict, id, refs)
	}
	for _, statement := range []string{
		`DELETE FROM member_relationships WHERE member_relationship_id_fk = ?`,
		`DELETE FROM member_sales WHERE member_id_fk = ?`,
		`DELETE FROM member_details WHERE member_id_details_fk = ?`,
	} {
		if _, err := q.exec(ctx, statement, id); err != nil {
			return fmt.Errorf("delete member %d: %w", id, err)
		}
	}
	deleted, err := q.execAffected(ctx, `DELETE FROM members WHERE member_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("member %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
