package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/store"
)

// matchLimit caps candidate lists; anything beyond one candidate is already ambiguous
// unless a role preference narrows it.
const matchLimit = 10

// resolveMember finds a member by case-insensitive exact name, then by substring.
// When several substring candidates remain and prefer is set, candidates with that role win.
// The member with id self is never a candidate, so a row cannot resolve to its own member.
func resolveMember(ctx context.Context, q *store.Queries, fragment string, self int64, prefer domain.Role) (domain.Member, error) {
	fragment = strings.TrimSpace(fragment)
	for _, exact := range []bool{true, false} {
		candidates, err := q.MatchMembers(ctx, fragment, exact, self, matchLimit)
		if err != nil {
			return domain.Member{}, err
		}
		if len(candidates) > 1 && prefer.Valid() {
			candidates = withRole(candidates, prefer)
		}
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], nil
		default:
			return domain.Member{}, fmt.Errorf("%w: %q matches %s", domain.ErrAmbiguousMatch, fragment, memberNames(candidates))
		}
	}
	return domain.Member{}, fmt.Errorf("%w: no member matches %q", domain.ErrLookupMiss, fragment)
}

func withRole(members []domain.Member, role domain.Role) []domain.Member {
	var out []domain.Member
	for _, m := range members {
		if m.Role == role {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return members
	}
	return out
}

func memberNames(members []domain.Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = fmt.Sprintf("%q", m.Name)
	}
	return strings.Join(names, ", ")
}

// resolveCalendar maps a training label onto its calendar id. A blank label or a miss
// resolves to the sentinel id.
func resolveCalendar(ctx context.Context, q *store.Queries, label string) (int64, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.SentinelCalendarID, nil
	}
	for _, exact := range []bool{true, false} {
		entries, err := q.MatchCalendar(ctx, label, exact, matchLimit)
		if err != nil {
			return 0, err
		}
		switch len(entries) {
		case 0:
			continue
		case 1:
			return entries[0].ID, nil
		default:
			labels := make([]string, len(entries))
			for i, e := range entries {
				labels[i] = fmt.Sprintf("%q", e.TrainingDate)
			}
			return 0, fmt.Errorf("%w: training date %q matches %s", domain.ErrAmbiguousMatch, label, strings.Join(labels, ", "))
		}
	}
	return domain.SentinelCalendarID, nil
}
