package apiapp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/store"
)

type recruitRequest struct {
	Name              string `json:"name"`
	Purchase          string `json:"purchase"`
	TrainingDate      string `json:"trainingDate"`
	Year              int    `json:"year"`
	TeamLeader        string `json:"teamLeader"`
	RecruitingAdvisor string `json:"recruitingAdvisor"`
}

type advisorRequest struct {
	Name string `json:"name"`
}

// salesRequest sets only the slots it names. An empty string clears a slot.
type salesRequest struct {
	NewcomerDemo *string           `json:"newcomerDemo"`
	Sales        map[string]string `json:"sales"`
}

type memberResponse struct {
	Member       domain.Member             `json:"member"`
	Details      domain.MemberDetails      `json:"details"`
	Relationship domain.MemberRelationship `json:"relationship"`
}

func (s *server) listMembers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.Queries().Roster(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.RosterEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": entries, "count": len(entries)})
}

func (s *server) listTeamLeaders(w http.ResponseWriter, r *http.Request) {
	leaders, err := s.db.Queries().MembersByRole(r.Context(), domain.RoleTeamLeader)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if leaders == nil {
		leaders = []domain.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teamLeaders": leaders})
}

func (s *server) listCalendar(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > 9999 {
			writeError(w, http.StatusBadRequest, "year must be a four digit number")
			return
		}
		year = parsed
	}
	entries, err := s.db.Queries().ListCalendar(r.Context(), year)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.CalendarEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendar": entries})
}

func (req recruitRequest) validate(requireAdvisor bool) (domain.Purchase, error) {
	if strings.TrimSpace(req.TeamLeader) == "" {
		return "", domain.Malformed("teamLeader is required")
	}
	if strings.TrimSpace(req.TrainingDate) == "" || req.Year <= 0 {
		return "", domain.Malformed("trainingDate and year are required")
	}
	if requireAdvisor && strings.TrimSpace(req.RecruitingAdvisor) == "" {
		return "", domain.Malformed("recruitingAdvisor is required")
	}
	return domain.ParsePurchase(req.Purchase)
}

// resolveRecruitRefs looks up the team leader, calendar entry and advisor by exact name.
// Only a missing row is a lookup miss; other store errors pass through unchanged.
func resolveRecruitRefs(r *http.Request, q *store.Queries, req recruitRequest) (int64, int64, *int64, error) {
	ctx := r.Context()
	leader, err := q.MemberByName(ctx, req.TeamLeader)
	if err != nil {
		return 0, 0, nil, lookupMiss(err, "team leader %q", req.TeamLeader)
	}
	entry, err := q.CalendarEntryForYear(ctx, req.TrainingDate, req.Year)
	if err != nil {
		return 0, 0, nil, lookupMiss(err, "training date %q in %d", req.TrainingDate, req.Year)
	}
	var advisorID *int64
	if name := strings.TrimSpace(req.RecruitingAdvisor); name != "" {
		advisor, err := q.MemberByName(ctx, name)
		if err != nil {
			return 0, 0, nil, lookupMiss(err, "recruiting advisor %q", name)
		}
		advisorID = &advisor.ID
	}
	return leader.ID, entry.ID, advisorID, nil
}

func lookupMiss(err error, format string, args ...any) error {
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrLookupMiss, fmt.Sprintf(format, args...))
}

func (s *server) createMember(w http.ResponseWriter, r *http.Request) {
	var req recruitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	purchase, err := req.validate(true)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var resp memberResponse
	err = s.db.WithTx(r.Context(), func(q *store.Queries) error {
		leaderID, calendarID, advisorID, err := resolveRecruitRefs(r, q, req)
		if err != nil {
			return err
		}
		inserted, err := q.InsertMember(r.Context(), req.Name, domain.RoleRecruitOrAdvisor)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("%w: member %q already exists", domain.ErrConflict, req.Name)
		}
		member, err := q.MemberByName(r.Context(), req.Name)
		if err != nil {
			return err
		}
		resp = memberResponse{
			Member:       member,
			Details:      domain.MemberDetails{MemberID: member.ID, Purchase: purchase, CalendarEntryID: calendarID},
			Relationship: domain.MemberRelationship{MemberID: member.ID, TeamLeaderID: leaderID, RecruitingAdvisorID: advisorID},
		}
		if _, err := q.InsertDetails(r.Context(), resp.Details); err != nil {
			return err
		}
		if _, err := q.WriteSales(r.Context(), store.FullPatch(domain.MemberSales{MemberID: member.ID}), store.InsertIfAbsent); err != nil {
			return err
		}
		_, err = q.InsertRelationship(r.Context(), resp.Relationship)
		return err
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.logger.Info("member created", "member_id", resp.Member.ID, "name", resp.Member.Name)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *server) createAdvisor(w http.ResponseWriter, r *http.Request) {
	var req advisorRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var member domain.Member
	err := s.db.WithTx(r.Context(), func(q *store.Queries) error {
		inserted, err := q.InsertMember(r.Context(), req.Name, domain.RoleRecruitOrAdvisor)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("%w: member %q already exists", domain.ErrConflict, strings.TrimSpace(req.Name))
		}
		member, err = q.MemberByName(r.Context(), req.Name)
		return err
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *server) updateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var req recruitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	purchase, err := req.validate(false)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var resp memberResponse
	err = s.db.WithTx(r.Context(), func(q *store.Queries) error {
		member, err := q.MemberByID(r.Context(), id)
		if err != nil {
			return err
		}
		if name := strings.TrimSpace(req.Name); name != "" && name != member.Name {
			if err := q.RenameMember(r.Context(), id, name); err != nil {
				return err
			}
			member.Name = name
		}
		leaderID, calendarID, advisorID, err := resolveRecruitRefs(r, q, req)
		if err != nil {
			return err
		}
		if leaderID == id || (advisorID != nil && *advisorID == id) {
			return domain.Malformed("a member cannot lead or recruit itself")
		}
		resp = memberResponse{
			Member:       member,
			Details:      domain.MemberDetails{MemberID: id, Purchase: purchase, CalendarEntryID: calendarID},
			Relationship: domain.MemberRelationship{MemberID: id, TeamLeaderID: leaderID, RecruitingAdvisorID: advisorID},
		}
		if err := q.ReplaceDetails(r.Context(), resp.Details); err != nil {
			return err
		}
		return q.ReplaceRelationship(r.Context(), resp.Relationship)
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req salesRequest) patch(memberID int64) (store.SalesPatch, error) {
	p := store.SalesPatch{MemberID: memberID}
	if req.NewcomerDemo != nil {
		mark, err := domain.ParseSaleMark(*req.NewcomerDemo)
		if err != nil {
			return p, fmt.Errorf("newcomerDemo: %w", err)
		}
		p.NewcomerDemo = &mark
	}
	for key, raw := range req.Sales {
		slot, err := strconv.Atoi(key)
		if err != nil || slot < 1 || slot > domain.SaleSlots {
			return p, domain.Malformed("sale slot %q must be 1-%d", key, domain.SaleSlots)
		}
		mark, err := domain.ParseSaleMark(raw)
		if err != nil {
			return p, fmt.Errorf("sale %d: %w", slot, err)
		}
		p.Sales[slot-1] = &mark
	}
	if p.NewcomerDemo == nil && len(req.Sales) == 0 {
		return p, domain.Malformed("no sales fields provided")
	}
	return p, nil
}

func (s *server) updateSales(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var req salesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	patch, err := req.patch(id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	var sales domain.MemberSales
	err = s.db.WithTx(r.Context(), func(q *store.Queries) error {
		if _, err := q.MemberByID(r.Context(), id); err != nil {
			return err
		}
		if _, err := q.WriteSales(r.Context(), patch, store.MergeFields); err != nil {
			return err
		}
		stored, err := q.SalesByMember(r.Context(), id)
		sales = stored
		return err
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *server) deleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	err = s.db.WithTx(r.Context(), func(q *store.Queries) error {
		return q.DeleteMember(r.Context(), id)
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.logger.Info("member deleted", "member_id", id)
	w.WriteHeader(http.StatusNoContent)
}
