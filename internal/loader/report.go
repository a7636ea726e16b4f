package loader

import (
	"fmt"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// Stage is the last step a member row completed.
type Stage int

const (
	StageReceived Stage = iota
	StageRoleDerived
	StageMemberEnsured
	StageCalendarResolved
	StageDetailsInserted
	StageSalesInserted
	StageTeamLeaderResolved
	StageAdvisorResolved
	StageRelationshipInserted
	StageLoaded
)

var stageNames = [...]string{
	"received",
	"role-derived",
	"member-ensured",
	"calendar-resolved",
	"details-inserted",
	"sales-inserted",
	"team-leader-resolved",
	"advisor-resolved",
	"relationship-inserted",
	"loaded",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// RowError records a rejected input row.
type RowError struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Name   string `json:"name"`
	Stage  Stage  `json:"-"`
	Err    error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s line %d (%s) rejected after %s: %v", e.Source, e.Line, e.Name, e.Stage, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type Report struct {
	RunID             string
	CalendarInserted  int
	CalendarSkipped   int
	CalendarRejected  int
	TeamLeadersSeeded int
	RowsLoaded        int
	RowsRejected      int
	MembersCreated    int
	AdvisorsCreated   int
	Errors            []RowError
}

// Err is non-nil when any calendar or member row was rejected.
func (r *Report) Err() error {
	n := r.RowsRejected + r.CalendarRejected
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d row(s)", domain.ErrRowsRejected, n)
}

func (r *Report) reject(e RowError) {
	r.Errors = append(r.Errors, e)
}
