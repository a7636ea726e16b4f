// Package roster turns the recruitment spreadsheets into validated input rows and owns the
// named-column CSV hand-off between the transform and load stages.
package roster

import (
	"fmt"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// Intermediate CSV header.
const (
	ColName              = "Advisor name"
	ColPurchase          = "Purchase"
	ColTeamLeader        = "Team Leader"
	ColRecruitingAdvisor = "Recruiting Advisor"
	ColTrainingDate      = "Training Date"
	ColStartDate         = "Start Date"
	ColNewcomerDemo      = "Newcomer demo"
)

func SaleColumn(i int) string {
	return fmt.Sprintf("Sale %d", i+1)
}

// Header lists the intermediate CSV columns in write order.
func Header() []string {
	header := []string{
		ColName,
		ColPurchase,
		ColTeamLeader,
		ColRecruitingAdvisor,
		ColTrainingDate,
		ColStartDate,
		ColNewcomerDemo,
	}
	for i := 0; i < domain.SaleSlots; i++ {
		header = append(header, SaleColumn(i))
	}
	return header
}

// MemberRow is one roster line as text, before validation.
type MemberRow struct {
	Line              int
	Name              string
	Purchase          string
	TeamLeader        string
	RecruitingAdvisor string
	TrainingDate      string
	StartDate         string
	NewcomerDemo      string
	Sales             [domain.SaleSlots]string

	shapeErr error
}

func (r MemberRow) fields() []string {
	out := []string{
		r.Name,
		r.Purchase,
		r.TeamLeader,
		r.RecruitingAdvisor,
		r.TrainingDate,
		r.StartDate,
		r.NewcomerDemo,
	}
	return append(out, r.Sales[:]...)
}

// MemberRecord is a MemberRow that passed validation.
type MemberRecord struct {
	Line              int
	Name              string
	Purchase          domain.Purchase
	TeamLeader        string
	RecruitingAdvisor string
	TrainingDate      string
	NewcomerDemo      domain.SaleMark
	Sales             [domain.SaleSlots]domain.SaleMark
}

// Record validates the row. Every failure wraps domain.ErrMalformedInput.
func (r MemberRow) Record() (MemberRecord, error) {
	if r.shapeErr != nil {
		return MemberRecord{}, r.shapeErr
	}
	rec := MemberRecord{
		Line:              r.Line,
		Name:              strings.TrimSpace(r.Name),
		TeamLeader:        strings.TrimSpace(r.TeamLeader),
		RecruitingAdvisor: strings.TrimSpace(r.RecruitingAdvisor),
		TrainingDate:      strings.ToUpper(strings.TrimSpace(r.TrainingDate)),
	}
	if rec.Name == "" {
		return MemberRecord{}, domain.Malformed("line %d: name is required", r.Line)
	}
	if rec.TeamLeader == "" {
		return MemberRecord{}, domain.Malformed("line %d: team leader is required for %q", r.Line, rec.Name)
	}

	purchase, err := domain.ParsePurchase(r.Purchase)
	if err != nil {
		return MemberRecord{}, fmt.Errorf("line %d: %w", r.Line, err)
	}
	rec.Purchase = purchase

	demo, err := domain.ParseSaleMark(r.NewcomerDemo)
	if err != nil {
		return MemberRecord{}, fmt.Errorf("line %d: newcomer demo: %w", r.Line, err)
	}
	rec.NewcomerDemo = demo

	for i, raw := range r.Sales {
		mark, err := domain.ParseSaleMark(raw)
		if err != nil {
			return MemberRecord{}, fmt.Errorf("line %d: %s: %w", r.Line, strings.ToLower(SaleColumn(i)), err)
		}
		rec.Sales[i] = mark
	}
	return rec, nil
}
