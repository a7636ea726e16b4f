// Package domain holds the recruit-tracking entities shared by the loader and the member API.
package domain

import (
	"strings"
	"time"
)

type Role int

const (
	RoleTeamLeader       Role = 1
	RoleRecruitOrAdvisor Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleTeamLeader:
		return "Team Leader"
	case RoleRecruitOrAdvisor:
		return "Recruit/Advisor"
	default:
		return "Unknown"
	}
}

func (r Role) Valid() bool {
	return r == RoleTeamLeader || r == RoleRecruitOrAdvisor
}

type Purchase string

const (
	PurchaseOwner  Purchase = "Owner"
	PurchaseEarner Purchase = "Earner"
)

// ParsePurchase accepts the two purchase types in any letter case.
func ParsePurchase(value string) (Purchase, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "owner":
		return PurchaseOwner, nil
	case "earner":
		return PurchaseEarner, nil
	default:
		return "", Malformed("unknown purchase type %q", value)
	}
}

// SentinelCalendarID marks a member whose training date matched no calendar entry.
const SentinelCalendarID int64 = 0

type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type CalendarEntry struct {
	ID            int64     `json:"id"`
	TrainingDate  string    `json:"trainingDate"`
	StartDate     time.Time `json:"startDate"`
	ThirtyDays    time.Time `json:"thirtyDays"`
	NinetyDays    time.Time `json:"ninetyDays"`
	OneEightyDays time.Time `json:"oneEightyDays"`
}

// OneEightyDays derives the 180-day checkpoint from the 90-day reference column.
func OneEightyDays(ninetyDays time.Time) time.Time {
	return ninetyDays.AddDate(0, 0, 90)
}

type MemberDetails struct {
	MemberID        int64    `json:"memberId"`
	Purchase        Purchase `json:"purchase"`
	CalendarEntryID int64    `json:"calendarEntryId"`
}

// SaleSlots is the number of sale milestones tracked per member.
const SaleSlots = 8

type MemberSales struct {
	MemberID     int64               `json:"memberId"`
	NewcomerDemo SaleMark            `json:"newcomerDemo"`
	Sales        [SaleSlots]SaleMark `json:"sales"`
}

type MemberRelationship struct {
	MemberID            int64  `json:"memberId"`
	TeamLeaderID        int64  `json:"teamLeaderId"`
	RecruitingAdvisorID *int64 `json:"recruitingAdvisorId"`
}
