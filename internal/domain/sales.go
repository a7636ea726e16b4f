package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DNQ        = "DNQ"
	DateLayout = "2006-01-02"
)

type MarkKind int

const (
	MarkAbsent MarkKind = iota
	MarkDate
	MarkDNQ
)

// SaleMark is one sales milestone: a date, the DNQ marker, or nothing recorded.
type SaleMark struct {
	Kind MarkKind
	Date time.Time
}

func Absent() SaleMark { return SaleMark{} }

func DNQMark() SaleMark { return SaleMark{Kind: MarkDNQ} }

func DateMark(t time.Time) SaleMark {
	y, m, d := t.Date()
	return SaleMark{Kind: MarkDate, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

var absentTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"nat":  {},
	"none": {},
	"null": {},
}

// ParseSaleMark reads a normalized cell: blank, DNQ, or an ISO date.
func ParseSaleMark(raw string) (SaleMark, error) {
	value := strings.TrimSpace(raw)
	if _, ok := absentTokens[strings.ToLower(value)]; ok {
		return Absent(), nil
	}
	if strings.EqualFold(value, DNQ) {
		return DNQMark(), nil
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return DateMark(parsed), nil
		}
	}
	return Absent(), Malformed("sale value %q is neither a date nor %s", raw, DNQ)
}

func (m SaleMark) IsAbsent() bool { return m.Kind == MarkAbsent }

func (m SaleMark) String() string {
	switch m.Kind {
	case MarkDate:
		return m.Date.Format(DateLayout)
	case MarkDNQ:
		return DNQ
	default:
		return ""
	}
}

// Value stores absent slots as NULL.
func (m SaleMark) Value() (driver.Value, error) {
	if m.IsAbsent() {
		return nil, nil
	}
	return m.String(), nil
}

func (m *SaleMark) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Absent()
		return nil
	case string:
		parsed, err := ParseSaleMark(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		return m.Scan(string(v))
	case time.Time:
		*m = DateMark(v)
		return nil
	default:
		return fmt.Errorf("scan sale mark: unsupported type %T", src)
	}
}

func (m SaleMark) MarshalJSON() ([]byte, error) {
	if m.IsAbsent() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *SaleMark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Absent()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSaleMark(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
