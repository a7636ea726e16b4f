package roster

import (
	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/spreadsheet"
)

// Calendar workbook layout: three preamble rows, a header, and a footer row at the end.
const (
	calendarSkipRows   = 4
	calendarFooterRows = 1

	calLabel  = 0
	calStart  = 3
	calThirty = 4
	calNinety = 5
)

type CalendarRow struct {
	Line         int
	TrainingDate string
	StartDate    string
	ThirtyDays   string
	NinetyDays   string
}

func CalendarRowsFromSheet(rows [][]string) []CalendarRow {
	end := len(rows) - calendarFooterRows
	var out []CalendarRow
	for i := calendarSkipRows; i < end; i++ {
		row := rows[i]
		label := spreadsheet.CellValue(row, calLabel)
		if label == "" {
			continue
		}
		out = append(out, CalendarRow{
			Line:         i + 1,
			TrainingDate: label,
			StartDate:    spreadsheet.CellValue(row, calStart),
			ThirtyDays:   spreadsheet.CellValue(row, calThirty),
			NinetyDays:   spreadsheet.CellValue(row, calNinety),
		})
	}
	return out
}

func ReadCalendarFile(path, sheet string) ([]CalendarRow, error) {
	rows, err := spreadsheet.ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return CalendarRowsFromSheet(rows), nil
}

// Entry parses the row's dates and derives the 180-day checkpoint.
func (r CalendarRow) Entry() (domain.CalendarEntry, error) {
	start, ok := spreadsheet.ParseDate(r.StartDate)
	if !ok {
		return domain.CalendarEntry{}, domain.Malformed("calendar line %d: start date %q", r.Line, r.StartDate)
	}
	thirty, ok := spreadsheet.ParseDate(r.ThirtyDays)
	if !ok {
		return domain.CalendarEntry{}, domain.Malformed("calendar line %d: 30-day date %q", r.Line, r.ThirtyDays)
	}
	ninety, ok := spreadsheet.ParseDate(r.NinetyDays)
	if !ok {
		return domain.CalendarEntry{}, domain.Malformed("calendar line %d: 90-day date %q", r.Line, r.NinetyDays)
	}
	return domain.CalendarEntry{
		TrainingDate:  r.TrainingDate,
		StartDate:     start,
		ThirtyDays:    thirty,
		NinetyDays:    ninety,
		OneEightyDays: domain.OneEightyDays(ninety),
	}, nil
}
