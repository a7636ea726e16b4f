package spreadsheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const isoDate = "2006-01-02"

var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02-01-2006",
	"2-1-2006",
	"02-01-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-06",
	"2-Jan-2006",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts Excel serials and the day-first layouts the UK exports use.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		// Plain years and small counts are not dates.
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return dateOnly(parsed), true
			}
		}
		return time.Time{}, false
	}

	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, value); err == nil {
			return dateOnly(parsed), true
		}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return dateOnly(parsed), true
	}
	return time.Time{}, false
}

// NormalizeDate rewrites a date cell as YYYY-MM-DD.
func NormalizeDate(value string) (string, bool) {
	parsed, ok := ParseDate(value)
	if !ok {
		return "", false
	}
	return parsed.Format(isoDate), true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
