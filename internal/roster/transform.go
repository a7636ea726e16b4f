package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/spreadsheet"
)

// Column positions in the hand-authored roster sheets.
const (
	srcName              = 0
	srcPurchase          = 1
	srcTeamLeader        = 2
	srcRecruitingAdvisor = 3
	srcTrainingDate      = 4
	srcStartDate         = 5
	srcNewcomerDemo      = 9
	srcFirstSale         = 10
	srcMinWidth          = srcFirstSale + domain.SaleSlots

	// The header plus the sub-header line beneath it.
	rosterHeaderRows = 2
)

// Intake maps a workbook sheet onto the intake year it holds.
type Intake struct {
	Sheet string
	Year  string
}

var DefaultIntakes = []Intake{
	{Sheet: "Recruits Tracker 2223", Year: "2023"},
	{Sheet: "Recruits Tracker24", Year: "2024"},
}

// ParseIntakes reads "sheet=year" pairs separated by semicolons.
func ParseIntakes(raw string) ([]Intake, error) {
	var intakes []Intake
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sheet, year, ok := strings.Cut(part, "=")
		sheet = strings.TrimSpace(sheet)
		year = strings.TrimSpace(year)
		if !ok || sheet == "" || year == "" {
			return nil, fmt.Errorf("invalid intake %q (want sheet=year)", part)
		}
		intakes = append(intakes, Intake{Sheet: sheet, Year: year})
	}
	if len(intakes) == 0 {
		return nil, fmt.Errorf("no intakes configured")
	}
	return intakes, nil
}

// OutputPath is where the intermediate CSV for year lives.
func OutputPath(dir, year string) string {
	return filepath.Join(dir, year+"Recruits.csv")
}

// TransformSheet maps positional roster cells onto named rows. It fails when the header does
// not look like a roster sheet rather than misreading columns.
func TransformSheet(rows [][]string) ([]MemberRow, error) {
	if len(rows) == 0 {
		return nil, domain.Malformed("roster sheet is empty")
	}
	header := rows[0]
	if len(header) < srcMinWidth {
		return nil, domain.Malformed("roster header has %d columns, expected at least %d", len(header), srcMinWidth)
	}
	if spreadsheet.NormalizeHeader(header[srcName]) != strings.ToLower(ColName) {
		return nil, domain.Malformed("roster column 1 is %q, expected %q", header[srcName], ColName)
	}

	var out []MemberRow
	for i := rosterHeaderRows; i < len(rows); i++ {
		row := rows[i]
		name := spreadsheet.CellValue(row, srcName)
		if name == "" {
			continue
		}
		member := MemberRow{
			Line:              i + 1,
			Name:              name,
			Purchase:          spreadsheet.CellValue(row, srcPurchase),
			TeamLeader:        spreadsheet.CellValue(row, srcTeamLeader),
			RecruitingAdvisor: spreadsheet.CellValue(row, srcRecruitingAdvisor),
			TrainingDate:      spreadsheet.CellValue(row, srcTrainingDate),
			StartDate:         normalizeCell(spreadsheet.CellValue(row, srcStartDate)),
			NewcomerDemo:      normalizeCell(spreadsheet.CellValue(row, srcNewcomerDemo)),
		}
		for s := 0; s < domain.SaleSlots; s++ {
			member.Sales[s] = normalizeCell(spreadsheet.CellValue(row, srcFirstSale+s))
		}
		out = append(out, member)
	}
	return out, nil
}

// normalizeCell rewrites dates as ISO and DNQ in upper case. Anything else is kept verbatim so
// the load stage can reject it with the cell text intact.
func normalizeCell(value string) string {
	if value == "" {
		return ""
	}
	if strings.EqualFold(value, domain.DNQ) {
		return domain.DNQ
	}
	if normalized, ok := spreadsheet.NormalizeDate(value); ok {
		return normalized
	}
	return value
}

// TransformWorkbook writes one CSV per intake and returns the written paths.
func TransformWorkbook(workbookPath string, intakes []Intake, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(intakes))
	for _, intake := range intakes {
		rows, err := spreadsheet.ReadFile(workbookPath, intake.Sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", intake.Sheet, err)
		}
		members, err := TransformSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("transform sheet %q: %w", intake.Sheet, err)
		}
		path := OutputPath(outDir, intake.Year)
		if err := WriteCSVFile(path, members); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
