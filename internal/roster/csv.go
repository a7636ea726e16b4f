package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/spreadsheet"
)

func WriteCSV(w io.Writer, rows []MemberRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row.fields()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteCSVFile(path string, rows []MemberRow) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// ReadCSV resolves columns by header name. A missing column fails the whole file; a record
// with the wrong number of fields only fails its own row.
func ReadCSV(r io.Reader) ([]MemberRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.Malformed("roster csv is empty")
		}
		return nil, err
	}
	index := map[string]int{}
	for i, name := range header {
		index[spreadsheet.NormalizeHeader(name)] = i
	}
	positions := make([]int, 0, len(Header()))
	for _, name := range Header() {
		idx, ok := index[spreadsheet.NormalizeHeader(name)]
		if !ok {
			return nil, domain.Malformed("roster csv is missing column %q", name)
		}
		positions = append(positions, idx)
	}

	var rows []MemberRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		cell := func(col int) string {
			return spreadsheet.CellValue(record, positions[col])
		}
		row := MemberRow{
			Line:              line,
			Name:              cell(0),
			Purchase:          cell(1),
			TeamLeader:        cell(2),
			RecruitingAdvisor: cell(3),
			TrainingDate:      cell(4),
			StartDate:         cell(5),
			NewcomerDemo:      cell(6),
		}
		for s := 0; s < domain.SaleSlots; s++ {
			row.Sales[s] = cell(7 + s)
		}
		if len(record) != len(header) {
			row.shapeErr = domain.Malformed("line %d: has %d fields, header has %d", line, len(record), len(header))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func ReadCSVFile(path string) ([]MemberRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
