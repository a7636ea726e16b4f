// Package spreadsheet reads worksheet rows from .xls and .xlsx exports.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var ErrSheetNotFound = errors.New("worksheet not found")

// ReadFile opens path and returns the rows of sheetName (the first sheet when empty).
func ReadFile(path, sheetName string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRows(f, filepath.Base(path), sheetName)
}

// ReadRows dispatches on the file extension: .xls goes through extrame/xls, anything else
// through excelize. Date cells come back as Excel serials for xlsx (see ParseDate).
func ReadRows(reader io.Reader, filename, sheetName string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls", ".xsl":
		return readXLS(data, sheetName)
	default:
		return readXLSX(data, sheetName)
	}
}

func readXLS(data []byte, sheetName string) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}

	var sheet *xls.WorkSheet
	for i := 0; i < workbook.NumSheets(); i++ {
		candidate := workbook.GetSheet(i)
		if candidate == nil {
			continue
		}
		if sheetName == "" || strings.TrimSpace(candidate.Name) == sheetName {
			sheet = candidate
			break
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheetName)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}

func readXLSX(data []byte, sheetName string) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if sheetName == "" {
		sheetName = file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
	} else if !hasSheet(file.GetSheetList(), sheetName) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheetName)
	}

	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}

func hasSheet(sheets []string, name string) bool {
	for _, sheet := range sheets {
		if sheet == name {
			return true
		}
	}
	return false
}

func NormalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// CellValue returns the trimmed cell or "" when the row is shorter than idx.
func CellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
