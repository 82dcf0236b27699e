package table

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX reads the first worksheet of an Office Open XML workbook.
func decodeXLSX(ctx context.Context, path string) (*Snapshot, error) {
	file, err := openSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("sheet %q is empty", sheets[0]))
	}

	return buildFromRows(rows[0], trimTrailingBlankRows(rows[1:]), false)
}

// trimTrailingBlankRows drops empty rows at the end of a sheet, which
// spreadsheet tools often leave behind after deleting data.
func trimTrailingBlankRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlankRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
