package table

import (
	"context"
	"fmt"

	"github.com/extrame/xls"
)

// decodeXLS reads the first worksheet of a legacy BIFF workbook.
func decodeXLS(ctx context.Context, path string) (*Snapshot, error) {
	file, err := openSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("open workbook: no workbook stream")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("workbook has no sheets"))
	}

	var rows [][]string
	width := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row, ok := sheetRow(sheet, i)
		if !ok {
			rows = append(rows, nil)
			continue
		}
		n := max(row.LastCol(), width)
		cells := make([]string, n)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		if i == 0 {
			width = len(cells)
		}
		rows = append(rows, cells)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows = trimTrailingBlankRows(rows)
	if len(rows) == 0 {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("sheet %q is empty", sheet.Name))
	}

	return buildFromRows(rows[0], rows[1:], false)
}

// sheetRow returns row i of sheet. WorkSheet.Row panics on rows that hold
// no cells, so those are reported as absent.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			row, ok = nil, false
		}
	}()
	return sheet.Row(i), true
}
