package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// decodeCSV reads a comma separated file. The first row is the header
// containing column names.
func decodeCSV(ctx context.Context, path string) (*Snapshot, error) {
	file, err := openSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	return readCSV(path, file)
}

func readCSV(path string, r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("CSV file is empty"))
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	return buildFromRows(header, rows, true)
}
