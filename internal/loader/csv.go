package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/table"
)

func init() {
	register(".csv", decodeCSV)
}

// decodeCSV reads a CSV extract into a column table. The first record is the
// header; each cell is numeric if it parses as a float, missing if blank, and
// text otherwise. Ragged rows are tolerated: short rows are padded with
// missing, long rows truncated to the header width.
func decodeCSV(data []byte) (*table.Table, error) {
	r := csv.NewReader(wrapForDecoding(bytes.NewReader(data)))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	cols := make([]table.Column, len(names))
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		for i := range cols {
			if i < len(record) {
				cols[i] = append(cols[i], parseCell(record[i]))
			} else {
				cols[i] = append(cols[i], table.None)
			}
		}
	}

	t := table.New()
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if err := t.SetColumn(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// parseCell infers the cell kind from its text form.
func parseCell(raw string) table.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return table.None
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return table.Num(f)
	}
	return table.Str(s)
}
