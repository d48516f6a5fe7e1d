package loader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/epistat/t2d-analyzer/internal/table"
)

func init() {
	register(".parquet", decodeParquet)
}

// decodeParquet reads a flat parquet file into a column table. Survey
// extracts are flat (one leaf column per field), so leaf column order maps
// directly onto schema field order.
func decodeParquet(data []byte) (*table.Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %w", err)
	}

	fields := f.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}

	cols := make([]table.Column, len(names))
	buf := make([]parquet.Row, 256)

	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				appendParquetRow(cols, row)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("reading parquet rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("closing parquet row reader: %w", err)
		}
	}

	t := table.New()
	for i, name := range names {
		if err := t.SetColumn(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// appendParquetRow distributes the row's leaf values into their columns.
// Rows in a flat file carry exactly one value per leaf column, but we index
// by Value.Column to stay correct if a writer reordered them.
func appendParquetRow(cols []table.Column, row parquet.Row) {
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(cols) {
			continue
		}
		cols[c] = append(cols[c], parquetValue(v))
	}
}

func parquetValue(v parquet.Value) table.Value {
	if v.IsNull() {
		return table.None
	}
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return table.Num(1)
		}
		return table.Num(0)
	case parquet.Int32:
		return table.Num(float64(v.Int32()))
	case parquet.Int64:
		return table.Num(float64(v.Int64()))
	case parquet.Float:
		return table.Num(float64(v.Float()))
	case parquet.Double:
		return table.Num(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.Str(string(v.ByteArray()))
	}
	return table.None
}
