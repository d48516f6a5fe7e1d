package loader

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/kshedden/datareader"

	"github.com/epistat/t2d-analyzer/internal/table"
)

func init() {
	register(".sas7bdat", decodeSAS7BDAT)
	register(".dta", decodeStata)
}

// decodeSAS7BDAT reads a SAS binary dataset into a column table.
func decodeSAS7BDAT(data []byte) (*table.Table, error) {
	rd, err := datareader.NewSAS7BDATReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening sas7bdat: %w", err)
	}
	series, err := rd.Read(-1)
	if err != nil {
		return nil, fmt.Errorf("reading sas7bdat: %w", err)
	}
	return seriesToTable(series)
}

// decodeStata reads a Stata dta dataset into a column table.
func decodeStata(data []byte) (*table.Table, error) {
	rd, err := datareader.NewStataReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening dta: %w", err)
	}
	series, err := rd.Read(-1)
	if err != nil {
		return nil, fmt.Errorf("reading dta: %w", err)
	}
	return seriesToTable(series)
}

// seriesToTable converts datareader column series into a Table, preferring
// the numeric view and falling back to strings for character variables.
// SAS pads character values with trailing spaces; those are trimmed.
func seriesToTable(series []*datareader.Series) (*table.Table, error) {
	t := table.New()
	for _, s := range series {
		if s == nil {
			continue
		}

		var col table.Column
		if vals, miss, err := s.AsFloat64Slice(); err == nil {
			col = make(table.Column, len(vals))
			for i, f := range vals {
				if (miss != nil && miss[i]) || math.IsNaN(f) {
					col[i] = table.None
				} else {
					col[i] = table.Num(f)
				}
			}
		} else if vals, miss, err := s.AsStringSlice(); err == nil {
			col = make(table.Column, len(vals))
			for i, v := range vals {
				if miss != nil && miss[i] {
					col[i] = table.None
				} else {
					col[i] = table.Str(strings.TrimRight(v, " "))
				}
			}
		} else {
			// Dates and other exotic variable types are not survey codes;
			// treat them as entirely missing rather than failing the load.
			col = make(table.Column, s.Length())
		}

		if err := t.SetColumn(s.Name, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}
