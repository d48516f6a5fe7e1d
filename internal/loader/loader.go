// Package loader turns an uploaded byte stream into a generic column table.
//
// Decoders are selected by filename extension. The set of recognized
// extensions is fixed; a recognized extension without a registered decoder
// (SAS XPORT in this build) fails with MissingCapabilityError so callers can
// distinguish "we never heard of this format" from "this build cannot decode
// it".
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/table"
)

// ErrUnsupportedFormat is the Is-target for unrecognized file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrMissingCapability is the Is-target for formats this build recognizes
// but cannot decode.
var ErrMissingCapability = errors.New("missing capability")

// UnsupportedFormatError reports an extension outside the recognized set.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q (use %s)", e.Ext, strings.Join(Formats(), ", "))
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// MissingCapabilityError reports a recognized format with no decoder in this
// build.
type MissingCapabilityError struct {
	Format string
	Hint   string
}

func (e *MissingCapabilityError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("no decoder available for %s files", e.Format)
	}
	return fmt.Sprintf("no decoder available for %s files: %s", e.Format, e.Hint)
}

func (e *MissingCapabilityError) Is(target error) bool {
	return target == ErrMissingCapability
}

// decodeFunc decodes raw bytes into a table.
type decodeFunc func(data []byte) (*table.Table, error)

var decoders = map[string]decodeFunc{}

// recognized maps every extension the loader knows about to the format name
// used in error messages. Extensions present here but absent from decoders
// surface as MissingCapabilityError.
var recognized = map[string]string{
	".csv":      "CSV",
	".parquet":  "Parquet",
	".sas7bdat": "SAS",
	".dta":      "Stata",
	".xpt":      "SAS XPORT",
	".xport":    "SAS XPORT",
}

func register(ext string, fn decodeFunc) {
	decoders[ext] = fn
}

// Formats returns the extensions with an available decoder, sorted. Used for
// the startup capability log and for error messages.
func Formats() []string {
	out := make([]string, 0, len(decoders))
	for ext := range decoders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Load decodes an uploaded file into a Table using the filename hint to pick
// the decoder.
func Load(data []byte, filename string) (*table.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	fn, ok := decoders[ext]
	if ok {
		t, err := fn(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", recognized[ext], err)
		}
		return t, nil
	}

	if format, known := recognized[ext]; known {
		return nil, &MissingCapabilityError{
			Format: format,
			Hint:   "convert the file to CSV or Parquet",
		}
	}

	return nil, &UnsupportedFormatError{Ext: ext}
}
