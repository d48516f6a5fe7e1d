package loader

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CSV(t *testing.T) {
	data := []byte("DIABETE4,_BMI5,_SEX\n1,2750,1\n3,,2\n2,1800,\n")

	tbl, err := Load(data, "extract.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []string{"DIABETE4", "_BMI5", "_SEX"}, tbl.Names())

	assert.Equal(t, 1.0, tbl.Cell("DIABETE4", 0).Num)
	assert.True(t, tbl.Cell("_BMI5", 1).IsMissing(), "blank cell should be missing")
	assert.True(t, tbl.Cell("_SEX", 2).IsMissing())
}

func TestLoad_CSV_SkipsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)

	tbl, err := Load(data, "bom.csv")
	require.NoError(t, err)

	assert.True(t, tbl.Has("a"), "BOM should not attach to the first header")
}

func TestLoad_CSV_RaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n1,2,3,4\n")

	tbl, err := Load(data, "ragged.csv")
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Rows())
	assert.True(t, tbl.Cell("c", 0).IsMissing(), "short row should pad with missing")
	assert.Equal(t, 3.0, tbl.Cell("c", 1).Num, "long row should truncate to header width")
}

func TestLoad_CSV_TextAndNumericCells(t *testing.T) {
	data := []byte("label,code\nMale,1\nFemale,2.5\n")

	tbl, err := Load(data, "mixed.csv")
	require.NoError(t, err)

	assert.Equal(t, "Male", tbl.Cell("label", 0).Str)
	assert.Equal(t, 2.5, tbl.Cell("code", 1).Num)
	assert.Equal(t, 1.0, tbl.Cell("code", 0).Num)
	assert.True(t, math.IsNaN(tbl.Cell("label", 0).Float()), "text label has no numeric view")
}

func TestLoad_CSV_BlankHeaderNames(t *testing.T) {
	data := []byte("a,,c\n1,2,3\n")

	tbl, err := Load(data, "blank.csv")
	require.NoError(t, err)

	assert.True(t, tbl.Has("column_2"), "blank header should get a positional name")
}

func TestLoad_CSV_EmptyFile(t *testing.T) {
	_, err := Load(nil, "empty.csv")
	assert.Error(t, err)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load([]byte("x"), "data.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	var ufe *UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, ".xlsx", ufe.Ext)
}

func TestLoad_MissingCapability_XPORT(t *testing.T) {
	for _, name := range []string{"llcp.xpt", "llcp.xport"} {
		_, err := Load([]byte("x"), name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrMissingCapability), name)
		assert.False(t, errors.Is(err, ErrUnsupportedFormat), name)
	}
}

func TestLoad_ExtensionCaseInsensitive(t *testing.T) {
	tbl, err := Load([]byte("a\n1\n"), "UPPER.CSV")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Rows())
}

func TestFormats_SortedAndDecodableOnly(t *testing.T) {
	formats := Formats()
	require.NotEmpty(t, formats)

	for i := 1; i < len(formats); i++ {
		assert.LessOrEqual(t, formats[i-1], formats[i], "Formats should be sorted")
	}
	for _, f := range formats {
		assert.NotEqual(t, ".xpt", f, "recognized-but-undecodable formats must not be advertised")
		assert.NotEqual(t, ".xport", f)
	}
}
