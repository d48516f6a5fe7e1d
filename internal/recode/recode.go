// Package recode derives the epidemiological indicator columns from raw
// BRFSS survey codes.
//
// The classification is a pure, order-independent function of each row: no
// cross-row state, no errors. Codes that cannot be classified become missing
// cells, never failures. Raw column names are looked up case-insensitively;
// a raw column absent from the extract makes its derived columns entirely
// missing.
package recode

import (
	"math"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/table"
)

// Raw survey field names from the BRFSS instrument.
const (
	ColDiabetes   = "DIABETE4" // primary diabetes told code
	ColPrediab1   = "PDIABTS1" // prediabetes told, first variant
	ColPrediab2   = "PREDIAB2" // prediabetes told, second variant
	ColBMI        = "_BMI5"    // BMI, fixed-point (x100)
	ColAgeGroup   = "_AGEG5YR" // banded age code
	ColSex        = "_SEX"     // 1=male, 2=female
	DefaultWeight = "_LLCPWT"  // survey design weight
)

// Derived column names appended by Recode.
const (
	ColDiabetesCat = "diabetes_cat"
	ColT2DBinary   = "t2d_binary"
	ColBMIScaled   = "BMI"
	ColBMICat      = "BMI_cat"
	ColAgeGroupOut = "age_group"
	ColSexOut      = "sex"
)

// Diabetes categories.
const (
	CatDiabetes    = "Diabetes"
	CatGestational = "Gestational only"
	CatPrediabetes = "Prediabetes"
	CatNoDiabetes  = "No diabetes"
)

// BMI categories, half-open lower-inclusive bins.
const (
	BMIUnder  = "Under"  // [0, 18.5)
	BMINormal = "Normal" // [18.5, 25)
	BMIOver   = "Over"   // [25, 30)
	BMIObese  = "Obese"  // [30, inf)
)

// DerivedColumns lists the appended columns in output order.
func DerivedColumns() []string {
	return []string{ColDiabetesCat, ColT2DBinary, ColBMIScaled, ColBMICat, ColAgeGroupOut, ColSexOut}
}

// Recode appends the derived columns to t and returns t. The input columns
// are left untouched.
func Recode(t *table.Table) *table.Table {
	n := t.Rows()

	diab, hasDiab := t.Column(ColDiabetes)
	pre1, _ := t.Column(ColPrediab1)
	pre2, _ := t.Column(ColPrediab2)

	diabCat := make(table.Column, n)
	t2d := make(table.Column, n)
	for i := 0; i < n; i++ {
		cat := classifyDiabetes(cellAt(diab, hasDiab, i), cellAt(pre1, pre1 != nil, i), cellAt(pre2, pre2 != nil, i))
		diabCat[i] = cat
		t2d[i] = binaryOutcome(cat)
	}
	t.SetColumn(ColDiabetesCat, diabCat)
	t.SetColumn(ColT2DBinary, t2d)

	bmiRaw, hasBMI := t.Column(ColBMI)
	bmi := make(table.Column, n)
	bmiCat := make(table.Column, n)
	if hasBMI {
		for i := 0; i < n; i++ {
			bmi[i], bmiCat[i] = scaleBMI(bmiRaw[i])
		}
	}
	t.SetColumn(ColBMIScaled, bmi)
	t.SetColumn(ColBMICat, bmiCat)

	age := make(table.Column, n)
	if raw, ok := t.Column(ColAgeGroup); ok {
		copy(age, raw)
	}
	t.SetColumn(ColAgeGroupOut, age)

	sex := make(table.Column, n)
	if raw, ok := t.Column(ColSex); ok {
		for i := 0; i < n; i++ {
			sex[i] = mapSex(raw[i])
		}
	}
	t.SetColumn(ColSexOut, sex)

	return t
}

func cellAt(col table.Column, ok bool, i int) table.Value {
	if !ok || i >= len(col) {
		return table.None
	}
	return col[i]
}

// classifyDiabetes implements the fixed classification order:
//
//	1 -> Diabetes
//	3 -> Gestational only
//	2,4 -> Prediabetes if either "prediabetes told" code equals 1
//	       (first then second), otherwise No diabetes
//	anything else (including non-numeric) -> missing
//
// Non-numeric secondary codes are ignored rather than propagated as missing.
func classifyDiabetes(primary, pre1, pre2 table.Value) table.Value {
	code, ok := primary.Int()
	if !ok {
		return table.None
	}
	switch code {
	case 1:
		return table.Str(CatDiabetes)
	case 3:
		return table.Str(CatGestational)
	case 2, 4:
		for _, p := range []table.Value{pre1, pre2} {
			if v, ok := p.Int(); ok && v == 1 {
				return table.Str(CatPrediabetes)
			}
		}
		return table.Str(CatNoDiabetes)
	}
	return table.None
}

// binaryOutcome is 1.0 iff the category is Diabetes, 0.0 for any other
// category, and missing when the category is missing. The missing marker
// must survive recoding; the zero-substitution for prevalence happens
// downstream in the aggregation engine.
func binaryOutcome(cat table.Value) table.Value {
	if cat.IsMissing() {
		return table.None
	}
	if cat.Str == CatDiabetes {
		return table.Num(1)
	}
	return table.Num(0)
}

// scaleBMI converts the fixed-point raw value (x100) to a BMI and bins it.
func scaleBMI(raw table.Value) (table.Value, table.Value) {
	f := raw.Float()
	if math.IsNaN(f) {
		return table.None, table.None
	}
	b := f / 100.0
	if b < 0 {
		return table.Num(b), table.None
	}
	switch {
	case b < 18.5:
		return table.Num(b), table.Str(BMIUnder)
	case b < 25:
		return table.Num(b), table.Str(BMINormal)
	case b < 30:
		return table.Num(b), table.Str(BMIOver)
	default:
		return table.Num(b), table.Str(BMIObese)
	}
}

// mapSex maps raw codes {1,2} to labels; any other code is missing.
func mapSex(raw table.Value) table.Value {
	code, ok := raw.Int()
	if !ok {
		return table.None
	}
	switch code {
	case 1:
		return table.Str("Male")
	case 2:
		return table.Str("Female")
	}
	return table.None
}

// EnsureWeight resolves the weight column: if name is empty the default is
// used, and if the column is absent every row is assigned weight 1.0
// (unweighted fallback). The resolved column name is returned.
func EnsureWeight(t *table.Table, name string) string {
	if strings.TrimSpace(name) == "" {
		name = DefaultWeight
	}
	if !t.Has(name) {
		col := make(table.Column, t.Rows())
		for i := range col {
			col[i] = table.Num(1)
		}
		t.SetColumn(name, col)
	}
	return name
}
