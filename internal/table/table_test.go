package table

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValue_Float(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want float64
	}{
		{"number", Num(13), 13},
		{"numeric text", Str("42.5"), 42.5},
		{"padded numeric text", Str(" 7 "), 7},
		{"non-numeric text", Str("abc"), math.NaN()},
		{"missing", None, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Float()
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("Float() = %v, want NaN", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Float() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_Int_Truncates(t *testing.T) {
	v, ok := Num(3.9).Int()
	if !ok || v != 3 {
		t.Errorf("Int() = %d, %v, want 3, true", v, ok)
	}

	if _, ok := Str("x").Int(); ok {
		t.Error("Int() on non-numeric text should not be ok")
	}
	if _, ok := None.Int(); ok {
		t.Error("Int() on missing should not be ok")
	}
}

func TestValue_Constructors_NormalizeMissing(t *testing.T) {
	if !Num(math.NaN()).IsMissing() {
		t.Error("Num(NaN) should be missing")
	}
	if !Str("").IsMissing() {
		t.Error(`Str("") should be missing`)
	}
}

func TestValue_String_ShortestForm(t *testing.T) {
	if got := Num(13).String(); got != "13" {
		t.Errorf("String() = %q, want \"13\"", got)
	}
	if got := Num(18.5).String(); got != "18.5" {
		t.Errorf("String() = %q, want \"18.5\"", got)
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"number", Num(2.5), "2.5"},
		{"text", Str("Male"), `"Male"`},
		{"missing", None, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTable_CaseInsensitiveLookup(t *testing.T) {
	tbl := New()
	if err := tbl.SetColumn("DIABETE4", Column{Num(1), Num(3)}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}

	if !tbl.Has("diabete4") {
		t.Error("Has should be case-insensitive")
	}
	if got := tbl.ResolveName("Diabete4"); got != "DIABETE4" {
		t.Errorf("ResolveName = %q, want original casing", got)
	}
	if got := tbl.Cell("diabete4", 1); got.Num != 3 {
		t.Errorf("Cell = %v, want 3", got.Num)
	}
}

func TestTable_SetColumn_RowCountMismatch(t *testing.T) {
	tbl := New()
	if err := tbl.SetColumn("a", Column{Num(1), Num(2)}); err != nil {
		t.Fatalf("first SetColumn: %v", err)
	}
	if err := tbl.SetColumn("b", Column{Num(1)}); err == nil {
		t.Error("expected error for mismatched column length")
	}
	if tbl.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", tbl.Rows())
	}
}

func TestTable_Floats_AbsentColumn(t *testing.T) {
	tbl := New()
	tbl.SetColumn("a", Column{Num(1), None, Str("x")})

	got := tbl.Floats("nope")
	if len(got) != 3 {
		t.Fatalf("Floats length = %d, want 3", len(got))
	}
	for i, f := range got {
		if !math.IsNaN(f) {
			t.Errorf("Floats[%d] = %v, want NaN", i, f)
		}
	}

	got = tbl.Floats("a")
	if got[0] != 1 || !math.IsNaN(got[1]) || !math.IsNaN(got[2]) {
		t.Errorf("Floats = %v, want [1 NaN NaN]", got)
	}
}

func TestTable_Records_Limit(t *testing.T) {
	tbl := New()
	tbl.SetColumn("x", Column{Num(1), Num(2), Num(3)})
	tbl.SetColumn("y", Column{Str("a"), Str("b"), Str("c")})

	recs := tbl.Records([]string{"x", "y", "absent"}, 2)
	if len(recs) != 2 {
		t.Fatalf("Records length = %d, want 2", len(recs))
	}
	if _, ok := recs[0]["absent"]; ok {
		t.Error("absent column should not appear in records")
	}
	if recs[1]["x"].Num != 2 {
		t.Errorf("record 1 x = %v, want 2", recs[1]["x"].Num)
	}

	all := tbl.Records([]string{"x"}, 0)
	if len(all) != 3 {
		t.Errorf("Records with limit 0 returned %d rows, want all 3", len(all))
	}
}
