package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/recode"
	"github.com/epistat/t2d-analyzer/internal/table"
)

func TestBuildFormula_ExplicitCovariates(t *testing.T) {
	tbl := table.New()
	got := BuildFormula(tbl, []string{" C(BMI_cat) ", "", "age"})
	want := "t2d_binary ~ C(BMI_cat) + age"
	if got != want {
		t.Errorf("BuildFormula = %q, want %q", got, want)
	}
}

func TestBuildFormula_DefaultsFromDerivedColumns(t *testing.T) {
	tbl := table.New()
	tbl.SetColumn(recode.ColDiabetes, table.Column{table.Num(1)})
	recode.Recode(tbl)

	got := BuildFormula(tbl, nil)
	want := "t2d_binary ~ C(BMI_cat) + C(age_group) + C(sex)"
	if got != want {
		t.Errorf("BuildFormula = %q, want %q", got, want)
	}
}

func TestBuildFormula_InterceptOnlyFallback(t *testing.T) {
	tbl := table.New()
	tbl.SetColumn("x", table.Column{table.Num(1)})

	got := BuildFormula(tbl, nil)
	if got != "t2d_binary ~ 1" {
		t.Errorf("BuildFormula = %q, want intercept-only", got)
	}
}

// fixtureTable builds a recoded table with enough spread for a stable fit.
func fixtureTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New()
	primary := table.Column{
		table.Num(1), table.Num(2), table.Num(2), table.Num(2),
		table.Num(1), table.Num(1), table.Num(2), table.Num(2),
	}
	sex := table.Column{
		table.Num(1), table.Num(1), table.Num(1), table.Num(1),
		table.Num(2), table.Num(2), table.Num(2), table.Num(2),
	}
	tbl.SetColumn(recode.ColDiabetes, primary)
	tbl.SetColumn(recode.ColSex, sex)
	return recode.Recode(tbl)
}

func TestLogit_ConfidenceIntervalOrdering(t *testing.T) {
	tbl := fixtureTable(t)

	result, err := Logit(glm.NewIRLSSolver(), tbl, []string{"C(sex)"}, "")
	if err != nil {
		t.Fatalf("Logit: %v", err)
	}

	if result.Formula != "t2d_binary ~ C(sex)" {
		t.Errorf("formula = %q", result.Formula)
	}
	if result.Obs != 8 {
		t.Errorf("Obs = %d, want 8", result.Obs)
	}

	for _, term := range result.Terms {
		if !(term.ORLow <= term.OR && term.OR <= term.ORHigh) {
			t.Errorf("term %q interval out of order: [%v, %v, %v]",
				term.Term, term.ORLow, term.OR, term.ORHigh)
		}
		if term.OR <= 0 {
			t.Errorf("term %q OR = %v, want positive", term.Term, term.OR)
		}
	}
}

func TestLogit_OddsRatioMatchesCounts(t *testing.T) {
	tbl := fixtureTable(t)

	result, err := Logit(glm.NewIRLSSolver(), tbl, []string{"C(sex)"}, "")
	if err != nil {
		t.Fatalf("Logit: %v", err)
	}

	var maleOR float64
	for _, term := range result.Terms {
		if term.Term == "C(sex)[T.Male]" {
			maleOR = term.OR
		}
	}
	// Female: 2 cases 2 controls (odds 1); Male: 1 case 3 controls (odds 1/3).
	if math.Abs(maleOR-1.0/3.0) > 1e-4 {
		t.Errorf("male OR = %v, want 1/3", maleOR)
	}
}

func TestLogit_UnweightedFallback(t *testing.T) {
	tbl := fixtureTable(t)
	if tbl.Has(recode.DefaultWeight) {
		t.Fatal("fixture unexpectedly carries a weight column")
	}

	if _, err := Logit(glm.NewIRLSSolver(), tbl, []string{"C(sex)"}, ""); err != nil {
		t.Fatalf("Logit without weight column: %v", err)
	}
	if !tbl.Has(recode.DefaultWeight) {
		t.Error("unweighted fallback column was not materialized")
	}
}

func TestLogit_PropagatesFitFailure(t *testing.T) {
	tbl := table.New()
	tbl.SetColumn("x", table.Column{table.Num(1), table.Num(2)})
	recode.Recode(tbl) // all derived columns missing

	_, err := Logit(glm.NewIRLSSolver(), tbl, nil, "")
	if err == nil {
		t.Fatal("expected fit failure for all-missing outcome")
	}
}

func TestTerm_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Term{Term: "Intercept", OR: 0.5, ORLow: 0.2, ORHigh: 0.9, P: 0.03})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"term": "Intercept", "OR": 0.5, "OR_low": 0.2, "OR_high": 0.9, "P>|z|": 0.03,
	}
	for key, w := range want {
		if got[key] != w {
			t.Errorf("field %q = %v, want %v", key, got[key], w)
		}
	}

	b, err = json.Marshal(Term{Term: "x", OR: math.Inf(1), ORLow: math.NaN(), ORHigh: math.Inf(1), P: 0.5})
	if err != nil {
		t.Fatalf("Marshal non-finite: %v", err)
	}
	if !strings.Contains(string(b), `"OR":null`) {
		t.Errorf("non-finite OR should be null: %s", b)
	}
}
