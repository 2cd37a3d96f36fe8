package odds

import (
	"errors"
	"math"
	"testing"

	"github.com/jbetancourt7/surebet/internal/domain"
)

const tol = 1e-9

func TestNormalizeAmerican(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"+150", 0.4},
		{"150", 0.4},
		{"-120", 120.0 / 220.0},
		{"+100", 0.5},
		{"-100", 0.5},
		{"+250", 100.0 / 350.0},
	}
	for _, c := range cases {
		got, err := Normalize(c.raw, domain.OddsAmerican)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", c.raw, err)
		}
		if math.Abs(got-c.want) > tol {
			t.Errorf("Normalize(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestNormalizeDecimal(t *testing.T) {
	got, err := Normalize("2.50", domain.OddsDecimal)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.4) > tol {
		t.Errorf("decimal 2.50 = %v, want 0.4", got)
	}
}

func TestNormalizeFractional(t *testing.T) {
	got, err := Normalize("3/2", domain.OddsFractional)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.4) > tol {
		t.Errorf("fractional 3/2 = %v, want 0.4", got)
	}
}

// The same true price must normalize to the same probability regardless of
// encoding.
func TestNormalizeCrossFormat(t *testing.T) {
	cases := []struct {
		american, decimal, fractional string
	}{
		{"+150", "2.50", "3/2"},
		{"+100", "2.00", "1/1"},
		{"-400", "1.25", "1/4"},
		{"+300", "4.00", "3/1"},
	}
	for _, c := range cases {
		pa, err := Normalize(c.american, domain.OddsAmerican)
		if err != nil {
			t.Fatal(err)
		}
		pd, err := Normalize(c.decimal, domain.OddsDecimal)
		if err != nil {
			t.Fatal(err)
		}
		pf, err := Normalize(c.fractional, domain.OddsFractional)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(pa-pd) > tol || math.Abs(pa-pf) > tol {
			t.Errorf("encodings disagree for %v: american=%v decimal=%v fractional=%v",
				c, pa, pd, pf)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	cases := []struct {
		raw    string
		format domain.OddsFormat
	}{
		{"0", domain.OddsAmerican},
		{"+50", domain.OddsAmerican},
		{"-99", domain.OddsAmerican},
		{"abc", domain.OddsAmerican},
		{"1.00", domain.OddsDecimal},
		{"0.80", domain.OddsDecimal},
		{"", domain.OddsDecimal},
		{"3", domain.OddsFractional},
		{"0/2", domain.OddsFractional},
		{"3/-1", domain.OddsFractional},
		{"2.5", "martingale"},
		// strconv.ParseFloat accepts these tokens; the implied probability
		// would be 0 or NaN, which downstream stake math cannot survive.
		{"Inf", domain.OddsDecimal},
		{"+Inf", domain.OddsDecimal},
		{"NaN", domain.OddsDecimal},
		{"Inf", domain.OddsAmerican},
		{"-Inf", domain.OddsAmerican},
		{"NaN", domain.OddsAmerican},
		{"Inf/2", domain.OddsFractional},
		{"3/NaN", domain.OddsFractional},
	}
	for _, c := range cases {
		if _, err := Normalize(c.raw, c.format); !errors.Is(err, domain.ErrInvalidOdds) {
			t.Errorf("Normalize(%q, %q) = %v, want ErrInvalidOdds", c.raw, c.format, err)
		}
	}
}

func TestNormalizeQuote(t *testing.T) {
	q := domain.Quote{SourceID: "draftkings", OddsValue: "-120", Format: domain.OddsAmerican}
	nq, err := NormalizeQuote(q)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(nq.ImpliedProb-120.0/220.0) > tol {
		t.Errorf("implied prob = %v, want %v", nq.ImpliedProb, 120.0/220.0)
	}
	if nq.SourceID != "draftkings" {
		t.Errorf("quote fields not preserved: %+v", nq.Quote)
	}
}
