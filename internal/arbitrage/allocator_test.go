package arbitrage

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jbetancourt7/surebet/internal/domain"
)

func TestAllocateTwoWayScenario(t *testing.T) {
	det := NewDetector(0).Detect(twoWayGroup(0.4, 120.0/220.0))
	if det == nil {
		t.Fatal("expected detection")
	}

	a := NewAllocator(0.01, nil)
	bankroll := decimal.NewFromInt(1000)
	legs, err := a.Allocate(det, bankroll)
	if err != nil {
		t.Fatal(err)
	}
	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}

	// Pre-rounding split is ≈423.08 / 576.92; each payout ≈1057.69.
	var total decimal.Decimal
	for _, leg := range legs {
		total = total.Add(leg.Stake)
	}
	if !total.Equal(bankroll) {
		t.Errorf("total staked = %s, want %s", total, bankroll)
	}

	guaranteed := bankroll.Div(decimal.NewFromFloat(det.TotalProb))
	inc := decimal.NewFromFloat(0.01)
	for _, leg := range legs {
		if guaranteed.Sub(leg.Payout).GreaterThan(inc) {
			t.Errorf("leg %s payout %s more than one increment below %s",
				leg.Outcome, leg.Payout, guaranteed)
		}
		if leg.Payout.LessThanOrEqual(bankroll) {
			t.Errorf("leg %s payout %s does not beat the bankroll", leg.Outcome, leg.Payout)
		}
	}

	// Stakes land on the expected cents.
	byOutcome := map[string]string{}
	for _, leg := range legs {
		byOutcome[leg.Outcome] = leg.Stake.StringFixed(2)
	}
	if byOutcome["lakers"] != "423.08" || byOutcome["celtics"] != "576.92" {
		t.Errorf("stakes = %v, want lakers=423.08 celtics=576.92", byOutcome)
	}
}

func TestAllocateEqualPayouts(t *testing.T) {
	g := domain.OutcomeGroup{
		EventID: "epl-123",
		Market:  domain.MarketMoneyline3Way,
		Best: map[string]domain.NormalizedQuote{
			"home": {Quote: domain.Quote{SourceID: "bet365"}, ImpliedProb: 0.30},
			"draw": {Quote: domain.Quote{SourceID: "pinnacle"}, ImpliedProb: 0.32},
			"away": {Quote: domain.Quote{SourceID: "unibet"}, ImpliedProb: 0.33},
		},
	}
	det := NewDetector(0).Detect(g)
	legs, err := NewAllocator(0.01, nil).Allocate(det, decimal.NewFromInt(500))
	if err != nil {
		t.Fatal(err)
	}

	// All payouts agree within one increment's worth of stake per leg.
	band := decimal.NewFromFloat(0.01).Div(decimal.NewFromFloat(0.30))
	for i := 1; i < len(legs); i++ {
		diff := legs[i].Payout.Sub(legs[0].Payout).Abs()
		if diff.GreaterThan(band) {
			t.Errorf("payout mismatch: %s vs %s (diff %s)", legs[i].Payout, legs[0].Payout, diff)
		}
	}
}

func TestAllocatePerSourceIncrements(t *testing.T) {
	det := NewDetector(0).Detect(twoWayGroup(0.4, 120.0/220.0))
	a := NewAllocator(0.01, map[string]float64{"draftkings": 1.0})
	legs, err := a.Allocate(det, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatal(err)
	}
	for _, leg := range legs {
		if leg.SourceID != "draftkings" {
			continue
		}
		if !leg.Stake.Mod(decimal.NewFromInt(1)).IsZero() {
			t.Errorf("draftkings stake %s not on whole-unit increment", leg.Stake)
		}
	}
}

func TestAllocateInvalidBankroll(t *testing.T) {
	det := NewDetector(0).Detect(twoWayGroup(0.4, 0.5))
	a := NewAllocator(0.01, nil)
	for _, bankroll := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		if _, err := a.Allocate(det, bankroll); !errors.Is(err, domain.ErrInvalidBankroll) {
			t.Errorf("bankroll %s: err = %v, want ErrInvalidBankroll", bankroll, err)
		}
	}
}

func TestAllocateRoundingInfeasible(t *testing.T) {
	det := NewDetector(0).Detect(twoWayGroup(0.4, 120.0/220.0))
	// Increments of 50 against a bankroll of 80 cannot hold the guarantee:
	// one leg floors to a zero stake.
	a := NewAllocator(50, nil)
	if _, err := a.Allocate(det, decimal.NewFromInt(80)); !errors.Is(err, domain.ErrStakeRoundingInfeasible) {
		t.Errorf("err = %v, want ErrStakeRoundingInfeasible", err)
	}
}
