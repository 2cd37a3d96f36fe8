package arbitrage

import (
	"math"
	"testing"

	"github.com/jbetancourt7/surebet/internal/domain"
)

func twoWayGroup(probA, probB float64) domain.OutcomeGroup {
	return domain.OutcomeGroup{
		EventID: "nba-lal-bos",
		Market:  domain.MarketMoneyline,
		Best: map[string]domain.NormalizedQuote{
			"lakers": {
				Quote:       domain.Quote{SourceID: "draftkings", OddsValue: "+150", Format: domain.OddsAmerican},
				ImpliedProb: probA,
			},
			"celtics": {
				Quote:       domain.Quote{SourceID: "fanduel", OddsValue: "-120", Format: domain.OddsAmerican},
				ImpliedProb: probB,
			},
		},
	}
}

// Two books quote +150 and -120 on a two-way market: implied probabilities
// 0.4 and 0.5454..., total ≈ 0.9455, guaranteed return ≈ 5.77%.
func TestDetectTwoWayArbitrage(t *testing.T) {
	d := NewDetector(0)
	det := d.Detect(twoWayGroup(0.4, 120.0/220.0))
	if det == nil {
		t.Fatal("expected a detection")
	}
	if math.Abs(det.TotalProb-0.9454545454545454) > 1e-9 {
		t.Errorf("total prob = %v, want ≈0.94545", det.TotalProb)
	}
	if math.Abs(det.ReturnPct-0.0576923076923077) > 1e-9 {
		t.Errorf("return = %v, want ≈0.0576923", det.ReturnPct)
	}
}

func TestDetectNoArbitrageAtOrAboveOne(t *testing.T) {
	d := NewDetector(0)
	// Sums to exactly 1.0: no detection with epsilon 0.
	if det := d.Detect(twoWayGroup(0.45, 0.55)); det != nil {
		t.Errorf("total prob 1.0 should not detect, got %+v", det)
	}
	// Typical vigged market.
	if det := d.Detect(twoWayGroup(0.52, 0.52)); det != nil {
		t.Errorf("total prob 1.04 should not detect, got %+v", det)
	}
}

func TestDetectEpsilonExcludesThinMargins(t *testing.T) {
	d := NewDetector(0.01)
	// Total 0.995: inside the epsilon band, excluded.
	if det := d.Detect(twoWayGroup(0.495, 0.5)); det != nil {
		t.Errorf("total 0.995 inside epsilon should not detect, got %+v", det)
	}
	// Total 0.985: below 1-epsilon, detected with positive return.
	det := d.Detect(twoWayGroup(0.485, 0.5))
	if det == nil {
		t.Fatal("total 0.985 outside epsilon should detect")
	}
	if det.ReturnPct <= 0 {
		t.Errorf("return = %v, want > 0", det.ReturnPct)
	}
}

func TestDetectThreeWay(t *testing.T) {
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
	if det == nil {
		t.Fatal("expected three-way detection at total 0.95")
	}
	if math.Abs(det.TotalProb-0.95) > 1e-9 {
		t.Errorf("total prob = %v, want 0.95", det.TotalProb)
	}
}
