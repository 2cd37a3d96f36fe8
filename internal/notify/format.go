package notify

import (
	"fmt"
	"strings"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Event types emitted by the pipeline.
const (
	EventOpportunityDetected = "opportunity_detected"
	EventOpportunityUpdated  = "opportunity_updated"
	EventCycleFailed         = "cycle_failed"
)

// FormatOpportunity renders an opportunity as a notification title and body.
func FormatOpportunity(opp domain.Opportunity) (title, message string) {
	title = fmt.Sprintf("Arb %.2f%% on %s", opp.ProfitPercent(), opp.Market)

	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", opp.EventID)
	if opp.Player != "" {
		fmt.Fprintf(&b, "Player: %s", opp.Player)
		if opp.Line != "" {
			fmt.Fprintf(&b, " @ %s", opp.Line)
		}
		b.WriteString("\n")
	} else if opp.Line != "" {
		fmt.Fprintf(&b, "Line: %s\n", opp.Line)
	}
	fmt.Fprintf(&b, "Guaranteed return: %.2f%% (bankroll %s)\n", opp.ProfitPercent(), opp.Bankroll.StringFixed(2))
	for _, leg := range opp.Legs {
		fmt.Fprintf(&b, "  %s @ %s (%s): stake %s, payout %s\n",
			leg.Outcome, leg.OddsValue, leg.SourceID,
			leg.Stake.StringFixed(2), leg.Payout.StringFixed(2))
	}
	return title, b.String()
}
