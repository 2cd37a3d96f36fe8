package arbitrage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// Fingerprint derives the stable identity of an opportunity from its group:
// canonical event, market type, line qualifiers, and the sorted set of
// contributing sources. Two detections with the same fingerprint are the same
// opportunity, regardless of when or in which cycle they were found.
func Fingerprint(g domain.OutcomeGroup) string {
	parts := []string{
		g.EventID,
		string(g.Market),
		g.Player,
		g.Line,
	}
	parts = append(parts, g.Sources()...)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
