package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
// Legs are stored as a JSONB document; identity across cycles is the
// fingerprint column.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Upsert inserts an opportunity or, when the fingerprint already exists,
// replaces its priced fields in place. detected_at and id survive updates.
func (s *OpportunityStore) Upsert(ctx context.Context, opp domain.Opportunity) error {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("postgres: marshal legs: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO opportunities (id, fingerprint, event_id, market, player, line, legs, total_prob, return_pct, bankroll, status, detected_at, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (fingerprint) DO UPDATE SET
			legs         = EXCLUDED.legs,
			total_prob   = EXCLUDED.total_prob,
			return_pct   = EXCLUDED.return_pct,
			bankroll     = EXCLUDED.bankroll,
			status       = EXCLUDED.status,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at   = EXCLUDED.updated_at`,
		opp.ID, opp.Fingerprint, opp.EventID, string(opp.Market), opp.Player, opp.Line,
		legs, opp.TotalProb, opp.ReturnPct, opp.Bankroll,
		string(opp.Status), opp.DetectedAt, opp.LastSeenAt, opp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert opportunity %s: %w", opp.Fingerprint, err)
	}
	return nil
}

const opportunityColumns = `id, fingerprint, event_id, market, player, line, legs, total_prob, return_pct, bankroll, status, detected_at, last_seen_at, updated_at`

// Get returns the opportunity with the given fingerprint.
func (s *OpportunityStore) Get(ctx context.Context, fingerprint string) (domain.Opportunity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE fingerprint = $1`,
		fingerprint,
	)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Opportunity{}, domain.ErrNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", fingerprint, err)
	}
	return opp, nil
}

// Touch bumps last_seen_at for an unchanged detection.
func (s *OpportunityStore) Touch(ctx context.Context, fingerprint string, seenAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET last_seen_at = $2 WHERE fingerprint = $1`,
		fingerprint, seenAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: touch opportunity %s: %w", fingerprint, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns opportunities matching opts, best return first.
func (s *OpportunityStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE return_pct * 100 >= $1`
	args := []any{opts.MinProfitPercent}

	if !opts.IncludeExpired {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, string(domain.OpportunityActive))
	}
	if opts.Market != "" {
		query += fmt.Sprintf(" AND market = $%d", len(args)+1)
		args = append(args, string(opts.Market))
	}
	if opts.PlayerOnly {
		query += " AND player <> ''"
	}
	query += fmt.Sprintf(" ORDER BY return_pct DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var list []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		list = append(list, opp)
	}
	return list, rows.Err()
}

// ExpireStale flips active opportunities not seen since cutoff to expired and
// returns how many rows changed.
func (s *OpportunityStore) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities SET status = $1, updated_at = NOW()
		WHERE status = $2 AND last_seen_at < $3`,
		string(domain.OpportunityExpired), string(domain.OpportunityActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: expire stale opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored opportunities.
func (s *OpportunityStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count opportunities: %w", err)
	}
	return n, nil
}

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var (
		opp            domain.Opportunity
		market, status string
		legs           []byte
	)
	err := row.Scan(&opp.ID, &opp.Fingerprint, &opp.EventID, &market, &opp.Player, &opp.Line,
		&legs, &opp.TotalProb, &opp.ReturnPct, &opp.Bankroll,
		&status, &opp.DetectedAt, &opp.LastSeenAt, &opp.UpdatedAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if err := json.Unmarshal(legs, &opp.Legs); err != nil {
		return domain.Opportunity{}, fmt.Errorf("unmarshal legs: %w", err)
	}
	opp.Market = domain.MarketType(market)
	opp.Status = domain.OpportunityStatus(status)
	return opp, nil
}
