package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoutlabs/mailscout/internal/usage"
)

// UsageStore is the durable usage.Store. The check-and-increment runs as a
// single upsert so concurrent consumers for one key serialize on the row lock
// and can never jointly overshoot the quota.
type UsageStore struct {
	pool *pgxpool.Pool
}

func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

func (s *UsageStore) Consume(ctx context.Context, keyID string, limit int, period time.Duration) (usage.Decision, error) {
	// Rotation and the quota check happen in one statement: an elapsed
	// period resets the counter, and the WHERE clause refuses the increment
	// once the (fresh) counter has reached the limit.
	query := `
		INSERT INTO usage_records (key_id, period_start, call_count)
		VALUES ($1, NOW(), 1)
		ON CONFLICT (key_id) DO UPDATE SET
			call_count = CASE
				WHEN usage_records.period_start <= NOW() - make_interval(secs => $2)
				THEN 1
				ELSE usage_records.call_count + 1
			END,
			period_start = CASE
				WHEN usage_records.period_start <= NOW() - make_interval(secs => $2)
				THEN NOW()
				ELSE usage_records.period_start
			END
		WHERE usage_records.period_start <= NOW() - make_interval(secs => $2)
		   OR $3::int <= 0
		   OR usage_records.call_count < $3::int
		RETURNING call_count, period_start`

	var count int
	var periodStart time.Time
	err := s.pool.QueryRow(ctx, query, keyID, period.Seconds(), limit).Scan(&count, &periodStart)
	if err == nil {
		return decision(true, limit, count, periodStart, period), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return usage.Decision{}, fmt.Errorf("consume usage: %w", err)
	}

	// Quota exhausted: the upsert matched nothing. Read the row for headers.
	d, err := s.Inspect(ctx, keyID, limit, period)
	if err != nil {
		return usage.Decision{}, err
	}
	d.Allowed = false
	return d, nil
}

func (s *UsageStore) Inspect(ctx context.Context, keyID string, limit int, period time.Duration) (usage.Decision, error) {
	var count int
	var periodStart time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT call_count, period_start FROM usage_records WHERE key_id = $1`,
		keyID,
	).Scan(&count, &periodStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return decision(true, limit, 0, time.Now(), period), nil
	}
	if err != nil {
		return usage.Decision{}, fmt.Errorf("inspect usage: %w", err)
	}

	if time.Since(periodStart) >= period {
		return decision(true, limit, 0, time.Now(), period), nil
	}

	d := decision(limit <= 0 || count < limit, limit, count, periodStart, period)
	return d, nil
}

func decision(allowed bool, limit, used int, periodStart time.Time, period time.Duration) usage.Decision {
	d := usage.Decision{
		Allowed:   allowed,
		Limit:     limit,
		Used:      used,
		Remaining: -1,
		ResetIn:   period - time.Since(periodStart),
	}
	if d.ResetIn < 0 {
		d.ResetIn = 0
	}
	if limit > 0 {
		d.Remaining = max(limit-used, 0)
	}
	return d
}
