package repository

import (
	"context"
	"time"

	"vibeguard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createGuardTables = `
CREATE TABLE IF NOT EXISTS subscriptions (
    user_address   TEXT        NOT NULL,
    token_symbol   TEXT        NOT NULL,
    token_id       TEXT        NOT NULL,
    token_address  TEXT        NOT NULL,
    amount         TEXT        NOT NULL,
    enabled        BOOLEAN     NOT NULL DEFAULT TRUE,
    risk_threshold INT         NOT NULL DEFAULT 80,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_address, token_symbol)
);

CREATE TABLE IF NOT EXISTS tx_history (
    id            BIGSERIAL   PRIMARY KEY,
    user_address  TEXT        NOT NULL,
    token_address TEXT        NOT NULL,
    tx_hash       TEXT        NOT NULL,
    source        TEXT        NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tx_history_user_time
    ON tx_history (user_address, created_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubscriptionRepository persists guard subscriptions and executed/advised
// exit transactions.
type SubscriptionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSubscriptionRepository(pool PgxPool, tracer trace.Tracer) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool, tracer: tracer}
}

func (r *SubscriptionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "subscription-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createGuardTables)
	return err
}

func (r *SubscriptionRepository) UpsertSubscription(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error) {
	_, span := r.tracer.Start(ctx, "subscription-repo.upsert")
	defer span.End()

	sub.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_address, token_symbol, token_id, token_address, amount, enabled, risk_threshold, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_address, token_symbol) DO UPDATE SET
		     token_id = EXCLUDED.token_id,
		     token_address = EXCLUDED.token_address,
		     amount = EXCLUDED.amount,
		     enabled = EXCLUDED.enabled,
		     risk_threshold = EXCLUDED.risk_threshold,
		     updated_at = EXCLUDED.updated_at`,
		sub.UserAddress, sub.TokenSymbol, sub.TokenID, sub.TokenAddress,
		sub.Amount, sub.Enabled, sub.RiskThreshold, sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return r.listSubscriptions(ctx, false)
}

func (r *SubscriptionRepository) ListEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return r.listSubscriptions(ctx, true)
}

func (r *SubscriptionRepository) listSubscriptions(ctx context.Context, enabledOnly bool) ([]domain.Subscription, error) {
	_, span := r.tracer.Start(ctx, "subscription-repo.list")
	defer span.End()

	query := `SELECT user_address, token_symbol, token_id, token_address, amount, enabled, risk_threshold, updated_at
	          FROM subscriptions`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.UserAddress, &sub.TokenSymbol, &sub.TokenID, &sub.TokenAddress,
			&sub.Amount, &sub.Enabled, &sub.RiskThreshold, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) AppendTx(ctx context.Context, rec domain.TxRecord) error {
	_, span := r.tracer.Start(ctx, "subscription-repo.append-tx")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tx_history (user_address, token_address, tx_hash, source)
		 VALUES ($1, $2, $3, $4)`,
		rec.UserAddress, rec.TokenAddress, rec.TxHash, rec.Source,
	)
	return err
}

func (r *SubscriptionRepository) ListTxHistory(ctx context.Context, userAddress string, limit int) ([]domain.TxRecord, error) {
	_, span := r.tracer.Start(ctx, "subscription-repo.list-tx")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_address, token_address, tx_hash, source, created_at
		 FROM tx_history
		 WHERE user_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userAddress, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TxRecord
	for rows.Next() {
		var rec domain.TxRecord
		if err := rows.Scan(&rec.ID, &rec.UserAddress, &rec.TokenAddress, &rec.TxHash, &rec.Source, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
