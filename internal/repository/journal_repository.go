// Package repository persists an append-only audit journal of trading
// activity. The journal is write-only from the application's point of
// view: nothing in the order or position flow ever reads it back, so a
// missing database never changes trading behavior.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/domain"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JournalRepository records submitted orders and close reports. A nil
// repository is valid and drops every write.
type JournalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewJournalRepository(pool PgxPool, tracer trace.Tracer) *JournalRepository {
	if pool == nil {
		return nil
	}
	return &JournalRepository{pool: pool, tracer: tracer}
}

func (r *JournalRepository) RunMigrations(ctx context.Context) error {
	if r == nil {
		return nil
	}
	_, span := r.tracer.Start(ctx, "journal-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_journal (
			id BIGSERIAL PRIMARY KEY,
			order_id TEXT NOT NULL,
			client_oid TEXT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION,
			reduce_only BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_order_journal_symbol ON order_journal (symbol, recorded_at DESC);

		CREATE TABLE IF NOT EXISTS close_journal (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			before_size DOUBLE PRECISION NOT NULL,
			after_size DOUBLE PRECISION NOT NULL,
			order_id TEXT,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// RecordOrder appends one submitted order to the journal.
func (r *JournalRepository) RecordOrder(ctx context.Context, order domain.Order) error {
	if r == nil {
		return nil
	}
	_, span := r.tracer.Start(ctx, "journal-repo.record-order")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_journal (order_id, client_oid, symbol, side, order_type, quantity, price, reduce_only, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.OrderID, order.ClientOID, order.Symbol, string(order.Side), string(order.Type),
		order.Quantity, order.Price, order.ReduceOnly, order.Status,
	)
	return err
}

// RecordClose appends one position-close report to the journal.
func (r *JournalRepository) RecordClose(ctx context.Context, report domain.CloseReport) error {
	if r == nil {
		return nil
	}
	_, span := r.tracer.Start(ctx, "journal-repo.record-close")
	defer span.End()

	var orderID string
	if report.Order != nil {
		orderID = report.Order.OrderID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO close_journal (symbol, before_size, after_size, order_id)
		 VALUES ($1, $2, $3, $4)`,
		report.Symbol, report.BeforeSize, report.AfterSize, orderID,
	)
	return err
}
