// Package postgres persists ledger records in PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schemaSQL
}

var (
	// ErrNotFound is returned when a delete matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrRecordType is returned when a record does not match the kind it is stored under.
	ErrRecordType = errors.New("record does not match kind")
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolConfig tunes the connection pool opened by Connect.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// Connect opens and pings a pool for databaseURL.
func Connect(ctx context.Context, databaseURL string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	timeout := pc.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store implements core.Store over the products, customers, invoices and
// bills tables. Exchange bills are rows of bills.
type Store struct {
	db DBTX
}

var _ core.Store = (*Store)(nil)

// New creates a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// QueryAll returns every record of kind, oldest first.
func (s *Store) QueryAll(ctx context.Context, kind core.EntityKind) ([]core.Record, error) {
	switch kind {
	case core.KindProducts:
		return s.queryProducts(ctx)
	case core.KindCustomers:
		return s.queryCustomers(ctx)
	case core.KindInvoices:
		return s.queryInvoices(ctx)
	case core.KindBills:
		return s.queryBills(ctx, nil)
	case core.KindExchangeBills:
		variant := core.ExchangeBill
		return s.queryBills(ctx, &variant)
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
}

// Insert persists rec and returns it with its assigned id and timestamps.
func (s *Store) Insert(ctx context.Context, kind core.EntityKind, rec core.Record) (core.Record, error) {
	switch kind.StoreKind() {
	case core.KindProducts:
		p, ok := rec.(core.Product)
		if !ok {
			return nil, recordTypeError(kind, rec)
		}
		return s.insertProduct(ctx, p)
	case core.KindCustomers:
		c, ok := rec.(core.Customer)
		if !ok {
			return nil, recordTypeError(kind, rec)
		}
		return s.insertCustomer(ctx, c)
	case core.KindInvoices:
		inv, ok := rec.(core.Invoice)
		if !ok {
			return nil, recordTypeError(kind, rec)
		}
		return s.insertInvoice(ctx, inv)
	case core.KindBills:
		b, ok := rec.(core.Bill)
		if !ok {
			return nil, recordTypeError(kind, rec)
		}
		return s.insertBill(ctx, b)
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
}

func recordTypeError(kind core.EntityKind, rec core.Record) error {
	return fmt.Errorf("%w: %s got %T", ErrRecordType, kind, rec)
}

// Delete removes one record. Deleting a product also strips its id from the
// line items of every invoice and bill that still reference it.
func (s *Store) Delete(ctx context.Context, kind core.EntityKind, id string) error {
	uid := ToPgUUID(id)
	if !uid.Valid {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}

	var table string
	switch kind.StoreKind() {
	case core.KindProducts:
		return s.deleteProduct(ctx, id)
	case core.KindCustomers:
		table = "customers"
	case core.KindInvoices:
		table = "invoices"
	case core.KindBills:
		table = "bills"
	default:
		return fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", uid)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	return nil
}

// stripProductSQL removes product_id from matching line items, keeping order.
const stripProductSQL = `
UPDATE %s SET items = (
    SELECT COALESCE(jsonb_agg(
        CASE WHEN elem->>'product_id' = $1 THEN elem - 'product_id' ELSE elem END
        ORDER BY ord), '[]'::jsonb)
    FROM jsonb_array_elements(items) WITH ORDINALITY AS t(elem, ord)
)
WHERE items @> jsonb_build_array(jsonb_build_object('product_id', $1::text))`

func (s *Store) deleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"invoices", "bills"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(stripProductSQL, table), id); err != nil {
			return fmt.Errorf("strip product %s from %s: %w", id, table, err)
		}
	}

	tag, err := tx.Exec(ctx, "DELETE FROM products WHERE id = $1", ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete products %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: products %q", ErrNotFound, id)
	}
	return tx.Commit(ctx)
}
