/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.TxStore using database/sql + mattn/go-sqlite3. The same
  SQL shapes apply to PostgreSQL with minor dialect differences.

WIRE CONTRACT:
  Table and column names match the persisted schema the engine must
  interoperate with: warehouse_documents(+lines), stock, gl_entries(+lines),
  invoices(+lines). Line ordering uses SQLite rowid so the contract's
  column lists stay exact.

INVARIANTS ENFORCED AT THE DATABASE:
  - UNIQUE(document_type, document_number): one human number per kind
  - CHECK(quantity >= 0) on stock: backs the engine's negative-stock guard
  - CHECK(debit = 0 OR credit = 0) on gl_entry_lines: a row cannot carry
    both sides
  - Status values constrained to draft/posted/cancelled

TRANSACTIONS:
  WithTx wraps a *sql.Tx in a store that shares this package's row mapping
  helpers. Every posting/cancellation runs through it; partial application
  cannot survive a rollback.

CONCURRENCY:
  sync.RWMutex serializes writers on top of SQLite's single-writer model.
  Helpers never lock; only the exported entry points do, so transactional
  callbacks can reuse them under the already-held lock.

WAL MODE:
  The database is opened with WAL and foreign keys on.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atlas-erp/ledgerd/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a store with the given database path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and a second pooled
	// connection to a ":memory:" path would see its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Warehouse documents
	CREATE TABLE IF NOT EXISTS warehouse_documents (
		id TEXT PRIMARY KEY,
		document_type TEXT NOT NULL CHECK (document_type IN
			('goods_receipt', 'goods_issue', 'transfer', 'inventory')),
		document_number TEXT NOT NULL,
		document_date TEXT NOT NULL,
		location_id TEXT NOT NULL,
		target_location_id TEXT,
		partner_id TEXT,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN
			('draft', 'posted', 'cancelled')),
		total_value TEXT NOT NULL DEFAULT '0',
		posted_at TEXT,
		notes TEXT,
		purchase_order_id TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_type_number
		ON warehouse_documents(document_type, document_number);
	CREATE INDEX IF NOT EXISTS idx_documents_status
		ON warehouse_documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_purchase_order
		ON warehouse_documents(purchase_order_id)
		WHERE purchase_order_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS warehouse_document_lines (
		document_id TEXT NOT NULL REFERENCES warehouse_documents(id) ON DELETE CASCADE,
		item_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		counted_quantity TEXT,
		difference_quantity TEXT,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_document_lines_document
		ON warehouse_document_lines(document_id);

	-- Stock positions, one row per (item, location)
	CREATE TABLE IF NOT EXISTS stock (
		item_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '0' CHECK (CAST(quantity AS REAL) >= 0),
		reserved_quantity TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (item_id, location_id)
	);

	-- General ledger entries (append-only audit chain via reversed_entry_id)
	CREATE TABLE IF NOT EXISTS gl_entries (
		id TEXT PRIMARY KEY,
		document_number TEXT NOT NULL UNIQUE,
		entry_date TEXT NOT NULL,
		description TEXT,
		reference_type TEXT,
		reference_id TEXT,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN
			('draft', 'posted', 'cancelled')),
		reversed_entry_id TEXT REFERENCES gl_entries(id)
	);

	CREATE INDEX IF NOT EXISTS idx_gl_entries_reference
		ON gl_entries(reference_type, reference_id)
		WHERE reference_type IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_gl_entries_status
		ON gl_entries(status);

	CREATE TABLE IF NOT EXISTS gl_entry_lines (
		entry_id TEXT NOT NULL REFERENCES gl_entries(id) ON DELETE CASCADE,
		account_id TEXT NOT NULL,
		debit TEXT NOT NULL DEFAULT '0',
		credit TEXT NOT NULL DEFAULT '0',
		partner_id TEXT,
		description TEXT,
		CHECK (CAST(debit AS REAL) = 0 OR CAST(credit AS REAL) = 0)
	);

	CREATE INDEX IF NOT EXISTS idx_gl_entry_lines_entry
		ON gl_entry_lines(entry_id);
	CREATE INDEX IF NOT EXISTS idx_gl_entry_lines_account
		ON gl_entry_lines(account_id);

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		invoice_type TEXT NOT NULL CHECK (invoice_type IN ('incoming', 'outgoing')),
		invoice_number TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		due_date TEXT,
		partner_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN
			('draft', 'posted', 'cancelled')),
		subtotal TEXT NOT NULL DEFAULT '0',
		vat_amount TEXT NOT NULL DEFAULT '0',
		total TEXT NOT NULL DEFAULT '0',
		paid_amount TEXT NOT NULL DEFAULT '0',
		warehouse_document_id TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_type_number
		ON invoices(invoice_type, invoice_number);
	CREATE INDEX IF NOT EXISTS idx_invoices_warehouse_document
		ON invoices(warehouse_document_id)
		WHERE warehouse_document_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS invoice_lines (
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		item_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		vat_rate_id TEXT,
		vat_amount TEXT NOT NULL DEFAULT '0',
		total TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice
		ON invoice_lines(invoice_id);

	-- Chart of accounts. Read-only to the engine; rows are maintained by
	-- master-data administration (or SaveAccount in tests and seeds).
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		parent_id TEXT REFERENCES accounts(id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store passed to fn
// shares this store's helpers but routes every statement through the
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{parent: s, tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore delegates to the parent's unlocked helpers using the open
// transaction. The parent mutex is already held by WithTx.
type txStore struct {
	parent *Store
	tx     *sql.Tx
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
