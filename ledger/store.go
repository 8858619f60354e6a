/*
store.go - Persistence interfaces for the posting engine

PURPOSE:
  Defines the interface between the domain services and the database.
  Implementations must preserve the persisted table and column names so
  the engine interoperates with existing databases.

KEY INTERFACES:
  DocumentStore: warehouse documents and their lines
  StockStore:    stock positions (mutated only inside posting transactions)
  GLStore:       journal entries (append-only audit chain via reversal)
  InvoiceStore:  invoices, lines and payment accumulation
  AccountStore:  chart of accounts, read-only to the engine
  TxStore:       Store plus WithTx for atomic multi-row operations

TRANSACTIONAL CONTRACT:
  All rows touched by one post/cancel call commit or roll back together.
  Services run the status precondition check (compare-and-set on status)
  inside the same transaction as the side effects, so two concurrent posts
  of one document cannot both apply.

MUTATION DISCIPLINE:
  Stock positions and GL rows are written only by the posting and
  cancellation paths, always under WithTx. No other component
  reads-then-writes them.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite; the same SQL shapes apply to
    PostgreSQL with minor dialect changes.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DOCUMENT STORE
// =============================================================================

type DocumentStore interface {
	// InsertDocument persists a new draft with its lines.
	InsertDocument(ctx context.Context, doc *Document) error

	// ReplaceDocument rewrites header and lines. Callers gate on status;
	// the store itself does not care.
	ReplaceDocument(ctx context.Context, doc *Document) error

	// DeleteDocument removes a document and its lines.
	DeleteDocument(ctx context.Context, id DocumentID) error

	// GetDocument loads a document with lines. Returns ErrNotFound.
	GetDocument(ctx context.Context, id DocumentID) (*Document, error)

	// ListDocuments returns documents of a kind, newest first. Empty kind
	// lists all.
	ListDocuments(ctx context.Context, kind DocumentKind) ([]Document, error)

	// ListDocumentsByPurchaseOrder returns goods receipts generated from a
	// purchase order.
	ListDocumentsByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]Document, error)

	// SetDocumentStatus is a compare-and-set on status. Returns
	// ErrInvalidState when the current status does not match from, so a
	// concurrent transition loses cleanly.
	SetDocumentStatus(ctx context.Context, id DocumentID, from, to Status, postedAt *time.Time) error

	// SetLineDifference records the counted minus system difference computed at
	// posting time for an inventory line.
	SetLineDifference(ctx context.Context, id DocumentID, itemID string, difference decimal.Decimal) error
}

// =============================================================================
// STOCK STORE
// =============================================================================

type StockStore interface {
	// GetStock returns the position or nil when the row does not exist yet.
	GetStock(ctx context.Context, itemID, locationID string) (*StockPosition, error)

	// EnsureStock creates the position at zero if missing.
	EnsureStock(ctx context.Context, itemID, locationID string) error

	// AdjustStock adds delta to quantity. The row must exist.
	AdjustStock(ctx context.Context, itemID, locationID string, delta decimal.Decimal) error

	// SetStockQuantity overwrites quantity (inventory count posting).
	SetStockQuantity(ctx context.Context, itemID, locationID string, quantity decimal.Decimal) error

	// ListStock returns all positions.
	ListStock(ctx context.Context) ([]StockPosition, error)
}

// =============================================================================
// GL STORE
// =============================================================================

type GLStore interface {
	InsertEntry(ctx context.Context, entry *Entry) error
	ReplaceEntry(ctx context.Context, entry *Entry) error
	DeleteEntry(ctx context.Context, id EntryID) error
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)

	// ListEntriesByReference returns entries whose reference fields point
	// at the given origin.
	ListEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]Entry, error)

	// SetEntryStatus is a compare-and-set on status, as for documents.
	SetEntryStatus(ctx context.Context, id EntryID, from, to Status) error
}

// =============================================================================
// INVOICE STORE
// =============================================================================

type InvoiceStore interface {
	InsertInvoice(ctx context.Context, inv *Invoice) error
	ReplaceInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, id InvoiceID) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)

	// GetInvoiceByWarehouseDocument returns the invoice generated from a
	// goods receipt, or nil when none exists.
	GetInvoiceByWarehouseDocument(ctx context.Context, id DocumentID) (*Invoice, error)

	// SetInvoiceStatus is a compare-and-set on status.
	SetInvoiceStatus(ctx context.Context, id InvoiceID, from, to Status) error

	// AddInvoicePayment atomically increments paid_amount on a posted
	// invoice. Monotonic: amounts are validated positive by the service.
	AddInvoicePayment(ctx context.Context, id InvoiceID, amount decimal.Decimal) error
}

// =============================================================================
// ACCOUNT STORE (read-only to the engine)
// =============================================================================

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

// =============================================================================
// AGGREGATE + TRANSACTIONAL STORE
// =============================================================================

// Store is the full persistence surface used by the domain services.
type Store interface {
	DocumentStore
	StockStore
	GLStore
	InvoiceStore
	AccountStore
}

// TxStore wraps Store with transaction support. Use WithTx for every
// posting and cancellation: if fn returns an error the transaction rolls
// back and no partial ledger mutation survives.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
