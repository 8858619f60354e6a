/*
Package ledger provides the core document posting and ledger consistency engine.

PURPOSE:
  This package contains the domain types and rules shared by every document
  family the engine manages: warehouse documents, general-ledger entries and
  invoices. It owns the lifecycle state machine, the double-entry balance
  rules, the total recomputation rules and the error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: the draft -> posted -> cancelled lifecycle shared by all documents
  - Document/DocumentLine: warehouse documents (receipt, issue, transfer,
    inventory count)
  - StockPosition: quantity on hand for one (item, location) pair
  - Entry/EntryLine: general-ledger journal entries; a line carries exactly
    one side (debit or credit) so an unbalanced line cannot be constructed
  - Invoice/InvoiceLine: incoming and outgoing invoices with derived totals

DESIGN PRINCIPLES:
  1. Immutability: posted documents are never edited, only reversed
  2. Precision: decimal.Decimal for all quantities and money
  3. Type safety: a GL line is debit-or-credit by construction
  4. Auditability: cancellation produces new records, never deletions

SEE ALSO:
  - balance.go: double-entry validation and total recomputation
  - errors.go: error taxonomy
  - store.go: persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// MustParseDecimal parses a stored decimal string, treating anything
// unparseable (including the empty string of a NULL column) as zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// LIFECYCLE STATUS
// =============================================================================

// Status is the lifecycle state shared by warehouse documents, GL entries
// and invoices. Transitions are monotonic: draft -> posted -> cancelled.
// A draft with no ledger side effects is deleted, never cancelled.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusPosted
	case StatusPosted:
		return next == StatusCancelled
	default:
		return false
	}
}

// Mutable reports whether header and lines may still be edited.
// Only drafts are mutable; posted and cancelled are terminal for edits.
func (s Status) Mutable() bool {
	return s == StatusDraft
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DocumentID string
type EntryID string
type InvoiceID string

// =============================================================================
// WAREHOUSE DOCUMENTS
// =============================================================================

// DocumentKind identifies the stock effect of a warehouse document.
type DocumentKind string

const (
	KindGoodsReceipt DocumentKind = "goods_receipt"
	KindGoodsIssue   DocumentKind = "goods_issue"
	KindTransfer     DocumentKind = "transfer"
	KindInventory    DocumentKind = "inventory"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case KindGoodsReceipt, KindGoodsIssue, KindTransfer, KindInventory:
		return true
	}
	return false
}

// RequiresTarget reports whether the kind moves stock to a second location.
func (k DocumentKind) RequiresTarget() bool {
	return k == KindTransfer
}

// Document is a warehouse document: a mutable draft that, once posted,
// becomes an immutable system-of-record fact with stock side effects.
type Document struct {
	ID               DocumentID
	Kind             DocumentKind
	Number           string // caller-assigned, unique per kind
	Date             time.Time
	LocationID       string
	TargetLocationID string // transfer only
	PartnerID        string // optional counterparty
	PurchaseOrderID  string // optional back-reference for goods receipts
	Status           Status
	TotalValue       decimal.Decimal // always the sum of line.TotalPrice
	PostedAt         *time.Time
	Notes            string
	Lines            []DocumentLine
}

// DocumentLine is owned exclusively by its document.
type DocumentLine struct {
	ItemID     string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal // Quantity * UnitPrice, derived

	// Inventory counts only.
	CountedQuantity    decimal.Decimal
	DifferenceQuantity decimal.Decimal // counted - system, set at posting
	Notes              string
}

// =============================================================================
// STOCK POSITIONS
// =============================================================================

// StockPosition is the quantity-on-hand record for one item at one location.
// Mutated only by the stock posting engine inside a posting or cancellation
// transaction. A row is created at zero the first time it is referenced.
type StockPosition struct {
	ItemID           string
	LocationID       string
	Quantity         decimal.Decimal
	ReservedQuantity decimal.Decimal
	UpdatedAt        time.Time
}

// =============================================================================
// GENERAL LEDGER
// =============================================================================

// Side is the double-entry side of a GL line.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// EntryLine is one leg of a journal entry. A line carries exactly one side
// and a positive amount; "debit and credit both set" is unrepresentable.
// Construct lines with NewDebitLine / NewCreditLine.
type EntryLine struct {
	AccountID   string
	Side        Side
	Amount      decimal.Decimal
	PartnerID   string
	Description string
}

func NewDebitLine(accountID string, amount decimal.Decimal) EntryLine {
	return EntryLine{AccountID: accountID, Side: SideDebit, Amount: amount}
}

func NewCreditLine(accountID string, amount decimal.Decimal) EntryLine {
	return EntryLine{AccountID: accountID, Side: SideCredit, Amount: amount}
}

// Debit returns the debit column value for persistence (zero for credits).
func (l EntryLine) Debit() decimal.Decimal {
	if l.Side == SideDebit {
		return l.Amount
	}
	return decimal.Zero
}

// Credit returns the credit column value for persistence (zero for debits).
func (l EntryLine) Credit() decimal.Decimal {
	if l.Side == SideCredit {
		return l.Amount
	}
	return decimal.Zero
}

// Reversed returns the same line with the opposite side.
func (l EntryLine) Reversed() EntryLine {
	r := l
	if l.Side == SideDebit {
		r.Side = SideCredit
	} else {
		r.Side = SideDebit
	}
	return r
}

// Entry is a general-ledger journal entry. The reference fields point back
// at the originating document (invoice, warehouse document, depreciation).
// Origins never reference their entries; the edge is one-directional.
type Entry struct {
	ID            EntryID
	Number        string
	Date          time.Time
	Description   string
	ReferenceType string // "invoice", "warehouse_document", "depreciation", ...
	ReferenceID   string
	Status        Status
	// ReversedEntryID points at the entry this one reverses. The audit chain
	// is append-only: reversal creates a new entry, never edits the old one.
	ReversedEntryID EntryID
	Lines           []EntryLine
}

// IsReversal reports whether this entry was created to undo another.
func (e *Entry) IsReversal() bool {
	return e.ReversedEntryID != ""
}

// =============================================================================
// INVOICES
// =============================================================================

type InvoiceType string

const (
	InvoiceIncoming InvoiceType = "incoming"
	InvoiceOutgoing InvoiceType = "outgoing"
)

func (t InvoiceType) Valid() bool {
	return t == InvoiceIncoming || t == InvoiceOutgoing
}

// Invoice with totals derived from lines. PaidAmount only ever grows.
type Invoice struct {
	ID          InvoiceID
	Type        InvoiceType
	Number      string
	Date        time.Time
	DueDate     *time.Time
	PartnerID   string
	Status      Status
	Subtotal    decimal.Decimal
	VATAmount   decimal.Decimal
	Total       decimal.Decimal
	PaidAmount  decimal.Decimal
	// WarehouseDocumentID links an incoming invoice to the goods receipt it
	// was generated from.
	WarehouseDocumentID DocumentID
	Lines               []InvoiceLine
}

// Outstanding returns the unpaid remainder.
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.Total.Sub(i.PaidAmount)
}

type InvoiceLine struct {
	ItemID    string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRateID string
	VATRate   decimal.Decimal // percent, e.g. 20
	VATAmount decimal.Decimal // derived
	Total     decimal.Decimal // derived, VAT inclusive
}

// =============================================================================
// CHART OF ACCOUNTS (read-only to the engine)
// =============================================================================

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// Account is a chart-of-accounts node. The engine reads accounts to resolve
// GL line references; master-data administration owns all writes.
type Account struct {
	ID       string
	Code     string
	Name     string
	Type     AccountType
	ParentID string
}
