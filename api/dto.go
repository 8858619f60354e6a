/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Money and quantity fields use decimal.Decimal, which marshals as a
  quoted decimal string and accepts both quoted and bare numbers on
  input. Clients never see binary floats.

VALIDATION:
  Structural validation (required fields, enum membership) lives in the
  struct tags and runs through validator/v10 before any domain call.
  Business rules (balance, stock, lifecycle) stay in the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// WAREHOUSE DOCUMENTS
// =============================================================================

// DocumentLineRequest is one line of a document create/update request.
type DocumentLineRequest struct {
	ItemID          string          `json:"item_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	Notes           string          `json:"notes"`
}

// DocumentRequest is the request to create or update a warehouse document.
type DocumentRequest struct {
	DocumentType     string                `json:"document_type" validate:"required,oneof=goods_receipt goods_issue transfer inventory"`
	DocumentNumber   string                `json:"document_number" validate:"required"`
	DocumentDate     string                `json:"document_date" validate:"required"`
	LocationID       string                `json:"location_id" validate:"required"`
	TargetLocationID string                `json:"target_location_id"`
	PartnerID        string                `json:"partner_id"`
	PurchaseOrderID  string                `json:"purchase_order_id"`
	Notes            string                `json:"notes"`
	Lines            []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// DocumentLineDTO is one line of a document in API responses.
type DocumentLineDTO struct {
	ItemID             string          `json:"item_id"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	CountedQuantity    decimal.Decimal `json:"counted_quantity"`
	DifferenceQuantity decimal.Decimal `json:"difference_quantity"`
	Notes              string          `json:"notes,omitempty"`
}

// DocumentDTO represents a warehouse document in API responses.
type DocumentDTO struct {
	ID               string            `json:"id"`
	DocumentType     string            `json:"document_type"`
	DocumentNumber   string            `json:"document_number"`
	DocumentDate     string            `json:"document_date"`
	LocationID       string            `json:"location_id"`
	TargetLocationID string            `json:"target_location_id,omitempty"`
	PartnerID        string            `json:"partner_id,omitempty"`
	PurchaseOrderID  string            `json:"purchase_order_id,omitempty"`
	Status           string            `json:"status"`
	TotalValue       decimal.Decimal   `json:"total_value"`
	PostedAt         string            `json:"posted_at,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	Lines            []DocumentLineDTO `json:"lines"`
}

// StockPositionDTO is one item/location position.
type StockPositionDTO struct {
	ItemID           string          `json:"item_id"`
	LocationID       string          `json:"location_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	UpdatedAt        string          `json:"updated_at"`
}

// =============================================================================
// JOURNAL ENTRIES
// =============================================================================

// EntryLineRequest is one line of an entry create/update request. Exactly
// one of debit/credit must be positive; the other must be zero or absent.
type EntryLineRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerID   string          `json:"partner_id"`
	Description string          `json:"description"`
}

// EntryRequest is the request to create or update a journal entry.
type EntryRequest struct {
	DocumentNumber string             `json:"document_number" validate:"required"`
	EntryDate      string             `json:"entry_date" validate:"required"`
	Description    string             `json:"description"`
	ReferenceType  string             `json:"reference_type"`
	ReferenceID    string             `json:"reference_id"`
	Lines          []EntryLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// EntryLineDTO is one line of an entry in API responses.
type EntryLineDTO struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerID   string          `json:"partner_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

// EntryDTO represents a journal entry in API responses.
type EntryDTO struct {
	ID              string         `json:"id"`
	DocumentNumber  string         `json:"document_number"`
	EntryDate       string         `json:"entry_date"`
	Description     string         `json:"description,omitempty"`
	ReferenceType   string         `json:"reference_type,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	Status          string         `json:"status"`
	ReversedEntryID string         `json:"reversed_entry_id,omitempty"`
	Lines           []EntryLineDTO `json:"lines"`
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceLineRequest is one line of an invoice create/update request.
type InvoiceLineRequest struct {
	ItemID    string          `json:"item_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VATRateID string          `json:"vat_rate_id"`
	VATRate   decimal.Decimal `json:"vat_rate"`
}

// InvoiceRequest is the request to create or update an invoice.
type InvoiceRequest struct {
	InvoiceType         string               `json:"invoice_type" validate:"required,oneof=incoming outgoing"`
	InvoiceNumber       string               `json:"invoice_number" validate:"required"`
	InvoiceDate         string               `json:"invoice_date" validate:"required"`
	DueDate             string               `json:"due_date"`
	PartnerID           string               `json:"partner_id" validate:"required"`
	WarehouseDocumentID string               `json:"warehouse_document_id"`
	Lines               []InvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// PaymentRequest records a payment against a posted invoice.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// InvoiceLineDTO is one line of an invoice in API responses.
type InvoiceLineDTO struct {
	ItemID    string          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VATRateID string          `json:"vat_rate_id,omitempty"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	VATAmount decimal.Decimal `json:"vat_amount"`
	Total     decimal.Decimal `json:"total"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID                  string           `json:"id"`
	InvoiceType         string           `json:"invoice_type"`
	InvoiceNumber       string           `json:"invoice_number"`
	InvoiceDate         string           `json:"invoice_date"`
	DueDate             string           `json:"due_date,omitempty"`
	PartnerID           string           `json:"partner_id"`
	Status              string           `json:"status"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	VATAmount           decimal.Decimal  `json:"vat_amount"`
	Total               decimal.Decimal  `json:"total"`
	PaidAmount          decimal.Decimal  `json:"paid_amount"`
	Outstanding         decimal.Decimal  `json:"outstanding"`
	WarehouseDocumentID string           `json:"warehouse_document_id,omitempty"`
	Lines               []InvoiceLineDTO `json:"lines"`
}

// PostInvoiceResponse reports the posting outcome. Warning is set when
// the invoice posted but the derived journal entry could not be recorded.
type PostInvoiceResponse struct {
	Invoice InvoiceDTO `json:"invoice"`
	Entry   *EntryDTO  `json:"entry,omitempty"`
	Warning string     `json:"warning,omitempty"`
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents a GL account in API responses.
type AccountDTO struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	ParentID    string `json:"parent_id,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
