/*
Package linkage walks the references that tie documents together and
derives the journal entries an invoice posting implies.

PURPOSE:
  Warehouse documents, invoices and journal entries are separate records
  joined by soft references: a receipt carries a purchase_order_id, an
  incoming invoice carries a warehouse_document_id, and a derived journal
  entry carries reference_type/reference_id pointing back at its source.
  This package resolves those chains in both directions and builds the
  derived entry for a posted invoice.

POST-COMMIT SEMANTICS:
  Derivation runs AFTER the invoice posting transaction has committed, in
  its own transaction. A failure here leaves the invoice posted and is
  reported as a LinkageError; the caller surfaces it as a warning, not a
  rollback. Re-running derivation for an invoice that already has an entry
  is a no-op.
*/
package linkage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atlas-erp/ledgerd/ledger"
)

// ReferenceInvoice is the reference_type stamped on entries derived from
// invoice postings.
const ReferenceInvoice = "invoice"

// PostingAccounts names the accounts derived invoice entries post to.
// The chart of accounts itself is master data loaded at startup; this is
// only the mapping from invoice roles to account ids.
type PostingAccounts struct {
	Receivable string
	Payable    string
	Revenue    string
	Expense    string
	VATInput   string
	VATOutput  string
}

// Resolver derives journal entries from invoice events and answers
// cross-document traversal queries.
type Resolver struct {
	store    ledger.TxStore
	accounts PostingAccounts
	log      zerolog.Logger
}

func NewResolver(store ledger.TxStore, accounts PostingAccounts) *Resolver {
	return &Resolver{
		store:    store,
		accounts: accounts,
		log:      log.With().Str("component", "linkage").Logger(),
	}
}

// RecordInvoicePosting derives and persists the posted journal entry for
// an already-posted invoice. Idempotent: if a derived entry for this
// invoice exists, it is returned unchanged. Any failure is wrapped as a
// LinkageError; the invoice posting it follows stays committed.
func (r *Resolver) RecordInvoicePosting(ctx context.Context, inv *ledger.Invoice) (*ledger.Entry, error) {
	var entry *ledger.Entry

	err := r.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.ListEntriesByReference(ctx, ReferenceInvoice, string(inv.ID))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			entry = &existing[0]
			return nil
		}

		entry, err = r.DeriveInvoiceEntry(inv)
		if err != nil {
			return err
		}
		return st.InsertEntry(ctx, entry)
	})

	if err != nil {
		r.log.Error().Err(err).
			Str("invoice_id", string(inv.ID)).
			Msg("derived entry not recorded, invoice posting stands")
		return nil, &ledger.LinkageError{Step: "derive journal entry", Err: err}
	}

	r.log.Info().
		Str("invoice_id", string(inv.ID)).
		Str("entry_id", string(entry.ID)).
		Msg("derived journal entry recorded")
	return entry, nil
}

// DeriveInvoiceEntry builds the balanced journal entry a posted invoice
// implies, without persisting it.
//
//	outgoing: debit receivable (total) / credit revenue (subtotal),
//	          credit VAT output (vat amount)
//	incoming: debit expense (subtotal), debit VAT input (vat amount) /
//	          credit payable (total)
func (r *Resolver) DeriveInvoiceEntry(inv *ledger.Invoice) (*ledger.Entry, error) {
	if inv.Status != ledger.StatusPosted {
		return nil, &ledger.InvalidStateError{
			Operation: "derive entry", Current: inv.Status, Required: ledger.StatusPosted}
	}

	var lines []ledger.EntryLine
	switch inv.Type {
	case ledger.InvoiceOutgoing:
		lines = append(lines, ledger.NewDebitLine(r.accounts.Receivable, inv.Total))
		lines = append(lines, ledger.NewCreditLine(r.accounts.Revenue, inv.Subtotal))
		if inv.VATAmount.IsPositive() {
			lines = append(lines, ledger.NewCreditLine(r.accounts.VATOutput, inv.VATAmount))
		}
	case ledger.InvoiceIncoming:
		lines = append(lines, ledger.NewDebitLine(r.accounts.Expense, inv.Subtotal))
		if inv.VATAmount.IsPositive() {
			lines = append(lines, ledger.NewDebitLine(r.accounts.VATInput, inv.VATAmount))
		}
		lines = append(lines, ledger.NewCreditLine(r.accounts.Payable, inv.Total))
	default:
		return nil, &ledger.ValidationError{Field: "invoice_type",
			Message: fmt.Sprintf("unknown invoice type %q", inv.Type)}
	}
	for i := range lines {
		lines[i].PartnerID = inv.PartnerID
	}

	if err := ledger.ValidateEntryBalance(lines); err != nil {
		return nil, err
	}

	return &ledger.Entry{
		ID:            ledger.EntryID(uuid.NewString()),
		Number:        "GL-" + inv.Number,
		Date:          inv.Date,
		Description:   fmt.Sprintf("Invoice %s", inv.Number),
		ReferenceType: ReferenceInvoice,
		ReferenceID:   string(inv.ID),
		Status:        ledger.StatusPosted,
		Lines:         lines,
	}, nil
}

// =============================================================================
// TRAVERSALS
// =============================================================================

// ReceiptsForPurchaseOrder returns the goods receipts that reference the
// given purchase order.
func (r *Resolver) ReceiptsForPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]ledger.Document, error) {
	if purchaseOrderID == "" {
		return nil, &ledger.ValidationError{Field: "purchase_order_id", Message: "purchase order id is required"}
	}
	return r.store.ListDocumentsByPurchaseOrder(ctx, purchaseOrderID)
}

// InvoiceForWarehouseDocument returns the invoice generated from a
// warehouse document, or nil when none references it.
func (r *Resolver) InvoiceForWarehouseDocument(ctx context.Context, docID ledger.DocumentID) (*ledger.Invoice, error) {
	if _, err := r.store.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	return r.store.GetInvoiceByWarehouseDocument(ctx, docID)
}

// EntriesForReference returns the journal entries stamped with the given
// source reference, e.g. all entries derived from one invoice.
func (r *Resolver) EntriesForReference(ctx context.Context, refType, refID string) ([]ledger.Entry, error) {
	if refType == "" || refID == "" {
		return nil, &ledger.ValidationError{Field: "reference", Message: "reference type and id are required"}
	}
	return r.store.ListEntriesByReference(ctx, refType, refID)
}

// =============================================================================
// ACCOUNT WIRING CHECK
// =============================================================================

// Validate verifies every configured posting account exists. Run at
// startup so a misconfigured mapping fails fast rather than on the first
// invoice posting.
func (r *Resolver) Validate(ctx context.Context) error {
	for _, ref := range []struct{ role, id string }{
		{"receivable", r.accounts.Receivable},
		{"payable", r.accounts.Payable},
		{"revenue", r.accounts.Revenue},
		{"expense", r.accounts.Expense},
		{"vat_input", r.accounts.VATInput},
		{"vat_output", r.accounts.VATOutput},
	} {
		if ref.id == "" {
			return &ledger.ValidationError{Field: ref.role, Message: "posting account not configured"}
		}
		if _, err := r.store.GetAccount(ctx, ref.id); err != nil {
			if ledger.IsNotFound(err) {
				return &ledger.ValidationError{Field: ref.role,
					Message: fmt.Sprintf("posting account %s does not exist", ref.id)}
			}
			return err
		}
	}
	return nil
}
