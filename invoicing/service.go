/*
Package invoicing owns invoice lifecycle and payment tracking.

PURPOSE:
  Invoices follow the same draft -> posted -> cancelled lifecycle as every
  other document family. Posting freezes the invoice and, as a follow-up
  step, derives the matching journal entry through the linkage resolver.
  Payments only accumulate on posted invoices and never exceed the total.

POSTING VS LINKAGE:
  The status flip is the invoice's own transaction. Journal derivation
  runs after that commit in a separate transaction; if it fails the
  invoice STAYS posted and the caller gets an error satisfying
  errors.Is(err, ledger.ErrLinkagePartial) to report alongside the
  successful posting.
*/
package invoicing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/ledgerd/ledger"
)

// EntryDeriver records the journal side of a posted invoice. Implemented
// by linkage.Resolver.
type EntryDeriver interface {
	RecordInvoicePosting(ctx context.Context, inv *ledger.Invoice) (*ledger.Entry, error)
}

// Service is the document state controller for invoices.
type Service struct {
	store   ledger.TxStore
	deriver EntryDeriver
	log     zerolog.Logger
}

func NewService(store ledger.TxStore, deriver EntryDeriver) *Service {
	return &Service{
		store:   store,
		deriver: deriver,
		log:     log.With().Str("component", "invoicing").Logger(),
	}
}

// CreateDraft validates and persists a new draft invoice. Totals are
// always derived from the lines; client-supplied totals are ignored.
func (s *Service) CreateDraft(ctx context.Context, inv *ledger.Invoice) (*ledger.Invoice, error) {
	if err := s.validateDraftIn(ctx, s.store, inv); err != nil {
		return nil, err
	}

	if inv.ID == "" {
		inv.ID = ledger.InvoiceID(uuid.NewString())
	}
	inv.Status = ledger.StatusDraft
	inv.PaidAmount = decimal.Zero
	s.recompute(inv)

	if err := s.store.InsertInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", string(inv.ID)).
		Str("type", string(inv.Type)).
		Str("number", inv.Number).
		Msg("draft invoice created")
	return inv, nil
}

// UpdateDraft replaces header and lines of a draft invoice. Type is
// immutable once created. The status check and the rewrite share one
// transaction so a concurrent post cannot slip between them.
func (s *Service) UpdateDraft(ctx context.Context, inv *ledger.Invoice) (*ledger.Invoice, error) {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "update draft", Current: existing.Status, Required: ledger.StatusDraft}
		}
		if inv.Type != existing.Type {
			return &ledger.ValidationError{Field: "invoice_type",
				Message: "invoice type cannot change after creation"}
		}

		if err := s.validateDraftIn(ctx, st, inv); err != nil {
			return err
		}
		inv.Status = ledger.StatusDraft
		inv.PaidAmount = existing.PaidAmount
		s.recompute(inv)

		return st.ReplaceInvoice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteDraft removes a draft invoice and its lines.
func (s *Service) DeleteDraft(ctx context.Context, id ledger.InvoiceID) error {
	return s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "delete draft", Current: existing.Status, Required: ledger.StatusDraft}
		}
		return st.DeleteInvoice(ctx, id)
	})
}

// Post freezes the invoice, then derives its journal entry. The returned
// error may satisfy errors.Is(err, ledger.ErrLinkagePartial): the invoice
// is posted and durable, only the derived entry is missing.
func (s *Service) Post(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, *ledger.Entry, error) {
	var inv *ledger.Invoice

	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		var err error
		inv, err = st.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != ledger.StatusDraft {
			return &ledger.InvalidStateError{
				Operation: "post", Current: inv.Status, Required: ledger.StatusDraft}
		}
		return st.SetInvoiceStatus(ctx, id, ledger.StatusDraft, ledger.StatusPosted)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("invoice_id", string(id)).Msg("invoice posting aborted")
		return nil, nil, err
	}
	inv.Status = ledger.StatusPosted
	s.log.Info().Str("invoice_id", string(id)).Msg("invoice posted")

	// Posting is committed at this point. Derivation failure is reported,
	// never rolled back.
	entry, err := s.deriver.RecordInvoicePosting(ctx, inv)
	if err != nil {
		return inv, nil, err
	}
	return inv, entry, nil
}

// RecordPayment adds a payment to a posted invoice. The paid amount is
// monotonically non-decreasing and never exceeds the total.
func (s *Service) RecordPayment(ctx context.Context, id ledger.InvoiceID, amount decimal.Decimal) (*ledger.Invoice, error) {
	if !amount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "amount", Message: "payment amount must be positive"}
	}

	var inv *ledger.Invoice
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status != ledger.StatusPosted {
			return &ledger.InvalidStateError{
				Operation: "record payment", Current: existing.Status, Required: ledger.StatusPosted}
		}
		if amount.GreaterThan(existing.Outstanding()) {
			return &ledger.ValidationError{Field: "amount",
				Message: fmt.Sprintf("payment %s exceeds outstanding %s",
					amount.String(), existing.Outstanding().String())}
		}
		if err := st.AddInvoicePayment(ctx, id, amount); err != nil {
			return err
		}
		inv, err = st.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", string(id)).
		Str("amount", amount.String()).
		Str("paid_amount", inv.PaidAmount.String()).
		Msg("payment recorded")
	return inv, nil
}

// Cancel voids a posted invoice. Blocked once any payment has been
// recorded; money already received has to be settled first.
func (s *Service) Cancel(ctx context.Context, id ledger.InvoiceID) error {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		inv, err := st.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != ledger.StatusPosted {
			return &ledger.InvalidStateError{
				Operation: "cancel", Current: inv.Status, Required: ledger.StatusPosted}
		}
		if inv.PaidAmount.IsPositive() {
			return &ledger.InvalidStateError{
				Operation: "cancel paid invoice", Current: inv.Status, Required: ledger.StatusPosted}
		}
		return st.SetInvoiceStatus(ctx, id, ledger.StatusPosted, ledger.StatusCancelled)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("invoice_id", string(id)).Msg("invoice cancellation aborted")
		return err
	}
	s.log.Info().Str("invoice_id", string(id)).Msg("invoice cancelled")
	return nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// List returns all invoices, optionally filtered by type.
func (s *Service) List(ctx context.Context, invoiceType ledger.InvoiceType) ([]ledger.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	if invoiceType == "" {
		return invoices, nil
	}
	filtered := invoices[:0]
	for _, inv := range invoices {
		if inv.Type == invoiceType {
			filtered = append(filtered, inv)
		}
	}
	return filtered, nil
}

// validateDraftIn resolves referenced documents through st so it can run
// both outside and inside an open transaction.
func (s *Service) validateDraftIn(ctx context.Context, st ledger.Store, inv *ledger.Invoice) error {
	if !inv.Type.Valid() {
		return &ledger.ValidationError{Field: "invoice_type",
			Message: fmt.Sprintf("unknown invoice type %q", inv.Type)}
	}
	if inv.Number == "" {
		return &ledger.ValidationError{Field: "invoice_number", Message: "invoice number is required"}
	}
	if inv.Date.IsZero() {
		return &ledger.ValidationError{Field: "invoice_date", Message: "invoice date is required"}
	}
	if inv.PartnerID == "" {
		return &ledger.ValidationError{Field: "partner_id", Message: "partner is required"}
	}
	if len(inv.Lines) == 0 {
		return &ledger.ValidationError{Field: "lines", Message: "invoice has no lines"}
	}
	if inv.WarehouseDocumentID != "" {
		if inv.Type != ledger.InvoiceIncoming {
			return &ledger.ValidationError{Field: "warehouse_document_id",
				Message: "only incoming invoices reference a warehouse document"}
		}
		if _, err := st.GetDocument(ctx, inv.WarehouseDocumentID); err != nil {
			if ledger.IsNotFound(err) {
				return &ledger.ValidationError{Field: "warehouse_document_id",
					Message: fmt.Sprintf("warehouse document %s does not exist", inv.WarehouseDocumentID)}
			}
			return err
		}
	}

	for _, l := range inv.Lines {
		if l.ItemID == "" {
			return &ledger.ValidationError{Field: "lines", Message: "line item is required"}
		}
		if !l.Quantity.IsPositive() {
			return &ledger.ValidationError{Field: "lines", Message: "line quantity must be positive"}
		}
		if l.UnitPrice.IsNegative() {
			return &ledger.ValidationError{Field: "lines", Message: "line unit price cannot be negative"}
		}
		if l.VATRate.IsNegative() {
			return &ledger.ValidationError{Field: "lines", Message: "line vat rate cannot be negative"}
		}
	}
	return nil
}

func (s *Service) recompute(inv *ledger.Invoice) {
	totals := ledger.RecomputeInvoiceLines(inv.Lines)
	inv.Subtotal = totals.Subtotal
	inv.VATAmount = totals.VATAmount
	inv.Total = totals.Total
}
