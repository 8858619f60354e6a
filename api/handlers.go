/*
handlers.go - HTTP API handlers for the document posting engine

PURPOSE:
  Exposes the posting engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Warehouse documents:
    GET    /api/warehouse-documents             List (optional ?type=)
    POST   /api/warehouse-documents             Create draft
    GET    /api/warehouse-documents/{id}        Get with lines
    PUT    /api/warehouse-documents/{id}        Update draft
    DELETE /api/warehouse-documents/{id}        Delete draft
    POST   /api/warehouse-documents/{id}/post   Post (apply stock effects)
    POST   /api/warehouse-documents/{id}/cancel Cancel (reverse stock effects)

  Journal entries:
    GET    /api/gl-entries                      List
    POST   /api/gl-entries                      Create draft
    GET    /api/gl-entries/{id}                 Get with lines
    PUT    /api/gl-entries/{id}                 Update draft
    DELETE /api/gl-entries/{id}                 Delete draft
    POST   /api/gl-entries/{id}/post            Post (balance-checked)
    POST   /api/gl-entries/{id}/cancel          Cancel (creates reversal)

  Invoices:
    GET    /api/invoices                        List (optional ?type=)
    POST   /api/invoices                        Create draft
    GET    /api/invoices/{id}                   Get with lines
    PUT    /api/invoices/{id}                   Update draft
    DELETE /api/invoices/{id}                   Delete draft
    POST   /api/invoices/{id}/post              Post (+derived entry)
    POST   /api/invoices/{id}/cancel            Cancel (unpaid only)
    POST   /api/invoices/{id}/payments          Record payment

  Read-only:
    GET    /api/stock                           Stock positions
    GET    /api/accounts                        Chart of accounts
    GET    /api/linkage/purchase-orders/{id}/receipts
    GET    /api/linkage/warehouse-documents/{id}/invoice
    GET    /api/linkage/references/{type}/{id}/entries

REQUEST FLOW:
  1. Decode request body
  2. Structural validation (validator/v10 tags)
  3. Call domain logic
  4. Serialize response
  5. Classify errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Document not found
  - 409: Lifecycle/balance/stock conflicts
  - 500: Internal errors
  Invoice posting is special: when the invoice posted but the derived
  entry failed, the response is 200 with a warning field. The posting is
  durable; only the follow-up is missing.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-erp/ledgerd/books"
	"github.com/atlas-erp/ledgerd/invoicing"
	"github.com/atlas-erp/ledgerd/ledger"
	"github.com/atlas-erp/ledgerd/linkage"
	"github.com/atlas-erp/ledgerd/warehouse"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Warehouse *warehouse.Service
	Books     *books.Service
	Invoices  *invoicing.Service
	Linkage   *linkage.Resolver
	Accounts  interface {
		ListAccounts(ctx context.Context) ([]ledger.Account, error)
	}

	validate *validator.Validate
}

// NewHandler creates a new handler wired to the domain services.
func NewHandler(wh *warehouse.Service, bk *books.Service, inv *invoicing.Service, lk *linkage.Resolver, accounts ledger.AccountStore) *Handler {
	return &Handler{
		Warehouse: wh,
		Books:     bk,
		Invoices:  inv,
		Linkage:   lk,
		Accounts:  accounts,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// WAREHOUSE DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns all warehouse documents, optionally filtered by
// ?type=goods_receipt|goods_issue|transfer|inventory.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	kind := ledger.DocumentKind(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown document type", nil)
		return
	}

	docs, err := h.Warehouse.List(r.Context(), kind)
	if err != nil {
		writeDomainError(w, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = toDocumentDTO(&docs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDocument returns a single document with lines.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Warehouse.Get(r.Context(), ledger.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// CreateDocument creates a new draft document.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}

	created, err := h.Warehouse.CreateDraft(r.Context(), doc)
	if err != nil {
		writeDomainError(w, "Failed to create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(created))
}

// UpdateDocument replaces a draft document.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	doc.ID = ledger.DocumentID(chi.URLParam(r, "id"))

	updated, err := h.Warehouse.UpdateDraft(r.Context(), doc)
	if err != nil {
		writeDomainError(w, "Failed to update document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(updated))
}

// DeleteDocument removes a draft document.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Warehouse.DeleteDraft(r.Context(), ledger.DocumentID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostDocument applies the document's stock effects and freezes it.
func (h *Handler) PostDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))
	if err := h.Warehouse.Post(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to post document", err)
		return
	}

	doc, err := h.Warehouse.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load posted document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// CancelDocument reverses the document's stock effects.
func (h *Handler) CancelDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))
	if err := h.Warehouse.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to cancel document", err)
		return
	}

	doc, err := h.Warehouse.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load cancelled document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// ListStock returns all stock positions.
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Warehouse.Stock(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list stock", err)
		return
	}

	dtos := make([]StockPositionDTO, len(positions))
	for i, p := range positions {
		dtos[i] = StockPositionDTO{
			ItemID:           p.ItemID,
			LocationID:       p.LocationID,
			Quantity:         p.Quantity,
			ReservedQuantity: p.ReservedQuantity,
			UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (*ledger.Document, bool) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return nil, false
	}

	date, err := time.Parse(dateLayout, req.DocumentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document_date format (use YYYY-MM-DD)", err)
		return nil, false
	}

	doc := &ledger.Document{
		Kind:             ledger.DocumentKind(req.DocumentType),
		Number:           req.DocumentNumber,
		Date:             date,
		LocationID:       req.LocationID,
		TargetLocationID: req.TargetLocationID,
		PartnerID:        req.PartnerID,
		PurchaseOrderID:  req.PurchaseOrderID,
		Notes:            req.Notes,
		Lines:            make([]ledger.DocumentLine, len(req.Lines)),
	}
	for i, l := range req.Lines {
		doc.Lines[i] = ledger.DocumentLine{
			ItemID:          l.ItemID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			CountedQuantity: l.CountedQuantity,
			Notes:           l.Notes,
		}
	}
	return doc, true
}

// =============================================================================
// JOURNAL ENTRY HANDLERS
// =============================================================================

// ListEntries returns all journal entries with lines.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Books.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEntry returns a single entry with lines.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Books.Get(r.Context(), ledger.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// CreateEntry creates a new draft entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}

	created, err := h.Books.CreateDraft(r.Context(), entry)
	if err != nil {
		writeDomainError(w, "Failed to create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(created))
}

// UpdateEntry replaces a draft entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r)
	if !ok {
		return
	}
	entry.ID = ledger.EntryID(chi.URLParam(r, "id"))

	updated, err := h.Books.UpdateDraft(r.Context(), entry)
	if err != nil {
		writeDomainError(w, "Failed to update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(updated))
}

// DeleteEntry removes a draft entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Books.DeleteDraft(r.Context(), ledger.EntryID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostEntry validates the balance and posts the entry.
func (h *Handler) PostEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))
	if err := h.Books.Post(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to post entry", err)
		return
	}

	entry, err := h.Books.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load posted entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// CancelEntry cancels a posted entry and returns the reversal.
func (h *Handler) CancelEntry(w http.ResponseWriter, r *http.Request) {
	reversal, err := h.Books.Cancel(r.Context(), ledger.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to cancel entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(reversal))
}

func (h *Handler) decodeEntry(w http.ResponseWriter, r *http.Request) (*ledger.Entry, bool) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return nil, false
	}

	date, err := time.Parse(dateLayout, req.EntryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_date format (use YYYY-MM-DD)", err)
		return nil, false
	}

	entry := &ledger.Entry{
		Number:        req.DocumentNumber,
		Date:          date,
		Description:   req.Description,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Lines:         make([]ledger.EntryLine, len(req.Lines)),
	}
	for i, l := range req.Lines {
		if l.Debit.IsPositive() && l.Credit.IsPositive() {
			writeError(w, http.StatusBadRequest, "Line cannot carry both debit and credit", nil)
			return nil, false
		}
		line := ledger.NewDebitLine(l.AccountID, l.Debit)
		if l.Credit.IsPositive() {
			line = ledger.NewCreditLine(l.AccountID, l.Credit)
		}
		line.PartnerID = l.PartnerID
		line.Description = l.Description
		entry.Lines[i] = line
	}
	return entry, true
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns all invoices, optionally filtered by
// ?type=incoming|outgoing.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invType := ledger.InvoiceType(r.URL.Query().Get("type"))
	if invType != "" && !invType.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown invoice type", nil)
		return
	}

	invoices, err := h.Invoices.List(r.Context(), invType)
	if err != nil {
		writeDomainError(w, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = toInvoiceDTO(&invoices[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns a single invoice with lines.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.Get(r.Context(), ledger.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// CreateInvoice creates a new draft invoice.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.decodeInvoice(w, r)
	if !ok {
		return
	}

	created, err := h.Invoices.CreateDraft(r.Context(), inv)
	if err != nil {
		writeDomainError(w, "Failed to create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(created))
}

// UpdateInvoice replaces a draft invoice.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.decodeInvoice(w, r)
	if !ok {
		return
	}
	inv.ID = ledger.InvoiceID(chi.URLParam(r, "id"))

	updated, err := h.Invoices.UpdateDraft(r.Context(), inv)
	if err != nil {
		writeDomainError(w, "Failed to update invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(updated))
}

// DeleteInvoice removes a draft invoice.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.Invoices.DeleteDraft(r.Context(), ledger.InvoiceID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostInvoice posts the invoice and derives its journal entry. When the
// derived entry could not be recorded the invoice is STILL posted; the
// response carries a warning instead of an error status.
func (h *Handler) PostInvoice(w http.ResponseWriter, r *http.Request) {
	inv, entry, err := h.Invoices.Post(r.Context(), ledger.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		if errors.Is(err, ledger.ErrLinkagePartial) {
			writeJSON(w, http.StatusOK, PostInvoiceResponse{
				Invoice: toInvoiceDTO(inv),
				Warning: err.Error(),
			})
			return
		}
		writeDomainError(w, "Failed to post invoice", err)
		return
	}

	resp := PostInvoiceResponse{Invoice: toInvoiceDTO(inv)}
	if entry != nil {
		dto := toEntryDTO(entry)
		resp.Entry = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelInvoice voids an unpaid posted invoice.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Invoices.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to cancel invoice", err)
		return
	}

	inv, err := h.Invoices.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load cancelled invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// RecordPayment adds a payment to a posted invoice.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inv, err := h.Invoices.RecordPayment(r.Context(), ledger.InvoiceID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (h *Handler) decodeInvoice(w http.ResponseWriter, r *http.Request) (*ledger.Invoice, bool) {
	var req InvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return nil, false
	}

	date, err := time.Parse(dateLayout, req.InvoiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice_date format (use YYYY-MM-DD)", err)
		return nil, false
	}

	inv := &ledger.Invoice{
		Type:                ledger.InvoiceType(req.InvoiceType),
		Number:              req.InvoiceNumber,
		Date:                date,
		PartnerID:           req.PartnerID,
		WarehouseDocumentID: ledger.DocumentID(req.WarehouseDocumentID),
		Lines:               make([]ledger.InvoiceLine, len(req.Lines)),
	}
	if req.DueDate != "" {
		due, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due_date format (use YYYY-MM-DD)", err)
			return nil, false
		}
		inv.DueDate = &due
	}
	for i, l := range req.Lines {
		inv.Lines[i] = ledger.InvoiceLine{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRateID: l.VATRateID,
			VATRate:   l.VATRate,
		}
	}
	return inv, true
}

// =============================================================================
// LINKAGE HANDLERS
// =============================================================================

// ReceiptsForPurchaseOrder returns goods receipts referencing a purchase
// order.
func (h *Handler) ReceiptsForPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Linkage.ReceiptsForPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to resolve receipts", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = toDocumentDTO(&docs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// InvoiceForWarehouseDocument returns the invoice generated from a
// warehouse document, 404 when none references it.
func (h *Handler) InvoiceForWarehouseDocument(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Linkage.InvoiceForWarehouseDocument(r.Context(), ledger.DocumentID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to resolve invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "No invoice references this document", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// EntriesForReference returns journal entries derived from a source
// document.
func (h *Handler) EntriesForReference(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Linkage.EntriesForReference(r.Context(),
		chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to resolve entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the chart of accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = AccountDTO{
			ID:          a.ID,
			Code:        a.Code,
			Name:        a.Name,
			AccountType: string(a.Type),
			ParentID:    a.ParentID,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DTO MAPPING
// =============================================================================

func toDocumentDTO(doc *ledger.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:               string(doc.ID),
		DocumentType:     string(doc.Kind),
		DocumentNumber:   doc.Number,
		DocumentDate:     doc.Date.Format(dateLayout),
		LocationID:       doc.LocationID,
		TargetLocationID: doc.TargetLocationID,
		PartnerID:        doc.PartnerID,
		PurchaseOrderID:  doc.PurchaseOrderID,
		Status:           string(doc.Status),
		TotalValue:       doc.TotalValue,
		Notes:            doc.Notes,
		Lines:            make([]DocumentLineDTO, len(doc.Lines)),
	}
	if doc.PostedAt != nil {
		dto.PostedAt = doc.PostedAt.Format(time.RFC3339)
	}
	for i, l := range doc.Lines {
		dto.Lines[i] = DocumentLineDTO{
			ItemID:             l.ItemID,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			TotalPrice:         l.TotalPrice,
			CountedQuantity:    l.CountedQuantity,
			DifferenceQuantity: l.DifferenceQuantity,
			Notes:              l.Notes,
		}
	}
	return dto
}

func toEntryDTO(entry *ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:              string(entry.ID),
		DocumentNumber:  entry.Number,
		EntryDate:       entry.Date.Format(dateLayout),
		Description:     entry.Description,
		ReferenceType:   entry.ReferenceType,
		ReferenceID:     entry.ReferenceID,
		Status:          string(entry.Status),
		ReversedEntryID: string(entry.ReversedEntryID),
		Lines:           make([]EntryLineDTO, len(entry.Lines)),
	}
	for i, l := range entry.Lines {
		dto.Lines[i] = EntryLineDTO{
			AccountID:   l.AccountID,
			Debit:       l.Debit(),
			Credit:      l.Credit(),
			PartnerID:   l.PartnerID,
			Description: l.Description,
		}
	}
	return dto
}

func toInvoiceDTO(inv *ledger.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:                  string(inv.ID),
		InvoiceType:         string(inv.Type),
		InvoiceNumber:       inv.Number,
		InvoiceDate:         inv.Date.Format(dateLayout),
		PartnerID:           inv.PartnerID,
		Status:              string(inv.Status),
		Subtotal:            inv.Subtotal,
		VATAmount:           inv.VATAmount,
		Total:               inv.Total,
		PaidAmount:          inv.PaidAmount,
		Outstanding:         inv.Outstanding(),
		WarehouseDocumentID: string(inv.WarehouseDocumentID),
		Lines:               make([]InvoiceLineDTO, len(inv.Lines)),
	}
	if inv.DueDate != nil {
		dto.DueDate = inv.DueDate.Format(dateLayout)
	}
	for i, l := range inv.Lines {
		dto.Lines[i] = InvoiceLineDTO{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRateID: l.VATRateID,
			VATRate:   l.VATRate,
			VATAmount: l.VATAmount,
			Total:     l.Total,
		}
	}
	return dto
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError classifies a domain error into an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFromError(err), message, err)
}

func statusFromError(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
