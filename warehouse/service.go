/*
Package warehouse owns the lifecycle of warehouse documents and the stock
posting engine.

PURPOSE:
  A warehouse document (goods receipt, goods issue, transfer, inventory
  count) begins life as a mutable draft. Posting freezes it and applies its
  stock effect as one atomic multi-row update; cancellation reverses the
  effect without deleting anything.

LIFECYCLE:
  draft --post--> posted --cancel--> cancelled

  Drafts are edited or deleted; they have no ledger side effects so there
  is no draft -> cancelled transition. Posting and cancellation both run the
  status compare-and-set inside the same transaction as the stock writes,
  so two concurrent posts of one document cannot both apply.

STOCK EFFECTS:
  goods_receipt   +quantity at source
  goods_issue     -quantity at source (must not go negative)
  transfer        -quantity at source, +quantity at target
  inventory       quantity := counted; records counted - system difference

SEE ALSO:
  - posting.go: delta computation and application
  - ledger: shared types, invariants and errors
*/
package warehouse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atlas-erp/ledgerd/ledger"
)

// Service is the document state controller for warehouse documents.
type Service struct {
	store ledger.TxStore
	log   zerolog.Logger
}

func NewService(store ledger.TxStore) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "warehouse").Logger(),
	}
}

// CreateDraft validates and persists a new draft document. The human
// document number is caller-assigned; the row id is generated here.
func (s *Service) CreateDraft(ctx context.Context, doc *ledger.Document) (*ledger.Document, error) {
	if err := validateDraft(doc); err != nil {
		return nil, err
	}

	if doc.ID == "" {
		doc.ID = ledger.DocumentID(uuid.NewString())
	}
	doc.Status = ledger.StatusDraft
	doc.PostedAt = nil
	doc.TotalValue = ledger.RecomputeDocumentLines(doc.Lines)

	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", string(doc.ID)).
		Str("kind", string(doc.Kind)).
		Str("number", doc.Number).
		Msg("draft created")
	return doc, nil
}

// UpdateDraft replaces header and lines of a draft. The document kind is
// fixed at creation; posted and cancelled documents are immutable. The
// status check and the rewrite share one transaction so a concurrent post
// cannot slip between them.
func (s *Service) UpdateDraft(ctx context.Context, doc *ledger.Document) (*ledger.Document, error) {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "update draft", Current: existing.Status, Required: ledger.StatusDraft}
		}
		if doc.Kind != "" && doc.Kind != existing.Kind {
			return &ledger.ValidationError{Field: "document_type", Message: "kind cannot change after creation"}
		}
		doc.Kind = existing.Kind

		if err := validateDraft(doc); err != nil {
			return err
		}
		doc.Status = ledger.StatusDraft
		doc.TotalValue = ledger.RecomputeDocumentLines(doc.Lines)

		return st.ReplaceDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDraft removes a draft and its lines. A document with ledger side
// effects is never deleted; it is cancelled instead.
func (s *Service) DeleteDraft(ctx context.Context, id ledger.DocumentID) error {
	return s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "delete draft", Current: existing.Status, Required: ledger.StatusDraft}
		}
		return st.DeleteDocument(ctx, id)
	})
}

// Post applies the document's stock effect and freezes it, all in one
// transaction. On any failure (including a would-be-negative position) the
// transaction rolls back and the document remains a draft.
func (s *Service) Post(ctx context.Context, id ledger.DocumentID) error {
	now := time.Now().UTC()

	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		doc, err := st.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != ledger.StatusDraft {
			return &ledger.InvalidStateError{
				Operation: "post", Current: doc.Status, Required: ledger.StatusDraft}
		}

		if err := applyStockEffects(ctx, st, doc, directionApply); err != nil {
			return err
		}
		return st.SetDocumentStatus(ctx, id, ledger.StatusDraft, ledger.StatusPosted, &now)
	})

	if err != nil {
		s.log.Warn().Err(err).Str("document_id", string(id)).Msg("posting aborted")
		return err
	}
	s.log.Info().Str("document_id", string(id)).Msg("document posted")
	return nil
}

// Cancel reverses the stock effect of a posted document and marks it
// cancelled. The document and its lines stay on record untouched.
func (s *Service) Cancel(ctx context.Context, id ledger.DocumentID) error {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		doc, err := st.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status != ledger.StatusPosted {
			return &ledger.InvalidStateError{
				Operation: "cancel", Current: doc.Status, Required: ledger.StatusPosted}
		}

		if err := applyStockEffects(ctx, st, doc, directionReverse); err != nil {
			return err
		}
		return st.SetDocumentStatus(ctx, id, ledger.StatusPosted, ledger.StatusCancelled, nil)
	})

	if err != nil {
		s.log.Warn().Err(err).Str("document_id", string(id)).Msg("cancellation aborted")
		return err
	}
	s.log.Info().Str("document_id", string(id)).Msg("document cancelled")
	return nil
}

// Get returns a document with its lines.
func (s *Service) Get(ctx context.Context, id ledger.DocumentID) (*ledger.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// List returns document headers, optionally filtered by kind.
func (s *Service) List(ctx context.Context, kind ledger.DocumentKind) ([]ledger.Document, error) {
	return s.store.ListDocuments(ctx, kind)
}

// Stock returns all stock positions.
func (s *Service) Stock(ctx context.Context) ([]ledger.StockPosition, error) {
	return s.store.ListStock(ctx)
}

// =============================================================================
// DRAFT VALIDATION
// =============================================================================

func validateDraft(doc *ledger.Document) error {
	if !doc.Kind.Valid() {
		return &ledger.ValidationError{Field: "document_type", Message: "unknown document kind"}
	}
	if doc.Number == "" {
		return &ledger.ValidationError{Field: "document_number", Message: "document number is required"}
	}
	if doc.Date.IsZero() {
		return &ledger.ValidationError{Field: "document_date", Message: "document date is required"}
	}
	if doc.LocationID == "" {
		return &ledger.ValidationError{Field: "location_id", Message: "source location is required"}
	}

	if doc.Kind.RequiresTarget() {
		if doc.TargetLocationID == "" {
			return &ledger.ValidationError{Field: "target_location_id", Message: "transfer requires a target location"}
		}
		if doc.TargetLocationID == doc.LocationID {
			return &ledger.ValidationError{Field: "target_location_id", Message: "transfer source and target must differ"}
		}
	} else if doc.TargetLocationID != "" {
		return &ledger.ValidationError{Field: "target_location_id", Message: "only transfers carry a target location"}
	}

	if len(doc.Lines) == 0 {
		return &ledger.ValidationError{Field: "lines", Message: "document has no lines"}
	}
	seen := make(map[string]bool, len(doc.Lines))
	for i := range doc.Lines {
		l := &doc.Lines[i]
		if l.ItemID == "" {
			return &ledger.ValidationError{Field: "lines", Message: "line item is required"}
		}
		if doc.Kind == ledger.KindInventory {
			// One counted quantity per item: a second line for the same item
			// would make the recorded difference ambiguous.
			if seen[l.ItemID] {
				return &ledger.ValidationError{Field: "lines", Message: "inventory lists item " + l.ItemID + " more than once"}
			}
			seen[l.ItemID] = true
			if l.CountedQuantity.IsNegative() {
				return &ledger.ValidationError{Field: "lines", Message: "counted quantity must not be negative"}
			}
			continue
		}
		if !l.Quantity.IsPositive() {
			return &ledger.ValidationError{Field: "lines", Message: "line quantity must be positive"}
		}
	}
	return nil
}
