/*
Package books owns general-ledger journal entries: draft lifecycle,
balance-validated posting, and cancellation by reversal.

PURPOSE:
  A journal entry may only become system of record when its debits and
  credits balance. Once posted it is immutable; a mistake is corrected by
  a new reversal entry with the sides swapped, linked to the original
  through reversed_entry_id. The audit chain is append-only: no posted
  line is ever edited.

GL POSTING IS A SIDE-RECORD:
  Posting an entry whose reference points at a warehouse document or an
  invoice records the financial view of that event. It never mutates stock
  or invoices; inventory changes originate only from the warehouse posting
  engine.

SEE ALSO:
  - ledger.ValidateEntryBalance: the double-entry gate
  - linkage: derives entries from invoice events
*/
package books

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/atlas-erp/ledgerd/ledger"
)

// Service is the document state controller for journal entries.
type Service struct {
	store ledger.TxStore
	log   zerolog.Logger
}

func NewService(store ledger.TxStore) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "books").Logger(),
	}
}

// CreateDraft validates and persists a new draft entry. Line-level rules
// (account exists, positive single-sided amount) apply immediately; the
// balance requirement is checked at posting, so a bookkeeper can save
// half-built entries.
func (s *Service) CreateDraft(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	if err := s.validateDraftIn(ctx, s.store, entry); err != nil {
		return nil, err
	}

	if entry.ID == "" {
		entry.ID = ledger.EntryID(uuid.NewString())
	}
	entry.Status = ledger.StatusDraft
	entry.ReversedEntryID = ""

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", string(entry.ID)).
		Str("number", entry.Number).
		Msg("draft entry created")
	return entry, nil
}

// UpdateDraft replaces header and lines of a draft entry. The status check
// and the rewrite share one transaction so a concurrent post cannot slip
// between them.
func (s *Service) UpdateDraft(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "update draft", Current: existing.Status, Required: ledger.StatusDraft}
		}

		if err := s.validateDraftIn(ctx, st, entry); err != nil {
			return err
		}
		entry.Status = ledger.StatusDraft
		entry.ReversedEntryID = existing.ReversedEntryID

		return st.ReplaceEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteDraft removes a draft entry and its lines.
func (s *Service) DeleteDraft(ctx context.Context, id ledger.EntryID) error {
	return s.store.WithTx(ctx, func(st ledger.Store) error {
		existing, err := st.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if !existing.Status.Mutable() {
			return &ledger.InvalidStateError{
				Operation: "delete draft", Current: existing.Status, Required: ledger.StatusDraft}
		}
		return st.DeleteEntry(ctx, id)
	})
}

// Post validates the double-entry balance and freezes the entry. The
// whole transition aborts if the entry is unbalanced; status stays draft.
func (s *Service) Post(ctx context.Context, id ledger.EntryID) error {
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		entry, err := st.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != ledger.StatusDraft {
			return &ledger.InvalidStateError{
				Operation: "post", Current: entry.Status, Required: ledger.StatusDraft}
		}
		if err := ledger.ValidateEntryBalance(entry.Lines); err != nil {
			return err
		}
		return st.SetEntryStatus(ctx, id, ledger.StatusDraft, ledger.StatusPosted)
	})

	if err != nil {
		s.log.Warn().Err(err).Str("entry_id", string(id)).Msg("entry posting aborted")
		return err
	}
	s.log.Info().Str("entry_id", string(id)).Msg("entry posted")
	return nil
}

// Cancel undoes a posted entry by creating a posted reversal entry with
// debit and credit swapped on every line, linked via reversed_entry_id,
// and marking the original cancelled, both in one transaction. The
// original's lines are never touched.
//
// A reversal entry is itself terminal: reversing a reversal would re-apply
// the original, which is done by posting the original anew, not by
// chaining cancellations.
func (s *Service) Cancel(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	var reversal *ledger.Entry

	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		entry, err := st.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != ledger.StatusPosted {
			return &ledger.InvalidStateError{
				Operation: "cancel", Current: entry.Status, Required: ledger.StatusPosted}
		}
		if entry.IsReversal() {
			return &ledger.InvalidStateError{
				Operation: "cancel reversal", Current: entry.Status, Required: ledger.StatusPosted}
		}

		reversal = &ledger.Entry{
			ID:              ledger.EntryID(uuid.NewString()),
			Number:          entry.Number + "-R",
			Date:            time.Now().UTC(),
			Description:     fmt.Sprintf("Reversal of %s", entry.Number),
			ReferenceType:   entry.ReferenceType,
			ReferenceID:     entry.ReferenceID,
			Status:          ledger.StatusPosted,
			ReversedEntryID: entry.ID,
			Lines:           ledger.ReverseLines(entry.Lines),
		}
		if err := st.InsertEntry(ctx, reversal); err != nil {
			return err
		}
		return st.SetEntryStatus(ctx, id, ledger.StatusPosted, ledger.StatusCancelled)
	})

	if err != nil {
		s.log.Warn().Err(err).Str("entry_id", string(id)).Msg("entry cancellation aborted")
		return nil, err
	}
	s.log.Info().
		Str("entry_id", string(id)).
		Str("reversal_id", string(reversal.ID)).
		Msg("entry cancelled by reversal")
	return reversal, nil
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// List returns all entries with lines.
func (s *Service) List(ctx context.Context) ([]ledger.Entry, error) {
	return s.store.ListEntries(ctx)
}

// validateDraftIn resolves accounts through st so it can run both outside
// and inside an open transaction.
func (s *Service) validateDraftIn(ctx context.Context, st ledger.Store, entry *ledger.Entry) error {
	if entry.Number == "" {
		return &ledger.ValidationError{Field: "document_number", Message: "entry number is required"}
	}
	if entry.Date.IsZero() {
		return &ledger.ValidationError{Field: "entry_date", Message: "entry date is required"}
	}
	if len(entry.Lines) == 0 {
		return &ledger.ValidationError{Field: "lines", Message: "entry has no lines"}
	}

	for _, l := range entry.Lines {
		if l.AccountID == "" {
			return &ledger.ValidationError{Field: "lines", Message: "line account is required"}
		}
		if l.Side != ledger.SideDebit && l.Side != ledger.SideCredit {
			return &ledger.ValidationError{Field: "lines", Message: "line side must be debit or credit"}
		}
		if !l.Amount.IsPositive() {
			return &ledger.ValidationError{Field: "lines", Message: "line amount must be positive"}
		}
		if _, err := st.GetAccount(ctx, l.AccountID); err != nil {
			if ledger.IsNotFound(err) {
				return &ledger.ValidationError{Field: "lines",
					Message: fmt.Sprintf("account %s does not exist", l.AccountID)}
			}
			return err
		}
	}
	return nil
}
