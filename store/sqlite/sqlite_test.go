package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/ledgerd/ledger"
	"github.com/atlas-erp/ledgerd/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testDoc(id, number string) *ledger.Document {
	return &ledger.Document{
		ID:         ledger.DocumentID(id),
		Kind:       ledger.KindGoodsReceipt,
		Number:     number,
		Date:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		LocationID: "loc-a",
		Status:     ledger.StatusDraft,
		TotalValue: dec("10.00"),
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("10.00"), TotalPrice: dec("10.00")},
		},
	}
}

// =============================================================================
// DOCUMENT ROUND-TRIP TESTS
// =============================================================================

func TestDocument_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDoc("doc-1", "WH-001")
	doc.PartnerID = "partner-1"
	doc.PurchaseOrderID = "po-1"
	doc.Notes = "first delivery"
	require.NoError(t, store.InsertDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, doc.Kind, got.Kind)
	assert.Equal(t, doc.Number, got.Number)
	assert.Equal(t, "partner-1", got.PartnerID)
	assert.Equal(t, "po-1", got.PurchaseOrderID)
	assert.Equal(t, "first delivery", got.Notes)
	assert.Nil(t, got.PostedAt)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].Quantity.Equal(dec("1")))
	assert.True(t, got.TotalValue.Equal(dec("10.00")))
}

func TestDocument_LinesKeepInsertionOrder(t *testing.T) {
	// Line order is meaningful on a printed document and must survive the
	// round-trip

	store := newTestStore(t)
	ctx := context.Background()

	doc := testDoc("doc-2", "WH-002")
	doc.Lines = []ledger.DocumentLine{
		{ItemID: "item-c", Quantity: dec("1"), UnitPrice: dec("1"), TotalPrice: dec("1")},
		{ItemID: "item-a", Quantity: dec("2"), UnitPrice: dec("1"), TotalPrice: dec("2")},
		{ItemID: "item-b", Quantity: dec("3"), UnitPrice: dec("1"), TotalPrice: dec("3")},
	}
	require.NoError(t, store.InsertDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-2")
	require.NoError(t, err)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, "item-c", got.Lines[0].ItemID)
	assert.Equal(t, "item-a", got.Lines[1].ItemID)
	assert.Equal(t, "item-b", got.Lines[2].ItemID)
}

func TestDocument_DuplicateNumberPerKind_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, testDoc("doc-3", "WH-003")))

	err := store.InsertDocument(ctx, testDoc("doc-4", "WH-003"))
	assert.True(t, errors.Is(err, ledger.ErrDuplicateNumber))

	// Different kind, same number is fine
	other := testDoc("doc-5", "WH-003")
	other.Kind = ledger.KindGoodsIssue
	assert.NoError(t, store.InsertDocument(ctx, other))
}

func TestDocument_GetMissing_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDocument(context.Background(), "missing")
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// STATUS COMPARE-AND-SET TESTS
// =============================================================================

func TestSetDocumentStatus_CASOnCurrentStatus(t *testing.T) {
	// GIVEN: A draft document
	// WHEN: Two posts race, the second sees a stale draft status
	// THEN: The first wins, the second gets InvalidStateError

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertDocument(ctx, testDoc("doc-10", "WH-010")))

	now := time.Now().UTC()
	require.NoError(t, store.SetDocumentStatus(ctx, "doc-10", ledger.StatusDraft, ledger.StatusPosted, &now))

	err := store.SetDocumentStatus(ctx, "doc-10", ledger.StatusDraft, ledger.StatusPosted, &now)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

func TestSetDocumentStatus_MissingDocument_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.SetDocumentStatus(context.Background(), "missing", ledger.StatusDraft, ledger.StatusPosted, nil)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestWithTx_ErrorRollsBackEverything(t *testing.T) {
	// GIVEN: A transaction inserting a document and adjusting stock
	// WHEN: The callback returns an error at the end
	// THEN: Neither write survives

	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(st ledger.Store) error {
		if err := st.InsertDocument(ctx, testDoc("doc-20", "WH-020")); err != nil {
			return err
		}
		if err := st.EnsureStock(ctx, "item-1", "loc-a"); err != nil {
			return err
		}
		if err := st.SetStockQuantity(ctx, "item-1", "loc-a", dec("5")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetDocument(ctx, "doc-20")
	assert.True(t, ledger.IsNotFound(err))

	pos, err := store.GetStock(ctx, "item-1", "loc-a")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestWithTx_CommitMakesWritesVisible(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(st ledger.Store) error {
		return st.InsertDocument(ctx, testDoc("doc-21", "WH-021"))
	})
	require.NoError(t, err)

	_, err = store.GetDocument(ctx, "doc-21")
	assert.NoError(t, err)
}

// =============================================================================
// STOCK TESTS
// =============================================================================

func TestStock_MissingPositionIsNilNotError(t *testing.T) {
	store := newTestStore(t)

	pos, err := store.GetStock(context.Background(), "item-x", "loc-x")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestStock_EnsureIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureStock(ctx, "item-1", "loc-a"))
	require.NoError(t, store.EnsureStock(ctx, "item-1", "loc-a"))

	pos, err := store.GetStock(ctx, "item-1", "loc-a")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity.IsZero())
}

func TestStock_NegativeQuantity_RejectedByConstraint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureStock(ctx, "item-1", "loc-a"))

	err := store.SetStockQuantity(ctx, "item-1", "loc-a", dec("-1"))
	assert.True(t, errors.Is(err, ledger.ErrNegativeStock))
}

func TestStock_AdjustAccumulatesExactly(t *testing.T) {
	// Decimal strings, no float drift

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureStock(ctx, "item-1", "loc-a"))

	require.NoError(t, store.AdjustStock(ctx, "item-1", "loc-a", dec("0.1")))
	require.NoError(t, store.AdjustStock(ctx, "item-1", "loc-a", dec("0.2")))

	pos, err := store.GetStock(ctx, "item-1", "loc-a")
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(dec("0.3")), "got %s", pos.Quantity)
}

// =============================================================================
// GL ENTRY TESTS
// =============================================================================

func TestEntry_RoundTripPreservesSides(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &ledger.Entry{
		ID:     "je-1",
		Number: "JE-001",
		Date:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Status: ledger.StatusDraft,
		Lines: []ledger.EntryLine{
			ledger.NewDebitLine("1200", dec("120.00")),
			ledger.NewCreditLine("4000", dec("120.00")),
		},
	}
	require.NoError(t, store.InsertEntry(ctx, entry))

	got, err := store.GetEntry(ctx, "je-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)

	assert.Equal(t, ledger.SideDebit, got.Lines[0].Side)
	assert.True(t, got.Lines[0].Debit().Equal(dec("120.00")))
	assert.True(t, got.Lines[0].Credit().IsZero())
	assert.Equal(t, ledger.SideCredit, got.Lines[1].Side)
	assert.True(t, got.Lines[1].Credit().Equal(dec("120.00")))
}

func TestEntry_ReferenceLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &ledger.Entry{
		ID:            "je-2",
		Number:        "JE-002",
		Date:          time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Status:        ledger.StatusPosted,
		ReferenceType: "invoice",
		ReferenceID:   "inv-1",
		Lines: []ledger.EntryLine{
			ledger.NewDebitLine("1200", dec("10")),
			ledger.NewCreditLine("4000", dec("10")),
		},
	}
	require.NoError(t, store.InsertEntry(ctx, entry))

	entries, err := store.ListEntriesByReference(ctx, "invoice", "inv-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryID("je-2"), entries[0].ID)

	entries, err = store.ListEntriesByReference(ctx, "invoice", "inv-other")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// INVOICE TESTS
// =============================================================================

func TestInvoice_PaymentRequiresPostedStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := &ledger.Invoice{
		ID:        "inv-1",
		Type:      ledger.InvoiceOutgoing,
		Number:    "INV-001",
		Date:      time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		PartnerID: "partner-1",
		Status:    ledger.StatusDraft,
		Subtotal:  dec("100"),
		VATAmount: dec("0"),
		Total:     dec("100"),
		Lines: []ledger.InvoiceLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("100"), Total: dec("100")},
		},
	}
	require.NoError(t, store.InsertInvoice(ctx, inv))

	err := store.AddInvoicePayment(ctx, "inv-1", dec("10"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))

	require.NoError(t, store.SetInvoiceStatus(ctx, "inv-1", ledger.StatusDraft, ledger.StatusPosted))
	require.NoError(t, store.AddInvoicePayment(ctx, "inv-1", dec("10")))
	require.NoError(t, store.AddInvoicePayment(ctx, "inv-1", dec("5.50")))

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(dec("15.50")))
}

func TestInvoice_WarehouseDocumentBackReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, testDoc("doc-30", "WH-030")))

	inv := &ledger.Invoice{
		ID:                  "inv-2",
		Type:                ledger.InvoiceIncoming,
		Number:              "P-001",
		Date:                time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		PartnerID:           "partner-1",
		Status:              ledger.StatusDraft,
		WarehouseDocumentID: "doc-30",
		Lines: []ledger.InvoiceLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("1"), Total: dec("1")},
		},
	}
	require.NoError(t, store.InsertInvoice(ctx, inv))

	got, err := store.GetInvoiceByWarehouseDocument(ctx, "doc-30")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.InvoiceID("inv-2"), got.ID)

	none, err := store.GetInvoiceByWarehouseDocument(ctx, "doc-unlinked")
	require.NoError(t, err)
	assert.Nil(t, none)
}
