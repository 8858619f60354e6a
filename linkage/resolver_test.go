package linkage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/ledgerd/invoicing"
	"github.com/atlas-erp/ledgerd/ledger"
	"github.com/atlas-erp/ledgerd/linkage"
	"github.com/atlas-erp/ledgerd/store/sqlite"
	"github.com/atlas-erp/ledgerd/warehouse"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestResolver(t *testing.T) (*linkage.Resolver, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver := linkage.NewResolver(store, linkage.PostingAccounts{
		Receivable: "1200",
		Payable:    "2100",
		Revenue:    "4000",
		Expense:    "5000",
		VATInput:   "1400",
		VATOutput:  "2200",
	})
	return resolver, store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func postedInvoice(invType ledger.InvoiceType, number string) *ledger.Invoice {
	return &ledger.Invoice{
		ID:        ledger.InvoiceID("inv-" + number),
		Type:      invType,
		Number:    number,
		Date:      time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		PartnerID: "partner-1",
		Status:    ledger.StatusPosted,
		Subtotal:  dec("100.00"),
		VATAmount: dec("20.00"),
		Total:     dec("120.00"),
	}
}

// =============================================================================
// ENTRY DERIVATION TESTS
// =============================================================================

func TestDeriveInvoiceEntry_Outgoing_ReceivableAgainstRevenue(t *testing.T) {
	// GIVEN: A posted sales invoice, 100 net + 20 VAT
	// WHEN: Deriving its journal entry
	// THEN: Debit receivable 120 / credit revenue 100, credit VAT 20

	resolver, _ := newTestResolver(t)

	entry, err := resolver.DeriveInvoiceEntry(postedInvoice(ledger.InvoiceOutgoing, "S-001"))
	require.NoError(t, err)

	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "1200", entry.Lines[0].AccountID)
	assert.True(t, entry.Lines[0].Debit().Equal(dec("120.00")))
	assert.Equal(t, "4000", entry.Lines[1].AccountID)
	assert.True(t, entry.Lines[1].Credit().Equal(dec("100.00")))
	assert.Equal(t, "2200", entry.Lines[2].AccountID)
	assert.True(t, entry.Lines[2].Credit().Equal(dec("20.00")))

	assert.NoError(t, ledger.ValidateEntryBalance(entry.Lines))
	assert.Equal(t, linkage.ReferenceInvoice, entry.ReferenceType)
	assert.Equal(t, "inv-S-001", entry.ReferenceID)
	assert.Equal(t, ledger.StatusPosted, entry.Status)
}

func TestDeriveInvoiceEntry_Incoming_ExpenseAgainstPayable(t *testing.T) {
	resolver, _ := newTestResolver(t)

	entry, err := resolver.DeriveInvoiceEntry(postedInvoice(ledger.InvoiceIncoming, "P-001"))
	require.NoError(t, err)

	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "5000", entry.Lines[0].AccountID)
	assert.True(t, entry.Lines[0].Debit().Equal(dec("100.00")))
	assert.Equal(t, "1400", entry.Lines[1].AccountID)
	assert.True(t, entry.Lines[1].Debit().Equal(dec("20.00")))
	assert.Equal(t, "2100", entry.Lines[2].AccountID)
	assert.True(t, entry.Lines[2].Credit().Equal(dec("120.00")))

	assert.NoError(t, ledger.ValidateEntryBalance(entry.Lines))
}

func TestDeriveInvoiceEntry_ZeroVAT_NoVATLine(t *testing.T) {
	resolver, _ := newTestResolver(t)

	inv := postedInvoice(ledger.InvoiceOutgoing, "S-002")
	inv.VATAmount = decimal.Zero
	inv.Total = dec("100.00")

	entry, err := resolver.DeriveInvoiceEntry(inv)
	require.NoError(t, err)

	require.Len(t, entry.Lines, 2)
	assert.NoError(t, ledger.ValidateEntryBalance(entry.Lines))
}

func TestDeriveInvoiceEntry_DraftInvoice_Rejected(t *testing.T) {
	resolver, _ := newTestResolver(t)

	inv := postedInvoice(ledger.InvoiceOutgoing, "S-003")
	inv.Status = ledger.StatusDraft

	_, err := resolver.DeriveInvoiceEntry(inv)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

func TestRecordInvoicePosting_Idempotent(t *testing.T) {
	// GIVEN: An invoice whose derived entry was already recorded
	// WHEN: Recording again
	// THEN: The existing entry is returned, no duplicate appears

	resolver, store := newTestResolver(t)
	ctx := context.Background()
	inv := postedInvoice(ledger.InvoiceOutgoing, "S-004")

	first, err := resolver.RecordInvoicePosting(ctx, inv)
	require.NoError(t, err)

	second, err := resolver.RecordInvoicePosting(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	entries, err := store.ListEntriesByReference(ctx, linkage.ReferenceInvoice, string(inv.ID))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// TRAVERSAL TESTS
// =============================================================================

func TestReceiptsForPurchaseOrder_ReturnsLinkedReceipts(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()
	wh := warehouse.NewService(store)

	mkReceipt := func(number, po string) {
		_, err := wh.CreateDraft(ctx, &ledger.Document{
			Kind:            ledger.KindGoodsReceipt,
			Number:          number,
			Date:            time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
			LocationID:      "loc-a",
			PurchaseOrderID: po,
			Lines: []ledger.DocumentLine{
				{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("1.00")},
			},
		})
		require.NoError(t, err)
	}
	mkReceipt("WH-100", "po-1")
	mkReceipt("WH-101", "po-1")
	mkReceipt("WH-102", "po-2")

	docs, err := resolver.ReceiptsForPurchaseOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = resolver.ReceiptsForPurchaseOrder(ctx, "")
	assert.True(t, errors.Is(err, ledger.ErrValidation))
}

func TestInvoiceForWarehouseDocument_ResolvesBackReference(t *testing.T) {
	// GIVEN: A goods receipt and an incoming invoice generated from it
	// WHEN: Resolving the back-reference
	// THEN: The invoice is found; a receipt without one resolves to nil

	resolver, store := newTestResolver(t)
	ctx := context.Background()
	wh := warehouse.NewService(store)
	inv := invoicing.NewService(store, resolver)

	doc, err := wh.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindGoodsReceipt,
		Number:     "WH-110",
		Date:       time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("1.00")},
		},
	})
	require.NoError(t, err)

	created, err := inv.CreateDraft(ctx, &ledger.Invoice{
		Type:                ledger.InvoiceIncoming,
		Number:              "P-110",
		Date:                time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		PartnerID:           "partner-1",
		WarehouseDocumentID: doc.ID,
		Lines: []ledger.InvoiceLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("1.00"), VATRate: dec("20")},
		},
	})
	require.NoError(t, err)

	found, err := resolver.InvoiceForWarehouseDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	// Unknown document is a not-found, not a nil
	_, err = resolver.InvoiceForWarehouseDocument(ctx, "missing")
	assert.True(t, ledger.IsNotFound(err))
}

func TestEntriesForReference_RequiresBothParts(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.EntriesForReference(ctx, "", "x")
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	_, err = resolver.EntriesForReference(ctx, "invoice", "")
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	entries, err := resolver.EntriesForReference(ctx, "invoice", "unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// STARTUP VALIDATION TESTS
// =============================================================================

func TestValidate_MissingAccount_Reported(t *testing.T) {
	resolver, store := newTestResolver(t)
	ctx := context.Background()

	// Empty chart of accounts: the first role fails
	err := resolver.Validate(ctx)
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	for _, a := range []ledger.Account{
		{ID: "1200", Code: "1200", Name: "Accounts receivable", Type: ledger.AccountAsset},
		{ID: "2100", Code: "2100", Name: "Accounts payable", Type: ledger.AccountLiability},
		{ID: "4000", Code: "4000", Name: "Revenue", Type: ledger.AccountRevenue},
		{ID: "5000", Code: "5000", Name: "Expenses", Type: ledger.AccountExpense},
		{ID: "1400", Code: "1400", Name: "Input VAT", Type: ledger.AccountAsset},
		{ID: "2200", Code: "2200", Name: "Output VAT", Type: ledger.AccountLiability},
	} {
		require.NoError(t, store.SaveAccount(ctx, a))
	}

	assert.NoError(t, resolver.Validate(ctx))
}
