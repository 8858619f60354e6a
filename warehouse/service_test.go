package warehouse_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/ledgerd/ledger"
	"github.com/atlas-erp/ledgerd/store/sqlite"
	"github.com/atlas-erp/ledgerd/warehouse"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*warehouse.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return warehouse.NewService(store), store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func docDate() time.Time {
	return time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
}

func receipt(number, location string, qty string) *ledger.Document {
	return &ledger.Document{
		Kind:       ledger.KindGoodsReceipt,
		Number:     number,
		Date:       docDate(),
		LocationID: location,
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec(qty), UnitPrice: dec("10.00")},
		},
	}
}

func issue(number, location string, qty string) *ledger.Document {
	return &ledger.Document{
		Kind:       ledger.KindGoodsIssue,
		Number:     number,
		Date:       docDate(),
		LocationID: location,
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec(qty), UnitPrice: dec("10.00")},
		},
	}
}

// stockQty loads the position and returns its quantity, zero when absent.
func stockQty(t *testing.T, store *sqlite.Store, itemID, locationID string) decimal.Decimal {
	pos, err := store.GetStock(context.Background(), itemID, locationID)
	require.NoError(t, err)
	if pos == nil {
		return decimal.Zero
	}
	return pos.Quantity
}

// postedReceipt seeds stock by creating and posting a goods receipt.
func postedReceipt(t *testing.T, svc *warehouse.Service, number, location, qty string) *ledger.Document {
	ctx := context.Background()
	doc, err := svc.CreateDraft(ctx, receipt(number, location, qty))
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))
	return doc
}

// =============================================================================
// DRAFT LIFECYCLE TESTS
// =============================================================================

func TestCreateDraft_NoStockEffect(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Creating a draft receipt for 10 units
	// THEN: Stock is untouched until the document posts

	svc, store := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, receipt("WH-001", "loc-a", "10"))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, doc.Status)
	assert.True(t, doc.TotalValue.Equal(dec("100.00")))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").IsZero())
}

func TestCreateDraft_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*ledger.Document)
	}{
		{"missing number", func(d *ledger.Document) { d.Number = "" }},
		{"missing location", func(d *ledger.Document) { d.LocationID = "" }},
		{"no lines", func(d *ledger.Document) { d.Lines = nil }},
		{"zero quantity", func(d *ledger.Document) { d.Lines[0].Quantity = decimal.Zero }},
		{"negative quantity", func(d *ledger.Document) { d.Lines[0].Quantity = dec("-1") }},
		{"missing item", func(d *ledger.Document) { d.Lines[0].ItemID = "" }},
		{"unexpected target", func(d *ledger.Document) { d.TargetLocationID = "loc-b" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := receipt("WH-V", "loc-a", "10")
			tc.mutate(doc)
			_, err := svc.CreateDraft(ctx, doc)
			assert.True(t, errors.Is(err, ledger.ErrValidation), "expected validation error, got %v", err)
		})
	}
}

func TestUpdateDraft_RecomputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, receipt("WH-002", "loc-a", "10"))
	require.NoError(t, err)

	doc.Lines[0].Quantity = dec("4")
	doc.Lines[0].UnitPrice = dec("2.50")
	updated, err := svc.UpdateDraft(ctx, doc)
	require.NoError(t, err)

	assert.True(t, updated.TotalValue.Equal(dec("10.00")))
}

func TestUpdateDraft_PostedDocument_Rejected(t *testing.T) {
	// GIVEN: A posted receipt
	// WHEN: Editing it
	// THEN: InvalidStateError, posted documents are frozen

	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-003", "loc-a", "10")

	doc.Lines[0].Quantity = dec("99")
	_, err := svc.UpdateDraft(ctx, doc)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

func TestDeleteDraft_PostedDocument_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-004", "loc-a", "10")

	err := svc.DeleteDraft(ctx, doc.ID)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

func TestUpdateDraft_RacingPost_StockMatchesStoredLines(t *testing.T) {
	// GIVEN: A draft receipt updated by one caller while another posts it
	// WHEN: The two operations race
	// THEN: The posted document's stock always matches its stored lines,
	//       whichever order the store serialized them in

	svc, store := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		location := fmt.Sprintf("loc-r%d", i)
		doc, err := svc.CreateDraft(ctx, receipt(fmt.Sprintf("WH-R%d", i), location, "10"))
		require.NoError(t, err)

		update := receipt(doc.Number, location, "4")
		update.ID = doc.ID

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			// Always lands while the document is a draft or right after the
			// update; never fails on state.
			assert.NoError(t, svc.Post(ctx, doc.ID))
		}()
		go func() {
			defer wg.Done()
			// Rejected with InvalidStateError when the post lands first.
			_, _ = svc.UpdateDraft(ctx, update)
		}()
		wg.Wait()

		final, err := svc.Get(ctx, doc.ID)
		require.NoError(t, err)
		require.Equal(t, ledger.StatusPosted, final.Status)
		assert.True(t, stockQty(t, store, "item-1", location).Equal(final.Lines[0].Quantity))
	}
}

func TestCreateDraft_DuplicateNumberSameKind_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDraft(ctx, receipt("WH-005", "loc-a", "10"))
	require.NoError(t, err)

	_, err = svc.CreateDraft(ctx, receipt("WH-005", "loc-b", "5"))
	assert.True(t, errors.Is(err, ledger.ErrDuplicateNumber))

	// Same number under a different kind is a separate series
	_, err = svc.CreateDraft(ctx, issue("WH-005", "loc-a", "1"))
	assert.NoError(t, err)
}

// =============================================================================
// POSTING TESTS - STOCK EFFECTS
// =============================================================================

func TestPost_GoodsReceipt_IncreasesStock(t *testing.T) {
	svc, store := newTestService(t)

	postedReceipt(t, svc, "WH-010", "loc-a", "10")

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))
}

func TestPost_GoodsIssue_DecreasesStock(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-011", "loc-a", "10")

	doc, err := svc.CreateDraft(ctx, issue("WH-012", "loc-a", "4"))
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("6")))
}

func TestPost_GoodsIssue_InsufficientStock_Aborted(t *testing.T) {
	// GIVEN: 10 units on hand
	// WHEN: Issuing 15
	// THEN: NegativeStockError, stock and status are untouched

	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-013", "loc-a", "10")

	doc, err := svc.CreateDraft(ctx, issue("WH-014", "loc-a", "15"))
	require.NoError(t, err)

	err = svc.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrNegativeStock))

	var nse *ledger.NegativeStockError
	require.True(t, errors.As(err, &nse))
	assert.Equal(t, "item-1", nse.ItemID)
	assert.Equal(t, "loc-a", nse.LocationID)
	assert.True(t, nse.Available.Equal(dec("10")))
	assert.True(t, nse.Requested.Equal(dec("15")))

	// Nothing applied, document still draft
	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))
	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, reloaded.Status)
}

func TestPost_Transfer_MovesStockBetweenLocations(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-015", "loc-a", "10")

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:             ledger.KindTransfer,
		Number:           "WH-016",
		Date:             docDate(),
		LocationID:       "loc-a",
		TargetLocationID: "loc-b",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec("3"), UnitPrice: dec("10.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("7")))
	assert.True(t, stockQty(t, store, "item-1", "loc-b").Equal(dec("3")))
}

func TestPost_Transfer_SameSourceAndTarget_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:             ledger.KindTransfer,
		Number:           "WH-017",
		Date:             docDate(),
		LocationID:       "loc-a",
		TargetLocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec("1"), UnitPrice: dec("1.00")},
		},
	})
	assert.True(t, errors.Is(err, ledger.ErrValidation))
}

func TestPost_Inventory_SetsCountedQuantityAndRecordsDifference(t *testing.T) {
	// GIVEN: 10 units on system stock, a count finds 7
	// WHEN: Posting the inventory document
	// THEN: Stock reads 7 and the line records -3

	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-018", "loc-a", "10")

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindInventory,
		Number:     "WH-019",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", CountedQuantity: dec("7")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("7")))

	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Lines[0].DifferenceQuantity.Equal(dec("-3")))
}

func TestPost_Inventory_UnknownItem_StartsFromZero(t *testing.T) {
	// An inventory count may discover items with no stock row yet

	svc, store := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindInventory,
		Number:     "WH-020",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-9", CountedQuantity: dec("5")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-9", "loc-a").Equal(dec("5")))

	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Lines[0].DifferenceQuantity.Equal(dec("5")))
}

func TestCreateDraft_Inventory_DuplicateItem_Rejected(t *testing.T) {
	// A count listing the same item twice would make the recorded
	// difference ambiguous, so the draft is rejected up front

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindInventory,
		Number:     "WH-021",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", CountedQuantity: dec("7")},
			{ItemID: "item-1", CountedQuantity: dec("5")},
		},
	})
	assert.True(t, errors.Is(err, ledger.ErrValidation), "expected validation error, got %v", err)
}

func TestUpdateDraft_Inventory_DuplicateItem_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindInventory,
		Number:     "WH-022",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", CountedQuantity: dec("7")},
		},
	})
	require.NoError(t, err)

	doc.Lines = append(doc.Lines, ledger.DocumentLine{ItemID: "item-1", CountedQuantity: dec("5")})
	_, err = svc.UpdateDraft(ctx, doc)
	assert.True(t, errors.Is(err, ledger.ErrValidation), "expected validation error, got %v", err)
}

func TestPost_SetsPostedAtAndStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-021", "loc-a", "10")

	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, reloaded.Status)
	require.NotNil(t, reloaded.PostedAt)
	assert.WithinDuration(t, time.Now().UTC(), *reloaded.PostedAt, time.Minute)
}

func TestPost_Twice_SecondAttemptRejected(t *testing.T) {
	// GIVEN: A posted receipt for 10 units
	// WHEN: Posting it again
	// THEN: InvalidStateError and the stock effect is applied exactly once

	svc, store := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-022", "loc-a", "10")

	err := svc.Post(ctx, doc.ID)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))
}

func TestPost_SameItemTwiceInOneDocument_DeltasAggregate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindGoodsReceipt,
		Number:     "WH-023",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", Quantity: dec("4"), UnitPrice: dec("1.00")},
			{ItemID: "item-1", Quantity: dec("6"), UnitPrice: dec("1.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))
}

// =============================================================================
// CANCELLATION TESTS - REVERSED STOCK EFFECTS
// =============================================================================

func TestCancel_Receipt_ReversesStockEffect(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-030", "loc-a", "10")

	require.NoError(t, svc.Cancel(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").IsZero())

	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, reloaded.Status)
}

func TestCancel_Receipt_GoodsAlreadyIssued_Blocked(t *testing.T) {
	// GIVEN: A receipt for 10 of which 8 were already issued downstream
	// WHEN: Cancelling the receipt
	// THEN: NegativeStockError, reversal would drive stock to -8

	svc, store := newTestService(t)
	ctx := context.Background()
	rec := postedReceipt(t, svc, "WH-031", "loc-a", "10")

	iss, err := svc.CreateDraft(ctx, issue("WH-032", "loc-a", "8"))
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, iss.ID))

	err = svc.Cancel(ctx, rec.ID)
	assert.True(t, errors.Is(err, ledger.ErrNegativeStock))

	// Still posted, stock unchanged
	reloaded, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, reloaded.Status)
	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("2")))
}

func TestCancel_Issue_RestoresStock(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-033", "loc-a", "10")

	iss, err := svc.CreateDraft(ctx, issue("WH-034", "loc-a", "4"))
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, iss.ID))
	require.NoError(t, svc.Cancel(ctx, iss.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))
}

func TestCancel_Inventory_RestoresPreCountQuantity(t *testing.T) {
	// GIVEN: An inventory count that moved stock from 10 to 7
	// WHEN: Cancelling it
	// THEN: Stock returns to 10, the recorded difference stays for audit

	svc, store := newTestService(t)
	ctx := context.Background()
	postedReceipt(t, svc, "WH-035", "loc-a", "10")

	doc, err := svc.CreateDraft(ctx, &ledger.Document{
		Kind:       ledger.KindInventory,
		Number:     "WH-036",
		Date:       docDate(),
		LocationID: "loc-a",
		Lines: []ledger.DocumentLine{
			{ItemID: "item-1", CountedQuantity: dec("7")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, doc.ID))
	require.NoError(t, svc.Cancel(ctx, doc.ID))

	assert.True(t, stockQty(t, store, "item-1", "loc-a").Equal(dec("10")))

	reloaded, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Lines[0].DifferenceQuantity.Equal(dec("-3")))
}

func TestCancel_DraftDocument_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, receipt("WH-037", "loc-a", "10"))
	require.NoError(t, err)

	err = svc.Cancel(ctx, doc.ID)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

func TestCancel_Twice_SecondAttemptRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := postedReceipt(t, svc, "WH-038", "loc-a", "10")

	require.NoError(t, svc.Cancel(ctx, doc.ID))
	err := svc.Cancel(ctx, doc.ID)
	assert.True(t, errors.Is(err, ledger.ErrInvalidState))
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestList_FiltersByKind(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDraft(ctx, receipt("WH-040", "loc-a", "1"))
	require.NoError(t, err)
	_, err = svc.CreateDraft(ctx, issue("WH-041", "loc-a", "1"))
	require.NoError(t, err)

	receipts, err := svc.List(ctx, ledger.KindGoodsReceipt)
	require.NoError(t, err)
	assert.Len(t, receipts, 1)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
