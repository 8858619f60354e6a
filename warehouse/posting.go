/*
posting.go - The stock posting engine

PURPOSE:
  Translates a warehouse document into per-(item, location) stock deltas
  and applies them. Runs only inside the posting/cancellation transaction
  opened by the service; no partial application can survive a rollback.

NEGATIVE-STOCK GUARD:
  Every resulting quantity is checked before it is written. The first
  violation aborts the whole posting with a NegativeStockError naming the
  offending item and location. The guard applies in both directions:
  cancelling a receipt whose goods were already issued downstream is
  blocked the same way.

INVENTORY COUNTS:
  An inventory posting overwrites the position with the counted quantity
  and records the signed counted - system difference on the line. Its
  reversal subtracts that recorded difference.
*/
package warehouse

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/atlas-erp/ledgerd/ledger"
)

type direction int

const (
	directionApply   direction = 1  // post
	directionReverse direction = -1 // cancel
)

type positionKey struct {
	ItemID     string
	LocationID string
}

// applyStockEffects applies (or reverses) a document's stock effect using
// the transaction-scoped store.
func applyStockEffects(ctx context.Context, st ledger.Store, doc *ledger.Document, dir direction) error {
	if doc.Kind == ledger.KindInventory {
		return applyInventory(ctx, st, doc, dir)
	}

	deltas := collectDeltas(doc, dir)

	// Deterministic application order keeps concurrent postings from
	// deadlocking on row locks in stores that take them per statement.
	keys := make([]positionKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ItemID != keys[j].ItemID {
			return keys[i].ItemID < keys[j].ItemID
		}
		return keys[i].LocationID < keys[j].LocationID
	})

	for _, k := range keys {
		delta := deltas[k]
		if err := st.EnsureStock(ctx, k.ItemID, k.LocationID); err != nil {
			return err
		}
		pos, err := st.GetStock(ctx, k.ItemID, k.LocationID)
		if err != nil {
			return err
		}

		if pos.Quantity.Add(delta).IsNegative() {
			return &ledger.NegativeStockError{
				ItemID:     k.ItemID,
				LocationID: k.LocationID,
				Available:  pos.Quantity,
				Requested:  delta.Neg(),
			}
		}
		if err := st.AdjustStock(ctx, k.ItemID, k.LocationID, delta); err != nil {
			return err
		}
	}
	return nil
}

// collectDeltas aggregates line quantities per position. A document may
// list the same item twice; its net effect is applied once.
func collectDeltas(doc *ledger.Document, dir direction) map[positionKey]decimal.Decimal {
	sign := decimal.NewFromInt(int64(dir))
	deltas := make(map[positionKey]decimal.Decimal)

	add := func(itemID, locationID string, qty decimal.Decimal) {
		k := positionKey{ItemID: itemID, LocationID: locationID}
		deltas[k] = deltas[k].Add(qty.Mul(sign))
	}

	for _, l := range doc.Lines {
		switch doc.Kind {
		case ledger.KindGoodsReceipt:
			add(l.ItemID, doc.LocationID, l.Quantity)
		case ledger.KindGoodsIssue:
			add(l.ItemID, doc.LocationID, l.Quantity.Neg())
		case ledger.KindTransfer:
			add(l.ItemID, doc.LocationID, l.Quantity.Neg())
			add(l.ItemID, doc.TargetLocationID, l.Quantity)
		}
	}
	return deltas
}

func applyInventory(ctx context.Context, st ledger.Store, doc *ledger.Document, dir direction) error {
	for _, l := range doc.Lines {
		if err := st.EnsureStock(ctx, l.ItemID, doc.LocationID); err != nil {
			return err
		}
		pos, err := st.GetStock(ctx, l.ItemID, doc.LocationID)
		if err != nil {
			return err
		}

		if dir == directionApply {
			difference := l.CountedQuantity.Sub(pos.Quantity)
			if err := st.SetStockQuantity(ctx, l.ItemID, doc.LocationID, l.CountedQuantity); err != nil {
				return err
			}
			if err := st.SetLineDifference(ctx, doc.ID, l.ItemID, difference); err != nil {
				return err
			}
			continue
		}

		// Reversal: subtract the difference recorded at posting time. The
		// difference stays on the line as audit of what the count found.
		restored := pos.Quantity.Sub(l.DifferenceQuantity)
		if restored.IsNegative() {
			return &ledger.NegativeStockError{
				ItemID:     l.ItemID,
				LocationID: doc.LocationID,
				Available:  pos.Quantity,
				Requested:  l.DifferenceQuantity,
			}
		}
		if err := st.SetStockQuantity(ctx, l.ItemID, doc.LocationID, restored); err != nil {
			return err
		}
	}
	return nil
}
