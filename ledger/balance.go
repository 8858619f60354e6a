/*
balance.go - Double-entry validation and derived totals

PURPOSE:
  The rules that keep stored totals and ledger balances honest:
  - A GL entry posts only if total debit equals total credit within
    BalanceEpsilon.
  - A document's stored total always equals the sum of its lines' derived
    totals; totals are recomputed on every draft mutation, never patched.

The typed EntryLine constructors already make a mixed line unrepresentable
in memory. ValidateEntryBalance re-checks both invariants anyway because
lines round-trip through storage, where debit and credit are two columns.
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the largest tolerated debit/credit difference.
// Rounding in VAT splits can leave sub-cent residue; anything above one
// cent is a bookkeeping error.
var BalanceEpsilon = decimal.NewFromFloat(0.01)

// ValidateEntryBalance checks the double-entry invariants over a line set.
// Returns *MixedLineError or *UnbalancedError, or nil when the entry may post.
func ValidateEntryBalance(lines []EntryLine) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "lines", Message: "entry has no lines"}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, l := range lines {
		if !l.Debit().IsZero() && !l.Credit().IsZero() {
			return &MixedLineError{LineIndex: i}
		}
		if l.Amount.IsNegative() {
			return &ValidationError{Field: "lines", Message: "line amount must not be negative"}
		}
		totalDebit = totalDebit.Add(l.Debit())
		totalCredit = totalCredit.Add(l.Credit())
	}

	diff := totalDebit.Sub(totalCredit)
	if diff.Abs().GreaterThan(BalanceEpsilon) {
		return &UnbalancedError{Difference: diff}
	}
	return nil
}

// RecomputeDocumentLines derives per-line totals and returns the document
// total. Mutates the slice in place so stored lines always carry their
// derived values.
func RecomputeDocumentLines(lines []DocumentLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		lines[i].TotalPrice = lines[i].Quantity.Mul(lines[i].UnitPrice)
		total = total.Add(lines[i].TotalPrice)
	}
	return total
}

// InvoiceTotals holds the derived sums of an invoice's lines.
type InvoiceTotals struct {
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// RecomputeInvoiceLines derives per-line VAT and totals and returns the
// invoice-level sums. VAT is rounded per line to two decimal places, the
// way it appears on the printed document.
func RecomputeInvoiceLines(lines []InvoiceLine) InvoiceTotals {
	var t InvoiceTotals
	t.Subtotal = decimal.Zero
	t.VATAmount = decimal.Zero
	for i := range lines {
		net := lines[i].Quantity.Mul(lines[i].UnitPrice)
		vat := net.Mul(lines[i].VATRate).Div(decimal.NewFromInt(100)).Round(2)
		lines[i].VATAmount = vat
		lines[i].Total = net.Add(vat)
		t.Subtotal = t.Subtotal.Add(net)
		t.VATAmount = t.VATAmount.Add(vat)
	}
	t.Total = t.Subtotal.Add(t.VATAmount)
	return t
}

// ReverseLines returns a new line set with every side swapped. Same
// accounts, same amounts, opposite sides.
func ReverseLines(lines []EntryLine) []EntryLine {
	reversed := make([]EntryLine, len(lines))
	for i, l := range lines {
		reversed[i] = l.Reversed()
	}
	return reversed
}
