/*
errors.go - Centralized error taxonomy for the posting engine

PURPOSE:
  All error types in one place. Domain packages wrap these with context;
  the API layer classifies them into HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors  - malformed or incomplete input, caller corrects
  2. State errors       - operation against the wrong lifecycle status
  3. Ledger errors      - double-entry and stock invariant violations
  4. Linkage errors     - post-commit cross-reference failures (reported,
                          never rolled back)

USAGE:
  if errors.Is(err, ledger.ErrNegativeStock) { ... }

  var nse *ledger.NegativeStockError
  if errors.As(err, &nse) { ... nse.ItemID ... }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or incomplete headers/lines.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when an operation is attempted against a
	// document in the wrong lifecycle status (e.g. posting a posted document).
	ErrInvalidState = errors.New("invalid document state")

	// ErrUnbalanced is returned when a GL entry's debits and credits differ
	// by more than the balance epsilon.
	ErrUnbalanced = errors.New("entry is not balanced")

	// ErrMixedLine is returned when a stored GL line carries both a debit
	// and a credit. Lines built through the typed constructors cannot
	// produce this; it guards data read back from storage.
	ErrMixedLine = errors.New("line has both debit and credit")

	// ErrNegativeStock is returned when a posting would drive a stock
	// position below zero. The whole posting is aborted.
	ErrNegativeStock = errors.New("insufficient stock")

	// ErrLinkagePartial is returned when the core posting committed but a
	// post-commit cross-reference step failed. Requires reconciliation.
	ErrLinkagePartial = errors.New("linkage step failed after commit")

	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateNumber is returned when a document number already exists
	// for the same document kind.
	ErrDuplicateNumber = errors.New("duplicate document number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports the status that blocked an operation.
type InvalidStateError struct {
	Operation string
	Current   Status
	Required  Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: status is %q, requires %q",
		e.Operation, e.Current, e.Required)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NegativeStockError names the offending item and location.
type NegativeStockError struct {
	ItemID     string
	LocationID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s at location %s: available %s, requested %s",
		e.ItemID, e.LocationID, e.Available, e.Requested)
}

func (e *NegativeStockError) Unwrap() error { return ErrNegativeStock }

// UnbalancedError carries the debit/credit difference.
type UnbalancedError struct {
	Difference decimal.Decimal // total debit minus total credit
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("entry is not balanced: debit-credit difference %s", e.Difference)
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalanced }

// MixedLineError names the line index.
type MixedLineError struct {
	LineIndex int
}

func (e *MixedLineError) Error() string {
	return fmt.Sprintf("line %d has both debit and credit", e.LineIndex)
}

func (e *MixedLineError) Unwrap() error { return ErrMixedLine }

// LinkageError describes a failed post-commit linkage step. The posting it
// followed is already durable and is NOT rolled back.
type LinkageError struct {
	Step string
	Err  error
}

func (e *LinkageError) Error() string {
	return fmt.Sprintf("linkage step %q failed after commit: %v", e.Step, e.Err)
}

func (e *LinkageError) Unwrap() error { return ErrLinkagePartial }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is recoverable by correcting input
// or refreshing stale client state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrUnbalanced) ||
		errors.Is(err, ErrMixedLine) ||
		errors.Is(err, ErrNegativeStock) ||
		errors.Is(err, ErrDuplicateNumber)
}

// IsConflict reports whether the error indicates a state conflict rather
// than malformed input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrUnbalanced) ||
		errors.Is(err, ErrMixedLine) ||
		errors.Is(err, ErrNegativeStock) ||
		errors.Is(err, ErrDuplicateNumber)
}

// IsNotFound reports whether the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
