package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-erp/ledgerd/ledger"
)

// =============================================================================
// WAREHOUSE DOCUMENT STORE (ledger.DocumentStore interface)
// =============================================================================

func (s *Store) InsertDocument(ctx context.Context, doc *ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertDocument(ctx, s.db, doc)
}

func (s *Store) insertDocument(ctx context.Context, q dbtx, doc *ledger.Document) error {
	query := `
		INSERT INTO warehouse_documents
		(id, document_type, document_number, document_date, location_id,
		 target_location_id, partner_id, status, total_value, posted_at,
		 notes, purchase_order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var postedAt *string
	if doc.PostedAt != nil {
		t := doc.PostedAt.UTC().Format(time.RFC3339)
		postedAt = &t
	}

	_, err := q.ExecContext(ctx, query,
		doc.ID,
		doc.Kind,
		doc.Number,
		doc.Date.UTC().Format(time.RFC3339),
		doc.LocationID,
		nullString(doc.TargetLocationID),
		nullString(doc.PartnerID),
		doc.Status,
		doc.TotalValue.String(),
		postedAt,
		nullString(doc.Notes),
		nullString(doc.PurchaseOrderID),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return s.insertDocumentLines(ctx, q, doc.ID, doc.Lines)
}

func (s *Store) insertDocumentLines(ctx context.Context, q dbtx, id ledger.DocumentID, lines []ledger.DocumentLine) error {
	query := `
		INSERT INTO warehouse_document_lines
		(document_id, item_id, quantity, unit_price, total_price,
		 counted_quantity, difference_quantity, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, l := range lines {
		_, err := q.ExecContext(ctx, query,
			id,
			l.ItemID,
			l.Quantity.String(),
			l.UnitPrice.String(),
			l.TotalPrice.String(),
			l.CountedQuantity.String(),
			l.DifferenceQuantity.String(),
			nullString(l.Notes),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document line: %w", err)
		}
	}
	return nil
}

func (s *Store) ReplaceDocument(ctx context.Context, doc *ledger.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceDocument(ctx, s.db, doc)
}

func (s *Store) replaceDocument(ctx context.Context, q dbtx, doc *ledger.Document) error {
	query := `
		UPDATE warehouse_documents SET
			document_number = ?, document_date = ?, location_id = ?,
			target_location_id = ?, partner_id = ?, total_value = ?,
			notes = ?, purchase_order_id = ?
		WHERE id = ?
	`

	res, err := q.ExecContext(ctx, query,
		doc.Number,
		doc.Date.UTC().Format(time.RFC3339),
		doc.LocationID,
		nullString(doc.TargetLocationID),
		nullString(doc.PartnerID),
		doc.TotalValue.String(),
		nullString(doc.Notes),
		nullString(doc.PurchaseOrderID),
		doc.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	if _, err := q.ExecContext(ctx,
		"DELETE FROM warehouse_document_lines WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to replace document lines: %w", err)
	}
	return s.insertDocumentLines(ctx, q, doc.ID, doc.Lines)
}

func (s *Store) DeleteDocument(ctx context.Context, id ledger.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteDocument(ctx, s.db, id)
}

func (s *Store) deleteDocument(ctx context.Context, q dbtx, id ledger.DocumentID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM warehouse_documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id ledger.DocumentID) (*ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDocument(ctx, s.db, id)
}

func (s *Store) getDocument(ctx context.Context, q dbtx, id ledger.DocumentID) (*ledger.Document, error) {
	query := `
		SELECT id, document_type, document_number, document_date, location_id,
		       target_location_id, partner_id, status, total_value, posted_at,
		       notes, purchase_order_id
		FROM warehouse_documents
		WHERE id = ?
	`

	doc, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Lines, err = s.loadDocumentLines(ctx, q, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) loadDocumentLines(ctx context.Context, q dbtx, id ledger.DocumentID) ([]ledger.DocumentLine, error) {
	query := `
		SELECT item_id, quantity, unit_price, total_price,
		       counted_quantity, difference_quantity, notes
		FROM warehouse_document_lines
		WHERE document_id = ?
		ORDER BY rowid ASC
	`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query document lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.DocumentLine
	for rows.Next() {
		var (
			l                         ledger.DocumentLine
			quantity, price, total    string
			counted, difference, note sql.NullString
		)
		if err := rows.Scan(&l.ItemID, &quantity, &price, &total,
			&counted, &difference, &note); err != nil {
			return nil, fmt.Errorf("failed to scan document line: %w", err)
		}
		l.Quantity = ledger.MustParseDecimal(quantity)
		l.UnitPrice = ledger.MustParseDecimal(price)
		l.TotalPrice = ledger.MustParseDecimal(total)
		l.CountedQuantity = ledger.MustParseDecimal(counted.String)
		l.DifferenceQuantity = ledger.MustParseDecimal(difference.String)
		l.Notes = note.String
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*ledger.Document, error) {
	var (
		doc                            ledger.Document
		date, totalValue               string
		target, partner, postedAt      sql.NullString
		notes, purchaseOrder           sql.NullString
	)

	err := row.Scan(&doc.ID, &doc.Kind, &doc.Number, &date, &doc.LocationID,
		&target, &partner, &doc.Status, &totalValue, &postedAt,
		&notes, &purchaseOrder)
	if err != nil {
		return nil, err
	}

	doc.Date, _ = time.Parse(time.RFC3339, date)
	doc.TargetLocationID = target.String
	doc.PartnerID = partner.String
	doc.TotalValue = ledger.MustParseDecimal(totalValue)
	doc.Notes = notes.String
	doc.PurchaseOrderID = purchaseOrder.String
	if postedAt.Valid {
		t, _ := time.Parse(time.RFC3339, postedAt.String)
		doc.PostedAt = &t
	}
	return &doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, kind ledger.DocumentKind) ([]ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDocuments(ctx, s.db, kind)
}

func (s *Store) listDocuments(ctx context.Context, q dbtx, kind ledger.DocumentKind) ([]ledger.Document, error) {
	query := `
		SELECT id, document_type, document_number, document_date, location_id,
		       target_location_id, partner_id, status, total_value, posted_at,
		       notes, purchase_order_id
		FROM warehouse_documents
	`
	var args []any
	if kind != "" {
		query += " WHERE document_type = ?"
		args = append(args, kind)
	}
	query += " ORDER BY document_date DESC, document_number DESC"

	return s.queryDocuments(ctx, q, query, args...)
}

func (s *Store) ListDocumentsByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDocumentsByPurchaseOrder(ctx, s.db, purchaseOrderID)
}

func (s *Store) listDocumentsByPurchaseOrder(ctx context.Context, q dbtx, purchaseOrderID string) ([]ledger.Document, error) {
	query := `
		SELECT id, document_type, document_number, document_date, location_id,
		       target_location_id, partner_id, status, total_value, posted_at,
		       notes, purchase_order_id
		FROM warehouse_documents
		WHERE purchase_order_id = ?
		ORDER BY document_date ASC
	`
	return s.queryDocuments(ctx, q, query, purchaseOrderID)
}

func (s *Store) queryDocuments(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Document, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []ledger.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Header listings do not need lines; GetDocument loads them.
	return docs, nil
}

func (s *Store) SetDocumentStatus(ctx context.Context, id ledger.DocumentID, from, to ledger.Status, postedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDocumentStatus(ctx, s.db, id, from, to, postedAt)
}

// setDocumentStatus is the at-most-once posting guard: the status
// precondition and the update are one statement, so of two concurrent
// transitions exactly one matches the WHERE clause.
func (s *Store) setDocumentStatus(ctx context.Context, q dbtx, id ledger.DocumentID, from, to ledger.Status, postedAt *time.Time) error {
	var postedAtStr *string
	if postedAt != nil {
		t := postedAt.UTC().Format(time.RFC3339)
		postedAtStr = &t
	}

	res, err := q.ExecContext(ctx,
		"UPDATE warehouse_documents SET status = ?, posted_at = COALESCE(?, posted_at) WHERE id = ? AND status = ?",
		to, postedAtStr, id, from)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current ledger.Status
	err = q.QueryRowContext(ctx,
		"SELECT status FROM warehouse_documents WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &ledger.InvalidStateError{Operation: transitionName(to), Current: current, Required: from}
}

func transitionName(to ledger.Status) string {
	if to == ledger.StatusPosted {
		return "post"
	}
	return "cancel"
}

func (s *Store) SetLineDifference(ctx context.Context, id ledger.DocumentID, itemID string, difference decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLineDifference(ctx, s.db, id, itemID, difference)
}

func (s *Store) setLineDifference(ctx context.Context, q dbtx, id ledger.DocumentID, itemID string, difference decimal.Decimal) error {
	_, err := q.ExecContext(ctx,
		"UPDATE warehouse_document_lines SET difference_quantity = ? WHERE document_id = ? AND item_id = ?",
		difference.String(), id, itemID)
	if err != nil {
		return fmt.Errorf("failed to set line difference: %w", err)
	}
	return nil
}

// =============================================================================
// STOCK STORE (ledger.StockStore interface)
// =============================================================================

func (s *Store) GetStock(ctx context.Context, itemID, locationID string) (*ledger.StockPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getStock(ctx, s.db, itemID, locationID)
}

func (s *Store) getStock(ctx context.Context, q dbtx, itemID, locationID string) (*ledger.StockPosition, error) {
	var (
		pos                 ledger.StockPosition
		quantity, reserved  string
		updatedAt           string
	)

	err := q.QueryRowContext(ctx,
		"SELECT item_id, location_id, quantity, reserved_quantity, updated_at FROM stock WHERE item_id = ? AND location_id = ?",
		itemID, locationID,
	).Scan(&pos.ItemID, &pos.LocationID, &quantity, &reserved, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}

	pos.Quantity = ledger.MustParseDecimal(quantity)
	pos.ReservedQuantity = ledger.MustParseDecimal(reserved)
	pos.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &pos, nil
}

func (s *Store) EnsureStock(ctx context.Context, itemID, locationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureStock(ctx, s.db, itemID, locationID)
}

func (s *Store) ensureStock(ctx context.Context, q dbtx, itemID, locationID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO stock (item_id, location_id, quantity, reserved_quantity, updated_at)
		VALUES (?, ?, '0', '0', ?)
		ON CONFLICT(item_id, location_id) DO NOTHING
	`, itemID, locationID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to ensure stock position: %w", err)
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, itemID, locationID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStock(ctx, s.db, itemID, locationID, delta)
}

// adjustStock does its decimal arithmetic in Go: quantities are stored as
// TEXT so SQL-side addition would go through floats.
func (s *Store) adjustStock(ctx context.Context, q dbtx, itemID, locationID string, delta decimal.Decimal) error {
	pos, err := s.getStock(ctx, q, itemID, locationID)
	if err != nil {
		return err
	}
	if pos == nil {
		return ledger.ErrNotFound
	}
	return s.setStockQuantity(ctx, q, itemID, locationID, pos.Quantity.Add(delta))
}

func (s *Store) SetStockQuantity(ctx context.Context, itemID, locationID string, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStockQuantity(ctx, s.db, itemID, locationID, quantity)
}

func (s *Store) setStockQuantity(ctx context.Context, q dbtx, itemID, locationID string, quantity decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE stock SET quantity = ?, updated_at = ? WHERE item_id = ? AND location_id = ?",
		quantity.String(), time.Now().UTC().Format(time.RFC3339), itemID, locationID)
	if err != nil {
		if isCheckConstraintError(err) {
			return &ledger.NegativeStockError{ItemID: itemID, LocationID: locationID,
				Available: decimal.Zero, Requested: quantity.Neg()}
		}
		return fmt.Errorf("failed to set stock quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) ListStock(ctx context.Context) ([]ledger.StockPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listStock(ctx, s.db)
}

func (s *Store) listStock(ctx context.Context, q dbtx) ([]ledger.StockPosition, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT item_id, location_id, quantity, reserved_quantity, updated_at FROM stock ORDER BY item_id, location_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	defer rows.Close()

	var positions []ledger.StockPosition
	for rows.Next() {
		var (
			pos                ledger.StockPosition
			quantity, reserved string
			updatedAt          string
		)
		if err := rows.Scan(&pos.ItemID, &pos.LocationID, &quantity, &reserved, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock position: %w", err)
		}
		pos.Quantity = ledger.MustParseDecimal(quantity)
		pos.ReservedQuantity = ledger.MustParseDecimal(reserved)
		pos.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// =============================================================================
// TX-SCOPED DELEGATES (documents + stock)
// =============================================================================

func (ts *txStore) InsertDocument(ctx context.Context, doc *ledger.Document) error {
	return ts.parent.insertDocument(ctx, ts.tx, doc)
}

func (ts *txStore) ReplaceDocument(ctx context.Context, doc *ledger.Document) error {
	return ts.parent.replaceDocument(ctx, ts.tx, doc)
}

func (ts *txStore) DeleteDocument(ctx context.Context, id ledger.DocumentID) error {
	return ts.parent.deleteDocument(ctx, ts.tx, id)
}

func (ts *txStore) GetDocument(ctx context.Context, id ledger.DocumentID) (*ledger.Document, error) {
	return ts.parent.getDocument(ctx, ts.tx, id)
}

func (ts *txStore) ListDocuments(ctx context.Context, kind ledger.DocumentKind) ([]ledger.Document, error) {
	return ts.parent.listDocuments(ctx, ts.tx, kind)
}

func (ts *txStore) ListDocumentsByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]ledger.Document, error) {
	return ts.parent.listDocumentsByPurchaseOrder(ctx, ts.tx, purchaseOrderID)
}

func (ts *txStore) SetDocumentStatus(ctx context.Context, id ledger.DocumentID, from, to ledger.Status, postedAt *time.Time) error {
	return ts.parent.setDocumentStatus(ctx, ts.tx, id, from, to, postedAt)
}

func (ts *txStore) SetLineDifference(ctx context.Context, id ledger.DocumentID, itemID string, difference decimal.Decimal) error {
	return ts.parent.setLineDifference(ctx, ts.tx, id, itemID, difference)
}

func (ts *txStore) GetStock(ctx context.Context, itemID, locationID string) (*ledger.StockPosition, error) {
	return ts.parent.getStock(ctx, ts.tx, itemID, locationID)
}

func (ts *txStore) EnsureStock(ctx context.Context, itemID, locationID string) error {
	return ts.parent.ensureStock(ctx, ts.tx, itemID, locationID)
}

func (ts *txStore) AdjustStock(ctx context.Context, itemID, locationID string, delta decimal.Decimal) error {
	return ts.parent.adjustStock(ctx, ts.tx, itemID, locationID, delta)
}

func (ts *txStore) SetStockQuantity(ctx context.Context, itemID, locationID string, quantity decimal.Decimal) error {
	return ts.parent.setStockQuantity(ctx, ts.tx, itemID, locationID, quantity)
}

func (ts *txStore) ListStock(ctx context.Context) ([]ledger.StockPosition, error) {
	return ts.parent.listStock(ctx, ts.tx)
}
