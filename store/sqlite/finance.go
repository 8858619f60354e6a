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
// GL STORE (ledger.GLStore interface)
// =============================================================================

func (s *Store) InsertEntry(ctx context.Context, entry *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEntry(ctx, s.db, entry)
}

func (s *Store) insertEntry(ctx context.Context, q dbtx, entry *ledger.Entry) error {
	query := `
		INSERT INTO gl_entries
		(id, document_number, entry_date, description, reference_type,
		 reference_id, status, reversed_entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		entry.ID,
		entry.Number,
		entry.Date.UTC().Format(time.RFC3339),
		nullString(entry.Description),
		nullString(entry.ReferenceType),
		nullString(entry.ReferenceID),
		entry.Status,
		nullString(string(entry.ReversedEntryID)),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return s.insertEntryLines(ctx, q, entry.ID, entry.Lines)
}

func (s *Store) insertEntryLines(ctx context.Context, q dbtx, id ledger.EntryID, lines []ledger.EntryLine) error {
	query := `
		INSERT INTO gl_entry_lines
		(entry_id, account_id, debit, credit, partner_id, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, l := range lines {
		_, err := q.ExecContext(ctx, query,
			id,
			l.AccountID,
			l.Debit().String(),
			l.Credit().String(),
			nullString(l.PartnerID),
			nullString(l.Description),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry line: %w", err)
		}
	}
	return nil
}

func (s *Store) ReplaceEntry(ctx context.Context, entry *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceEntry(ctx, s.db, entry)
}

func (s *Store) replaceEntry(ctx context.Context, q dbtx, entry *ledger.Entry) error {
	query := `
		UPDATE gl_entries SET
			document_number = ?, entry_date = ?, description = ?,
			reference_type = ?, reference_id = ?
		WHERE id = ?
	`

	res, err := q.ExecContext(ctx, query,
		entry.Number,
		entry.Date.UTC().Format(time.RFC3339),
		nullString(entry.Description),
		nullString(entry.ReferenceType),
		nullString(entry.ReferenceID),
		entry.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	if _, err := q.ExecContext(ctx,
		"DELETE FROM gl_entry_lines WHERE entry_id = ?", entry.ID); err != nil {
		return fmt.Errorf("failed to replace entry lines: %w", err)
	}
	return s.insertEntryLines(ctx, q, entry.ID, entry.Lines)
}

func (s *Store) DeleteEntry(ctx context.Context, id ledger.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEntry(ctx, s.db, id)
}

func (s *Store) deleteEntry(ctx context.Context, q dbtx, id ledger.EntryID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM gl_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEntry(ctx, s.db, id)
}

func (s *Store) getEntry(ctx context.Context, q dbtx, id ledger.EntryID) (*ledger.Entry, error) {
	query := `
		SELECT id, document_number, entry_date, description, reference_type,
		       reference_id, status, reversed_entry_id
		FROM gl_entries
		WHERE id = ?
	`

	entry, err := scanEntry(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	entry.Lines, err = s.loadEntryLines(ctx, q, entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// loadEntryLines maps the debit/credit columns back to the typed side. A
// row with both sides set violates the wire contract and surfaces as
// MixedLineError rather than being silently folded.
func (s *Store) loadEntryLines(ctx context.Context, q dbtx, id ledger.EntryID) ([]ledger.EntryLine, error) {
	query := `
		SELECT account_id, debit, credit, partner_id, description
		FROM gl_entry_lines
		WHERE entry_id = ?
		ORDER BY rowid ASC
	`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.EntryLine
	for rows.Next() {
		var (
			accountID, debit, credit string
			partner, description     sql.NullString
		)
		if err := rows.Scan(&accountID, &debit, &credit, &partner, &description); err != nil {
			return nil, fmt.Errorf("failed to scan entry line: %w", err)
		}

		d := ledger.MustParseDecimal(debit)
		c := ledger.MustParseDecimal(credit)
		if !d.IsZero() && !c.IsZero() {
			return nil, &ledger.MixedLineError{LineIndex: len(lines)}
		}

		l := ledger.NewDebitLine(accountID, d)
		if d.IsZero() {
			l = ledger.NewCreditLine(accountID, c)
		}
		l.PartnerID = partner.String
		l.Description = description.String
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		entry                     ledger.Entry
		date                      string
		description, refType      sql.NullString
		refID, reversedID         sql.NullString
	)

	err := row.Scan(&entry.ID, &entry.Number, &date, &description,
		&refType, &refID, &entry.Status, &reversedID)
	if err != nil {
		return nil, err
	}

	entry.Date, _ = time.Parse(time.RFC3339, date)
	entry.Description = description.String
	entry.ReferenceType = refType.String
	entry.ReferenceID = refID.String
	entry.ReversedEntryID = ledger.EntryID(reversedID.String)
	return &entry, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntries(ctx, s.db)
}

func (s *Store) listEntries(ctx context.Context, q dbtx) ([]ledger.Entry, error) {
	query := `
		SELECT id, document_number, entry_date, description, reference_type,
		       reference_id, status, reversed_entry_id
		FROM gl_entries
		ORDER BY entry_date DESC, document_number DESC
	`
	return s.queryEntries(ctx, q, query)
}

func (s *Store) ListEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntriesByReference(ctx, s.db, referenceType, referenceID)
}

func (s *Store) listEntriesByReference(ctx context.Context, q dbtx, referenceType, referenceID string) ([]ledger.Entry, error) {
	query := `
		SELECT id, document_number, entry_date, description, reference_type,
		       reference_id, status, reversed_entry_id
		FROM gl_entries
		WHERE reference_type = ? AND reference_id = ?
		ORDER BY entry_date ASC
	`
	return s.queryEntries(ctx, q, query, referenceType, referenceID)
}

func (s *Store) queryEntries(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Lines, err = s.loadEntryLines(ctx, q, entries[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *Store) SetEntryStatus(ctx context.Context, id ledger.EntryID, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setEntryStatus(ctx, s.db, id, from, to)
}

func (s *Store) setEntryStatus(ctx context.Context, q dbtx, id ledger.EntryID, from, to ledger.Status) error {
	res, err := q.ExecContext(ctx,
		"UPDATE gl_entries SET status = ? WHERE id = ? AND status = ?",
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update entry status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current ledger.Status
	err = q.QueryRowContext(ctx,
		"SELECT status FROM gl_entries WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &ledger.InvalidStateError{Operation: transitionName(to), Current: current, Required: from}
}

// =============================================================================
// INVOICE STORE (ledger.InvoiceStore interface)
// =============================================================================

func (s *Store) InsertInvoice(ctx context.Context, inv *ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertInvoice(ctx, s.db, inv)
}

func (s *Store) insertInvoice(ctx context.Context, q dbtx, inv *ledger.Invoice) error {
	query := `
		INSERT INTO invoices
		(id, invoice_type, invoice_number, invoice_date, due_date, partner_id,
		 status, subtotal, vat_amount, total, paid_amount, warehouse_document_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var dueDate *string
	if inv.DueDate != nil {
		t := inv.DueDate.UTC().Format(time.RFC3339)
		dueDate = &t
	}

	_, err := q.ExecContext(ctx, query,
		inv.ID,
		inv.Type,
		inv.Number,
		inv.Date.UTC().Format(time.RFC3339),
		dueDate,
		inv.PartnerID,
		inv.Status,
		inv.Subtotal.String(),
		inv.VATAmount.String(),
		inv.Total.String(),
		inv.PaidAmount.String(),
		nullString(string(inv.WarehouseDocumentID)),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return s.insertInvoiceLines(ctx, q, inv.ID, inv.Lines)
}

func (s *Store) insertInvoiceLines(ctx context.Context, q dbtx, id ledger.InvoiceID, lines []ledger.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines
		(invoice_id, item_id, quantity, unit_price, vat_rate_id, vat_amount, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, l := range lines {
		_, err := q.ExecContext(ctx, query,
			id,
			l.ItemID,
			l.Quantity.String(),
			l.UnitPrice.String(),
			nullString(l.VATRateID),
			l.VATAmount.String(),
			l.Total.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}
	return nil
}

func (s *Store) ReplaceInvoice(ctx context.Context, inv *ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceInvoice(ctx, s.db, inv)
}

func (s *Store) replaceInvoice(ctx context.Context, q dbtx, inv *ledger.Invoice) error {
	query := `
		UPDATE invoices SET
			invoice_number = ?, invoice_date = ?, due_date = ?, partner_id = ?,
			subtotal = ?, vat_amount = ?, total = ?, warehouse_document_id = ?
		WHERE id = ?
	`

	var dueDate *string
	if inv.DueDate != nil {
		t := inv.DueDate.UTC().Format(time.RFC3339)
		dueDate = &t
	}

	res, err := q.ExecContext(ctx, query,
		inv.Number,
		inv.Date.UTC().Format(time.RFC3339),
		dueDate,
		inv.PartnerID,
		inv.Subtotal.String(),
		inv.VATAmount.String(),
		inv.Total.String(),
		nullString(string(inv.WarehouseDocumentID)),
		inv.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	if _, err := q.ExecContext(ctx,
		"DELETE FROM invoice_lines WHERE invoice_id = ?", inv.ID); err != nil {
		return fmt.Errorf("failed to replace invoice lines: %w", err)
	}
	return s.insertInvoiceLines(ctx, q, inv.ID, inv.Lines)
}

func (s *Store) DeleteInvoice(ctx context.Context, id ledger.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteInvoice(ctx, s.db, id)
}

func (s *Store) deleteInvoice(ctx context.Context, q dbtx, id ledger.InvoiceID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getInvoice(ctx, s.db, id)
}

func (s *Store) getInvoice(ctx context.Context, q dbtx, id ledger.InvoiceID) (*ledger.Invoice, error) {
	query := `
		SELECT id, invoice_type, invoice_number, invoice_date, due_date,
		       partner_id, status, subtotal, vat_amount, total, paid_amount,
		       warehouse_document_id
		FROM invoices
		WHERE id = ?
	`

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inv.Lines, err = s.loadInvoiceLines(ctx, q, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) loadInvoiceLines(ctx context.Context, q dbtx, id ledger.InvoiceID) ([]ledger.InvoiceLine, error) {
	query := `
		SELECT item_id, quantity, unit_price, vat_rate_id, vat_amount, total
		FROM invoice_lines
		WHERE invoice_id = ?
		ORDER BY rowid ASC
	`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.InvoiceLine
	for rows.Next() {
		var (
			l                          ledger.InvoiceLine
			quantity, price, vat, tot  string
			vatRateID                  sql.NullString
		)
		if err := rows.Scan(&l.ItemID, &quantity, &price, &vatRateID, &vat, &tot); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		l.Quantity = ledger.MustParseDecimal(quantity)
		l.UnitPrice = ledger.MustParseDecimal(price)
		l.VATRateID = vatRateID.String
		l.VATAmount = ledger.MustParseDecimal(vat)
		l.Total = ledger.MustParseDecimal(tot)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanInvoice(row rowScanner) (*ledger.Invoice, error) {
	var (
		inv                              ledger.Invoice
		date, subtotal, vat, total, paid string
		dueDate, warehouseDoc            sql.NullString
	)

	err := row.Scan(&inv.ID, &inv.Type, &inv.Number, &date, &dueDate,
		&inv.PartnerID, &inv.Status, &subtotal, &vat, &total, &paid,
		&warehouseDoc)
	if err != nil {
		return nil, err
	}

	inv.Date, _ = time.Parse(time.RFC3339, date)
	if dueDate.Valid {
		t, _ := time.Parse(time.RFC3339, dueDate.String)
		inv.DueDate = &t
	}
	inv.Subtotal = ledger.MustParseDecimal(subtotal)
	inv.VATAmount = ledger.MustParseDecimal(vat)
	inv.Total = ledger.MustParseDecimal(total)
	inv.PaidAmount = ledger.MustParseDecimal(paid)
	inv.WarehouseDocumentID = ledger.DocumentID(warehouseDoc.String)
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listInvoices(ctx, s.db)
}

func (s *Store) listInvoices(ctx context.Context, q dbtx) ([]ledger.Invoice, error) {
	query := `
		SELECT id, invoice_type, invoice_number, invoice_date, due_date,
		       partner_id, status, subtotal, vat_amount, total, paid_amount,
		       warehouse_document_id
		FROM invoices
		ORDER BY invoice_date DESC, invoice_number DESC
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (s *Store) GetInvoiceByWarehouseDocument(ctx context.Context, id ledger.DocumentID) (*ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getInvoiceByWarehouseDocument(ctx, s.db, id)
}

func (s *Store) getInvoiceByWarehouseDocument(ctx context.Context, q dbtx, id ledger.DocumentID) (*ledger.Invoice, error) {
	query := `
		SELECT id, invoice_type, invoice_number, invoice_date, due_date,
		       partner_id, status, subtotal, vat_amount, total, paid_amount,
		       warehouse_document_id
		FROM invoices
		WHERE warehouse_document_id = ?
		LIMIT 1
	`

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	inv.Lines, err = s.loadInvoiceLines(ctx, q, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) SetInvoiceStatus(ctx context.Context, id ledger.InvoiceID, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setInvoiceStatus(ctx, s.db, id, from, to)
}

func (s *Store) setInvoiceStatus(ctx context.Context, q dbtx, id ledger.InvoiceID, from, to ledger.Status) error {
	res, err := q.ExecContext(ctx,
		"UPDATE invoices SET status = ? WHERE id = ? AND status = ?",
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current ledger.Status
	err = q.QueryRowContext(ctx,
		"SELECT status FROM invoices WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &ledger.InvalidStateError{Operation: transitionName(to), Current: current, Required: from}
}

func (s *Store) AddInvoicePayment(ctx context.Context, id ledger.InvoiceID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addInvoicePayment(ctx, s.db, id, amount)
}

// addInvoicePayment reads and rewrites paid_amount in Go decimal space; the
// posted-status precondition sits in the UPDATE's WHERE clause so payments
// against a cancelled invoice lose the race instead of applying.
func (s *Store) addInvoicePayment(ctx context.Context, q dbtx, id ledger.InvoiceID, amount decimal.Decimal) error {
	var paid string
	err := q.QueryRowContext(ctx,
		"SELECT paid_amount FROM invoices WHERE id = ?", id).Scan(&paid)
	if err == sql.ErrNoRows {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}

	newPaid := ledger.MustParseDecimal(paid).Add(amount)
	res, err := q.ExecContext(ctx,
		"UPDATE invoices SET paid_amount = ? WHERE id = ? AND status = ?",
		newPaid.String(), id, ledger.StatusPosted)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var current ledger.Status
		if err := q.QueryRowContext(ctx,
			"SELECT status FROM invoices WHERE id = ?", id).Scan(&current); err != nil {
			return err
		}
		return &ledger.InvalidStateError{Operation: "record payment", Current: current, Required: ledger.StatusPosted}
	}
	return nil
}

// =============================================================================
// ACCOUNT STORE (read-only to the engine)
// =============================================================================

func (s *Store) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAccount(ctx, s.db, id)
}

func (s *Store) getAccount(ctx context.Context, q dbtx, id string) (*ledger.Account, error) {
	var (
		a      ledger.Account
		parent sql.NullString
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, code, name, account_type, parent_id FROM accounts WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Code, &a.Name, &a.Type, &parent)

	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ParentID = parent.String
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAccounts(ctx, s.db)
}

func (s *Store) listAccounts(ctx context.Context, q dbtx) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, code, name, account_type, parent_id FROM accounts ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a      ledger.Account
			parent sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.ParentID = parent.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SaveAccount upserts a chart-of-accounts row. Not part of the engine's
// store interfaces: master-data administration owns account writes; this
// exists for seeding and tests.
func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (id, code, name, account_type, parent_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			account_type = excluded.account_type,
			parent_id = excluded.parent_id
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Code, a.Name, a.Type, nullString(a.ParentID))
	return err
}

// =============================================================================
// TX-SCOPED DELEGATES (GL + invoices + accounts)
// =============================================================================

func (ts *txStore) InsertEntry(ctx context.Context, entry *ledger.Entry) error {
	return ts.parent.insertEntry(ctx, ts.tx, entry)
}

func (ts *txStore) ReplaceEntry(ctx context.Context, entry *ledger.Entry) error {
	return ts.parent.replaceEntry(ctx, ts.tx, entry)
}

func (ts *txStore) DeleteEntry(ctx context.Context, id ledger.EntryID) error {
	return ts.parent.deleteEntry(ctx, ts.tx, id)
}

func (ts *txStore) GetEntry(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	return ts.parent.getEntry(ctx, ts.tx, id)
}

func (ts *txStore) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	return ts.parent.listEntries(ctx, ts.tx)
}

func (ts *txStore) ListEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]ledger.Entry, error) {
	return ts.parent.listEntriesByReference(ctx, ts.tx, referenceType, referenceID)
}

func (ts *txStore) SetEntryStatus(ctx context.Context, id ledger.EntryID, from, to ledger.Status) error {
	return ts.parent.setEntryStatus(ctx, ts.tx, id, from, to)
}

func (ts *txStore) InsertInvoice(ctx context.Context, inv *ledger.Invoice) error {
	return ts.parent.insertInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) ReplaceInvoice(ctx context.Context, inv *ledger.Invoice) error {
	return ts.parent.replaceInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) DeleteInvoice(ctx context.Context, id ledger.InvoiceID) error {
	return ts.parent.deleteInvoice(ctx, ts.tx, id)
}

func (ts *txStore) GetInvoice(ctx context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	return ts.parent.getInvoice(ctx, ts.tx, id)
}

func (ts *txStore) ListInvoices(ctx context.Context) ([]ledger.Invoice, error) {
	return ts.parent.listInvoices(ctx, ts.tx)
}

func (ts *txStore) GetInvoiceByWarehouseDocument(ctx context.Context, id ledger.DocumentID) (*ledger.Invoice, error) {
	return ts.parent.getInvoiceByWarehouseDocument(ctx, ts.tx, id)
}

func (ts *txStore) SetInvoiceStatus(ctx context.Context, id ledger.InvoiceID, from, to ledger.Status) error {
	return ts.parent.setInvoiceStatus(ctx, ts.tx, id, from, to)
}

func (ts *txStore) AddInvoicePayment(ctx context.Context, id ledger.InvoiceID, amount decimal.Decimal) error {
	return ts.parent.addInvoicePayment(ctx, ts.tx, id, amount)
}

func (ts *txStore) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	return ts.parent.getAccount(ctx, ts.tx, id)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return ts.parent.listAccounts(ctx, ts.tx)
}
