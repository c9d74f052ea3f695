package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reauthenticator verifies that the acting user still holds their credential.
// The soft-delete path requires this fresh proof of identity, distinct from
// the session check the HTTP layer already performed.
type Reauthenticator interface {
	VerifyCredential(ctx context.Context, userID int, password string) error
}

// EntryFilter narrows operational-mode listings.
type EntryFilter struct {
	Kind       OperationKind // empty means all kinds
	ItemID     int           // 0 means all items
	SupplierID int           // 0 means all suppliers
	Search     string        // matches item name/code, recipient, department
}

// Page is limit/offset pagination.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SoftDeleteResult reports what was hidden. CurrentStock is the item's live
// balance, unchanged by the delete, returned so the caller can show that the
// inventory itself was not touched.
type SoftDeleteResult struct {
	EntryID      int           `json:"entry_id"`
	Kind         OperationKind `json:"operation_type"`
	Quantity     int           `json:"quantity"`
	CurrentStock int           `json:"current_stock"`
}

// BatchDeleteResult reports per-entry outcomes; one bad id never fails the
// whole batch.
type BatchDeleteResult struct {
	SucceededIDs []int    `json:"succeeded_ids"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors,omitempty"`
}

// LedgerService is the audit-trail surface: soft deletion and the
// operational-mode (deleted-excluded) read path. Audit-mode reads live in
// ReportingService; the two modes are deliberately separate code paths.
type LedgerService interface {
	// SoftDelete marks an entry deleted after reverifying the actor's
	// password. Re-deleting an already-deleted entry is an error, and the
	// item balance the entry recorded is never reversed.
	SoftDelete(ctx context.Context, entryID int, actor *User, password string) (*SoftDeleteResult, error)

	// SoftDeleteBatch applies SoftDelete semantics per entry under a single
	// reauthentication, reporting per-entry success and failure.
	SoftDeleteBatch(ctx context.Context, entryIDs []int, actor *User, password string) (*BatchDeleteResult, error)

	// List returns entries in operational mode: soft-deleted rows excluded,
	// newest first.
	List(ctx context.Context, filter EntryFilter, page Page) ([]LedgerEntryDetail, int, error)

	// Get returns a single entry in operational mode; deleted entries report
	// not found.
	Get(ctx context.Context, entryID int) (*LedgerEntryDetail, error)

	// Recent returns the newest non-deleted entries for activity feeds.
	Recent(ctx context.Context, limit int) ([]LedgerEntryDetail, error)
}

type ledgerService struct {
	pool   *pgxpool.Pool
	reauth Reauthenticator
}

func NewLedgerService(pool *pgxpool.Pool, reauth Reauthenticator) LedgerService {
	return &ledgerService{pool: pool, reauth: reauth}
}

func (s *ledgerService) SoftDelete(ctx context.Context, entryID int, actor *User, password string) (*SoftDeleteResult, error) {
	if err := s.reauth.VerifyCredential(ctx, actor.ID, password); err != nil {
		return nil, err
	}
	return s.markDeleted(ctx, entryID, actor.ID)
}

func (s *ledgerService) SoftDeleteBatch(ctx context.Context, entryIDs []int, actor *User, password string) (*BatchDeleteResult, error) {
	if len(entryIDs) == 0 {
		return nil, &ValidationError{Field: "ids", Message: "no entries selected"}
	}
	if err := s.reauth.VerifyCredential(ctx, actor.ID, password); err != nil {
		return nil, err
	}

	result := &BatchDeleteResult{}
	for _, id := range entryIDs {
		if _, err := s.markDeleted(ctx, id, actor.ID); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", id, err))
			continue
		}
		result.SucceededIDs = append(result.SucceededIDs, id)
	}
	return result, nil
}

// markDeleted flips the soft-delete triple on one entry. The entry row is
// locked so two concurrent deletes of the same entry resolve to exactly one
// success and one AlreadyDeletedError.
func (s *ledgerService) markDeleted(ctx context.Context, entryID, actorID int) (*SoftDeleteResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var res SoftDeleteResult
	var itemID int
	var isDeleted bool
	err = tx.QueryRow(ctx, `
		SELECT id, item_id, operation_type, quantity, is_deleted
		FROM operations
		WHERE id = $1
		FOR UPDATE
	`, entryID).Scan(&res.EntryID, &itemID, &res.Kind, &res.Quantity, &isDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "ledger entry", ID: entryID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger entry: %w", err)
	}
	if isDeleted {
		return nil, &AlreadyDeletedError{EntryID: entryID}
	}

	_, err = tx.Exec(ctx, `
		UPDATE operations
		SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $1
		WHERE id = $2
	`, actorID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark entry deleted: %w", err)
	}

	// Visibility change only: the item balance stays exactly as the entry
	// left it. Read it back so the caller can display that fact.
	err = tx.QueryRow(ctx, "SELECT stock FROM items WHERE id = $1", itemID).Scan(&res.CurrentStock)
	if err != nil {
		return nil, fmt.Errorf("failed to read current stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit soft delete: %w", err)
	}
	return &res, nil
}

// entrySelect joins the display fields every listing needs. The
// `o.is_deleted = FALSE` predicate is the operational-mode contract; audit
// reads in ReportingService must never copy it.
const entrySelect = `
	SELECT o.id, o.item_id, o.operation_type, o.quantity, o.before_stock, o.after_stock,
	       o.supplier_id, o.recipient, o.department, o.purpose,
	       o.from_warehouse, o.to_warehouse, o.notes, o.operator_id, o.created_at,
	       o.is_deleted, o.deleted_at, o.deleted_by,
	       i.name, i.code, w.name,
	       COALESCE(s.name, ''), COALESCE(u.full_name, u.username, '')
	FROM operations o
	JOIN items i        ON i.id = o.item_id
	JOIN warehouses w   ON w.id = i.warehouse_id
	LEFT JOIN suppliers s ON s.id = o.supplier_id
	LEFT JOIN users u     ON u.id = o.operator_id
	WHERE o.is_deleted = FALSE`

func scanEntryDetail(row pgx.Row) (*LedgerEntryDetail, error) {
	var d LedgerEntryDetail
	err := row.Scan(
		&d.ID, &d.ItemID, &d.Kind, &d.Quantity, &d.Before, &d.After,
		&d.SupplierID, &d.Recipient, &d.Department, &d.Purpose,
		&d.FromWarehouse, &d.ToWarehouse, &d.Notes, &d.OperatorID, &d.CreatedAt,
		&d.IsDeleted, &d.DeletedAt, &d.DeletedBy,
		&d.ItemName, &d.ItemCode, &d.WarehouseName,
		&d.SupplierName, &d.OperatorName,
	)
	if err != nil {
		return nil, err
	}
	d.KindLabel = d.Kind.Label()
	return &d, nil
}

func (s *ledgerService) List(ctx context.Context, filter EntryFilter, page Page) ([]LedgerEntryDetail, int, error) {
	page = page.normalized()

	where := ""
	args := []any{}
	addArg := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.Kind != "" {
		addArg(" AND o.operation_type = $%d", string(filter.Kind))
	}
	if filter.ItemID > 0 {
		addArg(" AND o.item_id = $%d", filter.ItemID)
	}
	if filter.SupplierID > 0 {
		addArg(" AND o.supplier_id = $%d", filter.SupplierID)
	}
	if filter.Search != "" {
		addArg(" AND (i.name ILIKE '%%' || $%d || '%%' OR i.code ILIKE '%%' || $%[1]d || '%%' OR o.recipient ILIKE '%%' || $%[1]d || '%%' OR o.department ILIKE '%%' || $%[1]d || '%%')", filter.Search)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM operations o
		JOIN items i ON i.id = o.item_id
		WHERE o.is_deleted = FALSE` + where
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	query := entrySelect + where + fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntryDetail
	for rows.Next() {
		d, err := scanEntryDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *ledgerService) Get(ctx context.Context, entryID int) (*LedgerEntryDetail, error) {
	args := []any{entryID}
	d, err := scanEntryDetail(s.pool.QueryRow(ctx, entrySelect+" AND o.id = $1", args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "ledger entry", ID: entryID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entry: %w", err)
	}
	return d, nil
}

func (s *ledgerService) Recent(ctx context.Context, limit int) ([]LedgerEntryDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, entrySelect+" ORDER BY o.created_at DESC, o.id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent entries: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntryDetail
	for rows.Next() {
		d, err := scanEntryDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent entry: %w", err)
		}
		entries = append(entries, *d)
	}
	return entries, rows.Err()
}
