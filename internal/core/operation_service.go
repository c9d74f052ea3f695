package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"inventory-ledger/internal/cache"
)

// OperationService is the ledger's write path. Submit validates an operation,
// mutates the item balance, and appends a ledger entry as one transaction:
// no partial effect is ever visible if any check fails.
type OperationService interface {
	Submit(ctx context.Context, req OperationRequest) (*LedgerEntry, error)
}

type operationService struct {
	pool  *pgxpool.Pool
	store cache.Store
	log   *zap.Logger
}

func NewOperationService(pool *pgxpool.Pool, store cache.Store, log *zap.Logger) OperationService {
	return &operationService{pool: pool, store: store, log: log}
}

// lockedItem is the subject item row read under FOR UPDATE.
type lockedItem struct {
	ID          int
	Name        string
	Stock       int
	MinStock    int
	Status      ItemStatus
	WarehouseID int
}

func (s *operationService) Submit(ctx context.Context, req OperationRequest) (*LedgerEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the item row for the whole validate-then-mutate window. Concurrent
	// submits against the same item serialize here, so two outbounds can never
	// both pass the sufficiency check.
	item, err := lockItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}

	entry := &LedgerEntry{
		ItemID:     item.ID,
		Kind:       req.Kind,
		Quantity:   req.Quantity,
		Before:     item.Stock,
		Notes:      req.Notes,
		OperatorID: req.OperatorID,
	}

	newStock := item.Stock
	newWarehouseID := item.WarehouseID

	switch req.Kind {
	case OpIn:
		if err := s.applyInbound(ctx, tx, req, item, entry); err != nil {
			return nil, err
		}
		newStock = item.Stock + req.Quantity
		newWarehouseID = req.WarehouseID

	case OpOut:
		if item.Stock < req.Quantity {
			return nil, &InsufficientStockError{ItemID: item.ID, Current: item.Stock, Requested: req.Quantity}
		}
		entry.Recipient = req.Recipient
		entry.Department = req.Department
		entry.Purpose = req.Purpose
		newStock = item.Stock - req.Quantity

	case OpTransfer:
		dest, err := s.applyTransfer(ctx, tx, req, item, entry)
		if err != nil {
			return nil, err
		}
		newWarehouseID = dest

	case OpAdjust:
		// Absolute set. An increase must still fit the resident warehouse:
		// the capacity invariant holds after every accepted operation, and
		// negative targets are rejected at validation.
		if req.Quantity > item.Stock {
			w, err := lockWarehouse(ctx, tx, item.WarehouseID)
			if err != nil {
				return nil, err
			}
			if err := checkCapacity(ctx, tx, w, item.ID, req.Quantity, req.Quantity-item.Stock); err != nil {
				return nil, err
			}
		}
		newStock = req.Quantity

	case OpCheck:
		// Stocktake marker: recorded, no balance effect.
	}

	entry.After = newStock
	newStatus := NextStatus(item.Status, newStock, item.MinStock)

	_, err = tx.Exec(ctx, `
		UPDATE items
		SET stock = $1, warehouse_id = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`, newStock, newWarehouseID, newStatus, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update item balance: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO operations (item_id, operation_type, quantity, before_stock, after_stock,
			supplier_id, recipient, department, purpose, from_warehouse, to_warehouse,
			notes, operator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`, entry.ItemID, entry.Kind, entry.Quantity, entry.Before, entry.After,
		entry.SupplierID, entry.Recipient, entry.Department, entry.Purpose,
		entry.FromWarehouse, entry.ToWarehouse, entry.Notes, entry.OperatorID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit operation: %w", err)
	}

	// Invalidate dependent aggregates after commit, never before. The cache
	// is an optimization layer: a failed invalidation only extends staleness
	// within the TTL window, so it is logged and not returned.
	if err := s.store.Delete(ctx, cache.DashboardKeys()...); err != nil {
		s.log.Warn("dashboard cache invalidation failed", zap.Error(err))
	}

	return entry, nil
}

// applyInbound resolves and validates the supplier and destination warehouse,
// runs the capacity guard, and fills the inbound entry fields.
func (s *operationService) applyInbound(ctx context.Context, tx pgx.Tx, req OperationRequest, item *lockedItem, entry *LedgerEntry) error {
	var supplierStatus SupplierStatus
	err := tx.QueryRow(ctx, "SELECT status FROM suppliers WHERE id = $1", req.SupplierID).Scan(&supplierStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return &ReferenceError{Entity: "supplier", ID: req.SupplierID, Reason: "not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to resolve supplier: %w", err)
	}
	if supplierStatus != SupplierActive {
		return &ReferenceError{Entity: "supplier", ID: req.SupplierID, Reason: "inactive"}
	}
	supplierID := req.SupplierID
	entry.SupplierID = &supplierID

	dest, err := lockWarehouse(ctx, tx, req.WarehouseID)
	if err != nil {
		return err
	}

	// The item ends up resident in the destination with its full balance, so
	// the projected contribution is stock + quantity, not quantity alone.
	if err := checkCapacity(ctx, tx, dest, item.ID, item.Stock+req.Quantity, req.Quantity); err != nil {
		return err
	}

	// Annotate the warehouse change so the move stays auditable even though
	// the inbound entry itself has no from/to columns.
	if item.WarehouseID != dest.ID {
		oldName, err := warehouseName(ctx, tx, item.WarehouseID)
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("[warehouse change: %s → %s]", oldName, dest.Name)
		if entry.Notes != "" {
			entry.Notes = prefix + " " + entry.Notes
		} else {
			entry.Notes = prefix
		}
	}
	return nil
}

// applyTransfer validates both warehouses and the destination capacity, fills
// the transfer entry fields, and returns the destination warehouse id. The
// total balance is unchanged: a transfer only moves the item's residency.
func (s *operationService) applyTransfer(ctx context.Context, tx pgx.Tx, req OperationRequest, item *lockedItem, entry *LedgerEntry) (int, error) {
	fromID := req.FromWarehouseID
	if fromID == 0 {
		fromID = item.WarehouseID
	}
	if fromID == 0 {
		return 0, &ValidationError{Field: "from_warehouse", Message: "source warehouse cannot be resolved"}
	}
	if fromID == req.ToWarehouseID {
		return 0, &ValidationError{Field: "to_warehouse", Message: "source and destination warehouses must differ"}
	}

	var fromName string
	var fromActive bool
	err := tx.QueryRow(ctx, "SELECT name, is_active FROM warehouses WHERE id = $1", fromID).Scan(&fromName, &fromActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &ReferenceError{Entity: "warehouse", ID: fromID, Reason: "not found"}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve source warehouse: %w", err)
	}
	if !fromActive {
		return 0, &ReferenceError{Entity: "warehouse", ID: fromID, Reason: "inactive"}
	}

	if item.Stock < req.Quantity {
		return 0, &InsufficientStockError{ItemID: item.ID, Current: item.Stock, Requested: req.Quantity}
	}

	dest, err := lockWarehouse(ctx, tx, req.ToWarehouseID)
	if err != nil {
		return 0, err
	}
	if err := checkCapacity(ctx, tx, dest, item.ID, item.Stock, req.Quantity); err != nil {
		return 0, err
	}

	entry.FromWarehouse = fromName
	entry.ToWarehouse = dest.Name
	return dest.ID, nil
}

// lockedWarehouse is a destination warehouse row read under FOR UPDATE.
type lockedWarehouse struct {
	ID       int
	Name     string
	Capacity int
}

func lockItem(ctx context.Context, tx pgx.Tx, itemID int) (*lockedItem, error) {
	it := &lockedItem{}
	err := tx.QueryRow(ctx, `
		SELECT id, name, stock, min_stock, status, warehouse_id
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(&it.ID, &it.Name, &it.Stock, &it.MinStock, &it.Status, &it.WarehouseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "item", ID: itemID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	return it, nil
}

// lockWarehouse locks an active destination warehouse row. Holding the row
// lock while summing usage serializes concurrent inbound operations against
// the same warehouse, so two of them cannot both pass the capacity check and
// jointly overflow it.
func lockWarehouse(ctx context.Context, tx pgx.Tx, warehouseID int) (*lockedWarehouse, error) {
	if warehouseID == 0 {
		return nil, &ValidationError{Field: "warehouse", Message: "warehouse is required"}
	}
	w := &lockedWarehouse{}
	var active bool
	err := tx.QueryRow(ctx, `
		SELECT id, name, capacity, is_active
		FROM warehouses
		WHERE id = $1
		FOR UPDATE
	`, warehouseID).Scan(&w.ID, &w.Name, &w.Capacity, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ReferenceError{Entity: "warehouse", ID: warehouseID, Reason: "not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock warehouse: %w", err)
	}
	if !active {
		return nil, &ReferenceError{Entity: "warehouse", ID: warehouseID, Reason: "inactive"}
	}
	return w, nil
}

// checkCapacity is the capacity guard. used is the live aggregate stock of
// the warehouse excluding the subject item (its prior contribution is folded
// into contribution by the caller); contribution is the subject's projected
// stock in this warehouse after the operation; requested is the user-facing
// quantity reported on rejection. Capacity 0 means unconstrained.
func checkCapacity(ctx context.Context, tx pgx.Tx, w *lockedWarehouse, subjectItemID, contribution, requested int) error {
	if w.Capacity <= 0 {
		return nil
	}
	var used int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(stock), 0)
		FROM items
		WHERE warehouse_id = $1 AND id <> $2
	`, w.ID, subjectItemID).Scan(&used)
	if err != nil {
		return fmt.Errorf("failed to compute warehouse usage: %w", err)
	}
	if used+contribution > w.Capacity {
		return &CapacityExceededError{
			WarehouseID:   w.ID,
			WarehouseName: w.Name,
			Capacity:      w.Capacity,
			Used:          used,
			Requested:     requested,
		}
	}
	return nil
}

func warehouseName(ctx context.Context, tx pgx.Tx, warehouseID int) (string, error) {
	var name string
	err := tx.QueryRow(ctx, "SELECT name FROM warehouses WHERE id = $1", warehouseID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &ReferenceError{Entity: "warehouse", ID: warehouseID, Reason: "not found"}
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve warehouse name: %w", err)
	}
	return name, nil
}
