package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"inventory-ledger/internal/cache"
	"inventory-ledger/internal/core"
)

func TestOperationSubmit_Inbound(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewOperationService(pool, cache.NewMemory(), zap.NewNop())
	itemID := insertItem(t, pool, "Relay Module", "IT-001", 2, 10, 5)

	t.Run("Success", func(t *testing.T) {
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 20, SupplierID: 1, WarehouseID: 2,
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if entry.Before != 10 || entry.After != 30 {
			t.Errorf("expected before 10 after 30, got %d/%d", entry.Before, entry.After)
		}
		if got := itemStock(t, pool, itemID); got != 30 {
			t.Errorf("expected stock 30, got %d", got)
		}
	})

	t.Run("InactiveSupplier_Rejected", func(t *testing.T) {
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 1, SupplierID: 2, WarehouseID: 2,
		})
		if !errors.Is(err, core.ErrBadReference) {
			t.Errorf("expected ErrBadReference for inactive supplier, got %v", err)
		}
	})

	t.Run("MissingWarehouse_Rejected", func(t *testing.T) {
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 1, SupplierID: 1, WarehouseID: 999,
		})
		if !errors.Is(err, core.ErrBadReference) {
			t.Errorf("expected ErrBadReference for missing warehouse, got %v", err)
		}
	})

	t.Run("InactiveWarehouse_Rejected", func(t *testing.T) {
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 1, SupplierID: 1, WarehouseID: 4,
		})
		if !errors.Is(err, core.ErrBadReference) {
			t.Errorf("expected ErrBadReference for inactive warehouse, got %v", err)
		}
	})

	t.Run("WarehouseChange_Annotated", func(t *testing.T) {
		// Receiving into a different warehouse moves the item and records the
		// move in the entry notes.
		moved := insertItem(t, pool, "Cable Spool", "IT-002", 1, 5, 0)
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: moved, Quantity: 5, SupplierID: 1, WarehouseID: 2,
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if !strings.Contains(entry.Notes, "Main Warehouse") || !strings.Contains(entry.Notes, "Annex") {
			t.Errorf("expected warehouse change annotation, got %q", entry.Notes)
		}
		var warehouseID int
		pool.QueryRow(ctx, "SELECT warehouse_id FROM items WHERE id = $1", moved).Scan(&warehouseID)
		if warehouseID != 2 {
			t.Errorf("expected item moved to warehouse 2, got %d", warehouseID)
		}
	})
}

func TestOperationSubmit_CapacityGuard(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewOperationService(pool, cache.NewMemory(), zap.NewNop())

	// Annex (warehouse 2) has capacity 100 and a resident item holding 95.
	insertItem(t, pool, "Filler Pallet", "IT-FILL", 2, 95, 0)

	t.Run("Inbound_OverCapacity_Rejected", func(t *testing.T) {
		itemID := insertItem(t, pool, "Widget", "IT-010", 2, 0, 0)
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 6, SupplierID: 1, WarehouseID: 2,
		})
		var capErr *core.CapacityExceededError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapacityExceededError, got %v", err)
		}
		if capErr.Capacity != 100 || capErr.Used != 95 || capErr.Requested != 6 {
			t.Errorf("expected capacity 100 used 95 requested 6, got %d/%d/%d",
				capErr.Capacity, capErr.Used, capErr.Requested)
		}
		if capErr.Available() != 5 {
			t.Errorf("expected available 5, got %d", capErr.Available())
		}
		if got := itemStock(t, pool, itemID); got != 0 {
			t.Errorf("rejected operation must not change stock, got %d", got)
		}
	})

	t.Run("Inbound_ExactFit_Accepted", func(t *testing.T) {
		itemID := insertItem(t, pool, "Gasket", "IT-011", 2, 0, 0)
		if _, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 5, SupplierID: 1, WarehouseID: 2,
		}); err != nil {
			t.Fatalf("exact-fit inbound should pass: %v", err)
		}
	})

	t.Run("Transfer_FullBalanceCounts", func(t *testing.T) {
		// The transferred item arrives with its whole balance, so even a small
		// transfer quantity is rejected when the balance cannot fit.
		itemID := insertItem(t, pool, "Bulk Crate", "IT-012", 1, 30, 0)
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpTransfer, ItemID: itemID, Quantity: 10, ToWarehouseID: 2,
		})
		var capErr *core.CapacityExceededError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapacityExceededError, got %v", err)
		}
		if capErr.Requested != 10 {
			t.Errorf("rejection reports the user-facing quantity, got %d", capErr.Requested)
		}
	})

	t.Run("UnconstrainedWarehouse_NeverRejects", func(t *testing.T) {
		itemID := insertItem(t, pool, "Bulk Sand", "IT-013", 1, 0, 0)
		if _, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 1000000, SupplierID: 1, WarehouseID: 1,
		}); err != nil {
			t.Fatalf("capacity 0 means unconstrained: %v", err)
		}
	})
}

func TestOperationSubmit_Outbound(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewOperationService(pool, cache.NewMemory(), zap.NewNop())
	itemID := insertItem(t, pool, "Sensor", "IT-020", 1, 5, 3)

	t.Run("Insufficient_Rejected", func(t *testing.T) {
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpOut, ItemID: itemID, Quantity: 10, Recipient: "Lab A",
		})
		var stockErr *core.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if stockErr.Current != 5 || stockErr.Requested != 10 {
			t.Errorf("expected current 5 requested 10, got %d/%d", stockErr.Current, stockErr.Requested)
		}
		if got := itemStock(t, pool, itemID); got != 5 {
			t.Errorf("rejected outbound must not change stock, got %d", got)
		}
	})

	t.Run("Success_UpdatesStatus", func(t *testing.T) {
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpOut, ItemID: itemID, Quantity: 3, Recipient: "Lab A", Department: "R&D",
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if entry.After != 2 {
			t.Errorf("expected after 2, got %d", entry.After)
		}
		var status core.ItemStatus
		pool.QueryRow(ctx, "SELECT status FROM items WHERE id = $1", itemID).Scan(&status)
		if status != core.StatusLowStock {
			t.Errorf("expected low_stock at 2 <= min 3, got %s", status)
		}
	})
}

func TestOperationSubmit_TransferAndAdjust(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewOperationService(pool, cache.NewMemory(), zap.NewNop())

	t.Run("Transfer_MovesResidency", func(t *testing.T) {
		itemID := insertItem(t, pool, "Pump", "IT-030", 1, 12, 0)
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpTransfer, ItemID: itemID, Quantity: 12, ToWarehouseID: 3,
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if entry.Before != 12 || entry.After != 12 {
			t.Errorf("transfer must not change balance, got %d/%d", entry.Before, entry.After)
		}
		if entry.FromWarehouse != "Main Warehouse" || entry.ToWarehouse != "Vault" {
			t.Errorf("expected warehouse names recorded, got %q -> %q", entry.FromWarehouse, entry.ToWarehouse)
		}
		var warehouseID int
		pool.QueryRow(ctx, "SELECT warehouse_id FROM items WHERE id = $1", itemID).Scan(&warehouseID)
		if warehouseID != 3 {
			t.Errorf("expected residency in warehouse 3, got %d", warehouseID)
		}
	})

	t.Run("Transfer_SameWarehouse_Rejected", func(t *testing.T) {
		itemID := insertItem(t, pool, "Valve", "IT-031", 1, 4, 0)
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpTransfer, ItemID: itemID, Quantity: 4, ToWarehouseID: 1,
		})
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected ErrValidation for same-warehouse transfer, got %v", err)
		}
	})

	t.Run("Adjust_SetsAbsolute", func(t *testing.T) {
		itemID := insertItem(t, pool, "Bracket", "IT-032", 1, 40, 0)
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpAdjust, ItemID: itemID, Quantity: 7, Notes: "stocktake correction",
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if entry.Before != 40 || entry.After != 7 {
			t.Errorf("expected before 40 after 7, got %d/%d", entry.Before, entry.After)
		}
		if got := itemStock(t, pool, itemID); got != 7 {
			t.Errorf("expected stock 7, got %d", got)
		}
	})

	t.Run("Adjust_IncreaseGuarded", func(t *testing.T) {
		// Vault (warehouse 3) has capacity 50 with a 45-unit resident.
		insertItem(t, pool, "Vault Filler", "IT-033", 3, 45, 0)
		itemID := insertItem(t, pool, "Counted Box", "IT-034", 3, 2, 0)
		_, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpAdjust, ItemID: itemID, Quantity: 10,
		})
		if !errors.Is(err, core.ErrCapacityExceeded) {
			t.Errorf("expected ErrCapacityExceeded for adjust past capacity, got %v", err)
		}
	})

	t.Run("Check_ZeroEffect", func(t *testing.T) {
		itemID := insertItem(t, pool, "Shim", "IT-035", 1, 9, 0)
		entry, err := svc.Submit(ctx, core.OperationRequest{
			Kind: core.OpCheck, ItemID: itemID, Notes: "quarterly stocktake",
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if entry.Before != 9 || entry.After != 9 {
			t.Errorf("check must record before == after, got %d/%d", entry.Before, entry.After)
		}
		if got := itemStock(t, pool, itemID); got != 9 {
			t.Errorf("check must not change stock, got %d", got)
		}
	})
}

// TestOperationSubmit_ConcurrentOutbounds drives competing outbounds at one
// item. The row lock must serialize them so the accepted total never exceeds
// the opening balance.
func TestOperationSubmit_ConcurrentOutbounds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewOperationService(pool, cache.NewMemory(), zap.NewNop())
	itemID := insertItem(t, pool, "Contended Part", "IT-040", 1, 50, 0)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, core.OperationRequest{
				Kind: core.OpOut, ItemID: itemID, Quantity: 10, Recipient: "Line 1",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, core.ErrInsufficientStock) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Errorf("expected exactly 5 of %d outbounds to succeed, got %d", workers, succeeded)
	}
	if got := itemStock(t, pool, itemID); got != 0 {
		t.Errorf("expected final stock 0, got %d", got)
	}
}
