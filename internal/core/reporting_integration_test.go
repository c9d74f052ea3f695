package core_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"inventory-ledger/internal/cache"
	"inventory-ledger/internal/core"
)

func TestReporting_AuditModeIgnoresDeletion(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	store := cache.NewMemory()
	users := core.NewUserService(pool)
	ops := core.NewOperationService(pool, store, zap.NewNop())
	ledger := core.NewLedgerService(pool, users)
	reports := core.NewReportingService(pool, store, zap.NewNop())

	actor := seedUser(t, pool, "auditor", "correct-horse-battery")
	itemID := insertItem(t, pool, "Audited Part", "IT-200", 1, 0, 0)

	in, err := ops.Submit(ctx, core.OperationRequest{
		Kind: core.OpIn, ItemID: itemID, Quantity: 40, SupplierID: 1, WarehouseID: 1,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := ops.Submit(ctx, core.OperationRequest{
		Kind: core.OpOut, ItemID: itemID, Quantity: 15, Recipient: "Dock",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	before, err := reports.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if before.Month.Inbound != 40 || before.Month.Outbound != 15 {
		t.Fatalf("expected month 40 in / 15 out, got %d/%d", before.Month.Inbound, before.Month.Outbound)
	}

	// Hide the inbound entry, then force a fresh read.
	if _, err := ledger.SoftDelete(ctx, in.ID, actor, "correct-horse-battery"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := store.Delete(ctx, cache.DashboardKeys()...); err != nil {
		t.Fatalf("cache delete: %v", err)
	}

	after, err := reports.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if after.Month.Inbound != 40 {
		t.Errorf("audit aggregates must include deleted entries, got inbound %d", after.Month.Inbound)
	}

	stats, err := reports.Statistics(ctx, 7)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalOperations != 2 || stats.InboundQuantity != 40 {
		t.Errorf("statistics must count deleted entries, got %d ops / %d in", stats.TotalOperations, stats.InboundQuantity)
	}

	// The operational activity feed is the one reporting surface that hides
	// deleted entries.
	activities, err := reports.RecentActivities(ctx, 10)
	if err != nil {
		t.Fatalf("RecentActivities: %v", err)
	}
	for _, a := range activities {
		if a.ID == in.ID {
			t.Error("activity feed must hide deleted entries")
		}
	}
}

func TestReporting_OverviewTotalsAndChanges(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	store := cache.NewMemory()
	ops := core.NewOperationService(pool, store, zap.NewNop())
	reports := core.NewReportingService(pool, store, zap.NewNop())

	insertItem(t, pool, "Healthy", "IT-210", 1, 30, 5)
	insertItem(t, pool, "Low", "IT-211", 1, 2, 5)
	insertItem(t, pool, "Empty", "IT-212", 1, 0, 5)

	o, err := reports.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.Overview.TotalItems != 3 {
		t.Errorf("expected 3 items, got %d", o.Overview.TotalItems)
	}
	if o.Overview.TotalStock != 32 {
		t.Errorf("expected total stock 32, got %d", o.Overview.TotalStock)
	}
	if o.Overview.LowStockItems != 2 {
		t.Errorf("expected 2 low/out items, got %d", o.Overview.LowStockItems)
	}
	// 32 units at 9.50 each.
	if o.Overview.TotalValue.String() != "304" && o.Overview.TotalValue.String() != "304.00" {
		t.Errorf("expected total value 304, got %s", o.Overview.TotalValue)
	}
	if o.Overview.TotalCategories != 2 || o.Overview.TotalSuppliers != 1 {
		t.Errorf("expected 2 categories and 1 active supplier, got %d/%d",
			o.Overview.TotalCategories, o.Overview.TotalSuppliers)
	}

	t.Run("CacheInvalidatedByOperation", func(t *testing.T) {
		itemID := insertItem(t, pool, "Fresh", "IT-213", 1, 0, 0)
		if _, err := ops.Submit(ctx, core.OperationRequest{
			Kind: core.OpIn, ItemID: itemID, Quantity: 8, SupplierID: 1, WarehouseID: 1,
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		o2, err := reports.Overview(ctx)
		if err != nil {
			t.Fatalf("Overview: %v", err)
		}
		if o2.Overview.TotalStock != 40 {
			t.Errorf("expected post-operation overview to be recomputed, got stock %d", o2.Overview.TotalStock)
		}
		if o2.Month.Inbound != 8 {
			t.Errorf("expected month inbound 8, got %d", o2.Month.Inbound)
		}
	})
}

func TestReporting_ChartsTrendAndDistribution(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	store := cache.NewMemory()
	ops := core.NewOperationService(pool, store, zap.NewNop())
	reports := core.NewReportingService(pool, store, zap.NewNop())

	itemID := insertItem(t, pool, "Charted", "IT-220", 1, 0, 0)
	if _, err := ops.Submit(ctx, core.OperationRequest{
		Kind: core.OpIn, ItemID: itemID, Quantity: 12, SupplierID: 1, WarehouseID: 1,
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := ops.Submit(ctx, core.OperationRequest{
		Kind: core.OpOut, ItemID: itemID, Quantity: 4, Recipient: "Dock",
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	t.Run("Charts", func(t *testing.T) {
		c, err := reports.Charts(ctx, 7)
		if err != nil {
			t.Fatalf("Charts: %v", err)
		}
		if len(c.Trend) != 7 {
			t.Fatalf("expected 7 daily buckets, got %d", len(c.Trend))
		}
		today := c.Trend[len(c.Trend)-1]
		if today.Inbound != 1 || today.Outbound != 1 {
			t.Errorf("trend counts operations, expected 1/1 today, got %d/%d", today.Inbound, today.Outbound)
		}
		if len(c.WarehouseUsage) != 3 {
			t.Errorf("expected 3 active warehouses, got %d", len(c.WarehouseUsage))
		}
	})

	t.Run("Trend_MonthBuckets", func(t *testing.T) {
		series, err := reports.Trend(ctx, "month")
		if err != nil {
			t.Fatalf("Trend: %v", err)
		}
		if len(series.Labels) != 6 {
			t.Fatalf("expected 6 month buckets, got %d", len(series.Labels))
		}
		last := len(series.Labels) - 1
		if series.Inbound[last] != 1 || series.Outbound[last] != 1 {
			t.Errorf("expected current month 1/1, got %d/%d", series.Inbound[last], series.Outbound[last])
		}
	})

	t.Run("Trend_BadPeriod", func(t *testing.T) {
		if _, err := reports.Trend(ctx, "decade"); err == nil {
			t.Error("expected error for unknown period")
		}
	})

	t.Run("Distribution", func(t *testing.T) {
		d, err := reports.Distribution(ctx)
		if err != nil {
			t.Fatalf("Distribution: %v", err)
		}
		if len(d.Labels) != 1 || d.Labels[0] != "Electronics" {
			t.Errorf("expected single Electronics slice, got %v", d.Labels)
		}
		if len(d.Values) != 1 || d.Values[0] != 1 {
			t.Errorf("expected 1 item counted, got %v", d.Values)
		}
	})

	t.Run("LowStock", func(t *testing.T) {
		insertItem(t, pool, "Depleted", "IT-221", 1, 1, 10)
		if err := store.Delete(ctx, cache.DashboardKeys()...); err != nil {
			t.Fatalf("cache delete: %v", err)
		}
		items, err := reports.LowStock(ctx)
		if err != nil {
			t.Fatalf("LowStock: %v", err)
		}
		if len(items) != 1 || items[0].Code != "IT-221" {
			t.Errorf("expected the depleted item, got %+v", items)
		}
	})
}
