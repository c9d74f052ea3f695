package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventory-ledger/internal/cache"
)

// Reporting read modes. Every statistic, trend, and comparison in this
// service reads the ledger in AUDIT mode: soft-deleted entries are included,
// always, so deleting history cannot bend a report. Only the activity feed
// and the low-stock list are operational views. Do not add an is_deleted
// filter to any aggregate query here.

// PeriodFlow is one window's inbound/outbound volume and operation counts.
type PeriodFlow struct {
	Inbound       int `json:"inbound"`
	Outbound      int `json:"outbound"`
	Operations    int `json:"operations"`
	InboundCount  int `json:"inbound_count"`
	OutboundCount int `json:"outbound_count"`
}

// OverviewTotals are the headline inventory numbers.
type OverviewTotals struct {
	TotalItems      int             `json:"total_items"`
	TotalStock      int             `json:"total_stock"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockItems   int             `json:"low_stock_items"`
	TotalCategories int             `json:"total_categories"`
	TotalSuppliers  int             `json:"total_suppliers"`
	TurnoverRate    float64         `json:"turnover_rate"`
}

// OverviewChanges are the period-over-period comparisons, all using the
// clamped-percentage conventions in reporting_math.go.
type OverviewChanges struct {
	InboundChange  float64 `json:"inbound_change"`
	OutboundChange float64 `json:"outbound_change"`
	StockChange    float64 `json:"stock_change"`
	TurnoverChange float64 `json:"turnover_change"`
}

type Overview struct {
	Overview OverviewTotals  `json:"overview"`
	Changes  OverviewChanges `json:"changes"`
	Today    PeriodFlow      `json:"today"`
	Week     PeriodFlow      `json:"week"`
	Month    PeriodFlow      `json:"month"`
}

// Statistics is the rolling-window operation summary.
type Statistics struct {
	TotalOperations  int `json:"total_operations"`
	InboundCount     int `json:"inbound_count"`
	OutboundCount    int `json:"outbound_count"`
	TransferCount    int `json:"transfer_count"`
	InboundQuantity  int `json:"inbound_quantity"`
	OutboundQuantity int `json:"outbound_quantity"`
}

// TrendPoint is one daily chart bucket, counted by operations not quantity
// so the chart agrees with the overview cards.
type TrendPoint struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type CategorySlice struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	TotalStock int    `json:"total_stock"`
}

type WarehouseUsage struct {
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Capacity     int     `json:"capacity"`
	CurrentUsage int     `json:"current_usage"`
	UsageRate    float64 `json:"usage_rate"`
}

type SupplierRank struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}

type Charts struct {
	Trend                []TrendPoint     `json:"trend"`
	CategoryDistribution []CategorySlice  `json:"category_distribution"`
	WarehouseUsage       []WarehouseUsage `json:"warehouse_usage"`
	SupplierRanking      []SupplierRank   `json:"supplier_ranking"`
}

// TrendSeries is a calendar-bucketed in/out series (month, quarter, or year
// granularity).
type TrendSeries struct {
	Labels   []string `json:"labels"`
	Inbound  []int    `json:"inbound"`
	Outbound []int    `json:"outbound"`
}

type Distribution struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

type LowStockItem struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	Category  string     `json:"category"`
	Warehouse string     `json:"warehouse"`
	Stock     int        `json:"stock"`
	MinStock  int        `json:"min_stock"`
	Status    ItemStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Activity is one row of the operational activity feed.
type Activity struct {
	ID           int           `json:"id"`
	Kind         OperationKind `json:"operation_type"`
	KindLabel    string        `json:"type_display"`
	ItemName     string        `json:"item_name"`
	ItemCode     string        `json:"item_code"`
	Quantity     int           `json:"quantity"`
	OperatorName string        `json:"operator_name"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ReportingService is the ledger's read-side aggregator. Results are cached
// with short TTLs; the operation engine invalidates them after each mutation.
type ReportingService interface {
	Overview(ctx context.Context) (*Overview, error)
	Statistics(ctx context.Context, days int) (*Statistics, error)
	Charts(ctx context.Context, days int) (*Charts, error)
	Trend(ctx context.Context, period string) (*TrendSeries, error)
	Distribution(ctx context.Context) (*Distribution, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	RecentActivities(ctx context.Context, limit int) ([]Activity, error)
}

type reportingService struct {
	pool  *pgxpool.Pool
	store cache.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewReportingService(pool *pgxpool.Pool, store cache.Store, log *zap.Logger) ReportingService {
	return &reportingService{pool: pool, store: store, log: log, now: time.Now}
}

// fromCache loads a cached JSON value into out, reporting whether it hit.
func (s *reportingService) fromCache(ctx context.Context, key string, out any) bool {
	b, err := s.store.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.log.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *reportingService) putCache(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, key, b, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *reportingService) Overview(ctx context.Context) (*Overview, error) {
	const key = "dashboard_overview"
	var cached Overview
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	now := s.now()
	today := dayStart(now)
	weekStart := now.AddDate(0, 0, -7)
	thisMonth := monthStart(now)
	lastMonthStart, _ := prevMonthBounds(now)

	var o Overview

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(stock), 0),
		       COALESCE(SUM(price * stock), 0),
		       COUNT(*) FILTER (WHERE status IN ('low_stock', 'out_of_stock'))
		FROM items
	`).Scan(&o.Overview.TotalItems, &o.Overview.TotalStock, &o.Overview.TotalValue, &o.Overview.LowStockItems)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate item totals: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"SELECT (SELECT COUNT(*) FROM categories WHERE is_active), (SELECT COUNT(*) FROM suppliers WHERE status = 'active')",
	).Scan(&o.Overview.TotalCategories, &o.Overview.TotalSuppliers)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories/suppliers: %w", err)
	}

	// One audit-mode pass over everything since last month's start covers all
	// the windows below. No deletion filter: reports include every entry
	// ever created.
	var lastMonthIn, lastMonthOut int
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $1 AND operation_type = 'in'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $1 AND operation_type = 'out'), 0),
			COUNT(*)             FILTER (WHERE created_at >= $1),
			COUNT(*)             FILTER (WHERE created_at >= $1 AND operation_type = 'in'),
			COUNT(*)             FILTER (WHERE created_at >= $1 AND operation_type = 'out'),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $2 AND operation_type = 'in'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $2 AND operation_type = 'out'), 0),
			COUNT(*)             FILTER (WHERE created_at >= $2),
			COUNT(*)             FILTER (WHERE created_at >= $2 AND operation_type = 'in'),
			COUNT(*)             FILTER (WHERE created_at >= $2 AND operation_type = 'out'),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $3 AND operation_type = 'in'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $3 AND operation_type = 'out'), 0),
			COUNT(*)             FILTER (WHERE created_at >= $3),
			COUNT(*)             FILTER (WHERE created_at >= $3 AND operation_type = 'in'),
			COUNT(*)             FILTER (WHERE created_at >= $3 AND operation_type = 'out'),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $4 AND created_at < $3 AND operation_type = 'in'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE created_at >= $4 AND created_at < $3 AND operation_type = 'out'), 0)
		FROM operations
		WHERE created_at >= $4
	`, today, weekStart, thisMonth, lastMonthStart).Scan(
		&o.Today.Inbound, &o.Today.Outbound, &o.Today.Operations, &o.Today.InboundCount, &o.Today.OutboundCount,
		&o.Week.Inbound, &o.Week.Outbound, &o.Week.Operations, &o.Week.InboundCount, &o.Week.OutboundCount,
		&o.Month.Inbound, &o.Month.Outbound, &o.Month.Operations, &o.Month.InboundCount, &o.Month.OutboundCount,
		&lastMonthIn, &lastMonthOut,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate operation windows: %w", err)
	}
	o.Changes.InboundChange = PercentChange(float64(o.Month.Inbound), float64(lastMonthIn))
	o.Changes.OutboundChange = PercentChange(float64(o.Month.Outbound), float64(lastMonthOut))
	o.Changes.StockChange = StockLevelChange(o.Month.Inbound, o.Month.Outbound, o.Overview.TotalStock)

	o.Overview.TurnoverRate = TurnoverRate(o.Month.Outbound, o.Overview.TotalStock)
	if lastMonthOut > 0 {
		lastTurnover := TurnoverRate(lastMonthOut, o.Overview.TotalStock)
		o.Changes.TurnoverChange = PercentChange(o.Overview.TurnoverRate, lastTurnover)
	} else if o.Overview.TurnoverRate > 0 {
		o.Changes.TurnoverChange = 100
	}

	s.putCache(ctx, key, &o, 30*time.Second)
	return &o, nil
}

func (s *reportingService) Statistics(ctx context.Context, days int) (*Statistics, error) {
	if days <= 0 {
		days = 7
	}
	start := s.now().AddDate(0, 0, -days)

	// Audit mode: deleted entries still count.
	var st Statistics
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE operation_type = 'in'),
		       COUNT(*) FILTER (WHERE operation_type = 'out'),
		       COUNT(*) FILTER (WHERE operation_type = 'transfer'),
		       COALESCE(SUM(quantity) FILTER (WHERE operation_type = 'in'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE operation_type = 'out'), 0)
		FROM operations
		WHERE created_at >= $1
	`, start).Scan(&st.TotalOperations, &st.InboundCount, &st.OutboundCount,
		&st.TransferCount, &st.InboundQuantity, &st.OutboundQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	return &st, nil
}

func (s *reportingService) Charts(ctx context.Context, days int) (*Charts, error) {
	if days <= 0 {
		days = 7
	}
	key := fmt.Sprintf("dashboard_charts_%d", days)
	var cached Charts
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	buckets := DayBuckets(s.now(), days)
	counts, err := s.trendCounts(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD'), operation_type, COUNT(*)
		FROM operations
		WHERE created_at >= $1 AND operation_type IN ('in', 'out')
		GROUP BY 1, 2
	`, buckets[0].Start)
	if err != nil {
		return nil, err
	}

	c := &Charts{Trend: make([]TrendPoint, 0, len(buckets))}
	for _, b := range buckets {
		c.Trend = append(c.Trend, TrendPoint{
			Date:     b.Key,
			Inbound:  counts[b.Key][OpIn],
			Outbound: counts[b.Key][OpOut],
		})
	}

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(c.name, 'Uncategorized'), COUNT(i.id), COALESCE(SUM(i.stock), 0)
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		GROUP BY c.name
		ORDER BY COUNT(i.id) DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category distribution: %w", err)
	}
	for rows.Next() {
		var cs CategorySlice
		if err := rows.Scan(&cs.Name, &cs.Count, &cs.TotalStock); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category slice: %w", err)
		}
		c.CategoryDistribution = append(c.CategoryDistribution, cs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category slices: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT w.name, w.code, w.capacity, COALESCE(SUM(i.stock), 0)
		FROM warehouses w
		LEFT JOIN items i ON i.warehouse_id = w.id
		WHERE w.is_active
		GROUP BY w.id
		ORDER BY w.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse usage: %w", err)
	}
	for rows.Next() {
		var wu WarehouseUsage
		if err := rows.Scan(&wu.Name, &wu.Code, &wu.Capacity, &wu.CurrentUsage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan warehouse usage: %w", err)
		}
		if wu.Capacity > 0 {
			wu.UsageRate = round1(float64(wu.CurrentUsage) / float64(wu.Capacity) * 100)
		}
		c.WarehouseUsage = append(c.WarehouseUsage, wu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warehouse usage: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT s.name, COUNT(i.id)
		FROM items i
		JOIN suppliers s ON s.id = i.supplier_id
		GROUP BY s.name
		ORDER BY COUNT(i.id) DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier ranking: %w", err)
	}
	for rows.Next() {
		var sr SupplierRank
		if err := rows.Scan(&sr.Name, &sr.ItemCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan supplier rank: %w", err)
		}
		c.SupplierRanking = append(c.SupplierRanking, sr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating supplier ranking: %w", err)
	}

	s.putCache(ctx, key, c, 60*time.Second)
	return c, nil
}

func (s *reportingService) Trend(ctx context.Context, period string) (*TrendSeries, error) {
	var buckets []TrendBucket
	var groupExpr string
	switch period {
	case "", "month":
		period = "month"
		buckets = MonthBuckets(s.now(), 6)
		groupExpr = "to_char(date_trunc('month', created_at), 'YYYY-MM')"
	case "quarter":
		buckets = QuarterBuckets(s.now(), 4)
		groupExpr = "to_char(created_at, 'YYYY') || '-Q' || to_char(created_at, 'Q')"
	case "year":
		buckets = YearBuckets(s.now(), 3)
		groupExpr = "to_char(date_trunc('year', created_at), 'YYYY')"
	default:
		return nil, &ValidationError{Field: "period", Message: "period must be month, quarter, or year"}
	}

	key := "dashboard_trend_" + period
	var cached TrendSeries
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	counts, err := s.trendCounts(ctx, fmt.Sprintf(`
		SELECT %s, operation_type, COUNT(*)
		FROM operations
		WHERE created_at >= $1 AND operation_type IN ('in', 'out')
		GROUP BY 1, 2
	`, groupExpr), buckets[0].Start)
	if err != nil {
		return nil, err
	}

	series := &TrendSeries{
		Labels:   make([]string, 0, len(buckets)),
		Inbound:  make([]int, 0, len(buckets)),
		Outbound: make([]int, 0, len(buckets)),
	}
	for _, b := range buckets {
		series.Labels = append(series.Labels, b.Label)
		series.Inbound = append(series.Inbound, counts[b.Key][OpIn])
		series.Outbound = append(series.Outbound, counts[b.Key][OpOut])
	}

	s.putCache(ctx, key, series, 60*time.Second)
	return series, nil
}

// trendCounts runs an audit-mode bucket/kind count query and indexes the
// results by bucket key then kind.
func (s *reportingService) trendCounts(ctx context.Context, query string, since time.Time) (map[string]map[OperationKind]int, error) {
	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[OperationKind]int)
	for rows.Next() {
		var key string
		var kind OperationKind
		var n int
		if err := rows.Scan(&key, &kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan trend count: %w", err)
		}
		if counts[key] == nil {
			counts[key] = make(map[OperationKind]int)
		}
		counts[key][kind] = n
	}
	return counts, rows.Err()
}

func (s *reportingService) Distribution(ctx context.Context) (*Distribution, error) {
	const key = "dashboard_distribution"
	var cached Distribution
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(c.name, 'Uncategorized'), COUNT(i.id)
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		GROUP BY c.name
		HAVING COUNT(i.id) > 0
		ORDER BY COUNT(i.id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}
	defer rows.Close()

	d := &Distribution{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan distribution row: %w", err)
		}
		d.Labels = append(d.Labels, label)
		d.Values = append(d.Values, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution: %w", err)
	}

	s.putCache(ctx, key, d, 60*time.Second)
	return d, nil
}

func (s *reportingService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	const key = "dashboard_low_stock"
	var cached []LowStockItem
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.code, COALESCE(c.name, '-'), COALESCE(w.name, '-'),
		       i.stock, i.min_stock, i.status, i.updated_at
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		LEFT JOIN warehouses w ON w.id = i.warehouse_id
		WHERE i.status IN ('low_stock', 'out_of_stock')
		ORDER BY i.stock ASC
		LIMIT 20
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock items: %w", err)
	}
	defer rows.Close()

	var items []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Code, &it.Category, &it.Warehouse,
			&it.Stock, &it.MinStock, &it.Status, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan low stock item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating low stock items: %w", err)
	}

	s.putCache(ctx, key, items, 30*time.Second)
	return items, nil
}

func (s *reportingService) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := fmt.Sprintf("dashboard_activities_%d", limit)
	var cached []Activity
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	// Operational view: the activity feed hides soft-deleted entries, unlike
	// every aggregate above.
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.operation_type, i.name, i.code, o.quantity,
		       COALESCE(NULLIF(u.full_name, ''), u.username, 'system'), o.created_at
		FROM operations o
		JOIN items i      ON i.id = o.item_id
		LEFT JOIN users u ON u.id = o.operator_id
		WHERE o.is_deleted = FALSE
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.ItemName, &a.ItemCode, &a.Quantity, &a.OperatorName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.KindLabel = a.Kind.Label()
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	s.putCache(ctx, key, activities, 15*time.Second)
	return activities, nil
}
