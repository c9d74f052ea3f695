package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WarehouseInput is the writable subset of a warehouse.
type WarehouseInput struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
	Manager  string `json:"manager"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"` // nil means leave/default active
}

func (in WarehouseInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if in.Code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	if in.Capacity < 0 {
		return &ValidationError{Field: "capacity", Message: "capacity cannot be negative"}
	}
	return nil
}

// WarehouseUsageInfo is a warehouse plus its derived occupancy.
type WarehouseUsageInfo struct {
	Warehouse
	CurrentUsage int     `json:"current_usage"`
	UsageRate    float64 `json:"usage_rate"`
	ItemCount    int     `json:"item_count"`
}

type WarehouseService interface {
	Create(ctx context.Context, in WarehouseInput) (*Warehouse, error)
	Update(ctx context.Context, id int, in WarehouseInput) (*Warehouse, error)
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Warehouse, error)
	List(ctx context.Context, activeOnly bool) ([]Warehouse, error)

	// Usage derives each warehouse's occupancy from its items' stock. Nothing
	// stores usage; it is always recomputed.
	Usage(ctx context.Context) ([]WarehouseUsageInfo, error)
}

type warehouseService struct {
	pool *pgxpool.Pool
}

func NewWarehouseService(pool *pgxpool.Pool) WarehouseService {
	return &warehouseService{pool: pool}
}

const warehouseColumns = `id, name, code, location, capacity, manager, phone, is_active, created_at, updated_at`

func scanWarehouse(row pgx.Row) (*Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.Name, &w.Code, &w.Location, &w.Capacity,
		&w.Manager, &w.Phone, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *warehouseService) Create(ctx context.Context, in WarehouseInput) (*Warehouse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	w, err := scanWarehouse(s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (name, code, location, capacity, manager, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+warehouseColumns,
		in.Name, in.Code, in.Location, in.Capacity, in.Manager, in.Phone, active))
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", mapPgError(err))
	}
	return w, nil
}

func (s *warehouseService) Update(ctx context.Context, id int, in WarehouseInput) (*Warehouse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Shrinking capacity below current usage is allowed; existing stock is
	// grandfathered and only new inbound deltas are guarded.
	w, err := scanWarehouse(s.pool.QueryRow(ctx, `
		UPDATE warehouses
		SET name = $1, code = $2, location = $3, capacity = $4, manager = $5, phone = $6,
		    is_active = COALESCE($7, is_active), updated_at = NOW()
		WHERE id = $8
		RETURNING `+warehouseColumns,
		in.Name, in.Code, in.Location, in.Capacity, in.Manager, in.Phone, in.IsActive, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "warehouse", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update warehouse: %w", mapPgError(err))
	}
	return w, nil
}

func (s *warehouseService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM warehouses WHERE id = $1", id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &ValidationError{Message: "warehouse still holds items; move them out first"}
		}
		return fmt.Errorf("failed to delete warehouse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "warehouse", ID: id}
	}
	return nil
}

func (s *warehouseService) Get(ctx context.Context, id int) (*Warehouse, error) {
	w, err := scanWarehouse(s.pool.QueryRow(ctx,
		"SELECT "+warehouseColumns+" FROM warehouses WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "warehouse", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch warehouse: %w", err)
	}
	return w, nil
}

func (s *warehouseService) List(ctx context.Context, activeOnly bool) ([]Warehouse, error) {
	query := "SELECT " + warehouseColumns + " FROM warehouses"
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, *w)
	}
	return warehouses, rows.Err()
}

func (s *warehouseService) Usage(ctx context.Context) ([]WarehouseUsageInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.name, w.code, w.location, w.capacity, w.manager, w.phone,
		       w.is_active, w.created_at, w.updated_at,
		       COALESCE(SUM(i.stock), 0), COUNT(i.id)
		FROM warehouses w
		LEFT JOIN items i ON i.warehouse_id = w.id
		GROUP BY w.id
		ORDER BY w.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse usage: %w", err)
	}
	defer rows.Close()

	var infos []WarehouseUsageInfo
	for rows.Next() {
		var info WarehouseUsageInfo
		err := rows.Scan(&info.ID, &info.Name, &info.Code, &info.Location, &info.Capacity,
			&info.Manager, &info.Phone, &info.IsActive, &info.CreatedAt, &info.UpdatedAt,
			&info.CurrentUsage, &info.ItemCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse usage: %w", err)
		}
		if info.Capacity > 0 {
			info.UsageRate = round1(float64(info.CurrentUsage) / float64(info.Capacity) * 100)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
