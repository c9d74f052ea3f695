package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ItemInput is the writable subset of an item. Stock is deliberately absent:
// balances change only through the operation engine, so every change leaves a
// ledger entry.
type ItemInput struct {
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Barcode     string          `json:"barcode"`
	CategoryID  int             `json:"category_id"`
	SupplierID  *int            `json:"supplier_id"`
	WarehouseID int             `json:"warehouse_id"`
	Price       decimal.Decimal `json:"price"`
	MinStock    int             `json:"min_stock"`
	Shelf       string          `json:"shelf"`
	Description string          `json:"description"`
}

func (in ItemInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if in.Code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	if in.CategoryID <= 0 {
		return &ValidationError{Field: "category", Message: "category is required"}
	}
	if in.WarehouseID <= 0 {
		return &ValidationError{Field: "warehouse", Message: "warehouse is required"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "price cannot be negative"}
	}
	if in.MinStock < 0 {
		return &ValidationError{Field: "min_stock", Message: "min_stock cannot be negative"}
	}
	return nil
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	CategoryID  int
	WarehouseID int
	Status      ItemStatus
	Search      string // matches name, code, barcode
}

type InventoryService interface {
	Create(ctx context.Context, in ItemInput, createdBy *int) (*Item, error)
	Update(ctx context.Context, id int, in ItemInput) (*Item, error)
	Discontinue(ctx context.Context, id int) (*Item, error)
	Reinstate(ctx context.Context, id int) (*Item, error)
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Item, error)
	List(ctx context.Context, filter ItemFilter, page Page) ([]Item, int, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

const itemColumns = `id, name, code, barcode, category_id, supplier_id, warehouse_id,
	price, stock, min_stock, shelf, description, status, created_by, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Code, &it.Barcode, &it.CategoryID, &it.SupplierID,
		&it.WarehouseID, &it.Price, &it.Stock, &it.MinStock, &it.Shelf, &it.Description,
		&it.Status, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// mapPgError converts foreign-key and unique violations into the structured
// errors the HTTP layer renders, instead of leaking postgres details.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503":
		return &ValidationError{Message: "a referenced record does not exist"}
	case "23505":
		return &ValidationError{Message: "a unique field is already in use"}
	}
	return err
}

func (s *inventoryService) Create(ctx context.Context, in ItemInput, createdBy *int) (*Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// New items start at zero stock in status out_of_stock; the first inbound
	// operation establishes the opening balance.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO items (name, code, barcode, category_id, supplier_id, warehouse_id,
		                   price, stock, min_stock, shelf, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12)
		RETURNING `+itemColumns,
		in.Name, in.Code, in.Barcode, in.CategoryID, in.SupplierID, in.WarehouseID,
		in.Price, in.MinStock, in.Shelf, in.Description, StatusFor(0, in.MinStock), createdBy)

	it, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", mapPgError(err))
	}
	return it, nil
}

func (s *inventoryService) Update(ctx context.Context, id int, in ItemInput) (*Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Moving the item record between warehouses without a transfer operation
	// would bypass both the ledger and the capacity guard, so warehouse_id is
	// pinned here. Changing min_stock can flip the derived status, which is
	// why status is recomputed from the live balance.
	row := s.pool.QueryRow(ctx, `
		UPDATE items
		SET name = $1, code = $2, barcode = $3, category_id = $4, supplier_id = $5,
		    price = $6, min_stock = $7, shelf = $8, description = $9,
		    status = CASE WHEN status = 'discontinued' THEN status
		                  WHEN stock <= 0 THEN 'out_of_stock'
		                  WHEN stock <= $7 THEN 'low_stock'
		                  ELSE 'normal' END,
		    updated_at = NOW()
		WHERE id = $10
		RETURNING `+itemColumns,
		in.Name, in.Code, in.Barcode, in.CategoryID, in.SupplierID,
		in.Price, in.MinStock, in.Shelf, in.Description, id)

	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", mapPgError(err))
	}
	return it, nil
}

func (s *inventoryService) Discontinue(ctx context.Context, id int) (*Item, error) {
	return s.setStatus(ctx, id, "SET status = 'discontinued', updated_at = NOW()")
}

// Reinstate clears a discontinued flag; the status returns to whatever the
// balance dictates.
func (s *inventoryService) Reinstate(ctx context.Context, id int) (*Item, error) {
	return s.setStatus(ctx, id, `
		SET status = CASE WHEN stock <= 0 THEN 'out_of_stock'
		                  WHEN stock <= min_stock THEN 'low_stock'
		                  ELSE 'normal' END,
		    updated_at = NOW()`)
}

func (s *inventoryService) setStatus(ctx context.Context, id int, setClause string) (*Item, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE items "+setClause+" WHERE id = $1 RETURNING "+itemColumns, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item status: %w", err)
	}
	return it, nil
}

func (s *inventoryService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &ValidationError{Message: "item has ledger history and cannot be deleted; discontinue it instead"}
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "item", ID: id}
	}
	return nil
}

func (s *inventoryService) Get(ctx context.Context, id int) (*Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	return it, nil
}

func (s *inventoryService) List(ctx context.Context, filter ItemFilter, page Page) ([]Item, int, error) {
	page = page.normalized()

	where := " WHERE TRUE"
	args := []any{}
	addArg := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.CategoryID > 0 {
		addArg(" AND category_id = $%d", filter.CategoryID)
	}
	if filter.WarehouseID > 0 {
		addArg(" AND warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.Status != "" {
		addArg(" AND status = $%d", string(filter.Status))
	}
	if filter.Search != "" {
		addArg(" AND (name ILIKE '%%' || $%d || '%%' OR code ILIKE '%%' || $%[1]d || '%%' OR barcode ILIKE '%%' || $%[1]d || '%%')", filter.Search)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM items"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	query := "SELECT " + itemColumns + " FROM items" + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating items: %w", err)
	}
	return items, total, nil
}
