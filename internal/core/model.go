package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus is derived from stock vs min_stock on every mutation; it is
// never set directly by stock operations. Discontinued is the one manual
// state: once an item is retired it stays retired regardless of balance.
type ItemStatus string

const (
	StatusNormal       ItemStatus = "normal"
	StatusLowStock     ItemStatus = "low_stock"
	StatusOutOfStock   ItemStatus = "out_of_stock"
	StatusDiscontinued ItemStatus = "discontinued"
)

// StatusFor computes the stock-derived status.
func StatusFor(stock, minStock int) ItemStatus {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= minStock:
		return StatusLowStock
	default:
		return StatusNormal
	}
}

// NextStatus recomputes an item's status after a balance change, preserving
// a manual discontinued state.
func NextStatus(current ItemStatus, stock, minStock int) ItemStatus {
	if current == StatusDiscontinued {
		return StatusDiscontinued
	}
	return StatusFor(stock, minStock)
}

// Item is a stocked good. Stock is mutated only through the operation engine;
// the record services never write it.
type Item struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Barcode     string          `json:"barcode,omitempty"`
	CategoryID  int             `json:"category_id"`
	SupplierID  *int            `json:"supplier_id,omitempty"`
	WarehouseID int             `json:"warehouse_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	Shelf       string          `json:"shelf,omitempty"`
	Description string          `json:"description,omitempty"`
	Status      ItemStatus      `json:"status"`
	CreatedBy   *int            `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TotalValue is the item's stock valued at unit price.
func (i Item) TotalValue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Stock)))
}

// Warehouse declares a storage location. Capacity 0 means unconstrained.
// Usage is always derived from the items assigned to the warehouse, never
// stored.
type Warehouse struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Location  string    `json:"location,omitempty"`
	Capacity  int       `json:"capacity"`
	Manager   string    `json:"manager,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SupplierStatus string

const (
	SupplierActive   SupplierStatus = "active"
	SupplierInactive SupplierStatus = "inactive"
)

type Supplier struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Code      string         `json:"code"`
	Contact   string         `json:"contact,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Email     string         `json:"email,omitempty"`
	Address   string         `json:"address,omitempty"`
	Status    SupplierStatus `json:"status"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	ParentID    *int      `json:"parent_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an authenticated operator.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
