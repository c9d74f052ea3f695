package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SupplierInput is the writable subset of a supplier.
type SupplierInput struct {
	Name    string         `json:"name"`
	Code    string         `json:"code"`
	Contact string         `json:"contact"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
	Address string         `json:"address"`
	Status  SupplierStatus `json:"status"`
	Notes   string         `json:"notes"`
}

func (in SupplierInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if in.Code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	switch in.Status {
	case "", SupplierActive, SupplierInactive:
	default:
		return &ValidationError{Field: "status", Message: "status must be active or inactive"}
	}
	return nil
}

type SupplierService interface {
	Create(ctx context.Context, in SupplierInput) (*Supplier, error)
	Update(ctx context.Context, id int, in SupplierInput) (*Supplier, error)
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Supplier, error)
	List(ctx context.Context, activeOnly bool) ([]Supplier, error)
}

type supplierService struct {
	pool *pgxpool.Pool
}

func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

const supplierColumns = `id, name, code, contact, phone, email, address, status, notes, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var sp Supplier
	err := row.Scan(&sp.ID, &sp.Name, &sp.Code, &sp.Contact, &sp.Phone, &sp.Email,
		&sp.Address, &sp.Status, &sp.Notes, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *supplierService) Create(ctx context.Context, in SupplierInput) (*Supplier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = SupplierActive
	}
	sp, err := scanSupplier(s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, code, contact, phone, email, address, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+supplierColumns,
		in.Name, in.Code, in.Contact, in.Phone, in.Email, in.Address, status, in.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", mapPgError(err))
	}
	return sp, nil
}

func (s *supplierService) Update(ctx context.Context, id int, in SupplierInput) (*Supplier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Deactivating a supplier does not touch its items or history; it only
	// blocks new inbound operations naming it.
	sp, err := scanSupplier(s.pool.QueryRow(ctx, `
		UPDATE suppliers
		SET name = $1, code = $2, contact = $3, phone = $4, email = $5, address = $6,
		    status = COALESCE(NULLIF($7, ''), status), notes = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING `+supplierColumns,
		in.Name, in.Code, in.Contact, in.Phone, in.Email, in.Address, string(in.Status), in.Notes, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "supplier", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", mapPgError(err))
	}
	return sp, nil
}

func (s *supplierService) Delete(ctx context.Context, id int) error {
	// Items and ledger rows keep their supplier reference via ON DELETE SET
	// NULL, so history survives the delete.
	tag, err := s.pool.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "supplier", ID: id}
	}
	return nil
}

func (s *supplierService) Get(ctx context.Context, id int) (*Supplier, error) {
	sp, err := scanSupplier(s.pool.QueryRow(ctx,
		"SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "supplier", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch supplier: %w", err)
	}
	return sp, nil
}

func (s *supplierService) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	query := "SELECT " + supplierColumns + " FROM suppliers"
	if activeOnly {
		query += " WHERE status = 'active'"
	}
	query += " ORDER BY code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		sp, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, *sp)
	}
	return suppliers, rows.Err()
}
