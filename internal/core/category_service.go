package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	ParentID    *int   `json:"parent_id"`
	IsActive    *bool  `json:"is_active"`
}

func (in CategoryInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if in.Code == "" {
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	return nil
}

type CategoryService interface {
	Create(ctx context.Context, in CategoryInput) (*Category, error)
	Update(ctx context.Context, id int, in CategoryInput) (*Category, error)
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Category, error)
	List(ctx context.Context, activeOnly bool) ([]Category, error)
}

type categoryService struct {
	pool *pgxpool.Pool
}

func NewCategoryService(pool *pgxpool.Pool) CategoryService {
	return &categoryService{pool: pool}
}

const categoryColumns = `id, name, code, description, parent_id, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.ParentID,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, code, description, parent_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+categoryColumns,
		in.Name, in.Code, in.Description, in.ParentID, active))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", mapPgError(err))
	}
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, id int, in CategoryInput) (*Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ParentID != nil && *in.ParentID == id {
		return nil, &ValidationError{Field: "parent", Message: "category cannot be its own parent"}
	}
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $1, code = $2, description = $3, parent_id = $4,
		    is_active = COALESCE($5, is_active), updated_at = NOW()
		WHERE id = $6
		RETURNING `+categoryColumns,
		in.Name, in.Code, in.Description, in.ParentID, in.IsActive, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", mapPgError(err))
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &ValidationError{Message: "category still has items; reassign them first"}
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func (s *categoryService) Get(ctx context.Context, id int) (*Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	return c, nil
}

func (s *categoryService) List(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}
