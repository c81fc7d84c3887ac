package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

// Category groups items. Name holds the canonical form used for
// matching; OriginalName keeps the spelling as first entered.
type Category struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	OriginalName string  `db:"original_name" json:"original_name"`
	Description  *string `db:"description" json:"description,omitempty"`
}

// CategoryRepository handles category persistence
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, cat *Category) error {
	query := `
		INSERT INTO categories (name, original_name, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, cat.Name, cat.OriginalName, cat.Description).Scan(&cat.ID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// CreateTx creates a category inside an existing transaction
func (r *CategoryRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, cat *Category) error {
	query := `
		INSERT INTO categories (name, original_name, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := tx.QueryRowxContext(ctx, query, cat.Name, cat.OriginalName, cat.Description).Scan(&cat.ID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var cat Category
	query := `SELECT id, name, original_name, description FROM categories WHERE id = $1`

	err := r.db.GetContext(ctx, &cat, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("category")
	}
	if err != nil {
		return nil, err
	}

	return &cat, nil
}

// GetByName gets a category by its canonical name
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*Category, error) {
	var cat Category
	query := `SELECT id, name, original_name, description FROM categories WHERE name = $1`

	err := r.db.GetContext(ctx, &cat, query, name)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("category")
	}
	if err != nil {
		return nil, err
	}

	return &cat, nil
}

// List lists all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*Category, error) {
	var cats []*Category
	query := `SELECT id, name, original_name, description FROM categories ORDER BY name`

	if err := r.db.SelectContext(ctx, &cats, query); err != nil {
		return nil, err
	}

	return cats, nil
}
