package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

// Item is a stocked product. Name holds the canonical form used for
// identity matching; OriginalName keeps the spelling as first entered.
// An item's identity is the tuple (name, category, expiry date, brand):
// the same product with a different expiry date or brand is a distinct row.
type Item struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	OriginalName string     `db:"original_name" json:"original_name"`
	Description  *string    `db:"description" json:"description,omitempty"`
	Unit         *string    `db:"unit" json:"unit,omitempty"`
	Quantity     int        `db:"quantity" json:"quantity"`
	MinQuantity  int        `db:"min_quantity" json:"min_quantity"`
	Brand        *string    `db:"brand" json:"brand,omitempty"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CategoryID   int64      `db:"category_id" json:"category_id"`
	AuditUserID  *int64     `db:"audit_user_id" json:"audit_user_id,omitempty"`
	EntryDate    time.Time  `db:"entry_date" json:"entry_date"`
	ExitDate     *time.Time `db:"exit_date" json:"exit_date,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
}

// ItemFilter narrows item listings
type ItemFilter struct {
	CategoryID      int64
	Search          string
	IncludeInactive bool
	BelowMin        bool
	Page            int
	PerPage         int
}

const itemColumns = `
	id, name, original_name, description, unit, quantity, min_quantity,
	brand, expiry_date, category_id, audit_user_id, entry_date, exit_date, is_active
`

// ItemRepository handles item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (
			name, original_name, description, unit, quantity, min_quantity,
			brand, expiry_date, category_id, audit_user_id, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING id, entry_date, is_active
	`

	err := r.db.QueryRowxContext(ctx, query,
		item.Name, item.OriginalName, item.Description, item.Unit,
		item.Quantity, item.MinQuantity, item.Brand, item.ExpiryDate,
		item.CategoryID, item.AuditUserID,
	).Scan(&item.ID, &item.EntryDate, &item.IsActive)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// CreateTx creates an item inside an existing transaction
func (r *ItemRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, item *Item) error {
	query := `
		INSERT INTO items (
			name, original_name, description, unit, quantity, min_quantity,
			brand, expiry_date, category_id, audit_user_id, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING id, entry_date, is_active
	`

	err := tx.QueryRowxContext(ctx, query,
		item.Name, item.OriginalName, item.Description, item.Unit,
		item.Quantity, item.MinQuantity, item.Brand, item.ExpiryDate,
		item.CategoryID, item.AuditUserID,
	).Scan(&item.ID, &item.EntryDate, &item.IsActive)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	err := r.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// FindExactMatch resolves an item by its full identity tuple. Expiry
// date and brand use IS NOT DISTINCT FROM so a NULL only matches a
// NULL. Only active items participate in identity resolution.
func (r *ItemRepository) FindExactMatch(ctx context.Context, name string, categoryID int64, expiry *time.Time, brand *string) (*Item, error) {
	var item Item
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE name = $1
		  AND category_id = $2
		  AND expiry_date IS NOT DISTINCT FROM $3
		  AND brand IS NOT DISTINCT FROM $4
		  AND is_active
	`

	err := r.db.GetContext(ctx, &item, query, name, categoryID, expiry, brand)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// FindExactMatchTx is FindExactMatch inside an existing transaction
func (r *ItemRepository) FindExactMatchTx(ctx context.Context, tx *sqlx.Tx, name string, categoryID int64, expiry *time.Time, brand *string) (*Item, error) {
	var item Item
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE name = $1
		  AND category_id = $2
		  AND expiry_date IS NOT DISTINCT FROM $3
		  AND brand IS NOT DISTINCT FROM $4
		  AND is_active
	`

	err := tx.GetContext(ctx, &item, query, name, categoryID, expiry, brand)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// List lists items with pagination
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]*Item, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if !filter.IncludeInactive {
		where += ` AND is_active`
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		where += ` AND category_id = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND name LIKE $` + strconv.Itoa(len(args))
	}
	if filter.BelowMin {
		where += ` AND quantity < min_quantity`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items`+where, args...); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 50
	}

	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + itemColumns + ` FROM items` + where +
		` ORDER BY name LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var items []*Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update updates the mutable fields of an item
func (r *ItemRepository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE items SET
			name = $2, original_name = $3, description = $4, unit = $5,
			min_quantity = $6, brand = $7, expiry_date = $8, category_id = $9,
			audit_user_id = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.OriginalName, item.Description, item.Unit,
		item.MinQuantity, item.Brand, item.ExpiryDate, item.CategoryID,
		item.AuditUserID,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// UpdateDescriptionTx overlays an item's description. Merging incoming
// stock carries the newer description onto the existing row.
func (r *ItemRepository) UpdateDescriptionTx(ctx context.Context, tx *sqlx.Tx, id int64, description *string) error {
	query := `UPDATE items SET description = $2 WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id, description)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// GetForUpdateTx locks an item row for the duration of the transaction.
// Every stock mutation goes through this lock so concurrent withdrawals
// serialize on the row.
func (r *ItemRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// SetQuantityTx writes a new quantity for a locked item
func (r *ItemRepository) SetQuantityTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int, auditUserID *int64) error {
	query := `UPDATE items SET quantity = $2, audit_user_id = COALESCE($3, audit_user_id) WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id, quantity, auditUserID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// AddQuantityTx increments a locked item's quantity. Receiving stock
// refreshes the entry date, so period-based retirement sees the item
// as current again.
func (r *ItemRepository) AddQuantityTx(ctx context.Context, tx *sqlx.Tx, id int64, delta int, auditUserID *int64) error {
	query := `UPDATE items SET quantity = quantity + $2, entry_date = NOW(), audit_user_id = COALESCE($3, audit_user_id) WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id, delta, auditUserID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// DeactivateTx retires an item: clears the active flag and stamps the
// exit date. Identity resolution ignores retired items from then on.
func (r *ItemRepository) DeactivateTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	query := `UPDATE items SET is_active = FALSE, exit_date = NOW() WHERE id = $1 AND is_active`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// ReactivateTx restores a retired item and clears its exit date
func (r *ItemRepository) ReactivateTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	query := `UPDATE items SET is_active = TRUE, exit_date = NULL WHERE id = $1 AND NOT is_active`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// Deactivate retires an item outside a transaction
func (r *ItemRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE items SET is_active = FALSE, exit_date = NOW() WHERE id = $1 AND is_active`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// DeactivateByPeriod retires all active items whose entry date falls
// inside the given period. Returns how many items were retired.
func (r *ItemRepository) DeactivateByPeriod(ctx context.Context, from, to time.Time) (int64, error) {
	query := `
		UPDATE items SET is_active = FALSE, exit_date = NOW()
		WHERE is_active AND entry_date >= $1 AND entry_date <= $2
	`

	result, err := r.db.ExecContext(ctx, query, from, to)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// ListBelowMin lists active items whose stock is under the minimum
func (r *ItemRepository) ListBelowMin(ctx context.Context) ([]*Item, error) {
	var items []*Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_active AND quantity < min_quantity ORDER BY name`

	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}

	return items, nil
}

// ListExpiringBefore lists active items whose expiry date falls on or
// before the given day. Items without an expiry date never match.
func (r *ItemRepository) ListExpiringBefore(ctx context.Context, until time.Time) ([]*Item, error) {
	var items []*Item
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE is_active AND expiry_date IS NOT NULL AND expiry_date <= $1
		ORDER BY expiry_date
	`

	if err := r.db.SelectContext(ctx, &items, query, until); err != nil {
		return nil, err
	}

	return items, nil
}
