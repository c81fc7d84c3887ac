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

// Alert kinds on the wire
const (
	AlertLowStock   = 1
	AlertNearExpiry = 2
)

// Alert warns about an item condition. An alert stays active until it
// is viewed; a suppressed alert additionally blocks the evaluator from
// raising the same kind for the same item again.
type Alert struct {
	ID             int64     `db:"id" json:"id"`
	Kind           int       `db:"kind" json:"kind"`
	ItemID         int64     `db:"item_id" json:"item_id"`
	Message        string    `db:"message" json:"message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Viewed         bool      `db:"viewed" json:"viewed"`
	SuppressFuture bool      `db:"suppress_future" json:"suppress_future"`
}

// AlertFilter narrows alert listings. Search matches the message text,
// or the item id when the term is numeric.
type AlertFilter struct {
	Kind    int
	Search  string
	Page    int
	PerPage int
}

const alertColumns = `id, kind, item_id, message, created_at, viewed, suppress_future`

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *Alert) error {
	query := `
		INSERT INTO alerts (kind, item_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query, alert.Kind, alert.ItemID, alert.Message).
		Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// CreateTx creates an alert inside an existing transaction
func (r *AlertRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, alert *Alert) error {
	query := `
		INSERT INTO alerts (kind, item_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := tx.QueryRowxContext(ctx, query, alert.Kind, alert.ItemID, alert.Message).
		Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*Alert, error) {
	var alert Alert
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	err := r.db.GetContext(ctx, &alert, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("alert")
	}
	if err != nil {
		return nil, err
	}

	return &alert, nil
}

// ListActive lists alerts that still demand attention: unviewed ones
// plus suppressed ones, which stay listed so the suppression can be
// reviewed and lifted.
func (r *AlertRepository) ListActive(ctx context.Context, filter AlertFilter) ([]*Alert, int64, error) {
	where := ` WHERE (NOT viewed OR suppress_future)`
	args := []interface{}{}

	if filter.Kind != 0 {
		args = append(args, filter.Kind)
		where += ` AND kind = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		if itemID, err := strconv.ParseInt(filter.Search, 10, 64); err == nil {
			args = append(args, itemID)
			where += ` AND item_id = $` + strconv.Itoa(len(args))
		} else {
			args = append(args, "%"+filter.Search+"%")
			where += ` AND message ILIKE $` + strconv.Itoa(len(args))
		}
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alerts`+where, args...); err != nil {
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
	query := `SELECT ` + alertColumns + ` FROM alerts` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var alerts []*Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// CountUnviewed counts alerts not yet viewed
func (r *AlertRepository) CountUnviewed(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alerts WHERE NOT viewed`); err != nil {
		return 0, err
	}
	return count, nil
}

// HasOpenAlert reports whether an unviewed alert of this kind already
// exists for the item. The evaluator uses it to avoid duplicates.
func (r *AlertRepository) HasOpenAlert(ctx context.Context, itemID int64, kind int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM alerts WHERE item_id = $1 AND kind = $2 AND NOT viewed)`

	if err := r.db.GetContext(ctx, &exists, query, itemID, kind); err != nil {
		return false, err
	}
	return exists, nil
}

// IsSuppressed reports whether this item+kind pair carries a standing
// suppression.
func (r *AlertRepository) IsSuppressed(ctx context.Context, itemID int64, kind int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM alerts WHERE item_id = $1 AND kind = $2 AND suppress_future)`

	if err := r.db.GetContext(ctx, &exists, query, itemID, kind); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkViewed marks a single alert as viewed
func (r *AlertRepository) MarkViewed(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET viewed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}

	return nil
}

// MarkAllViewed marks every unviewed alert as viewed. Returns the count.
func (r *AlertRepository) MarkAllViewed(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET viewed = TRUE WHERE NOT viewed`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Suppress marks an alert as viewed and blocks future alerts of the
// same kind for the same item.
func (r *AlertRepository) Suppress(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET viewed = TRUE, suppress_future = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}

	return nil
}

// Unsuppress lifts a standing suppression
func (r *AlertRepository) Unsuppress(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET suppress_future = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}

	return nil
}

// Delete removes an alert. Deleting a suppressed alert also lifts the
// suppression, since the flag lives on the row.
func (r *AlertRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}

	return nil
}

// DeleteViewedBefore purges viewed, unsuppressed alerts older than the
// cutoff. Suppressed alerts are kept: they carry the suppression flag.
func (r *AlertRepository) DeleteViewedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE viewed AND NOT suppress_future AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
