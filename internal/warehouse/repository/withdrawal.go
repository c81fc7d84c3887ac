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

// Withdrawal statuses on the wire
const (
	StatusPending    = 1
	StatusAuthorized = 2
	StatusCompleted  = 3
	StatusDenied     = 4
)

// Withdrawal is a request to take items out of stock. It moves through
// pending, authorized, completed and denied; completed and denied are
// terminal.
type Withdrawal struct {
	ID             int64      `db:"id" json:"id"`
	RequesterID    int64      `db:"requester_id" json:"requester_id"`
	AuthorizedBy   *int64     `db:"authorized_by" json:"authorized_by,omitempty"`
	SectorID       *int64     `db:"sector_id" json:"sector_id,omitempty"`
	Status         int        `db:"status" json:"status"`
	StatusDetail   *string    `db:"status_detail" json:"status_detail,omitempty"`
	Justification  *string    `db:"justification" json:"justification,omitempty"`
	LocalRequester *string    `db:"local_requester" json:"local_requester,omitempty"`
	RequestedAt    time.Time  `db:"requested_at" json:"requested_at"`
	IsActive       bool       `db:"is_active" json:"is_active"`

	Lines []WithdrawalLine `db:"-" json:"items"`
}

// WithdrawalLine is one item position of a withdrawal
type WithdrawalLine struct {
	WithdrawalID int64 `db:"withdrawal_id" json:"-"`
	ItemID       int64 `db:"item_id" json:"item_id"`
	Quantity     int   `db:"quantity" json:"quantity"`
}

// WithdrawalFilter narrows withdrawal listings. Requester matches the
// free-text local requester field; From/To bound the request timestamp.
type WithdrawalFilter struct {
	Status      int
	RequesterID int64
	SectorID    int64
	Requester   string
	From        *time.Time
	To          *time.Time
	Page        int
	PerPage     int
}

const withdrawalColumns = `
	id, requester_id, authorized_by, sector_id, status, status_detail,
	justification, local_requester, requested_at, is_active
`

// WithdrawalRepository handles withdrawal persistence
type WithdrawalRepository struct {
	db *database.DB
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// CreateTx creates a withdrawal and its lines inside a transaction
func (r *WithdrawalRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, w *Withdrawal) error {
	query := `
		INSERT INTO withdrawals (
			requester_id, sector_id, status, justification, local_requester, is_active
		) VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, requested_at, is_active
	`

	err := tx.QueryRowxContext(ctx, query,
		w.RequesterID, w.SectorID, w.Status, w.Justification, w.LocalRequester,
	).Scan(&w.ID, &w.RequestedAt, &w.IsActive)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	lineQuery := `INSERT INTO withdrawal_lines (withdrawal_id, item_id, quantity) VALUES ($1, $2, $3)`
	for i := range w.Lines {
		w.Lines[i].WithdrawalID = w.ID
		if _, err := tx.ExecContext(ctx, lineQuery, w.ID, w.Lines[i].ItemID, w.Lines[i].Quantity); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}

	return nil
}

// GetByID gets a withdrawal with its lines
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*Withdrawal, error) {
	var w Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 AND is_active`

	err := r.db.GetContext(ctx, &w, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("withdrawal")
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, &w); err != nil {
		return nil, err
	}

	return &w, nil
}

// GetForUpdateTx locks a withdrawal row and loads its lines. Status
// transitions lock the row first so concurrent approvals serialize.
func (r *WithdrawalRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Withdrawal, error) {
	var w Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 AND is_active FOR UPDATE`

	err := tx.GetContext(ctx, &w, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("withdrawal")
	}
	if err != nil {
		return nil, err
	}

	lineQuery := `SELECT withdrawal_id, item_id, quantity FROM withdrawal_lines WHERE withdrawal_id = $1 ORDER BY item_id`
	if err := tx.SelectContext(ctx, &w.Lines, lineQuery, id); err != nil {
		return nil, err
	}

	return &w, nil
}

// List lists withdrawals with pagination
func (r *WithdrawalRepository) List(ctx context.Context, filter WithdrawalFilter) ([]*Withdrawal, int64, error) {
	where := ` WHERE is_active`
	args := []interface{}{}

	if filter.Status != 0 {
		args = append(args, filter.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.RequesterID != 0 {
		args = append(args, filter.RequesterID)
		where += ` AND requester_id = $` + strconv.Itoa(len(args))
	}
	if filter.SectorID != 0 {
		args = append(args, filter.SectorID)
		where += ` AND sector_id = $` + strconv.Itoa(len(args))
	}
	if filter.Requester != "" {
		args = append(args, "%"+filter.Requester+"%")
		where += ` AND local_requester ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND requested_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND requested_at <= $` + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM withdrawals`+where, args...); err != nil {
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
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals` + where +
		` ORDER BY requested_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var withdrawals []*Withdrawal
	if err := r.db.SelectContext(ctx, &withdrawals, query, args...); err != nil {
		return nil, 0, err
	}

	for _, w := range withdrawals {
		if err := r.loadLines(ctx, w); err != nil {
			return nil, 0, err
		}
	}

	return withdrawals, total, nil
}

// UpdateStatusTx writes a status transition on a locked withdrawal
func (r *WithdrawalRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id int64, status int, detail *string, actorID int64) error {
	query := `
		UPDATE withdrawals
		SET status = $2, status_detail = $3, authorized_by = $4
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, id, status, detail, actorID)
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
		return errors.NotFound("withdrawal")
	}

	return nil
}

// Deactivate soft-deletes a withdrawal
func (r *WithdrawalRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE withdrawals SET is_active = FALSE WHERE id = $1 AND is_active`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("withdrawal")
	}

	return nil
}

// DeactivateByPeriod soft-deletes every withdrawal requested inside the
// period. Lines and stock stay as they are.
func (r *WithdrawalRepository) DeactivateByPeriod(ctx context.Context, from, to time.Time) (int64, error) {
	query := `
		UPDATE withdrawals
		SET is_active = FALSE
		WHERE is_active AND requested_at >= $1 AND requested_at <= $2
	`

	result, err := r.db.ExecContext(ctx, query, from, to)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *WithdrawalRepository) loadLines(ctx context.Context, w *Withdrawal) error {
	query := `SELECT withdrawal_id, item_id, quantity FROM withdrawal_lines WHERE withdrawal_id = $1 ORDER BY item_id`
	return r.db.SelectContext(ctx, &w.Lines, query, w.ID)
}
