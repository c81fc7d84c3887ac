package repository

import (
	"context"
	"database/sql"

	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

// Sector is an organizational unit items are withdrawn for.
type Sector struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// SectorRepository handles sector persistence
type SectorRepository struct {
	db *database.DB
}

// NewSectorRepository creates a new sector repository
func NewSectorRepository(db *database.DB) *SectorRepository {
	return &SectorRepository{db: db}
}

// Create creates a new sector
func (r *SectorRepository) Create(ctx context.Context, sector *Sector) error {
	query := `
		INSERT INTO sectors (name, description)
		VALUES ($1, $2)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, sector.Name, sector.Description).Scan(&sector.ID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a sector by ID
func (r *SectorRepository) GetByID(ctx context.Context, id int64) (*Sector, error) {
	var sector Sector
	query := `SELECT id, name, description FROM sectors WHERE id = $1`

	err := r.db.GetContext(ctx, &sector, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("sector")
	}
	if err != nil {
		return nil, err
	}

	return &sector, nil
}

// List lists all sectors ordered by name
func (r *SectorRepository) List(ctx context.Context) ([]*Sector, error) {
	var sectors []*Sector
	query := `SELECT id, name, description FROM sectors ORDER BY name`

	if err := r.db.SelectContext(ctx, &sectors, query); err != nil {
		return nil, err
	}

	return sectors, nil
}
