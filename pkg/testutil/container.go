// Package testutil provides testing utilities for the warehouse service.
// It includes a testcontainers PostgreSQL setup, mock factories, and
// common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "almoxarifado_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "almoxarifado_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateWarehouseSchema creates the warehouse tables used by the service.
func (c *PostgresContainer) CreateWarehouseSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			original_name VARCHAR(255) NOT NULL,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS sectors (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			original_name VARCHAR(255) NOT NULL,
			description TEXT,
			unit VARCHAR(50),
			quantity INT NOT NULL DEFAULT 0,
			min_quantity INT NOT NULL DEFAULT 0,
			brand VARCHAR(255),
			expiry_date DATE,
			category_id BIGINT NOT NULL REFERENCES categories(id),
			audit_user_id BIGINT,
			entry_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			exit_date TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			CONSTRAINT items_quantity_non_negative CHECK (quantity >= 0)
		);

		CREATE TABLE IF NOT EXISTS withdrawals (
			id BIGSERIAL PRIMARY KEY,
			requester_id BIGINT NOT NULL,
			authorized_by BIGINT,
			sector_id BIGINT REFERENCES sectors(id),
			status INT NOT NULL DEFAULT 1,
			status_detail TEXT,
			justification TEXT,
			local_requester VARCHAR(255),
			requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			CONSTRAINT withdrawals_status_valid CHECK (status BETWEEN 1 AND 4)
		);

		CREATE TABLE IF NOT EXISTS withdrawal_lines (
			withdrawal_id BIGINT NOT NULL REFERENCES withdrawals(id),
			item_id BIGINT NOT NULL REFERENCES items(id),
			quantity INT NOT NULL,
			PRIMARY KEY (withdrawal_id, item_id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			kind INT NOT NULL,
			item_id BIGINT NOT NULL REFERENCES items(id),
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			viewed BOOLEAN NOT NULL DEFAULT FALSE,
			suppress_future BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT alerts_kind_valid CHECK (kind IN (1, 2))
		);

		CREATE INDEX IF NOT EXISTS idx_items_identity
			ON items (name, category_id) WHERE is_active;
		CREATE INDEX IF NOT EXISTS idx_alerts_item_kind
			ON alerts (item_id, kind);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create warehouse schema: %w", err)
	}

	return nil
}

// TruncateWarehouseTables wipes all warehouse tables between tests.
func (c *PostgresContainer) TruncateWarehouseTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE alerts, withdrawal_lines, withdrawals, items, sectors, categories
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate warehouse tables: %w", err)
	}
	return nil
}
