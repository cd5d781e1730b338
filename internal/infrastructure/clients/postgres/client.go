package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/retry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Client represents a PostgreSQL database client
type Client struct {
	db *sqlx.DB
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := observability.GetLogger()
	err = retry.DoWithLog(ctx, retry.DefaultConfig(), "PostgreSQL", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}, *logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return &Client{db: db}, nil
}

// Wrap adapts an existing connection, used with sqlmock in tests
func Wrap(db *sql.DB) *Client {
	return &Client{db: sqlx.NewDb(db, "postgres")}
}

// DB returns the underlying database connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
