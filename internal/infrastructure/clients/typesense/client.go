package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/retry"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	SelectionsCollection = "address_selections"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	logger := observability.GetLogger()
	err := retry.DoWithLog(ctx, retry.QuickConfig(), "Typesense", func() error {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := client.Health(healthCtx, 2*time.Second)
		return err
	}, *logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	logger.Info().Str("url", cfg.URL).Msg("connected to Typesense")
	return &Client{client: client}, nil
}

// Wrap adapts an existing Typesense client
func Wrap(client *typesense.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the selections collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == SelectionsCollection {
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: SelectionsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "session_id", Type: "string", Facet: pointer.True()},
			{Name: "query", Type: "string"},
			{Name: "description", Type: "string"},
			{Name: "place_id", Type: "string"},
			{Name: "suburb", Type: "string", Optional: pointer.True()},
			{Name: "intent", Type: "string", Facet: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	observability.GetLogger().Info().Str("collection", SelectionsCollection).Msg("created Typesense collection")
	return nil
}
