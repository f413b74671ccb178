package store

import (
	"context"
	"fmt"

	"github.com/example/slick-storefront/internal/config"
)

// Open connects the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemory(), nil
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.BackendDynamo:
		return OpenDynamo(ctx, cfg.AWSRegion, cfg.DynamoEndpoint, cfg.DynamoTablePrefix)
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
