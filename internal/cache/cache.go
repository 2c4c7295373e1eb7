package cache

import (
	"context"
	"time"

	"tokokasir/internal/domain"
)

// CatalogCache holds product search results. Bump invalidates every entry at
// once, so callers invoke it whenever stock changes.
type CatalogCache interface {
	Get(ctx context.Context, query string) ([]domain.Product, bool, error)
	Set(ctx context.Context, query string, products []domain.Product, ttl time.Duration) error
	Bump(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Bump(_ context.Context) error {
	return nil
}
