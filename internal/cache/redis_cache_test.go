package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokokasir/internal/domain"
)

func TestNoopCatalogCacheNeverHits(t *testing.T) {
	var c CatalogCache = NoopCatalogCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "beras", []domain.Product{{ID: "p1"}}, time.Minute))
	_, ok, err := c.Get(ctx, "beras")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Bump(ctx))
}

func TestRedisCatalogCacheBumpInvalidates(t *testing.T) {
	addr := os.Getenv("TOKOKASIR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TOKOKASIR_TEST_REDIS_ADDR to run redis integration test")
	}
	ctx := context.Background()
	c := NewRedisCatalogCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	products := []domain.Product{{ID: "prd-beras", Name: "Beras", Stock: 4, PriceTiers: []domain.PriceTier{{MinQty: 1, Price: 1000}}}}
	require.NoError(t, c.Set(ctx, " Beras ", products, time.Minute))

	got, ok, err := c.Get(ctx, "beras")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, products, got)

	require.NoError(t, c.Bump(ctx))
	_, ok, err = c.Get(ctx, "beras")
	require.NoError(t, err)
	assert.False(t, ok)
}
