package redisstore_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/adapter/outbound/redisstore"
	"github.com/i2y/legacybridge/internal/domain"
)

// These tests need a Redis server; set LEGACYBRIDGE_TEST_REDIS_ADDR to run them.
func newTestStore(t *testing.T) *redisstore.ConfigStore {
	addr := os.Getenv("LEGACYBRIDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEGACYBRIDGE_TEST_REDIS_ADDR not set")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	key := fmt.Sprintf("legacybridge:test:%d", time.Now().UnixNano())
	store := redisstore.New(addr, "", 0, key, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Clear(context.Background())
		_ = store.Close()
	})
	return store
}

func TestConfigStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	got, err := store.Get(ctx)
	require.NoError(err)
	assert.Nil(got)

	cfg := &domain.ProxyConfig{
		BaseURL:   "http://legacy.local",
		APIType:   domain.APITypeREST,
		Resources: []domain.ResourceConfig{{Name: "users", Endpoint: "/users"}},
	}
	require.NoError(store.Set(ctx, cfg))
	got, err = store.Get(ctx)
	require.NoError(err)
	assert.Equal(cfg, got)

	require.NoError(store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(err)
	assert.Nil(got)
}

func TestConfigStore_UnreachableServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := redisstore.New("127.0.0.1:1", "", 0, "", logger)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := store.Get(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))
}
