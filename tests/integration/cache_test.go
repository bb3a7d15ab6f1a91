package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bcgeo/bcdata-go/pkg/cache"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestRedisBackendFlow exercises the shared metadata cache against a real
// redis: set, hit, delete, and native key expiry.
func TestRedisBackendFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	backend := cache.NewRedisBackend(redisClient)
	mgr := cache.NewManager(backend)

	payload := []byte(`["WHSE_FOREST.TEST_TABLE"]`)
	if err := mgr.Set(ctx, "tables", payload, cache.TableListTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := mgr.Get(ctx, "tables")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Get = %s, want %s", got, payload)
	}

	// Keys are namespaced so several tools can share one redis.
	n, err := redisClient.Exists(ctx, "bcdata:tables").Result()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if n != 1 {
		t.Error("expected namespaced key bcdata:tables in redis")
	}

	if err := mgr.Delete(ctx, "tables"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mgr.Get(ctx, "tables"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get after delete = %v, want ErrCacheMiss", err)
	}
}

func TestRedisBackendNativeExpiry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	mgr := cache.NewManager(cache.NewRedisBackend(redisClient))

	if err := mgr.Set(ctx, "schema-EXPIRY", []byte(`{}`), 1*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := mgr.Get(ctx, "schema-EXPIRY"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := mgr.Get(ctx, "schema-EXPIRY"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get after expiry = %v, want ErrCacheMiss", err)
	}
}

// TestRedisBackendRefreshFlow exercises GetOrRefresh against a real
// backend: one refresh populates the cache, the second read is served
// without calling the refresher again.
func TestRedisBackendRefreshFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	mgr := cache.NewManager(cache.NewRedisBackend(redisClient))

	calls := 0
	refresh := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"table":"WHSE_FOREST.TEST_TABLE"}`), nil
	}

	first, err := mgr.GetOrRefresh(ctx, "schema-WHSE_FOREST.TEST_TABLE", cache.SchemaTTL, refresh)
	if err != nil {
		t.Fatalf("GetOrRefresh (miss): %v", err)
	}
	second, err := mgr.GetOrRefresh(ctx, "schema-WHSE_FOREST.TEST_TABLE", cache.SchemaTTL, refresh)
	if err != nil {
		t.Fatalf("GetOrRefresh (hit): %v", err)
	}

	if calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
	if string(first) != string(second) {
		t.Errorf("cached read %s differs from refreshed read %s", second, first)
	}
}
