package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for integration testing. The tests
// are skipped unless DATAIO_INTEGRATION is set, so the suite passes on
// machines without a container runtime.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("DATAIO_INTEGRATION") == "" {
		t.Skip("set DATAIO_INTEGRATION to run container-backed tests")
	}

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

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(context.Background())
	})

	return client
}

func TestRedisCacheMissThenHit(t *testing.T) {
	client := setupRedis(t)
	c := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "abc123", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Fatal("expected a miss on an empty cache")
	}

	if err := c.Put(ctx, "abc123", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, hit, err := c.Get(ctx, "abc123", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Fatalf("expected a hit with the stored bytes, got hit=%v data=%q", hit, data)
	}
}

func TestRedisCacheServerSideExpiry(t *testing.T) {
	client := setupRedis(t)
	c := NewRedisCache(client, time.Second)
	ctx := context.Background()

	if err := c.Put(ctx, "shortlived", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	ttl, err := client.TTL(ctx, "dataio:shortlived").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Fatalf("unexpected server-side TTL: %v", ttl)
	}

	time.Sleep(1500 * time.Millisecond)

	_, hit, err := c.Get(ctx, "shortlived", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Fatal("expired entry must miss")
	}
}
