package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *ClaimStore {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("get mapped port: %v", err)
	}

	client, err := Connect(ctx, Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewClaimStore(client)
}

func TestClaimStore(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "claim:course:a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim: %v, %v", ok, err)
	}
	ok, err = store.Claim(ctx, "claim:course:a", time.Minute)
	if err != nil || ok {
		t.Fatalf("second claim must lose: %v, %v", ok, err)
	}

	if err := store.Release(ctx, "claim:course:a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = store.Claim(ctx, "claim:course:a", time.Minute)
	if !ok {
		t.Fatal("claim after release must win")
	}
	if err := store.Release(ctx, "claim:course:missing"); err != nil {
		t.Fatalf("releasing an unknown key is not an error: %v", err)
	}
}

func TestClaimStore_Expires(t *testing.T) {
	store := setupRedis(t)
	ctx := context.Background()

	if ok, _ := store.Claim(ctx, "claim:course:ttl", 100*time.Millisecond); !ok {
		t.Fatal("first claim failed")
	}
	time.Sleep(300 * time.Millisecond)
	if ok, _ := store.Claim(ctx, "claim:course:ttl", time.Minute); !ok {
		t.Fatal("claim must be free after its TTL")
	}
}
