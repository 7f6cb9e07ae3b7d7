// Package testutil starts throwaway database containers for integration
// tests. Every helper skips the calling test when Docker is not available.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startTimeout is generous to accommodate image pulls in CI environments.
const startTimeout = 3 * time.Minute

func run(t *testing.T, image string, opts ...testcontainers.ContainerCustomizer) (testcontainers.Container, string) {
	t.Helper()

	if testing.Short() {
		t.Skipf("skipping %s container in short mode", image)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	c, err := testcontainers.Run(ctx, image, opts...)
	// Registered before the error check so a half-started container is
	// still removed.
	testcontainers.CleanupContainer(t, c)
	if err != nil {
		t.Skipf("docker unavailable, skipping %s: %v", image, err)
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("%s endpoint: %v", image, err)
	}
	return c, endpoint
}

// StartPostgres runs postgres:16 and returns a pgx-compatible DSN.
func StartPostgres(t *testing.T) string {
	t.Helper()
	_, endpoint := run(t, "postgres:16",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				// Postgres logs readiness twice: once for the init
				// server and once for the real one.
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2*time.Minute),
		),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "stepgraph",
			"POSTGRES_PASSWORD": "stepgraph",
			"POSTGRES_DB":       "stepgraph_test",
		}),
	)
	return fmt.Sprintf("postgres://stepgraph:stepgraph@%s/stepgraph_test?sslmode=disable", endpoint)
}

// StartMongo runs mongo:7 and returns a connection URI.
func StartMongo(t *testing.T) string {
	t.Helper()
	_, endpoint := run(t, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("mongod startup complete"),
		),
	)
	return fmt.Sprintf("mongodb://%s", endpoint)
}

// StartRedis runs redis:7 and returns its host:port address.
func StartRedis(t *testing.T) string {
	t.Helper()
	_, endpoint := run(t, "redis:7",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	return endpoint
}
