package testutil

import (
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

// StartRabbitMQ launches a broker and returns a connection dialed the same
// way the server dials it.
func StartRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server startup complete"),
			wait.ForListeningPort("5672/tcp"),
		).WithDeadline(90 * time.Second),
	}, "5672")

	url := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port)

	var conn *amqp.Connection
	require.Eventually(t, func() bool {
		var err error
		conn, err = events.Dial(url)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond, "dial %s", url)

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
