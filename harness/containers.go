package harness

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tbisgaard/bridgekit/config"
)

// StartPostgres runs a disposable PostgreSQL container and returns
// settings pointing at it. The container is terminated when the test
// finishes. Set BRIDGEKIT_DATABASE__HOST to use an external server
// instead.
func StartPostgres(ctx context.Context, t *testing.T) config.DatabaseSettings {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bridgekit"),
		tcpostgres.WithUsername("bridgekit"),
		tcpostgres.WithPassword("bridgekit"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres container port: %v", err)
	}

	return config.DatabaseSettings{
		Host:     host,
		Port:     port.Int(),
		User:     "bridgekit",
		Password: "bridgekit",
		Name:     "bridgekit",
	}
}

// StartBroker runs a disposable RabbitMQ container with the management
// plugin enabled and returns settings pointing at it.
func StartBroker(ctx context.Context, t *testing.T) config.AMQPSettings {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp", "15672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5672/tcp"),
			wait.ForHTTP("/api/overview").
				WithPort("15672/tcp").
				WithBasicAuth("guest", "guest"),
		).WithDeadline(5 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start rabbitmq container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("rabbitmq container host: %v", err)
	}
	amqpPort, err := container.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("rabbitmq container amqp port: %v", err)
	}
	mgmtPort, err := container.MappedPort(ctx, "15672/tcp")
	if err != nil {
		t.Fatalf("rabbitmq container management port: %v", err)
	}

	return config.AMQPSettings{
		Host:           host,
		Port:           amqpPort.Int(),
		ManagementPort: mgmtPort.Int(),
		User:           "guest",
		Password:       "guest",
		Vhost:          "/",
	}
}
