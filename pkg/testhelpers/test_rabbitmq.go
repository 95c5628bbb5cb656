package testhelpers

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

type TestRabbitMQ struct {
	Container *rabbitmq.RabbitMQContainer
	AmqpURL   string
}

func NewTestRabbitMQ(t *testing.T) *TestRabbitMQ {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %s", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get amqp url: %s", err)
	}

	return &TestRabbitMQ{
		Container: container,
		AmqpURL:   amqpURL,
	}
}

func (tr *TestRabbitMQ) Close() {
	if termErr := tr.Container.Terminate(context.Background()); termErr != nil {
		fmt.Printf("failed to terminate container: %v\n", termErr)
	}
}
