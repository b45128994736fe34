package mq

import (
	"context"
	"errors"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tenantdesk/apiserver/config"
)

type recordingBackend struct {
	published []string
	closed    bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	b.published = append(b.published, channel+":"+string(data))
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return handler(ctx, Message{ID: "id-1", Data: []byte(channel)})
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	m, err := Open(ctx, config.MQConfig{})
	if err != nil || m != nil {
		t.Fatalf("expected disabled mq, got %v, %v", m, err)
	}

	tests := []struct {
		name string
		cfg  config.MQConfig
		want string
	}{
		{"unknown backend", config.MQConfig{Backend: "kafka"}, "unknown mq backend"},
		{"rabbitmq without url", config.MQConfig{Backend: "RabbitMQ"}, "RABBITMQ_URL is required"},
		{"pubsub without project", config.MQConfig{Backend: "pubsub"}, "PUBSUB_PROJECT_ID is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMQDelegates(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend)

	id, err := m.Publish(context.Background(), "events", []byte("hello"), nil)
	if err != nil || id != "id-1" {
		t.Fatalf("publish: %q, %v", id, err)
	}
	if len(backend.published) != 1 || backend.published[0] != "events:hello" {
		t.Fatalf("unexpected published %v", backend.published)
	}

	sentinel := errors.New("stop")
	err = m.Subscribe(context.Background(), "events", func(_ context.Context, msg Message) error {
		if string(msg.Data) != "events" {
			t.Fatalf("unexpected message %+v", msg)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected handler error, got %v", err)
	}

	if err := m.Close(); err != nil || !backend.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestHeadersToAttributes(t *testing.T) {
	if got := headersToAttributes(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}

	got := headersToAttributes(amqp.Table{
		"type":  "tenant.created",
		"raw":   []byte("bytes"),
		"count": int32(3),
	})
	want := map[string]string{"type": "tenant.created", "raw": "bytes", "count": "3"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("attribute %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSubscriptionName(t *testing.T) {
	if got := subscriptionName("tenantdesk.events", ""); got != "tenantdesk.events-sub" {
		t.Fatalf("unexpected default name %q", got)
	}
	if got := subscriptionName("tenantdesk.events", "-tail"); got != "tenantdesk.events-tail" {
		t.Fatalf("unexpected suffixed name %q", got)
	}
}
