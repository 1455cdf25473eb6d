package mirror

import (
	"context"
	"testing"
	"time"

	"krakenws/config"
)

func TestNewPublisherDisabledReturnsError(t *testing.T) {
	if _, err := NewPublisher(config.RedisConfig{Enabled: false}); err == nil {
		t.Fatalf("expected error when redis is disabled in configuration")
	}
}

func TestNewPublisherDegradesWhenUnreachable(t *testing.T) {
	p, err := NewPublisher(config.RedisConfig{
		Enabled: true,
		Address: "127.0.0.1:1", // nothing listens here
		Channel: "krakenws:snapshots",
	})
	if err != nil {
		t.Fatalf("expected construction to succeed in degraded mode, got %v", err)
	}
	if p.IsHealthy() {
		t.Fatalf("expected unhealthy publisher against an unreachable address")
	}
}

func TestPublishAgainstUnreachableServerReturnsError(t *testing.T) {
	p, err := NewPublisher(config.RedisConfig{
		Enabled: true,
		Address: "127.0.0.1:1",
		Channel: "krakenws:snapshots",
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := p.Publish(ctx, "book", "XBT/USD", map[string]string{"hello": "world"}); err == nil {
		t.Fatalf("expected Publish to fail against an unreachable server")
	}
	if p.IsHealthy() {
		t.Fatalf("expected publisher marked unhealthy after a failed publish")
	}
}
