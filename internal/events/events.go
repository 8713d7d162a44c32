// Package events publishes cost change notifications so that caches outside
// this process (menus, dashboards) can refresh.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Type names what changed.
type Type string

const (
	IngredientChanged   Type = "ingredient.changed"
	IngredientDeleted   Type = "ingredient.deleted"
	BaseRecipeChanged   Type = "base_recipe.changed"
	BaseRecipeDeleted   Type = "base_recipe.deleted"
	FinalProductChanged Type = "final_product.changed"
	FinalProductDeleted Type = "final_product.deleted"
)

// Event describes a committed catalogue change. TotalCost is empty for
// ingredients and deletions.
type Event struct {
	Type        Type      `json:"type"`
	WorkspaceID uint      `json:"workspace_id"`
	EntityID    uint      `json:"entity_id"`
	TotalCost   string    `json:"total_cost,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Redis publishes events as JSON on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// DialRedis parses a redis:// URL and returns a publisher after a PING.
func DialRedis(ctx context.Context, url, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, channel), nil
}

// Publish serialises event and sends it on the configured channel.
func (r *Redis) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Recorder keeps published events in memory. Tests use it to assert on
// notifications.
type Recorder struct {
	events chan Event
}

// NewRecorder buffers up to size events.
func NewRecorder(size int) *Recorder {
	return &Recorder{events: make(chan Event, size)}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	select {
	case r.events <- event:
		return nil
	default:
		return fmt.Errorf("recorder full")
	}
}

// Drain returns every buffered event.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case event := <-r.events:
			out = append(out, event)
		default:
			return out
		}
	}
}
