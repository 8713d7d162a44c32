package events

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	if err := (Nop{}).Publish(context.Background(), Event{Type: IngredientChanged}); err != nil {
		t.Fatalf("Nop.Publish returned error: %v", err)
	}
}

func TestRecorderBuffersEvents(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(1)
	if err := rec.Publish(context.Background(), Event{Type: BaseRecipeChanged, EntityID: 3}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := rec.Publish(context.Background(), Event{Type: BaseRecipeChanged, EntityID: 4}); err == nil {
		t.Fatal("expected error once the recorder is full")
	}
	got := rec.Drain()
	if len(got) != 1 || got[0].EntityID != 3 {
		t.Fatalf("unexpected drained events: %+v", got)
	}
	if len(rec.Drain()) != 0 {
		t.Fatal("expected recorder to be empty after drain")
	}
}

func TestDialRedisRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := DialRedis(context.Background(), "http://not-redis", "costs"); err == nil {
		t.Fatal("expected error for non redis URL")
	}
}

func TestRedisPublishReportsConnectionErrors(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	publisher := NewRedis(client, "costs")
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := publisher.Publish(ctx, Event{Type: FinalProductChanged, EntityID: 1}); err == nil {
		t.Fatal("expected publish to fail without a redis server")
	}
}
