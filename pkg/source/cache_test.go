package source

import (
	"context"
	"testing"
	"time"

	"github.com/feedpager/feedpager/internal/testutil"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestCache_SetGet(t *testing.T) {
	cache := NewCache(setupTestRedis(t))
	ctx := context.Background()

	key := listingKey("golang", "", 25)
	data := []byte(`{"data": {"children": [], "after": null, "before": null}}`)

	if err := cache.Set(ctx, key, data, time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}
}

func TestCache_Miss(t *testing.T) {
	cache := NewCache(setupTestRedis(t))

	_, err := cache.Get(context.Background(), listingKey("golang", "t3_x", 10))
	if err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestCache_NonPositiveTTLNotStored(t *testing.T) {
	cache := NewCache(setupTestRedis(t))
	ctx := context.Background()

	key := listingKey("golang", "", 10)
	if err := cache.Set(ctx, key, []byte("data"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestCache_Delete(t *testing.T) {
	cache := NewCache(setupTestRedis(t))
	ctx := context.Background()

	key := listingKey("golang", "", 10)
	if err := cache.Set(ctx, key, []byte("data"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestListingKey_Deterministic(t *testing.T) {
	tests := []struct {
		name  string
		feed  string
		after string
		size  int
		want  string
	}{
		{
			name: "initial page",
			feed: "golang",
			size: 25,
			want: "feed:listing:golang:after=:limit=25",
		},
		{
			name:  "continuation page",
			feed:  "golang",
			after: "t3_abc",
			size:  10,
			want:  "feed:listing:golang:after=t3_abc:limit=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := listingKey(tt.feed, tt.after, tt.size); got != tt.want {
				t.Errorf("listingKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListing_CacheReadThrough(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockListing()
	defer mock.Close()
	mock.SetFeedResponse("golang", testutil.NewListingResponse([]string{
		`{"name": "t3_aaa", "title": "cached"}`,
	}, "t3_aaa", ""))

	listing, err := New[post](Config{
		BaseURL:   mock.URL(),
		Feed:      "golang",
		UserAgent: "feedpager-test/1.0.0",
		Cache:     NewCache(redisClient),
		CacheTTL:  time.Minute,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	first, err := listing.FetchInitial(ctx, 25)
	if err != nil {
		t.Fatalf("First FetchInitial() error: %v", err)
	}

	second, err := listing.FetchInitial(ctx, 25)
	if err != nil {
		t.Fatalf("Second FetchInitial() error: %v", err)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1 (second fetch served from cache)", mock.GetRequestCount())
	}
	if len(second.Items) != len(first.Items) {
		t.Errorf("Cached items = %d, want %d", len(second.Items), len(first.Items))
	}
	if second.After == nil || *second.After != "t3_aaa" {
		t.Errorf("Cached After = %v, want t3_aaa", second.After)
	}
}
