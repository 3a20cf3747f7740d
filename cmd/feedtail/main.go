// Command feedtail pages through a listing feed from the terminal. It wires
// the listing source to the paged loader, prints items page by page, and
// maps an Enter keypress to a retry when a fetch fails.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/feedpager/feedpager/pkg/loader"
	"github.com/feedpager/feedpager/pkg/loadstate"
	"github.com/feedpager/feedpager/pkg/logging"
	"github.com/feedpager/feedpager/pkg/source"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// post is the subset of listing item fields feedtail displays.
type post struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "warn")),
		Pretty: true,
		Output: os.Stderr,
	})

	// Configuration from environment
	baseURL := getEnv("LISTING_URL", "https://www.reddit.com")
	feed := getEnv("FEED", "golang")
	userAgent := getEnv("USER_AGENT", "feedtail/0.1.0 (github.com/feedpager/feedpager)")
	pageSize := getEnvInt("PAGE_SIZE", 25)
	maxPages := getEnvInt("MAX_PAGES", 3)

	cfg := source.Config{
		BaseURL:   baseURL,
		Feed:      feed,
		UserAgent: userAgent,
	}

	// Optional Redis-backed response cache
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		cfg.Cache = source.NewCache(redisClient)
		cfg.CacheTTL = time.Minute
		logger.Info().Str("addr", addr).Msg("Response cache enabled")
	}

	// Optional Prometheus endpoint
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", addr).Msg("Serving metrics")
	}

	listing, err := source.New[post](cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create listing source")
	}

	pager, err := loader.New(loader.Config[string, post]{Source: listing})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create loader")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go retryPrompt(ctx, pager)

	fmt.Printf("── r/%s ──\n", feed)

	result, err := pager.LoadInitial(ctx, pageSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Session torn down during initial load")
	}
	printItems(result.Items)

	after := result.After
	for page := 1; page < maxPages && after != nil; page++ {
		next, err := pager.LoadAfter(ctx, *after, pageSize)
		if err != nil {
			logger.Fatal().Err(err).Msg("Session torn down while paging")
		}
		printItems(next.Items)
		after = next.After
	}

	if after == nil {
		fmt.Println("── end of feed ──")
	}
}

// retryPrompt watches the network state and turns an Enter keypress into a
// retry whenever a fetch fails.
func retryPrompt(ctx context.Context, pager *loader.Loader[string, post]) {
	stdin := bufio.NewReader(os.Stdin)

	for state := range pager.NetworkState().Subscribe(ctx) {
		if state.Status != loadstate.StatusError {
			continue
		}

		fmt.Fprintf(os.Stderr, "fetch failed (%s), press Enter to retry\n", state.Message)
		if _, err := stdin.ReadString('\n'); err != nil {
			return
		}
		pager.RetryAllFailed()
	}
}

func printItems(items []post) {
	for _, item := range items {
		fmt.Printf("%-12s %-20s %s\n", item.Name, item.Author, item.Title)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
