package cache

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis using REDIS_URL. The cache is optional:
// when REDIS_URL is unset the returned client is nil and every cache
// lookup becomes a miss.
func InitRedis(ctx context.Context) *redis.Client {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		log.Println("REDIS_URL not set, market data cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")
	return client
}
