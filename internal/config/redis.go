package config

// Redis backs the distributed rate limiter and the HTTP response cache.
// Both features degrade gracefully: when no Redis server can be reached at
// startup the constructor returns nil and the middleware become no-ops.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from environment variables:
//   REDIS_HOST / REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (host/port take precedence when both are set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// The returned client is nil when a connection cannot be established.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			dbNum = n
		}
	}
	var tlsConf *tls.Config
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})
	// Ping with a short timeout; nil signals the caller to run without Redis.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
