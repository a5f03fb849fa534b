package config

// Redis backs the OTP store and the rate limiter on the server, and
// optionally the client's session storage. Connection parameters come
// from environment variables; when the connection cannot be
// established the constructor returns nil and callers degrade
// gracefully (rate limiting off, OTP endpoints report unavailable).

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
//
//	REDIS_HOST / REDIS_PORT   hostname and port of the Redis server
//	REDIS_ADDR                host:port shorthand (host/port win if both set)
//	REDIS_PASSWORD            optional password
//	REDIS_DB                  database number (default 0)
//	REDIS_TLS                 enable TLS when "true" or "1"
//
// The returned client is nil if the server cannot be reached.
func NewRedisClient() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr := os.Getenv("REDIS_ADDR")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	return NewRedisClientAddr(addr)
}

// NewRedisClientAddr is the explicit-address variant used by the client
// CLI, which carries the address in its own config rather than the
// REDIS_* variables.
func NewRedisClientAddr(addr string) *redis.Client {
	pwd := os.Getenv("REDIS_PASSWORD")
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
		Password:  pwd,
		DB:        dbNum,
		TLSConfig: tlsConf,
	})
	// Ping with a short timeout; nil signals callers to degrade.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
