package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/redis/go-redis/v9"
)

type RedisConnection struct {
	Client *redis.Client
}

var (
	connection *RedisConnection
	connOnce   sync.Once
	connErr    error
)

var ErrCacheNotConfigured = errors.New("redis address not configured")

func ConnectToCache() {
	if _, err := GetInstance(); err != nil {
		logger.Warning("redis unavailable, enrollment counts will not be cached", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
}

// GetInstance lazily connects to redis once. It fails when REDIS_ADDR is
// unset or the server does not answer a ping.
func GetInstance() (*RedisConnection, error) {
	connOnce.Do(func() {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			connErr = ErrCacheNotConfigured
			return
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: 10,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if connErr = client.Ping(ctx).Err(); connErr != nil {
			client.Close()
			return
		}
		connection = &RedisConnection{Client: client}
		logger.Info("connected to redis successfully")
	})
	return connection, connErr
}
