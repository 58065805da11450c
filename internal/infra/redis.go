package infra

import (
	"context"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedis creates and validates a go-redis client connection.
// blockingConns is the number of connections held by BRPOP workers; the pool
// is grown by that amount so request handlers never wait behind them.
func NewRedis(redisURL string, blockingConns int) (*redis.Client, error) {
	opts, err := redisOptions(redisURL, blockingConns)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Int("pool_size", opts.PoolSize).Msg("redis connected")
	return rdb, nil
}

func redisOptions(redisURL string, blockingConns int) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if blockingConns > 0 {
		opts.PoolSize += blockingConns
	}
	if opts.PoolTimeout <= 0 {
		opts.PoolTimeout = 4 * time.Second
	}
	return opts, nil
}
