package redis

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// AsynqOptions returns asynq connection settings for the Redis opt points
// at, so the refresh queue and worker share the key value store's Redis.
func AsynqOptions(opt *redis.Options) *asynq.RedisClientOpt {
	return &asynq.RedisClientOpt{
		Network:      opt.Network,
		Addr:         opt.Addr,
		Username:     opt.Username,
		Password:     opt.Password,
		DB:           opt.DB,
		PoolSize:     opt.PoolSize,
		TLSConfig:    opt.TLSConfig,
		DialTimeout:  opt.DialTimeout,
		ReadTimeout:  asynqTimeout(opt.ReadTimeout),
		WriteTimeout: asynqTimeout(opt.WriteTimeout),
	}
}

// asynqTimeout maps go-redis timeouts onto asynq's: both read -1 as no
// timeout, but only go-redis knows -2 (no deadline at all).
func asynqTimeout(d time.Duration) time.Duration {
	if d < -1 {
		return -1
	}

	return d
}

// QueueOptions parses the connection URL into asynq connection settings
func (c *Config) QueueOptions() (*asynq.RedisClientOpt, error) {
	opt, err := c.Options()
	if err != nil {
		return nil, err
	}

	return AsynqOptions(opt), nil
}
