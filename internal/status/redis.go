package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultRedisChannel is the pub/sub channel refreshes are published on.
	DefaultRedisChannel = "inkdisplay:refresh"
	// DefaultRedisKey holds the latest refresh as JSON.
	DefaultRedisKey = "inkdisplay:refresh:latest"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	Key      string

	DialTimeout    time.Duration
	PublishTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration for addr.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:           addr,
		Channel:        DefaultRedisChannel,
		Key:            DefaultRedisKey,
		DialTimeout:    5 * time.Second,
		PublishTimeout: 3 * time.Second,
	}
}

// RedisPublisher mirrors refreshes into Redis so other processes can follow
// what the display shows.
type RedisPublisher struct {
	client  *redis.Client
	cfg     RedisConfig
	logger  *zap.Logger
	timeout time.Duration
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisPublisher, error) {
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis status publisher initialized",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel))

	return &RedisPublisher{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		timeout: cfg.PublishTimeout,
	}, nil
}

// Publish stores info as the latest refresh and announces it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, info RefreshInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh info: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.cfg.Key, payload, 0)
	pipe.Publish(ctx, p.cfg.Channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish refresh info: %w", err)
	}
	return nil
}

// Handler adapts the publisher to Tracker.Subscribe. Failures are logged.
func (p *RedisPublisher) Handler() Handler {
	return func(info RefreshInfo) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.Publish(ctx, info); err != nil {
			p.logger.Warn("Failed to publish refresh to redis",
				zap.String("plugin_id", info.PluginID),
				zap.Error(err))
		}
	}
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
