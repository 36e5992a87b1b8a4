package connectors

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
)

type RedisConnector interface {
	Client() *redis.Client
	Ping(ctx context.Context) error
	Close() error
}

type redisConnector struct {
	logger commons.Logger
	client *redis.Client
}

func NewRedisConnector(cfg *configs.RedisConfig, logger commons.Logger) RedisConnector {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	return &redisConnector{logger: logger, client: client}
}

// NewRedisConnectorWithClient wraps an existing client. Used by tests with
// redismock.
func NewRedisConnectorWithClient(client *redis.Client, logger commons.Logger) RedisConnector {
	return &redisConnector{logger: logger, client: client}
}

func (r *redisConnector) Client() *redis.Client {
	return r.client
}

func (r *redisConnector) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisConnector) Close() error {
	return r.client.Close()
}
