package main

import (
	"context"

	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/migrations"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/connectors"
)

func connectorsBoot(cfg *config.AppConfig, logger commons.Logger) (connectors.PostgresConnector, error) {
	if err := connectors.Migrate(&cfg.PostgresConfig, logger, migrations.FS, migrations.Dir); err != nil {
		return nil, err
	}
	return connectors.NewPostgresConnector(&cfg.PostgresConfig, logger)
}

// redisBoot is best-effort: the dedup fast path degrades to the database
// unique constraint when redis is unreachable.
func redisBoot(cfg *config.AppConfig, logger commons.Logger) connectors.RedisConnector {
	redis := connectors.NewRedisConnector(&cfg.RedisConfig, logger)
	if err := redis.Ping(context.Background()); err != nil {
		logger.Warnf("redis unreachable, dedup falls back to database: %v", err)
	}
	return redis
}
