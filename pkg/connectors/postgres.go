package connectors

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
)

// PostgresConnector hands out the shared gorm handle. Constructed once per
// process and passed by reference; there is no package-level singleton.
type PostgresConnector interface {
	DB(ctx context.Context) *gorm.DB
	Ping(ctx context.Context) error
	Close() error
}

type postgresConnector struct {
	logger commons.Logger
	db     *gorm.DB
}

func NewPostgresConnector(cfg *configs.PostgresConfig, logger commons.Logger) (PostgresConnector, error) {
	db, err := gorm.Open(postgres.Open(cfg.Dsn()), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConnection > 0 {
		sqlDb.SetMaxOpenConns(cfg.MaxOpenConnection)
	}
	if cfg.MaxIdealConnection > 0 {
		sqlDb.SetMaxIdleConns(cfg.MaxIdealConnection)
	}
	sqlDb.SetConnMaxLifetime(time.Hour)
	logger.Infof("postgres connector ready host=%s db=%s", cfg.Host, cfg.DbName)
	return &postgresConnector{logger: logger, db: db}, nil
}

func (p *postgresConnector) DB(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *postgresConnector) Ping(ctx context.Context) error {
	sqlDb, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.PingContext(ctx)
}

func (p *postgresConnector) Close() error {
	sqlDb, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
