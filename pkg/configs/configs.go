package configs

import "fmt"

type PostgresAuthConfig struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

type PostgresConfig struct {
	Host               string             `mapstructure:"host" validate:"required"`
	Port               int                `mapstructure:"port" validate:"required"`
	DbName             string             `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuthConfig `mapstructure:"auth" validate:"required"`
	MaxOpenConnection  int                `mapstructure:"max_open_connection"`
	MaxIdealConnection int                `mapstructure:"max_ideal_connection"`
	SslMode            string             `mapstructure:"ssl_mode"`
}

// Dsn renders the keyword/value connection string used by both gorm and the
// migration runner.
func (c *PostgresConfig) Dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Auth.User, c.Auth.Password, c.DbName, c.SslMode)
}

func (c *PostgresConfig) Url() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Auth.User, c.Auth.Password, c.Host, c.Port, c.DbName, c.SslMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AssetStoreConfig points at the durable S3 (or S3-compatible) bucket that
// holds raw call recordings until they are confirmed and purged.
type AssetStoreConfig struct {
	Bucket    string `mapstructure:"bucket" validate:"required"`
	Region    string `mapstructure:"region" validate:"required"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

type TwilioConfig struct {
	AccountSid string `mapstructure:"account_sid" validate:"required"`
	AuthToken  string `mapstructure:"auth_token" validate:"required"`
}

type DeepgramConfig struct {
	Key string `mapstructure:"key" validate:"required"`
	// WebhookSecret signs transcription callbacks. May be empty outside
	// production; in production an unsigned callback is rejected.
	WebhookSecret string `mapstructure:"webhook_secret"`
	Model         string `mapstructure:"model"`
}
