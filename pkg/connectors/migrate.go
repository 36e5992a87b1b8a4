package connectors

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
)

// Migrate applies the embedded SQL migrations at boot. A no-change run is not
// an error.
func Migrate(cfg *configs.PostgresConfig, logger commons.Logger, fs embed.FS, dir string) error {
	source, err := iofs.New(fs, dir)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.Url())
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations already up to date")
			return nil
		}
		return err
	}
	logger.Info("migrations applied")
	return nil
}
