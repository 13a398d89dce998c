package startup

import (
	"fmt"
	"os"
	"path/filepath"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"

	"github.com/barbershop/internal/logger"
)

const (
	devDBPort     = 5433
	devDBUser     = "barbershop"
	devDBPassword = "barbershop_dev"
	devDBName     = "barbershop"
)

// StartDevPostgres поднимает встроенный PostgreSQL для режима -dev и возвращает его URL.
func StartDevPostgres(dataDir string) (*embeddedpostgres.EmbeddedPostgres, string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create pgdata dir: %w", err)
	}
	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(devDBPort).
			Username(devDBUser).
			Password(devDBPassword).
			Database(devDBName).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "barbershop-pg-runtime")),
	)
	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, "", fmt.Errorf("start embedded postgres: %w", err)
	}
	url := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", devDBUser, devDBPassword, devDBPort, devDBName)
	logger.Infof("embedded PostgreSQL running on port %d", devDBPort)
	return db, url, nil
}
