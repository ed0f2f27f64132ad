// Package db opens the Postgres connection for denormctl from environment
// configuration.
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/denorm/pkg/envutil"
	"github.com/yungbote/denorm/pkg/logger"
)

// Open connects to Postgres using DENORM_POSTGRES_* environment variables.
func Open(logg *logger.Logger) (*gorm.DB, error) {
	host := envutil.String("DENORM_POSTGRES_HOST", "localhost")
	port := envutil.String("DENORM_POSTGRES_PORT", "5432")
	user := envutil.String("DENORM_POSTGRES_USER", "postgres")
	password := envutil.String("DENORM_POSTGRES_PASSWORD", "")
	name := envutil.String("DENORM_POSTGRES_NAME", "postgres")
	sslMode := envutil.String("DENORM_POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode,
	)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	logg.Info("connected to Postgres", "host", host, "db", name)
	return gdb, nil
}
