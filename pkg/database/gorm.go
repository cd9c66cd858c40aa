package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			// Message content and question text appear as query params;
			// keep them out of the SQL log.
			ParameterizedQueries:      true,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}

// configureConnectionPool sizes the pool for the turn workload: each turn
// runs the vector and lexical searches concurrently plus transcript writes,
// so a handful of connections per in-flight conversation.
func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// NewGormDBFromDSN opens the Postgres connection all binaries share
// (server, migrate, seed). The DSN comes from DB_CONNECTION_STRING.
func NewGormDBFromDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: getLogger(),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	return db, nil
}
