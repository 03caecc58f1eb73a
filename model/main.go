package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fuchsia74/apiconform/common/config"
	"github.com/fuchsia74/apiconform/common/logger"
)

var DB *gorm.DB

func chooseDB(dsn string) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"):
		logger.Logger.Info("using PostgreSQL as database")
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}), &gorm.Config{PrepareStmt: true})
	case dsn != "":
		logger.Logger.Info("using MySQL as database")
		return gorm.Open(mysql.Open(dsn), &gorm.Config{PrepareStmt: true})
	default:
		logger.Logger.Info("SQL_DSN not set, using SQLite as database")
		path := fmt.Sprintf("%s?_busy_timeout=%d", config.SQLitePath, config.SQLiteBusyTimeout)
		return gorm.Open(sqlite.Open(path), &gorm.Config{PrepareStmt: true})
	}
}

// InitDB opens the run store and migrates its schema.
func InitDB() error {
	var err error
	DB, err = chooseDB(config.SQLDSN)
	if err != nil {
		return errors.Wrap(err, "initialize database")
	}

	if config.DebugSQLEnabled {
		logger.Logger.Debug("debug sql enabled")
		DB = DB.Debug()
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return errors.Wrap(err, "obtain sql.DB")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := DB.AutoMigrate(&Run{}, &CaseResult{}); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	logger.Logger.Info("database schema migrated")
	return nil
}

// CloseDB releases the underlying connection pool.
func CloseDB() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		logger.Logger.Warn("obtain sql.DB for close", zap.Error(err))
		return
	}
	_ = sqlDB.Close()
}
