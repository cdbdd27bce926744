package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/insights/app/models"
	"github.com/ManuelReschke/insights/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// SetupDatabase opens the configured database, retrying MySQL while it is
// still starting up, and migrates the schema.
func SetupDatabase(cfg config.Database, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DBDriverSQLite:
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	default:
		db, err = openMySQL(cfg, gormCfg)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// mysqlDSN pins the session to UTC so calendar dates are written and read
// back unchanged whatever the host zone, and reports matched rather than
// changed rows so an update that rewrites identical values is not mistaken
// for a missing row.
func mysqlDSN(cfg config.Database) string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

func openMySQL(cfg config.Database, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := mysqlDSN(cfg)

	var err error
	for i := 0; i < maxRetries; i++ {
		var db *gorm.DB
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,   // data source name
			DefaultStringSize:         256,   // default size for string fields
			DisableDatetimePrecision:  true,  // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
		}), gormCfg)
		if err == nil {
			return db, nil
		}

		log.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("connect to mysql: %w", err)
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.News{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warnf("Could not access database handle: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warnf("Could not close database: %v", err)
	}
}
