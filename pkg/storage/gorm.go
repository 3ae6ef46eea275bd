package storage

import (
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/storage/repositories"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Options configures Open
type Options struct {
	// Driver is one of sqlite (default), postgres or mysql
	Driver string
	// DSN is the sqlite file path or the postgres/mysql connection string.
	// MySQL DSNs need parseTime=true.
	DSN string
	// NowFunc overrides the clock used for created_at/updated_at
	NowFunc func() time.Time
}

// GormStorage implements Storage on top of GORM
type GormStorage struct {
	db     *gorm.DB
	logger *logger.Logger

	proxyRepo   *repositories.ProxyRepository
	sessionRepo *repositories.SessionRepository
	userRepo    *repositories.UserRepository
	settingRepo *repositories.SettingRepository
}

// Open connects to the configured database and migrates the schema
func Open(opts Options, appLogger *logger.Logger) (Storage, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Silent)
	if appLogger != nil && appLogger.Level() == logger.DebugLevel {
		gormLogger = gormlogger.New(appLogger.Named("gorm"), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Info,
			IgnoreRecordNotFoundError: true,
		})
	}

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = defaultNow
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		NowFunc:        nowFunc,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Driver == "" || opts.Driver == DriverSQLite {
		// SQLite serialises writers, and every ":memory:" connection is a
		// separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if appLogger != nil {
		appLogger.Info("Database opened (%s)", driverName(opts.Driver))
	} else {
		log.Printf("Database opened (%s)", driverName(opts.Driver))
	}

	return &GormStorage{
		db:          db,
		logger:      appLogger,
		proxyRepo:   repositories.NewProxyRepository(db),
		sessionRepo: repositories.NewSessionRepository(db),
		userRepo:    repositories.NewUserRepository(db),
		settingRepo: repositories.NewSettingRepository(db),
	}, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		return postgres.Open(dsn), nil
	case DriverMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("mysql dsn is required")
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", driver)
	}
}

func driverName(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}

// defaultNow is UTC at microsecond precision so timestamps round-trip
// identically through every supported driver
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// DB returns the underlying GORM database instance
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

func (s *GormStorage) Proxies() *repositories.ProxyRepository {
	return s.proxyRepo
}

func (s *GormStorage) Sessions() *repositories.SessionRepository {
	return s.sessionRepo
}

func (s *GormStorage) Users() *repositories.UserRepository {
	return s.userRepo
}

func (s *GormStorage) Settings() *repositories.SettingRepository {
	return s.settingRepo
}

// Close closes the database connection
func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Database closed")
	} else {
		log.Println("Database closed")
	}
	return nil
}
