package storage

import (
	"github.com/tphan267/arqut-fleet/pkg/storage/repositories"
	"gorm.io/gorm"
)

// Storage is the database storage interface
type Storage interface {
	// DB returns the underlying GORM database instance
	DB() *gorm.DB

	Proxies() *repositories.ProxyRepository
	Sessions() *repositories.SessionRepository
	Users() *repositories.UserRepository
	Settings() *repositories.SettingRepository

	Close() error
}
