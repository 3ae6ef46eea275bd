package providers

import (
	"context"

	"github.com/tphan267/arqut-fleet/pkg/models"
)

// FleetProvider owns the proxy lifecycle
type FleetProvider interface {
	// Create registers a proxy; it always starts offline with no public address
	Create(ctx context.Context, in CreateProxyInput) (*ProxyView, error)
	// List returns all proxies ordered by id
	List(ctx context.Context) ([]ProxyView, error)
	// UpdateStatus applies a partial status/address update
	UpdateStatus(ctx context.Context, id uint, in UpdateStatusInput) (*models.Proxy, error)
	// ResetAddress resets one proxy, or every online proxy when proxyID is nil
	ResetAddress(ctx context.Context, proxyID *uint) (*ResetResult, error)
	// GetConnectionDetails returns nil when the proxy is unknown or has no address
	GetConnectionDetails(ctx context.Context, id uint) (*ProxyDetails, error)
}

// LedgerProvider owns session accounting
type LedgerProvider interface {
	// Open records a session against an existing proxy
	Open(ctx context.Context, in OpenSessionInput) (*models.Session, error)
	// List returns sessions newest first
	List(ctx context.Context, limit, offset int) ([]models.Session, error)
}

// StatsProvider derives dashboard statistics
type StatsProvider interface {
	Snapshot(ctx context.Context) (*DashboardStats, error)
}

// DirectoryProvider manages operator accounts
type DirectoryProvider interface {
	Create(ctx context.Context, in CreateUserInput) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id uint) (DeleteResult, error)
}

// SettingsProvider manages global key/value settings
type SettingsProvider interface {
	List(ctx context.Context) ([]models.Setting, error)
	Put(ctx context.Context, in PutSettingInput) (*models.Setting, error)
}
