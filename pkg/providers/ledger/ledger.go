package ledger

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// Paging defaults for List
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// LedgerProvider records client sessions against proxies
type LedgerProvider struct {
	storage storage.Storage
	logger  *logger.Logger
}

// NewLedgerProvider creates a new ledger provider
func NewLedgerProvider() *LedgerProvider {
	return &LedgerProvider{}
}

// Name returns the service name
func (l *LedgerProvider) Name() string {
	return providers.LedgerService
}

// Initialize sets up the ledger with dependencies
func (l *LedgerProvider) Initialize(ctx context.Context, registry *providers.Registry) error {
	l.storage = registry.DB()
	l.logger = registry.Logger().Named("ledger")
	return nil
}

// IsRunnable returns false
func (l *LedgerProvider) IsRunnable() bool {
	return false
}

// Start is a no-op
func (l *LedgerProvider) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op
func (l *LedgerProvider) Stop(ctx context.Context) error {
	return nil
}

// RegisterAPIRoutes registers session routes
func (l *LedgerProvider) RegisterAPIRoutes(app interface{}) error {
	if fiberApp, ok := app.(*fiber.App); ok {
		l.RegisterRoutes(fiberApp)
		return nil
	}
	return fmt.Errorf("invalid app type, expected *fiber.App")
}

// Open records a session. The proxy must exist when the row is written; a
// missing proxy is an integrity failure and nothing is stored.
func (l *LedgerProvider) Open(ctx context.Context, in providers.OpenSessionInput) (*models.Session, error) {
	if in.ProxyID == 0 {
		return nil, errs.Validation("proxy_id is required")
	}
	if !utils.IsValidIP(in.ClientIP) {
		return nil, errs.Validation("client_ip must be a valid IP address")
	}
	if in.LoginTime == nil || in.LoginTime.IsZero() {
		return nil, errs.Validation("login_time is required")
	}
	if in.BytesTransferred < 0 {
		return nil, errs.Validation("bytes_transferred must not be negative")
	}

	session := &models.Session{
		ProxyID:          in.ProxyID,
		ClientIP:         in.ClientIP,
		LoginTime:        *in.LoginTime,
		LogoutTime:       in.LogoutTime,
		BytesTransferred: in.BytesTransferred,
	}
	if err := l.storage.Sessions().Create(ctx, session); err != nil {
		if errs.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	l.logger.Debug("Opened session %d on proxy %d for %s", session.ID, session.ProxyID, session.ClientIP)
	return session, nil
}

// List returns sessions of existing proxies, newest first. A non-positive
// limit means DefaultLimit and limits above MaxLimit are capped.
func (l *LedgerProvider) List(ctx context.Context, limit, offset int) ([]models.Session, error) {
	limit, offset = normalizePage(limit, offset)

	sessions, err := l.storage.Sessions().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
