package stats

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
)

// RecentSessions is the size of the recent activity feed
const RecentSessions = 10

// Service derives dashboard statistics from the store on every call
type Service struct {
	storage storage.Storage
	ledger  providers.LedgerProvider
	logger  *logger.Logger
}

// NewService creates a new stats service
func NewService() *Service {
	return &Service{}
}

// Name returns the service name
func (s *Service) Name() string {
	return providers.StatsService
}

// Initialize resolves the ledger, which must be registered
func (s *Service) Initialize(ctx context.Context, registry *providers.Registry) error {
	ledger, err := registry.GetLedger()
	if err != nil {
		return fmt.Errorf("stats requires the ledger service: %w", err)
	}

	s.storage = registry.DB()
	s.ledger = ledger
	s.logger = registry.Logger().Named("stats")
	return nil
}

// IsRunnable returns false, nothing is cached or flushed
func (s *Service) IsRunnable() bool {
	return false
}

// Start is not used for the stats service
func (s *Service) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op
func (s *Service) Stop(ctx context.Context) error {
	return nil
}

// RegisterAPIRoutes registers the dashboard route
func (s *Service) RegisterAPIRoutes(app interface{}) error {
	fiberApp, ok := app.(*fiber.App)
	if !ok {
		return fmt.Errorf("invalid app type, expected *fiber.App")
	}
	fiberApp.Get("/api/dashboard/stats", s.handleGetStats)
	return nil
}

// Snapshot computes fleet counts in one grouped pass and attaches the ten
// most recent sessions
func (s *Service) Snapshot(ctx context.Context) (*providers.DashboardStats, error) {
	counts, err := s.storage.Proxies().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count proxies: %w", err)
	}

	users, err := s.storage.Users().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	recent, err := s.ledger.List(ctx, RecentSessions, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent sessions: %w", err)
	}

	return &providers.DashboardStats{
		TotalProxies:   counts.Total,
		OnlineProxies:  counts.Online,
		OfflineProxies: counts.Offline,
		ActiveProxies:  counts.Online,
		TotalUsers:     users,
		RecentSessions: recent,
	}, nil
}

// handleGetStats handles GET /api/dashboard/stats
func (s *Service) handleGetStats(c *fiber.Ctx) error {
	snapshot, err := s.Snapshot(c.UserContext())
	if err != nil {
		s.logger.Error("Error computing stats: %v", err)
		return api.ErrorInternalServerErrorResp(c, "Failed to get dashboard stats")
	}
	return api.SuccessResp(c, snapshot)
}
