package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
)

// Service manages global key/value settings
type Service struct {
	storage storage.Storage
	logger  *logger.Logger
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Name() string {
	return providers.SettingsService
}

func (s *Service) Initialize(ctx context.Context, registry *providers.Registry) error {
	s.storage = registry.DB()
	s.logger = registry.Logger().Named("settings")
	return nil
}

func (s *Service) IsRunnable() bool {
	return false
}

func (s *Service) Start(ctx context.Context) error {
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	return nil
}

func (s *Service) RegisterAPIRoutes(app interface{}) error {
	fiberApp, ok := app.(*fiber.App)
	if !ok {
		return fmt.Errorf("invalid app type, expected *fiber.App")
	}

	settingsAPI := fiberApp.Group("/api/settings")
	settingsAPI.Get("/", s.handleListSettings)
	settingsAPI.Put("/", s.handlePutSetting)
	return nil
}

// List returns all settings ordered by key
func (s *Service) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.storage.Settings().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// Put inserts or updates the setting for in.Key in a single statement. An
// existing row keeps its id and created_at; a nil description clears it.
func (s *Service) Put(ctx context.Context, in providers.PutSettingInput) (*models.Setting, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, errs.Validation("key is required")
	}

	setting, err := s.storage.Settings().Upsert(ctx, in.Key, in.Value, in.Description)
	if err != nil {
		if errs.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to put setting %s: %w", in.Key, err)
	}

	s.logger.Debug("Setting %s updated", setting.Key)
	return setting, nil
}

func (s *Service) handleListSettings(c *fiber.Ctx) error {
	settings, err := s.List(c.UserContext())
	if err != nil {
		s.logger.Error("Error listing settings: %v", err)
		return api.ErrorInternalServerErrorResp(c, "Failed to get settings")
	}
	return api.SuccessResp(c, settings)
}

func (s *Service) handlePutSetting(c *fiber.Ctx) error {
	var req providers.PutSettingInput
	if err := c.BodyParser(&req); err != nil {
		return api.ErrorBadRequestResp(c, "Invalid request body")
	}

	setting, err := s.Put(c.UserContext(), req)
	if err != nil {
		if errs.KindOf(err) == 0 {
			s.logger.Error("Error putting setting: %v", err)
		}
		return api.ErrorFromErr(c, err, "Failed to save setting")
	}
	return api.SuccessResp(c, setting)
}
