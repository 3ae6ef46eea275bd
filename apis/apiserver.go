package apis

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/providers"
)

// ApiServer is the HTTP server using Fiber
type ApiServer struct {
	app       *fiber.App
	providers *providers.Registry
}

// New creates a new HTTP server with the given service registry. Provider
// routes are added by RegisterRoutes.
func New(p *providers.Registry) *ApiServer {
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	s := &ApiServer{
		app:       app,
		providers: p,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *ApiServer) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Output: s.providers.Logger().Writer(),
	}))
}

func (s *ApiServer) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
}

// RegisterRoutes mounts every provider's routes on the server
func (s *ApiServer) RegisterRoutes() error {
	return s.providers.RegisterAllRoutes(s.app)
}

// App returns the underlying Fiber app
func (s *ApiServer) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server
func (s *ApiServer) Start(addr string) error {
	s.providers.Logger().Info("Starting server on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *ApiServer) Shutdown(ctx context.Context) error {
	s.providers.Logger().Info("Server shutdown requested")
	return s.app.ShutdownWithContext(ctx)
}

// handleHealth handles health checks
func (s *ApiServer) handleHealth(c *fiber.Ctx) error {
	sqlDB, err := s.providers.DB().DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		s.providers.Logger().Error("Health check failed: %v", err)
		return api.ErrorCodeResp(c, fiber.StatusServiceUnavailable, "Database unavailable")
	}
	return api.SuccessResp(c, fiber.Map{
		"status": "healthy",
	})
}

// customErrorHandler renders errors that escape a handler, including
// fiber's own 404/405 and recovered panics
func customErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return api.ErrorResp(c, api.ApiError{
			Status:  fe.Code,
			Message: fe.Message,
		})
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return api.ErrorResp(c, api.ApiError{
			Code:    typed.Kind.String(),
			Status:  api.StatusFor(err),
			Message: typed.Message,
		})
	}

	return api.ErrorInternalServerErrorResp(c, "Internal server error")
}
