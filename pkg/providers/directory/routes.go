package directory

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// RegisterRoutes registers all user API routes
func (s *Service) RegisterRoutes(app *fiber.App) {
	userAPI := app.Group("/api/users")

	userAPI.Get("/", s.handleListUsers)
	userAPI.Post("/", s.handleCreateUser)
	userAPI.Put("/:id", s.handleUpdateUser)
	userAPI.Delete("/:id", s.handleDeleteUser)
}

// handleListUsers handles GET /api/users
func (s *Service) handleListUsers(c *fiber.Ctx) error {
	users, err := s.List(c.UserContext())
	if err != nil {
		s.logger.Error("Error listing users: %v", err)
		return api.ErrorInternalServerErrorResp(c, "Failed to get users")
	}
	return api.SuccessResp(c, users)
}

// handleCreateUser handles POST /api/users
func (s *Service) handleCreateUser(c *fiber.Ctx) error {
	var req providers.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return api.ErrorBadRequestResp(c, "Invalid request body")
	}

	user, err := s.Create(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err, "Failed to create user")
	}
	return api.CreatedResp(c, user)
}

// handleUpdateUser handles PUT /api/users/:id
func (s *Service) handleUpdateUser(c *fiber.Ctx) error {
	id, ok := utils.ParseID(c.Params("id"))
	if !ok {
		return api.ErrorBadRequestResp(c, "Invalid user ID")
	}

	var req providers.UpdateUserInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return api.ErrorBadRequestResp(c, "Invalid request body")
		}
	}

	user, err := s.Update(c.UserContext(), id, req)
	if err != nil {
		return s.fail(c, err, "Failed to update user")
	}
	return api.SuccessResp(c, user)
}

// handleDeleteUser handles DELETE /api/users/:id. Deleting an unknown user
// is a normal outcome reported in the data.
func (s *Service) handleDeleteUser(c *fiber.Ctx) error {
	id, ok := utils.ParseID(c.Params("id"))
	if !ok {
		return api.ErrorBadRequestResp(c, "Invalid user ID")
	}

	result, err := s.Delete(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err, "Failed to delete user")
	}
	return api.SuccessResp(c, result)
}

func (s *Service) fail(c *fiber.Ctx, err error, message string) error {
	if errs.KindOf(err) == 0 {
		s.logger.Error("%s: %v", message, err)
	}
	return api.ErrorFromErr(c, err, message)
}
