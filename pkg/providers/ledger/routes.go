package ledger

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/providers"
)

// RegisterRoutes registers all session API routes
func (l *LedgerProvider) RegisterRoutes(app *fiber.App) {
	sessionAPI := app.Group("/api/sessions")

	sessionAPI.Get("/", l.handleListSessions)
	sessionAPI.Post("/", l.handleOpenSession)
}

// handleListSessions handles GET /api/sessions?limit=&offset=
func (l *LedgerProvider) handleListSessions(c *fiber.Ctx) error {
	limit, offset := normalizePage(c.QueryInt("limit", DefaultLimit), c.QueryInt("offset", 0))

	sessions, err := l.List(c.UserContext(), limit, offset)
	if err != nil {
		l.logger.Error("Error listing sessions: %v", err)
		return api.ErrorInternalServerErrorResp(c, "Failed to get sessions")
	}

	return api.SuccessResp(c, sessions, api.ApiResponseMeta{
		Pagination: &api.Pagination{
			Limit:  limit,
			Offset: offset,
			Count:  len(sessions),
		},
	})
}

// handleOpenSession handles POST /api/sessions
func (l *LedgerProvider) handleOpenSession(c *fiber.Ctx) error {
	var req providers.OpenSessionInput
	if err := c.BodyParser(&req); err != nil {
		return api.ErrorBadRequestResp(c, "Invalid request body")
	}

	session, err := l.Open(c.UserContext(), req)
	if err != nil {
		if errs.KindOf(err) == 0 {
			l.logger.Error("Error opening session: %v", err)
		}
		return api.ErrorFromErr(c, err, "Failed to open session")
	}
	return api.CreatedResp(c, session)
}
