package fleet

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// ResetRequest is the body of POST /api/proxies/reset. Omitting proxy_id
// resets every online proxy.
type ResetRequest struct {
	ProxyID *uint `json:"proxy_id"`
}

// RegisterRoutes registers all fleet API routes
func (p *FleetProvider) RegisterRoutes(app *fiber.App) {
	proxyAPI := app.Group("/api/proxies")

	proxyAPI.Get("/", p.handleListProxies)
	proxyAPI.Post("/", p.handleCreateProxy)
	proxyAPI.Post("/reset", p.handleResetAddress)
	proxyAPI.Patch("/:id/status", p.handleUpdateStatus)
	proxyAPI.Get("/:id/details", p.handleGetConnectionDetails)
}

// handleListProxies handles GET /api/proxies
func (p *FleetProvider) handleListProxies(c *fiber.Ctx) error {
	proxies, err := p.List(c.UserContext())
	if err != nil {
		return p.fail(c, err, "Failed to get proxies")
	}
	return api.SuccessResp(c, proxies)
}

// handleCreateProxy handles POST /api/proxies
func (p *FleetProvider) handleCreateProxy(c *fiber.Ctx) error {
	var req providers.CreateProxyInput
	if err := c.BodyParser(&req); err != nil {
		return api.ErrorBadRequestResp(c, "Invalid request body")
	}

	proxy, err := p.Create(c.UserContext(), req)
	if err != nil {
		return p.fail(c, err, "Failed to create proxy")
	}
	return api.CreatedResp(c, proxy)
}

// handleUpdateStatus handles PATCH /api/proxies/:id/status
func (p *FleetProvider) handleUpdateStatus(c *fiber.Ctx) error {
	id, ok := utils.ParseID(c.Params("id"))
	if !ok {
		return api.ErrorBadRequestResp(c, "Invalid proxy ID")
	}

	var req providers.UpdateStatusInput
	if err := c.BodyParser(&req); err != nil {
		return api.ErrorBadRequestResp(c, "Invalid request body")
	}

	proxy, err := p.UpdateStatus(c.UserContext(), id, req)
	if err != nil {
		return p.fail(c, err, "Failed to update proxy status")
	}
	return api.SuccessResp(c, providers.NewProxyView(proxy))
}

// handleResetAddress handles POST /api/proxies/reset
func (p *FleetProvider) handleResetAddress(c *fiber.Ctx) error {
	var req ResetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return api.ErrorBadRequestResp(c, "Invalid request body")
		}
	}

	result, err := p.ResetAddress(c.UserContext(), req.ProxyID)
	if err != nil {
		return p.fail(c, err, "Failed to reset proxy address")
	}
	return api.SuccessResp(c, result)
}

// handleGetConnectionDetails handles GET /api/proxies/:id/details. A proxy
// without an address yields success with no data.
func (p *FleetProvider) handleGetConnectionDetails(c *fiber.Ctx) error {
	id, ok := utils.ParseID(c.Params("id"))
	if !ok {
		return api.ErrorBadRequestResp(c, "Invalid proxy ID")
	}

	details, err := p.GetConnectionDetails(c.UserContext(), id)
	if err != nil {
		return p.fail(c, err, "Failed to get connection details")
	}
	if details == nil {
		return api.SuccessResp(c, nil)
	}
	return api.SuccessResp(c, details)
}

func (p *FleetProvider) fail(c *fiber.Ctx, err error, message string) error {
	if errs.KindOf(err) == 0 {
		p.logger.Error("%s: %v", message, err)
	}
	return api.ErrorFromErr(c, err, message)
}
