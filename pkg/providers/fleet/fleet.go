// Package fleet manages the proxy devices. Status and public address are
// set independently: an online proxy may have no address and an offline one
// keeps its last address until it is reset. A reset clears the address and
// takes the proxy offline.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
	"github.com/tphan267/arqut-fleet/pkg/uplink"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// FleetProvider owns the proxy lifecycle: registration, status transitions
// and address resets
type FleetProvider struct {
	storage       storage.Storage
	logger        *logger.Logger
	mu            sync.RWMutex
	syncChan      chan<- *uplink.OutboundMessage
	syncCallbacks map[string]syncCallback // pending syncs by message ID
	callbackMu    sync.Mutex
}

// NewFleetProvider creates a new fleet provider
func NewFleetProvider() *FleetProvider {
	return &FleetProvider{
		syncCallbacks: make(map[string]syncCallback),
	}
}

// Name returns the service name
func (p *FleetProvider) Name() string {
	return providers.FleetService
}

// Initialize sets up the fleet service with dependencies
func (p *FleetProvider) Initialize(ctx context.Context, registry *providers.Registry) error {
	p.storage = registry.DB()
	p.logger = registry.Logger().Named("fleet")

	if up := registry.Uplink(); up != nil {
		p.SetSyncChannel(up.OutboundChannel())
		up.AddOnConnectHandler(p.OnReconnect)
		up.SetMessageHandler(uplink.MessageTypeFleetSyncAck, p.HandleSyncAck)
	}

	return nil
}

// IsRunnable returns false, the fleet has no background work
func (p *FleetProvider) IsRunnable() bool {
	return false
}

// Start is a no-op
func (p *FleetProvider) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op
func (p *FleetProvider) Stop(ctx context.Context) error {
	return nil
}

// RegisterAPIRoutes registers fleet routes
func (p *FleetProvider) RegisterAPIRoutes(app interface{}) error {
	if fiberApp, ok := app.(*fiber.App); ok {
		p.RegisterRoutes(fiberApp)
		return nil
	}
	return fmt.Errorf("invalid app type, expected *fiber.App")
}

// Create registers a proxy. It is always stored offline with no public
// address.
func (p *FleetProvider) Create(ctx context.Context, in providers.CreateProxyInput) (*providers.ProxyView, error) {
	if strings.TrimSpace(in.DeviceName) == "" {
		return nil, errs.Validation("device_name is required")
	}
	if !utils.IsValidIP(in.InternalIP) {
		return nil, errs.Validation("internal_ip must be a valid IP address")
	}
	if !utils.IsValidPort(in.Port) {
		return nil, errs.Validation("port must be between 1 and 65535")
	}
	if in.Username == "" {
		return nil, errs.Validation("username is required")
	}
	if in.Password == "" {
		return nil, errs.Validation("password is required")
	}

	proxy := &models.Proxy{
		DeviceName: in.DeviceName,
		InternalIP: in.InternalIP,
		Port:       in.Port,
		Username:   in.Username,
		Password:   in.Password,
		Status:     models.StatusOffline,
	}
	if err := p.storage.Proxies().Create(ctx, proxy); err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	p.logger.Info("Registered proxy %d (%s)", proxy.ID, proxy.DeviceName)

	view := providers.NewProxyView(proxy)
	return &view, nil
}

// List returns every proxy ordered by id
func (p *FleetProvider) List(ctx context.Context) ([]providers.ProxyView, error) {
	proxies, err := p.storage.Proxies().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxies: %w", err)
	}

	views := make([]providers.ProxyView, 0, len(proxies))
	for i := range proxies {
		views = append(views, providers.NewProxyView(&proxies[i]))
	}
	return views, nil
}

// UpdateStatus changes only the supplied fields and always advances
// updated_at. Status and address are not correlated here.
func (p *FleetProvider) UpdateStatus(ctx context.Context, id uint, in providers.UpdateStatusInput) (*models.Proxy, error) {
	updates := make(map[string]any)

	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, errs.Validation("status must be one of online, offline")
		}
		updates["status"] = *in.Status
	}
	if in.PublicIP != nil {
		switch {
		case *in.PublicIP == "":
			updates["public_ip"] = nil
		case !utils.IsValidIP(*in.PublicIP):
			return nil, errs.Validation("public_ip must be a valid IP address")
		default:
			updates["public_ip"] = *in.PublicIP
		}
	}

	if _, err := p.storage.Proxies().Get(ctx, id); err != nil {
		return nil, err
	}
	if _, err := p.storage.Proxies().Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to update proxy %d: %w", id, err)
	}

	proxy, err := p.storage.Proxies().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Proxy %d is now %s", proxy.ID, proxy.Status)
	p.syncStatus(proxy)

	return proxy, nil
}

// ResetAddress clears the public address and forces the proxy offline.
// With a nil proxyID every proxy that is online at call time is reset.
func (p *FleetProvider) ResetAddress(ctx context.Context, proxyID *uint) (*providers.ResetResult, error) {
	if proxyID != nil {
		proxy, err := p.storage.Proxies().Get(ctx, *proxyID)
		if err != nil {
			return nil, err
		}
		if _, err := p.storage.Proxies().ResetAddresses(ctx, []uint{proxy.ID}); err != nil {
			return nil, fmt.Errorf("failed to reset proxy %d: %w", proxy.ID, err)
		}

		p.logger.Info("Reset address of proxy %d (%s)", proxy.ID, proxy.DeviceName)
		p.syncReset([]uint{proxy.ID})

		return &providers.ResetResult{
			Success:       true,
			Message:       fmt.Sprintf("IP reset initiated for proxy %s", proxy.DeviceName),
			AffectedCount: 1,
		}, nil
	}

	// Select then update: a proxy changing status in between is either
	// missed or reset while already offline, so the count is approximate
	// under concurrent writes.
	ids, err := p.storage.Proxies().IDsByStatus(ctx, models.StatusOnline)
	if err != nil {
		return nil, fmt.Errorf("failed to select online proxies: %w", err)
	}
	if len(ids) == 0 {
		return &providers.ResetResult{
			Success:       true,
			Message:       "No online proxies found to reset",
			AffectedCount: 0,
		}, nil
	}

	if _, err := p.storage.Proxies().ResetAddresses(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to reset online proxies: %w", err)
	}

	p.logger.Info("Reset address of %d online proxies", len(ids))
	p.syncReset(ids)

	return &providers.ResetResult{
		Success:       true,
		Message:       "IP reset initiated for all online proxies",
		AffectedCount: len(ids),
	}, nil
}

// GetConnectionDetails returns the client connection details, or nil when
// the proxy does not exist or has no public address
func (p *FleetProvider) GetConnectionDetails(ctx context.Context, id uint) (*providers.ProxyDetails, error) {
	proxy, err := p.storage.Proxies().Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !proxy.HasPublicIP() {
		return nil, nil
	}

	return &providers.ProxyDetails{
		PublicIP: *proxy.PublicIP,
		Port:     proxy.Port,
		Username: proxy.Username,
		Password: proxy.Password,
	}, nil
}
