package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/uplink"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// syncAckTimeout is how long a sync waits for its ack before it is forgotten
const syncAckTimeout = 5 * time.Minute

// syncCallback tracks a pending sync until the cloud acknowledges it
type syncCallback struct {
	operation string
	subject   string
	timestamp time.Time
}

// syncedProxy is the uplink view of a proxy. Device credentials and the
// internal address never leave the edge.
type syncedProxy struct {
	ID         uint               `json:"id"`
	DeviceName string             `json:"device_name"`
	PublicIP   string             `json:"public_ip"`
	Port       int                `json:"port"`
	Status     models.ProxyStatus `json:"status"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func newSyncedProxy(p *models.Proxy) syncedProxy {
	sp := syncedProxy{
		ID:         p.ID,
		DeviceName: p.DeviceName,
		Port:       p.Port,
		Status:     p.Status,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.PublicIP != nil {
		sp.PublicIP = *p.PublicIP
	}
	return sp
}

type syncAck struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// SetSyncChannel sets the channel for sending fleet events to the uplink
func (p *FleetProvider) SetSyncChannel(ch chan<- *uplink.OutboundMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncChan = ch
}

// OnReconnect pushes the full fleet every time the uplink (re)connects
func (p *FleetProvider) OnReconnect(ctx context.Context) error {
	proxies, err := p.storage.Proxies().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list proxies for sync: %w", err)
	}

	synced := make([]syncedProxy, 0, len(proxies))
	for i := range proxies {
		synced = append(synced, newSyncedProxy(&proxies[i]))
	}

	p.logger.Info("Uplink connected, syncing %d proxies", len(synced))
	p.send(uplink.MessageTypeFleetSync, fmt.Sprintf("%d proxies", len(synced)), map[string]any{
		"proxies": synced,
	})
	return nil
}

// HandleSyncAck processes an acknowledgment from the cloud controller
func (p *FleetProvider) HandleSyncAck(ctx context.Context, msg *uplink.Message) error {
	var ack syncAck
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return fmt.Errorf("failed to unmarshal ack: %w", err)
	}

	p.callbackMu.Lock()
	callback, exists := p.syncCallbacks[ack.MessageID]
	if exists {
		delete(p.syncCallbacks, ack.MessageID)
	}
	p.callbackMu.Unlock()

	if !exists {
		p.logger.Debug("Ack for unknown sync %s: %s", ack.MessageID, ack.Status)
		return nil
	}

	if ack.Status == "success" {
		p.logger.Debug("Sync acknowledged in %v (operation: %s, subject: %s)",
			time.Since(callback.timestamp), callback.operation, callback.subject)
	} else {
		p.logger.Warn("Sync failed - %s (operation: %s, subject: %s)",
			ack.Error, callback.operation, callback.subject)
	}
	return nil
}

// pendingSyncs returns the number of syncs waiting for an ack
func (p *FleetProvider) pendingSyncs() int {
	p.callbackMu.Lock()
	defer p.callbackMu.Unlock()
	return len(p.syncCallbacks)
}

// expireSyncsLocked drops syncs that were never acknowledged. Callers hold
// callbackMu.
func (p *FleetProvider) expireSyncsLocked(now time.Time) {
	for id, cb := range p.syncCallbacks {
		if now.Sub(cb.timestamp) > syncAckTimeout {
			p.logger.Warn("No ack for %s (operation: %s, subject: %s), giving up",
				id, cb.operation, cb.subject)
			delete(p.syncCallbacks, id)
		}
	}
}

func (p *FleetProvider) syncStatus(proxy *models.Proxy) {
	p.send(uplink.MessageTypeProxyStatus, fmt.Sprintf("proxy %d", proxy.ID), map[string]any{
		"proxy": newSyncedProxy(proxy),
	})
}

func (p *FleetProvider) syncReset(ids []uint) {
	p.send(uplink.MessageTypeProxyReset, fmt.Sprintf("%d proxies", len(ids)), map[string]any{
		"proxy_ids": ids,
	})
}

// send queues a message without ever blocking the caller. A full channel
// drops the message.
func (p *FleetProvider) send(msgType, subject string, data map[string]any) {
	p.mu.RLock()
	syncChan := p.syncChan
	p.mu.RUnlock()

	if syncChan == nil {
		return
	}

	messageID, err := utils.GenerateID()
	if err != nil {
		p.logger.Warn("Failed to generate sync id: %v", err)
		return
	}
	data["message_id"] = messageID

	now := time.Now()
	p.callbackMu.Lock()
	p.expireSyncsLocked(now)
	p.syncCallbacks[messageID] = syncCallback{
		operation: msgType,
		subject:   subject,
		timestamp: now,
	}
	p.callbackMu.Unlock()

	select {
	case syncChan <- &uplink.OutboundMessage{Type: msgType, ID: messageID, Data: data}:
		p.logger.Debug("Queued %s for %s (msg_id: %s)", msgType, subject, messageID)
	default:
		p.callbackMu.Lock()
		delete(p.syncCallbacks, messageID)
		p.callbackMu.Unlock()

		p.logger.Warn("Sync channel full, skipping %s for %s", msgType, subject)
	}
}
