package uplink

import (
	"context"
	"encoding/json"
)

// Message types exchanged with the cloud controller
const (
	MessageTypeFleetSync    = "fleet-sync"
	MessageTypeFleetSyncAck = "fleet-sync-ack"
	MessageTypeProxyStatus  = "proxy-status"
	MessageTypeProxyReset   = "proxy-reset"
)

// Message is the envelope read from and written to the websocket
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessageHandler handles an inbound message
type MessageHandler func(ctx context.Context, msg *Message) error

// OnConnectHandler is called every time the client (re)connects
type OnConnectHandler func(ctx context.Context) error

// OutboundMessage is queued on the outbound channel and marshalled on send
type OutboundMessage struct {
	Type string
	ID   string
	Data any
}
