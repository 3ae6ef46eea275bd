package uplink

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/utils"
)

// Client keeps a websocket connection to the cloud controller and pushes
// fleet events over it
type Client struct {
	cloudURL   string
	apiPath    string
	apiKey     string
	edgeID     string
	serverAddr string

	conn       *websocket.Conn
	connCancel context.CancelFunc
	mutex      sync.RWMutex
	writeMu    sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc

	messageHandlers   map[string]MessageHandler
	onConnectHandlers []OnConnectHandler
	handlerMutex      sync.RWMutex

	outboundChan chan *OutboundMessage

	logger *logger.Logger

	keepaliveInterval time.Duration
	maxBackoff        time.Duration

	reconnecting   bool
	reconnectMutex sync.Mutex
}

// NewClient creates a new uplink client with default API path "/api/v1"
func NewClient(cloudURL string, log *logger.Logger) (*Client, error) {
	return NewClientWithPath(cloudURL, "/api/v1", log)
}

// NewClientWithPath creates a new uplink client with custom API path
func NewClientWithPath(cloudURL string, apiPath string, log *logger.Logger) (*Client, error) {
	if cloudURL == "" {
		return nil, fmt.Errorf("cloud url is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		cloudURL:          strings.TrimRight(cloudURL, "/"),
		apiPath:           apiPath,
		messageHandlers:   make(map[string]MessageHandler),
		outboundChan:      make(chan *OutboundMessage, 100),
		logger:            log,
		keepaliveInterval: 30 * time.Second,
		maxBackoff:        60 * time.Second,
	}, nil
}

// Connect establishes the websocket connection. A failed first attempt is
// retried in the background; the edge keeps serving either way.
func (c *Client) Connect(ctx context.Context, apiKey, edgeID, serverAddr string) {
	c.apiKey = apiKey
	c.edgeID = edgeID
	c.serverAddr = serverAddr

	c.mutex.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mutex.Unlock()

	if err := c.connectOnce(); err != nil {
		c.logger.Warn("Connection failed: %v", err)
		c.logger.Info("Will retry in background...")
		go c.reconnect()
	}
}

func (c *Client) wsURL() (string, error) {
	cloudURL := c.cloudURL
	if after, ok := strings.CutPrefix(cloudURL, "http://"); ok {
		cloudURL = "ws://" + after
	} else if after, ok := strings.CutPrefix(cloudURL, "https://"); ok {
		cloudURL = "wss://" + after
	}

	q := url.Values{}
	q.Set("id", c.edgeID)
	q.Set("os", runtime.GOOS)

	if c.serverAddr != "" {
		host, portStr, err := net.SplitHostPort(c.serverAddr)
		if err != nil {
			return "", fmt.Errorf("failed to parse server address: %w", err)
		}
		if host == "" || host == "::" || host == "0.0.0.0" {
			host = "localhost"
			// server listens on all interfaces, report the actual local IPs
			if localIPs, err := utils.GetLocalIPs(true); err == nil && len(localIPs) > 0 {
				host = strings.Join(localIPs, ",")
			}
		}
		q.Set("host", host)
		q.Set("port", portStr)
	}

	return fmt.Sprintf("%s%s/fleet/ws/edge?%s", cloudURL, c.apiPath, q.Encode()), nil
}

// connectOnce performs a single connection attempt
func (c *Client) connectOnce() error {
	wsURL, err := c.wsURL()
	if err != nil {
		return err
	}

	c.logger.Info("Connecting to %s", wsURL)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	headers := make(map[string][]string)
	headers["Authorization"] = []string{"Bearer " + c.apiKey}

	conn, _, err := dialer.DialContext(c.ctx, wsURL, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to cloud: %w", err)
	}

	connCtx, connCancel := context.WithCancel(c.ctx)

	c.mutex.Lock()
	c.conn = conn
	c.connCancel = connCancel
	c.mutex.Unlock()

	c.logger.Info("Connected to cloud controller")

	// Per-connection workers; they exit when connCtx is cancelled on
	// disconnect so a reconnect never leaves duplicates behind
	go c.readMessages(connCtx, conn)
	go c.keepalive(connCtx)
	go c.processOutboundMessages(connCtx)

	c.handlerMutex.RLock()
	handlers := make([]OnConnectHandler, len(c.onConnectHandlers))
	copy(handlers, c.onConnectHandlers)
	c.handlerMutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(connCtx); err != nil {
			c.logger.Warn("OnConnect handler error: %v", err)
		}
	}

	return nil
}

// readMessages dispatches inbound messages until the connection fails
func (c *Client) readMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Read error: %v", err)
				go c.reconnect()
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Failed to unmarshal message: %v", err)
			continue
		}

		c.handlerMutex.RLock()
		handler, exists := c.messageHandlers[msg.Type]
		c.handlerMutex.RUnlock()

		if !exists {
			c.logger.Debug("No handler for message type: %s", msg.Type)
			continue
		}
		if err := handler(ctx, &msg); err != nil {
			c.logger.Warn("Handler error for %s: %v", msg.Type, err)
		}
	}
}

// SendMessage writes a message on the current connection
func (c *Client) SendMessage(msgType, id string, data any) error {
	c.mutex.RLock()
	conn := c.conn
	c.mutex.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected to cloud")
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	msgBytes, err := json.Marshal(Message{
		Type: msgType,
		ID:   id,
		Data: dataBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// SetMessageHandler adds a message handler for a specific type
func (c *Client) SetMessageHandler(msgType string, handler MessageHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.messageHandlers[msgType] = handler
}

// AddOnConnectHandler adds a handler to be called on every connection
func (c *Client) AddOnConnectHandler(handler OnConnectHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.onConnectHandlers = append(c.onConnectHandlers, handler)
}

// keepalive sends periodic ping messages
func (c *Client) keepalive(ctx context.Context) {
	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mutex.RLock()
			conn := c.conn
			c.mutex.RUnlock()
			if conn == nil {
				continue
			}
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Warn("Ping failed: %v", err)
			}
		}
	}
}

// processOutboundMessages drains the outbound channel onto the connection
func (c *Client) processOutboundMessages(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outboundChan:
			if err := c.SendMessage(msg.Type, msg.ID, msg.Data); err != nil {
				c.logger.Warn("Failed to send outbound message %s: %v", msg.Type, err)
			}
		}
	}
}

// reconnect retries the connection with exponential backoff
func (c *Client) reconnect() {
	c.reconnectMutex.Lock()
	if c.reconnecting {
		c.reconnectMutex.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMutex.Unlock()

	defer func() {
		c.reconnectMutex.Lock()
		c.reconnecting = false
		c.reconnectMutex.Unlock()
	}()

	c.dropConnection()

	backoff := 1 * time.Second
	attempt := 1

	for {
		if c.ctx.Err() != nil {
			c.logger.Info("Reconnection stopped - context cancelled")
			return
		}

		c.logger.Info("Reconnection attempt #%d...", attempt)

		if err := c.connectOnce(); err != nil {
			c.logger.Warn("Reconnect failed: %v (retrying in %v)", err, backoff)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			attempt++
			continue
		}

		c.logger.Info("Reconnected successfully on attempt #%d", attempt)
		return
	}
}

func (c *Client) dropConnection() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the uplink connection and stops reconnecting
func (c *Client) Close() {
	c.mutex.RLock()
	cancel := c.cancel
	c.mutex.RUnlock()
	if cancel != nil {
		cancel()
	}

	c.dropConnection()
	c.logger.Info("Connection closed")
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.conn != nil
}

// OutboundChannel returns the send-only channel for outbound messages
func (c *Client) OutboundChannel() chan<- *OutboundMessage {
	return c.outboundChan
}
