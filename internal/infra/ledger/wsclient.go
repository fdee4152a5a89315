package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bookwatch/internal/domain"
	"bookwatch/internal/infra"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
)

const (
	maxRetries    = 10
	pingInterval  = 30 * time.Second
	readTimeout   = 60 * time.Second
	updateBacklog = 16
)

// accountSub is one live account feed. Updates carries decoded (raw binary)
// account payloads in delivery order; the newest payload wins when the
// consumer falls behind, since every payload is a full snapshot.
type accountSub struct {
	address solana.PublicKey
	updates chan []byte
	client  *WSClient
	subID   uint64 // Server-assigned id, 0 until the subscribe is acked
	reqID   uint64 // Outstanding subscribe request id
}

// Updates returns the payload channel. Closed after Unsubscribe.
func (s *accountSub) Updates() <-chan []byte {
	return s.updates
}

// Unsubscribe detaches the feed from the stream and closes Updates.
// Idempotent through the client's bookkeeping.
func (s *accountSub) Unsubscribe() {
	s.client.unsubscribe(s)
}

// WSClient maintains one websocket connection to the ledger PubSub endpoint
// and multiplexes account subscriptions over it. Reconnects with backoff and
// re-subscribes everything after a drop.
type WSClient struct {
	url        string
	commitment string

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	pingStop  chan struct{} // Closed when the current connection goes away
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	nextID atomic.Uint64

	subsMu  sync.Mutex
	subs    map[string][]*accountSub // Keyed by address
	pending map[uint64]*accountSub   // Keyed by subscribe request id
	bySubID map[uint64]*accountSub   // Keyed by server subscription id
}

// NewWSClient creates a client for the given websocket endpoint.
func NewWSClient(wsURL, commitment string) *WSClient {
	return &WSClient{
		url:        wsURL,
		commitment: commitment,
		subs:       make(map[string][]*accountSub),
		pending:    make(map[uint64]*accountSub),
		bySubID:    make(map[uint64]*accountSub),
	}
}

// Connect starts the connection loop in the background.
func (c *WSClient) Connect(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.connectionLoop(ctx)
	return nil
}

func (c *WSClient) connectionLoop(ctx context.Context) {
	defer c.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			slog.Warn("Ledger WS connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			c.readLoop(ctx)
			infra.GlobalMetrics.SetWSConnected(false)
			infra.GlobalMetrics.RecordReconnect()
		}
	}
}

func (c *WSClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.pingStop = stop
	c.mu.Unlock()

	if err := c.resubscribeAll(); err != nil {
		c.closeConnection()
		return err
	}

	go c.pingLoop(ctx, conn, stop)
	infra.GlobalMetrics.SetWSConnected(true)
	slog.Info("Ledger WS connected", slog.String("url", c.url))
	return nil
}

// resubscribeAll re-issues accountSubscribe for every registered feed.
// Called with a fresh connection; previous subscription ids are dead.
func (c *WSClient) resubscribeAll() error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	c.pending = make(map[uint64]*accountSub)
	c.bySubID = make(map[uint64]*accountSub)

	for _, subs := range c.subs {
		for _, sub := range subs {
			if err := c.sendSubscribeLocked(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendSubscribeLocked issues one accountSubscribe request. Caller holds subsMu.
func (c *WSClient) sendSubscribeLocked(sub *accountSub) error {
	reqID := c.nextID.Add(1)
	sub.reqID = reqID
	sub.subID = 0
	c.pending[reqID] = sub

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "accountSubscribe",
		Params: []any{
			sub.address.String(),
			subscribeOpts{Encoding: "base64", Commitment: c.commitment},
		},
	}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.threadSafeWrite(websocket.TextMessage, b)
}

// SubscribeAccount registers a feed for the address. The subscription is
// live immediately; if the socket is currently down, payloads start flowing
// after the next successful reconnect.
func (c *WSClient) SubscribeAccount(ctx context.Context, address solana.PublicKey) (domain.Subscription, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sub := &accountSub{
		address: address,
		updates: make(chan []byte, updateBacklog),
		client:  c,
	}

	c.subsMu.Lock()
	key := address.String()
	c.subs[key] = append(c.subs[key], sub)

	var err error
	if c.isConnected() {
		err = c.sendSubscribeLocked(sub)
	}
	c.subsMu.Unlock()

	if err != nil {
		// Keep the registration: the reconnect path re-subscribes it.
		slog.Warn("accountSubscribe send failed, will retry on reconnect",
			slog.String("address", key), slog.Any("error", err))
	}

	infra.GlobalMetrics.IncrementSubscriptions()
	return sub, nil
}

func (c *WSClient) unsubscribe(sub *accountSub) {
	c.subsMu.Lock()
	key := sub.address.String()
	subs := c.subs[key]
	found := false
	for i, s := range subs {
		if s == sub {
			c.subs[key] = append(subs[:i], subs[i+1:]...)
			found = true
			break
		}
	}
	if len(c.subs[key]) == 0 {
		delete(c.subs, key)
	}
	delete(c.pending, sub.reqID)
	if sub.subID != 0 {
		delete(c.bySubID, sub.subID)
	}
	subID := sub.subID
	if found {
		// Safe: delivery happens under subsMu, and the sub is now unreachable.
		close(sub.updates)
	}
	c.subsMu.Unlock()

	if !found {
		return
	}
	infra.GlobalMetrics.DecrementSubscriptions()

	if subID != 0 && c.isConnected() {
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      c.nextID.Add(1),
			Method:  "accountUnsubscribe",
			Params:  []any{subID},
		}
		if b, err := json.Marshal(req); err == nil {
			// Best effort; a dead socket cleans up server-side anyway.
			c.threadSafeWrite(websocket.TextMessage, b)
		}
	}
}

// pingLoop keeps one connection alive. It is bound to the conn it was
// started with and exits as soon as that connection is torn down, so a
// reconnect never leaves a stale loop behind.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
		}
	}
}

func (c *WSClient) threadSafeWrite(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return domain.NewNetworkError("write", domain.ErrConnectionFailed)
	}
	return c.conn.WriteMessage(msgType, data)
}

func (c *WSClient) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.closeConnection()
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.closeConnection()
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg []byte) {
	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Warn("Unparseable ledger WS frame", slog.Any("error", err))
		return
	}

	switch {
	case m.Method == "accountNotification" && m.Params != nil:
		c.handleNotification(m.Params)

	case m.ID != 0:
		c.handleResponse(&m)
	}
}

// handleResponse matches a subscribe ack to its pending request and records
// the server subscription id.
func (c *WSClient) handleResponse(m *wsMessage) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	sub, ok := c.pending[m.ID]
	if !ok {
		return // Unsubscribe ack or stale response
	}
	delete(c.pending, m.ID)

	if m.Error != nil {
		slog.Error("accountSubscribe rejected",
			slog.String("address", sub.address.String()), slog.Any("error", m.Error))
		return
	}

	var subID uint64
	if err := json.Unmarshal(m.Result, &subID); err != nil {
		slog.Error("Bad accountSubscribe ack", slog.Any("error", err))
		return
	}
	sub.subID = subID
	c.bySubID[subID] = sub
}

// handleNotification routes a payload to its feed. Delivery keeps the newest
// payload under backpressure: each payload is a complete snapshot, so the
// oldest queued one is the right one to shed.
func (c *WSClient) handleNotification(p *notificationParams) {
	if len(p.Result.Value.Data) == 0 {
		return
	}
	payload, err := base64.StdEncoding.DecodeString(p.Result.Value.Data[0])
	if err != nil {
		slog.Warn("Undecodable account payload", slog.Uint64("subscription", p.Subscription), slog.Any("error", err))
		return
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	sub, ok := c.bySubID[p.Subscription]
	if !ok {
		return
	}

	select {
	case sub.updates <- payload:
	default:
		select {
		case <-sub.updates:
		default:
		}
		select {
		case sub.updates <- payload:
		default:
		}
	}
}

func (c *WSClient) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *WSClient) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	c.connected = false
}

// Disconnect stops the connection loop and closes the socket.
func (c *WSClient) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConnection()
	c.wg.Wait()
}
