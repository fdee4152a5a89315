package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

func testAddr(b byte) solana.PublicKey {
	var key solana.PublicKey
	key[0] = b
	return key
}

// registerSub wires a feed directly into the client's bookkeeping, the state
// SubscribeAccount plus a subscribe ack would produce, without a socket.
func registerSub(c *WSClient, address solana.PublicKey, subID uint64, backlog int) *accountSub {
	sub := &accountSub{
		address: address,
		updates: make(chan []byte, backlog),
		client:  c,
		subID:   subID,
	}
	c.subsMu.Lock()
	c.subs[address.String()] = append(c.subs[address.String()], sub)
	if subID != 0 {
		c.bySubID[subID] = sub
	}
	c.subsMu.Unlock()
	return sub
}

func notificationFrame(subID uint64, payload []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(payload)
	return fmt.Appendf(nil,
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":%d,"result":{"context":{"slot":100},"value":{"data":["%s","base64"]}}}}`,
		subID, encoded)
}

func TestHandleResponse_SubscribeAck(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := &accountSub{address: testAddr(1), updates: make(chan []byte, 1), client: c}
	c.pending[5] = sub
	sub.reqID = 5

	c.handleMessage([]byte(`{"jsonrpc":"2.0","id":5,"result":42}`))

	if sub.subID != 42 {
		t.Errorf("Expected subID 42, got %d", sub.subID)
	}
	if c.bySubID[42] != sub {
		t.Error("Sub not routed by server subscription id")
	}
	if _, ok := c.pending[5]; ok {
		t.Error("Pending entry not cleared after ack")
	}
}

func TestHandleResponse_Rejected(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := &accountSub{address: testAddr(1), updates: make(chan []byte, 1), client: c}
	c.pending[7] = sub

	c.handleMessage([]byte(`{"jsonrpc":"2.0","id":7,"error":{"code":-32602,"message":"Invalid params"}}`))

	if sub.subID != 0 {
		t.Errorf("Rejected subscribe must not assign a subID, got %d", sub.subID)
	}
	if len(c.bySubID) != 0 {
		t.Error("Rejected subscribe must not be routable")
	}
}

func TestHandleResponse_UnknownID(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	// Unsubscribe acks and stale responses carry ids with no pending entry.
	c.handleMessage([]byte(`{"jsonrpc":"2.0","id":99,"result":true}`))
}

func TestHandleNotification_Delivery(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := registerSub(c, testAddr(1), 42, 4)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	c.handleMessage(notificationFrame(42, payload))

	select {
	case got := <-sub.updates:
		if string(got) != string(payload) {
			t.Errorf("Payload corrupted in delivery: %x", got)
		}
	default:
		t.Fatal("Expected a delivered payload")
	}
}

func TestHandleNotification_UnknownSubscription(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := registerSub(c, testAddr(1), 42, 4)

	c.handleMessage(notificationFrame(999, []byte{1}))

	select {
	case <-sub.updates:
		t.Error("Payload for a different subscription must not be delivered")
	default:
	}
}

func TestHandleNotification_BadBase64(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := registerSub(c, testAddr(1), 42, 4)

	c.handleMessage([]byte(`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":42,"result":{"context":{"slot":1},"value":{"data":["!!!not-base64!!!","base64"]}}}}`))

	select {
	case <-sub.updates:
		t.Error("Undecodable payload must be dropped")
	default:
	}
}

func TestHandleNotification_DropOldest(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	sub := registerSub(c, testAddr(1), 42, 1)

	c.handleMessage(notificationFrame(42, []byte{1}))
	c.handleMessage(notificationFrame(42, []byte{2}))
	c.handleMessage(notificationFrame(42, []byte{3}))

	got := <-sub.updates
	if got[0] != 3 {
		t.Errorf("Expected newest payload 3 to survive backpressure, got %d", got[0])
	}
	select {
	case extra := <-sub.updates:
		t.Errorf("Expected a single queued payload, got extra %d", extra[0])
	default:
	}
}

func TestHandleMessage_GarbageFrame(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	c.handleMessage([]byte(`not json at all`))
	c.handleMessage([]byte(`{}`))
}

func TestSubscribeAccount_WhileDisconnected(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	address := testAddr(1)

	sub, err := c.SubscribeAccount(context.Background(), address)
	if err != nil {
		t.Fatalf("SubscribeAccount failed: %v", err)
	}

	c.subsMu.Lock()
	registered := len(c.subs[address.String()])
	c.subsMu.Unlock()
	if registered != 1 {
		t.Fatalf("Expected 1 registered feed, got %d", registered)
	}

	// The reconnect path picks the registration up later; meanwhile the
	// channel is open and empty.
	select {
	case _, ok := <-sub.Updates():
		if !ok {
			t.Error("Channel must stay open before Unsubscribe")
		}
	default:
	}
}

func TestSubscribeAccount_CancelledContext(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.SubscribeAccount(ctx, testAddr(1)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestUnsubscribe_ClosesAndForgets(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	address := testAddr(1)

	sub, err := c.SubscribeAccount(context.Background(), address)
	if err != nil {
		t.Fatalf("SubscribeAccount failed: %v", err)
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // Idempotent

	if _, ok := <-sub.Updates(); ok {
		t.Error("Updates must be closed after Unsubscribe")
	}
	c.subsMu.Lock()
	_, stillThere := c.subs[address.String()]
	c.subsMu.Unlock()
	if stillThere {
		t.Error("Feed still registered after Unsubscribe")
	}
}

func TestCloseConnection_StopsPingLoop(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")

	stop := make(chan struct{})
	c.mu.Lock()
	c.pingStop = stop
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.pingLoop(context.Background(), nil, stop)
		close(done)
	}()

	// Tearing the connection down must end the loop before its next tick,
	// so a reconnect cannot accumulate loops from previous connections.
	c.closeConnection()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Ping loop outlived its connection")
	}
}

func TestResubscribeAll_ResetsRouting(t *testing.T) {
	c := NewWSClient("wss://example.com", "confirmed")
	registerSub(c, testAddr(1), 42, 1)

	// No live socket: the subscribe write fails, but stale routing from the
	// previous connection must already be gone.
	c.resubscribeAll()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if len(c.bySubID) != 0 {
		t.Error("Stale subscription ids must be cleared on reconnect")
	}
}
