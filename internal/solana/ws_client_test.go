package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// slotServer confirms a slotSubscribe and then pushes the given slots.
func slotServer(t *testing.T, subID int64, slots ...int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "slotSubscribe" {
			t.Errorf("expected slotSubscribe, got %s", req.Method)
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
			return
		}

		time.Sleep(50 * time.Millisecond)
		for _, slot := range slots {
			notif := wsNotification{
				JSONRPC: "2.0",
				Method:  "slotNotification",
				Params: &wsNotificationParams{
					Subscription: subID,
					Result:       wsSlotInfo{Slot: slot, Parent: slot - 1, Root: slot - 32},
				},
			}
			if err := c.WriteJSON(notif); err != nil {
				return
			}
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWSClient_Connect(t *testing.T) {
	server := slotServer(t, 1)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.False(t, client.closed.Load())
}

func TestWSClient_SubscribeSlots(t *testing.T) {
	server := slotServer(t, 777, 1000, 1001)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	require.NoError(t, err)

	var got []SlotNotification
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case n := <-ch:
			got = append(got, n)
		case <-timeout:
			t.Fatalf("timeout waiting for slot notifications, got %d", len(got))
		}
	}

	assert.Equal(t, int64(1000), got[0].Slot)
	assert.Equal(t, int64(999), got[0].Parent)
	assert.Equal(t, int64(1001), got[1].Slot)
}

func TestWSClient_SubscribeTwice(t *testing.T) {
	server := slotServer(t, 5)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeSlots(ctx)
	require.NoError(t, err)

	_, err = client.SubscribeSlots(ctx)
	assert.Error(t, err)
}

func TestWSClient_IgnoresOtherSubscriptions(t *testing.T) {
	client := &WSClient{out: make(chan SlotNotification, 1), done: make(chan struct{})}
	client.subID.Store(1)

	client.dispatch(&wsNotificationParams{Subscription: 2, Result: wsSlotInfo{Slot: 10}})
	assert.Len(t, client.out, 0)

	client.dispatch(&wsNotificationParams{Subscription: 1, Result: wsSlotInfo{Slot: 11}})
	require.Len(t, client.out, 1)
	assert.Equal(t, int64(11), (<-client.out).Slot)
}

func TestWSClient_DispatchKeepsNewest(t *testing.T) {
	client := &WSClient{out: make(chan SlotNotification, 1), done: make(chan struct{})}
	client.subID.Store(1)

	client.dispatch(&wsNotificationParams{Subscription: 1, Result: wsSlotInfo{Slot: 10}})
	client.dispatch(&wsNotificationParams{Subscription: 1, Result: wsSlotInfo{Slot: 12}})

	require.Len(t, client.out, 1)
	assert.Equal(t, int64(12), (<-client.out).Slot)
}

func TestWSClient_Close(t *testing.T) {
	server := slotServer(t, 9)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)

	ch, err := client.SubscribeSlots(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	for range ch {
	}

	_, err = client.SubscribeSlots(ctx)
	assert.Error(t, err)
}

func TestWSClient_DialError(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	var conns atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		n := conns.Add(1)

		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		subID := int64(n)
		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID}); err != nil {
			return
		}
		if n == 1 {
			// drop the first connection right after confirming
			return
		}
		c.WriteJSON(wsNotification{
			JSONRPC: "2.0",
			Method:  "slotNotification",
			Params:  &wsNotificationParams{Subscription: subID, Result: wsSlotInfo{Slot: 77, Parent: 76}},
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), &cfg)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeSlots(ctx)
	require.NoError(t, err)

	select {
	case n := <-ch:
		assert.Equal(t, int64(77), n.Slot)
	case <-time.After(5 * time.Second):
		t.Fatal("no slot after reconnect")
	}
	assert.Equal(t, int64(2), client.subID.Load())
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}
