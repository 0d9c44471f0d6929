package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var errClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is the first wait before redialing; it doubles per failure.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	// ReadTimeout must exceed the slot interval; a silent node is treated as lost.
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClient implements SlotSubscriber using gorilla/websocket.
// It holds at most one slot subscription. The read loop owns reconnection
// and re-sends slotSubscribe on every new connection.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	log      *logrus.Entry

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// out receives slot notifications, nil until SubscribeSlots is called
	out   chan SlotNotification
	outMu sync.RWMutex
	subID atomic.Int64
	// resubID is the request id of the last resubscription after a redial
	resubID atomic.Uint64

	// pending maps request ID to the channel waiting for the subscription ID
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

var _ SlotSubscriber = (*WSClient)(nil)

// NewWSClient connects to endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		log:      logrus.WithField("component", "ws"),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

// dial opens a new connection and swaps it in, closing the previous one.
func (c *WSClient) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed.Load() {
		conn.Close()
		return errClientClosed
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	return nil
}

func (c *WSClient) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// SubscribeSlots subscribes to slot updates. Only one subscription per client.
func (c *WSClient) SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}
	c.outMu.Lock()
	if c.out != nil {
		c.outMu.Unlock()
		return nil, errors.New("already subscribed")
	}
	// slot updates supersede each other, a small buffer is enough
	out := make(chan SlotNotification, 64)
	c.out = out
	c.outMu.Unlock()

	if _, err := c.subscribe(ctx); err != nil {
		c.outMu.Lock()
		c.out = nil
		c.outMu.Unlock()
		return nil, err
	}
	return out, nil
}

// subscribe sends slotSubscribe and waits for the read loop to deliver the
// confirmation.
func (c *WSClient) subscribe(ctx context.Context) (int64, error) {
	reqID := c.requestID.Add(1)
	confirmCh := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = confirmCh
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}

	if err := c.write(wsRequest{JSONRPC: "2.0", ID: reqID, Method: "slotSubscribe"}); err != nil {
		forget()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return 0, errClientClosed
		}
		return subID, nil
	case <-timer.C:
		forget()
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, errClientClosed
	case <-ctx.Done():
		forget()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and the notification channel.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()

	c.outMu.Lock()
	if c.out != nil {
		close(c.out)
	}
	c.outMu.Unlock()
	return nil
}

func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err == nil {
			c.handleMessage(message)
			continue
		}
		if c.closed.Load() {
			return
		}
		c.log.WithError(err).Warn("connection lost, reconnecting")
		if !c.redial() {
			return
		}
	}
}

// redial reconnects with exponential backoff and resubscribes without
// waiting: the confirmation arrives on this same read loop. It returns false
// once the client is closed.
func (c *WSClient) redial() bool {
	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.config.SubscribeTimeout)
		go func() {
			select {
			case <-c.done:
				cancel()
			case <-ctx.Done():
			}
		}()
		err := c.dial(ctx)
		cancel()
		if errors.Is(err, errClientClosed) {
			return false
		}
		if err == nil {
			break
		}
		c.log.WithError(err).WithField("retry_in", delay).Warn("reconnect failed")
		delay = min(delay*2, c.config.MaxReconnectDelay)
	}

	c.outMu.RLock()
	subscribed := c.out != nil
	c.outMu.RUnlock()
	if !subscribed {
		return true
	}

	reqID := c.requestID.Add(1)
	c.resubID.Store(reqID)
	if err := c.write(wsRequest{JSONRPC: "2.0", ID: reqID, Method: "slotSubscribe"}); err != nil {
		// the next read fails too and redials again
		c.log.WithError(err).Warn("resubscribe failed")
	}
	return true
}

func (c *WSClient) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 && resp.Result > 0 {
		c.confirm(resp.ID, resp.Result)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "slotNotification" && notif.Params != nil {
		c.dispatch(notif.Params)
		return
	}

	var errResp struct {
		ID    uint64    `json:"id"`
		Error *RPCError `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		c.log.WithField("request_id", errResp.ID).WithError(errResp.Error).Warn("error response")
	}
}

// confirm records a subscription id. Only the read loop calls it, so the
// latest confirmation always wins.
func (c *WSClient) confirm(reqID uint64, subID int64) {
	if reqID == c.resubID.Load() {
		c.subID.Store(subID)
		c.log.WithField("subscription", subID).Info("slot subscription restored")
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[reqID]
	if ok {
		delete(c.pending, reqID)
	}
	c.pendingMu.Unlock()
	if ok {
		c.subID.Store(subID)
		select {
		case ch <- subID:
		default:
		}
	}
}

func (c *WSClient) dispatch(params *wsNotificationParams) {
	c.outMu.RLock()
	defer c.outMu.RUnlock()
	if c.out == nil || params.Subscription != c.subID.Load() {
		return
	}

	n := SlotNotification{
		Slot:   params.Result.Slot,
		Parent: params.Result.Parent,
		Root:   params.Result.Root,
	}

	select {
	case c.out <- n:
	case <-c.done:
	default:
		// consumer is behind; it only needs the newest slot
		select {
		case <-c.out:
		default:
		}
		select {
		case c.out <- n:
		default:
		}
	}
}

func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64      `json:"subscription"`
	Result       wsSlotInfo `json:"result"`
}

type wsSlotInfo struct {
	Slot   int64 `json:"slot"`
	Parent int64 `json:"parent"`
	Root   int64 `json:"root"`
}
