package pagecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID        int64           `json:"id"`
	Result    json.RawMessage `json:"result"`
	Error     *rpcError       `json:"error"`
	SessionID string          `json:"sessionId"`
}

// Event is a protocol notification delivered outside the request/response
// cycle, e.g. Page.lifecycleEvent or Network.loadingFailed.
type Event struct {
	Method    string
	Params    gjson.Result
	SessionID string
}

// EventHandler receives protocol events for a subscribed method. Handlers run
// on their own goroutine and must not block indefinitely.
type EventHandler func(ev Event)

type subscription struct {
	id      int64
	handler EventHandler
}

// Client speaks the DevTools protocol over a single websocket connection.
// Calls are correlated by id; events fan out to subscribers.
type Client struct {
	url     string
	headers http.Header
	conn    *websocket.Conn
	pending map[int64]chan rpcResponse
	subs    map[string][]subscription
	mu      sync.Mutex
	writeMu sync.Mutex
	nextID  int64
	nextSub int64
	closed  chan struct{}
}

func NewClient(url string, headers http.Header) *Client {
	return &Client{
		url:     url,
		headers: headers,
		pending: make(map[int64]chan rpcResponse),
		subs:    make(map[string][]subscription),
		closed:  make(chan struct{}),
	}
}

func (c *Client) Start(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		return err
	}
	c.conn = conn
	go c.readLoop()
	return nil
}

func (c *Client) Stop() error {
	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return nil
	default:
		close(c.closed)
	}
	c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Subscribe registers a handler for a protocol event method and returns a
// cancel function that removes exactly this handler. Callers that only need
// to observe events for a bounded window must call cancel when done.
func (c *Client) Subscribe(method string, handler EventHandler) (cancel func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[method] = append(c.subs[method], subscription{id: id, handler: handler})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.subs[method]
		for i, sub := range list {
			if sub.id == id {
				c.subs[method] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Call sends a protocol command and waits for its response. The returned
// result is the raw JSON result object; gjson paths select fields from it.
func (c *Client) Call(ctx context.Context, method string, params map[string]any, sessionID string) (gjson.Result, error) {
	if c.conn == nil {
		return gjson.Result{}, errors.New("cdp client not started")
	}
	id := atomic.AddInt64(&c.nextID, 1)
	payload := map[string]any{
		"id":     id,
		"method": method,
	}
	if params != nil {
		payload["params"] = params
	}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	message, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, err
	}
	respCh := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = respCh
	c.mu.Unlock()

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, message)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return gjson.Result{}, writeErr
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return gjson.Result{}, fmt.Errorf("%s: %s", method, resp.Error.Message)
		}
		return gjson.ParseBytes(resp.Result), nil
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	case <-c.closed:
		return gjson.Result{}, errors.New("cdp client closed")
	}
}

func (c *Client) CallWithTimeout(method string, params map[string]any, sessionID string, timeout time.Duration) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Call(ctx, method, params, sessionID)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			_ = c.Stop()
			return
		}
		parsed := gjson.ParseBytes(data)
		if parsed.Get("id").Exists() {
			var resp rpcResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				continue
			}
			c.mu.Lock()
			ch := c.pending[resp.ID]
			delete(c.pending, resp.ID)
			c.mu.Unlock()
			if ch != nil {
				ch <- resp
			}
			continue
		}

		method := parsed.Get("method").String()
		if method == "" {
			continue
		}
		ev := Event{
			Method:    method,
			Params:    parsed.Get("params"),
			SessionID: parsed.Get("sessionId").String(),
		}
		c.mu.Lock()
		handlers := make([]EventHandler, 0, len(c.subs[method]))
		for _, sub := range c.subs[method] {
			handlers = append(handlers, sub.handler)
		}
		c.mu.Unlock()
		for _, handler := range handlers {
			h := handler
			go h(ev)
		}
	}
}
