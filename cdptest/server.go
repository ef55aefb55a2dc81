// Package cdptest provides a scriptable mock DevTools endpoint for testing
// code that talks to a browser over the protocol. The server answers
// /json/version discovery, upgrades a websocket, replies to commands from
// registered handlers and lets tests inject protocol events.
package cdptest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// HandlerFunc produces the result object for one protocol method call.
type HandlerFunc func(params gjson.Result) map[string]any

// Server is a mock CDP endpoint. The zero value is not usable; construct it
// with NewServer and Close it when done.
type Server struct {
	HTTP  *httptest.Server
	wsURL string

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	methods  []string
	handlers map[string]HandlerFunc
}

// NewServer starts a mock endpoint with a single page target ("page-1",
// session "session-1") that attaches on demand, mirroring a freshly started
// browser with one tab.
func NewServer() *Server {
	s := &Server{handlers: make(map[string]HandlerFunc)}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": s.wsURL})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		go s.serveConn(conn)
	})
	s.HTTP = httptest.NewServer(mux)
	s.wsURL = "ws" + s.HTTP.URL[len("http"):] + "/ws"

	s.Handle("Target.getTargets", func(gjson.Result) map[string]any {
		return map[string]any{
			"targetInfos": []map[string]any{
				{"targetId": "page-1", "type": "page", "url": "https://example.com", "title": "Example"},
			},
		}
	})
	s.Handle("Target.attachToTarget", func(gjson.Result) map[string]any {
		s.emit("Target.attachedToTarget", map[string]any{
			"sessionId":  "session-1",
			"targetInfo": map[string]any{"targetId": "page-1", "type": "page", "url": "https://example.com", "title": "Example"},
		}, "")
		return map[string]any{"sessionId": "session-1"}
	})
	return s
}

// URL returns the HTTP base URL; passing it to a browser connector exercises
// the /json/version discovery path.
func (s *Server) URL() string {
	return s.HTTP.URL
}

func (s *Server) Close() {
	s.HTTP.Close()
}

// Handle registers (or replaces) the handler for a protocol method. Methods
// without a handler answer with an empty result object.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// HandleEvaluate scripts Runtime.evaluate: fn receives the expression and its
// return value becomes the evaluation result.
func (s *Server) HandleEvaluate(fn func(expression string) any) {
	s.Handle("Runtime.evaluate", func(params gjson.Result) map[string]any {
		value := fn(params.Get("expression").String())
		return map[string]any{"result": map[string]any{"value": value}}
	})
}

// Emit injects a protocol event, as a browser would between responses.
func (s *Server) Emit(method string, params map[string]any, sessionID string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("no websocket connection yet")
	}
	s.emit(method, params, sessionID)
	return nil
}

func (s *Server) emit(method string, params map[string]any, sessionID string) {
	payload := map[string]any{"method": method, "params": params}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	s.writeJSON(payload)
}

// Methods returns the sequence of protocol methods called so far.
func (s *Server) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.methods))
	copy(out, s.methods)
	return out
}

// CalledMethod reports whether the named method has been called.
func (s *Server) CalledMethod(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(payload map[string]any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteJSON(payload)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		parsed := gjson.ParseBytes(data)
		method := parsed.Get("method").String()
		if method != "" {
			s.mu.Lock()
			s.methods = append(s.methods, method)
			s.mu.Unlock()
		}
		id := parsed.Get("id")
		if !id.Exists() {
			continue
		}
		s.mu.Lock()
		handler := s.handlers[method]
		s.mu.Unlock()
		result := map[string]any{}
		if handler != nil {
			if r := handler(parsed.Get("params")); r != nil {
				result = r
			}
		}
		s.writeJSON(map[string]any{"id": id.Int(), "result": result})
	}
}
