package nicknames

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/availability"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
)

// WatchPath is mounted next to the Huma API; Huma does not serve upgrades.
const WatchPath = "/nicknames/watch"

// WatchScope names the limiter applied to watch messages.
const WatchScope = "nickname-watch"

// MessageRateLimited is sent back for an edit dropped by the limiter.
const MessageRateLimited = "too many requests, slow down"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	updateBuffer   = 8
)

// watchMessage is what clients send: the current field contents.
type watchMessage struct {
	Nickname string `json:"nickname"`
}

// Watcher streams availability results over a WebSocket. Each connection
// owns one availability.Checker; the client sends every edit and receives
// every state transition.
type Watcher struct {
	lookup   availability.Lookup
	delay    time.Duration
	origins  []string
	limiter  ratelimit.Limiter
	upgrader websocket.Upgrader
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOrigins restricts upgrades to the given Origin headers. With none every
// Origin is accepted.
func WithOrigins(origins ...string) WatcherOption {
	return func(w *Watcher) { w.origins = origins }
}

// WithLimiter limits the edits each client IP may send, across all of its
// connections. Rejected edits are answered with an error result and not
// checked.
func WithLimiter(l ratelimit.Limiter) WatcherOption {
	return func(w *Watcher) { w.limiter = l }
}

func NewWatcher(lookup availability.Lookup, delay time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{lookup: lookup, delay: delay}
	for _, opt := range opts {
		opt(w)
	}
	w.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(w.origins) == 0 {
				return true
			}
			return slices.Contains(w.origins, r.Header.Get("Origin"))
		},
	}
	return w
}

func (h *Watcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		applog.LogWarn(r.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan availability.Result, updateBuffer)
	checker := availability.New(ctx, h.lookup,
		availability.WithDelay(h.delay),
		availability.WithExcludeProfileID(r.URL.Query().Get("excludeProfileId")),
		availability.OnChange(func(res availability.Result) { push(updates, res) }),
	)
	push(updates, checker.Result())
	key := "ip:" + ratelimit.ClientIP(r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, updates)
		cancel()
		// Unblocks the read loop when the writer gave up first.
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				applog.LogInfo(ctx, "nickname watch closed", zap.Error(err))
			}
			break
		}
		var msg watchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			push(updates, availability.Result{Status: availability.StatusError, Error: "invalid message"})
			continue
		}
		if h.limiter != nil {
			if err := ratelimit.Check(ctx, h.limiter, key, WatchScope); err != nil {
				push(updates, availability.Result{Nickname: msg.Nickname, Status: availability.StatusError, Error: MessageRateLimited})
				continue
			}
		}
		checker.SetInput(msg.Nickname)
	}

	checker.Close()
	cancel()
	<-done
}

// writeLoop is the only writer on conn.
func (h *Watcher) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan availability.Result) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case res := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(res); err != nil {
				applog.LogDebug(ctx, "nickname watch write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// push queues res without blocking the checker. When the client lags the
// oldest queued result is dropped; the newest always gets through.
func push(ch chan availability.Result, res availability.Result) {
	for {
		select {
		case ch <- res:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
