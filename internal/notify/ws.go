package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WSSender writes SMS payloads as JSON text frames. The connection is dialled
// on first use and re-dialled after a failed write.
type WSSender struct {
	url         string
	headers     HeaderProvider
	dialTimeout time.Duration
	sendTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

type WSOption func(*WSSender)

func WithWSHeaders(h HeaderProvider) WSOption {
	return func(w *WSSender) { w.headers = h }
}

func WithWSTimeout(d time.Duration) WSOption {
	return func(w *WSSender) {
		if d > 0 {
			w.sendTimeout = d
		}
	}
}

func NewWSSender(url string, opts ...WSOption) *WSSender {
	w := &WSSender{
		url:         url,
		dialTimeout: 10 * time.Second,
		sendTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connected reports whether a connection is currently open.
func (w *WSSender) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

func (w *WSSender) Send(ctx context.Context, msg SMS) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		if err := w.dialLocked(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	wctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, w.sendTimeout)
		defer cancel()
	}
	if err := wsjson.Write(wctx, w.conn, msg); err != nil {
		_ = w.conn.Close(websocket.StatusGoingAway, "write failed")
		w.conn = nil
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

func (w *WSSender) dialLocked(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, w.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	if err != nil {
		return err
	}
	// nothing is expected from the peer; keep control frames flowing
	conn.CloseRead(context.Background())
	w.conn = conn
	return nil
}

func (w *WSSender) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close(websocket.StatusNormalClosure, "close")
	w.conn = nil
	return err
}

func (w *WSSender) buildHeaders() http.Header {
	hdr := http.Header{}
	if w.headers == nil {
		return hdr
	}
	for k, v := range w.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
