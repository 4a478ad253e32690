package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

const webUIChannelName = "webui"

type wsMessage struct {
	Type  string        `json:"type"`
	Alert *notify.Alert `json:"alert,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebUIChannel broadcasts alerts to connected websocket clients. The HTTP
// server belongs to the gateway; it mounts Handler and StaticHandler.
type WebUIChannel struct {
	clients sync.Map
	nextID  atomic.Int64
	logger  *zap.Logger
}

func NewWebUIChannel(logger *zap.Logger) *WebUIChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebUIChannel{logger: logger}
}

func (w *WebUIChannel) Name() string                    { return webUIChannelName }
func (w *WebUIChannel) Start(ctx context.Context) error { return nil }

// StaticHandler serves the embedded single-page UI.
func (w *WebUIChannel) StaticHandler() http.Handler {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("embed static fs: %v", err))
	}
	return http.FileServer(http.FS(staticFS))
}

// Handler accepts websocket clients for the alert stream.
func (w *WebUIChannel) Handler() http.Handler {
	return http.HandlerFunc(w.handleWS)
}

func (w *WebUIChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		w.logger.Warn("websocket accept error", zap.Error(err))
		return
	}

	clientID := fmt.Sprintf("webui-%d", w.nextID.Add(1))
	w.clients.Store(clientID, &wsClient{conn: conn, id: clientID})
	w.logger.Debug("client connected", zap.String("client", clientID))

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		w.logger.Debug("client disconnected", zap.String("client", clientID))
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (w *WebUIChannel) Clients() int {
	n := 0
	w.clients.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}

func (w *WebUIChannel) Deliver(a notify.Alert) error {
	data, err := json.Marshal(wsMessage{Type: "alert", Alert: &a})
	if err != nil {
		return err
	}

	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			w.logger.Debug("websocket write failed", zap.String("client", c.id), zap.Error(err))
		}
		return true
	})
	return nil
}

func (w *WebUIChannel) Stop() error {
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	return nil
}
