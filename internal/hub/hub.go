package hub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"visionary-backend/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32

	redisPrefix = "toast:"
)

// frame types
const (
	Toast = "Toast"
)

type Client struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte
}

// Hub delivers toasts to the sockets of a browser session. With a redis
// client every instance receives every toast and delivers it to the
// sockets it holds, so the socket may live on another instance than the
// request that caused the toast.
type Hub struct {
	sugar       *zap.SugaredLogger
	redisClient *redis.Client

	clientsMutex sync.Mutex
	clients      map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client) *Hub {
	return &Hub{
		sugar:       sugar,
		redisClient: redisClient,
		clients:     make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

type toastPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Variant     notify.Variant `json:"variant"`
	DurationMs  int64          `json:"durationMs"`
}

type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func PrepareMessage(messageType string, messageToSend any) ([]byte, error) {
	return json.Marshal(frame{Type: messageType, Data: messageToSend})
}

// Run relays toasts published by other instances until ctx is done. It
// returns at once when the hub has no redis client.
func (h *Hub) Run(ctx context.Context) error {
	if h.redisClient == nil {
		return nil
	}

	pubsub := h.redisClient.PSubscribe(ctx, redisPrefix+"*")
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return err
	}

	msgCh := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			bytes, err := base64.StdEncoding.DecodeString(msg.Payload)
			if err != nil {
				h.sugar.Error(err)
				continue
			}
			h.deliver(strings.TrimPrefix(msg.Channel, redisPrefix), bytes)
		}
	}
}

// Notifier returns a notifier bound to one session. A toast for a session
// without sockets is dropped.
func (h *Hub) Notifier(sessionID string) notify.Notifier {
	return notify.NotifierFunc(func(n notify.Notification) {
		messageBytes, err := PrepareMessage(Toast, toastPayload{
			Title:       n.Title,
			Description: n.Description,
			Variant:     n.Variant,
			DurationMs:  n.Duration.Milliseconds(),
		})
		if err != nil {
			h.sugar.Error(err)
			return
		}

		if h.redisClient == nil {
			h.deliver(sessionID, messageBytes)
			return
		}

		b64 := base64.StdEncoding.EncodeToString(messageBytes)
		err = h.redisClient.Publish(context.Background(), redisPrefix+sessionID, b64).Err()
		if err != nil {
			h.sugar.Error(err)
		}
	})
}

func (h *Hub) deliver(sessionID string, messageBytes []byte) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	for client := range h.clients[sessionID] {
		select {
		case client.send <- messageBytes:
		default:
			h.sugar.Warnf("Dropping toast for session ID [%s], socket is not keeping up", sessionID)
		}
	}
}

func (h *Hub) HandleClient(sessionID string, w http.ResponseWriter, r *http.Request) {
	h.sugar.Debugf("Connecting session ID [%s] to WebSocket", sessionID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		h.sugar.Debug(err)
		return
	}
	defer conn.Close()

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}

	h.setClient(client)
	defer h.deleteClient(client)

	done := make(chan struct{})
	defer close(done)

	// writing queued toasts to the socket
	go func() {
		for {
			select {
			case <-done:
				return
			case messageBytes := <-client.send:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.TextMessage, messageBytes)
				if err != nil {
					h.sugar.Debug(err)
					conn.Close()
					return
				}
			}
		}
	}()

	// the client never sends anything meaningful, reading only detects the close
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			h.sugar.Debug(err)
			break
		}
	}
}

func (h *Hub) setClient(client *Client) {
	h.sugar.Debugf("Adding socket of session ID [%s] to clients", client.SessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	sockets, ok := h.clients[client.SessionID]
	if !ok {
		sockets = make(map[*Client]struct{})
		h.clients[client.SessionID] = sockets
	}
	sockets[client] = struct{}{}
}

func (h *Hub) deleteClient(client *Client) {
	h.sugar.Debugf("Removing socket of session ID [%s] from clients", client.SessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	sockets := h.clients[client.SessionID]
	delete(sockets, client)
	if len(sockets) == 0 {
		delete(h.clients, client.SessionID)
	}
}

func (h *Hub) ConnectedSockets(sessionID string) int {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	return len(h.clients[sessionID])
}
