package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vnkhanh/code-review-backend/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub giữ các kết nối websocket theo userID; một user có thể mở nhiều tab.
type Hub struct {
	clients map[string]map[*websocket.Conn]*Client
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]*Client),
		logger:  logger,
	}
}

// RegisterUser đăng ký kết nối và chạy write pump cho nó.
func (h *Hub) RegisterUser(userID string, conn *websocket.Conn) *Client {
	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*websocket.Conn]*Client)
	}
	h.clients[userID][conn] = client
	h.mu.Unlock()

	metrics.WebsocketConnections.Inc()
	go h.writePump(client)
	return client
}

func (h *Hub) UnregisterUser(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[userID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
			metrics.WebsocketConnections.Dec()
		}
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// PushToUser gửi JSON tới mọi kết nối của user; client chậm thì bỏ message.
func (h *Hub) PushToUser(userID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("ws marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("ws send buffer full", slog.String("user_id", userID))
		}
	}
}

// Cập nhật badge số lượng chưa đọc
func (h *Hub) SendBadgeUpdate(userID string, count int64) {
	h.PushToUser(userID, map[string]interface{}{
		"type":         "badge_update",
		"unread_count": count,
	})
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) GetStats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := 0
	for _, clients := range h.clients {
		conns += len(clients)
	}
	return map[string]int{
		"online_users": len(h.clients),
		"connections":  conns,
	}
}

// writePump gửi message và ping định kỳ; client không trả pong thì read loop hết hạn.
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
		client.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump đọc tới khi kết nối đóng hoặc quá pongWait không nhận được gì.
func readPump(conn *websocket.Conn, wait time.Duration) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wait))
	}
}
