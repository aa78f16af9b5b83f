package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"parksmart/internal/domain"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsSendBuffer     = 32
	wsBroadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cho phép kết nối từ mọi nguồn
	},
}

// Message client gửi lên: {"action":"subscribe"|"unsubscribe","lot_id":N}
type wsClientMessage struct {
	Action string `json:"action"`
	LotID  int    `json:"lot_id"`
}

// Message server gửi xuống: {"type": ..., "data": ...}
type wsServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	lots map[int]bool // Chỉ goroutine Start() đọc/ghi
}

type wsSubscription struct {
	client    *wsClient
	lotID     int
	subscribe bool
}

type wsBroadcast struct {
	lotPayload []byte // Gửi tới client đã subscribe lot
	mapPayload []byte // Gửi tới mọi client
	lotID      int
}

// WebSocketManager là hub phát số chỗ trống theo thời gian thực. Nó cũng là một ChangeNotifier.
type WebSocketManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	subscribe  chan wsSubscription
	broadcast  chan wsBroadcast
	done       chan struct{} // Đóng khi Start() trả về
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		subscribe:  make(chan wsSubscription),
		broadcast:  make(chan wsBroadcast, wsBroadcastQueue),
		done:       make(chan struct{}),
	}
}

func (wsm *WebSocketManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			wsm.stopOnce.Do(func() { close(wsm.done) })
			wsm.mutex.Lock()
			for client := range wsm.clients {
				close(client.send)
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			log.Printf("WebSocket client connected. Total: %d", total)

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				close(client.send)
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)

		case sub := <-wsm.subscribe:
			if !wsm.isRegistered(sub.client) {
				continue
			}
			ackType := "unsubscribed"
			if sub.subscribe {
				sub.client.lots[sub.lotID] = true
				ackType = "subscribed"
			} else {
				delete(sub.client.lots, sub.lotID)
			}
			if ack, err := json.Marshal(wsServerMessage{Type: ackType, Data: gin.H{"lot_id": sub.lotID}}); err == nil {
				wsm.deliver(sub.client, ack)
			}

		case msg := <-wsm.broadcast:
			wsm.mutex.RLock()
			targets := make([]*wsClient, 0, len(wsm.clients))
			for client := range wsm.clients {
				targets = append(targets, client)
			}
			wsm.mutex.RUnlock()
			for _, client := range targets {
				if client.lots[msg.lotID] && !wsm.deliver(client, msg.lotPayload) {
					continue
				}
				wsm.deliver(client, msg.mapPayload)
			}
		}
	}
}

// registerClient trả về false nếu hub đã dừng.
func (wsm *WebSocketManager) registerClient(client *wsClient) bool {
	select {
	case wsm.register <- client:
		return true
	case <-wsm.done:
		return false
	}
}

func (wsm *WebSocketManager) unregisterClient(client *wsClient) {
	select {
	case wsm.unregister <- client:
	case <-wsm.done:
	}
}

func (wsm *WebSocketManager) requestSubscription(sub wsSubscription) bool {
	select {
	case wsm.subscribe <- sub:
		return true
	case <-wsm.done:
		return false
	}
}

func (wsm *WebSocketManager) isRegistered(client *wsClient) bool {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return wsm.clients[client]
}

// deliver không chặn hub: client đọc chậm bị ngắt kết nối và trả về false.
func (wsm *WebSocketManager) deliver(client *wsClient, payload []byte) bool {
	select {
	case client.send <- payload:
		return true
	default:
		log.Println("WebSocket client quá chậm, đang ngắt kết nối")
		wsm.mutex.Lock()
		if _, ok := wsm.clients[client]; ok {
			delete(wsm.clients, client)
			close(client.send)
		}
		wsm.mutex.Unlock()
		return false
	}
}

func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

// Publish đưa cập nhật vào hàng đợi phát. Hàng đợi đầy thì bỏ qua message.
func (wsm *WebSocketManager) Publish(_ context.Context, update domain.AvailabilityUpdate) error {
	lotPayload, err := json.Marshal(wsServerMessage{Type: "availability_update", Data: update})
	if err != nil {
		return err
	}
	mapPayload, err := json.Marshal(wsServerMessage{Type: "map_availability_update", Data: update.ForMap()})
	if err != nil {
		return err
	}

	select {
	case wsm.broadcast <- wsBroadcast{lotPayload: lotPayload, mapPayload: mapPayload, lotID: update.LotID}:
	default:
		log.Println("Broadcast channel is full, dropping message")
	}
	return nil
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer), lots: make(map[int]bool)}
	if !h.wsManager.registerClient(client) {
		log.Println("WebSocket: Hub đã dừng, từ chối kết nối mới")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *wsClient) {
	defer h.wsManager.unregisterClient(client)

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.LotID <= 0 {
			log.Printf("WebSocket: Bỏ qua message không hợp lệ: %s", string(data))
			continue
		}
		if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
			log.Printf("WebSocket: Action không hỗ trợ: '%s'", msg.Action)
			continue
		}
		if !h.wsManager.requestSubscription(wsSubscription{client: client, lotID: msg.LotID, subscribe: msg.Action == "subscribe"}) {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(client *wsClient) {
	defer client.conn.Close()
	for payload := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("Error writing to WebSocket client: %v", err)
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
