package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"groupnet-service/internal/models"
	"groupnet-service/internal/observability"
)

// Room kinds. A group room carries both posts and group-chat messages; a
// channel room carries inter-group messages only.
const (
	KindGroup   = "group"
	KindChannel = "channel"
)

type roomKey struct {
	kind string
	id   string
}

// Hub maintains active websocket rooms keyed by group or channel id.
type Hub struct {
	rooms map[roomKey]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[roomKey]map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(kind, id string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{kind: kind, id: id}
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[key][conn] = info
}

// RemoveClient removes a websocket connection from a room.
func (h *Hub) RemoveClient(kind, id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{kind: kind, id: id}
	if conns, ok := h.rooms[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
}

// ClientCount reports the number of connections in a room.
func (h *Hub) ClientCount(kind, id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey{kind: kind, id: id}])
}

// BroadcastPost sends a newly published post to a group room.
func (h *Hub) BroadcastPost(groupID string, post models.Post) {
	event := models.PostEvent{Type: "post", Post: &post}
	payload, _ := json.Marshal(event)
	h.broadcast(KindGroup, groupID, payload)
	observability.IncWSEvent(KindGroup, "post")
}

// BroadcastGroupMessage sends a new chat message to a group room.
func (h *Hub) BroadcastGroupMessage(groupID string, msg models.Message) {
	event := models.MessageEvent{Type: "message", Message: &msg}
	payload, _ := json.Marshal(event)
	h.broadcast(KindGroup, groupID, payload)
	observability.IncWSEvent(KindGroup, "message")
}

// BroadcastChannelMessage sends a new message to an inter-channel room.
func (h *Hub) BroadcastChannelMessage(channelID string, msg models.Message) {
	event := models.MessageEvent{Type: "message", Message: &msg}
	payload, _ := json.Marshal(event)
	h.broadcast(KindChannel, channelID, payload)
	observability.IncWSEvent(KindChannel, "message")
}

func (h *Hub) broadcast(kind, id string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomKey{kind: kind, id: id}]))
	for conn := range h.rooms[roomKey{kind: kind, id: id}] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(kind, id, conn, err)
			h.RemoveClient(kind, id, conn)
		}
	}
}

func (h *Hub) publishWSError(kind, resourceID string, conn *websocket.Conn, err error) {
	info, ok := h.connInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Service:   "groupnet-service",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) connInfo(kind, resourceID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.rooms[roomKey{kind: kind, id: resourceID}]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == KindChannel {
		return "ws_events.channels"
	}
	return "ws_events.groups"
}
