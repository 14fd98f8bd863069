package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"groupnet-service/internal/observability"
)

// Authorizer decides whether a user may subscribe to a room's change feed.
// The engine implements it.
type Authorizer interface {
	CanReadGroup(groupID, userID string) bool
	CanReadChannel(channelID, userID string) bool
}

// TokenValidator mirrors the auth middleware's validator so websocket
// handshakes can authenticate from a header or query token.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// FeedHandler upgrades clients onto the change-notification feed of a
// group or inter-channel room.
type FeedHandler struct {
	hub       *Hub
	auth      Authorizer
	validator TokenValidator
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(hub *Hub, auth Authorizer, validator TokenValidator) *FeedHandler {
	return &FeedHandler{hub: hub, auth: auth, validator: validator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleGroup subscribes a member to a group's feed.
func (h *FeedHandler) HandleGroup(c *gin.Context) {
	h.handle(c, KindGroup, c.Param("group_id"), h.auth.CanReadGroup)
}

// HandleChannel subscribes a member of either side to a channel's feed.
func (h *FeedHandler) HandleChannel(c *gin.Context) {
	h.handle(c, KindChannel, c.Param("channel_id"), h.auth.CanReadChannel)
}

func (h *FeedHandler) handle(c *gin.Context, kind, resourceID string, canRead func(string, string) bool) {
	if resourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}

	ctx, span := otel.Tracer("groupnet-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := h.validator.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if !canRead(resourceID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for feed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(kind, resourceID, conn, info)
	observability.IncWSActive(kind)

	go func() {
		defer func() {
			h.hub.RemoveClient(kind, resourceID, conn)
			observability.DecWSActive(kind)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return c.Query("token")
}
