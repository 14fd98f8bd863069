package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/models"
	"groupnet-service/internal/repositories"
	"groupnet-service/internal/telemetry"
	"groupnet-service/internal/ws"
)

// ContentHandler serves the feed and the post/message endpoints. Reads are
// answered from the engine's visibility computation; writes append to the
// engine, mirror into the record store and fan out over the hub.
type ContentHandler struct {
	engine      *engine.Engine
	postRepo    repositories.PostRepository
	messageRepo repositories.MessageRepository
	resolver    *blob.Resolver
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(eng *engine.Engine, postRepo repositories.PostRepository, messageRepo repositories.MessageRepository, resolver *blob.Resolver, hub *ws.Hub, audit *telemetry.AuditEmitter) *ContentHandler {
	return &ContentHandler{
		engine:      eng,
		postRepo:    postRepo,
		messageRepo: messageRepo,
		resolver:    resolver,
		hub:         hub,
		audit:       audit,
	}
}

// Feed returns the caller's post feed, newest first: own groups plus
// directly connected ones.
func (h *ContentHandler) Feed(c *gin.Context) {
	userID := currentUserID(c)
	posts := h.engine.FeedPosts(userID)
	c.JSON(http.StatusOK, gin.H{"posts": h.withAuthorNames(posts)})
}

// GroupPosts returns a single group's wall.
func (h *ContentHandler) GroupPosts(c *gin.Context) {
	userID := currentUserID(c)
	posts, err := h.engine.GroupPosts(c.Param("group_id"), userID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": h.withAuthorNames(posts)})
}

// PublishPost handles POST /groups/:group_id/posts.
func (h *ContentHandler) PublishPost(c *gin.Context) {
	userID := currentUserID(c)
	groupID := c.Param("group_id")

	var req struct {
		ImageSrc string `json:"image_src"`
		Caption  string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.engine.PublishPost(groupID, userID, h.resolver.Resolve(req.ImageSrc), req.Caption)
	recordEngineOp("publish_post", err)
	if err != nil {
		h.emitAudit(c, "ERROR", "post rejected")
		respondEngineError(c, err)
		return
	}

	if err := h.postRepo.Append(c.Request.Context(), post); err != nil {
		log.Printf("persist post %s failed: %v", post.ID, err)
	}
	h.hub.BroadcastPost(groupID, post)

	h.emitAudit(c, "INFO", "Post published")
	c.JSON(http.StatusCreated, post)
}

// GetGroupMessages returns a group's chat; members only.
func (h *ContentHandler) GetGroupMessages(c *gin.Context) {
	userID := currentUserID(c)
	msgs, err := h.engine.GroupChat(c.Param("group_id"), userID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": h.withSenderNames(msgs)})
}

// PostGroupMessage appends and broadcasts a group chat message.
func (h *ContentHandler) PostGroupMessage(c *gin.Context) {
	userID := currentUserID(c)
	groupID := c.Param("group_id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.engine.SendGroupMessage(groupID, userID, req.Text)
	recordEngineOp("send_group_message", err)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if err := h.messageRepo.Append(c.Request.Context(), msg); err != nil {
		log.Printf("persist message %s failed: %v", msg.ID, err)
	}
	h.hub.BroadcastGroupMessage(groupID, msg)

	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

// ListChannels returns the inter-group channels the caller can read.
func (h *ContentHandler) ListChannels(c *gin.Context) {
	userID := currentUserID(c)
	c.JSON(http.StatusOK, gin.H{"channels": h.engine.ChannelsFor(userID)})
}

// GetChannelMessages returns an inter-channel chat.
func (h *ContentHandler) GetChannelMessages(c *gin.Context) {
	userID := currentUserID(c)
	msgs, err := h.engine.InterChat(c.Param("channel_id"), userID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": h.withSenderNames(msgs)})
}

// PostChannelMessage appends and broadcasts an inter-channel message.
func (h *ContentHandler) PostChannelMessage(c *gin.Context) {
	userID := currentUserID(c)
	channelID := c.Param("channel_id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.engine.SendChannelMessage(channelID, userID, req.Text)
	recordEngineOp("send_channel_message", err)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if err := h.messageRepo.Append(c.Request.Context(), msg); err != nil {
		log.Printf("persist message %s failed: %v", msg.ID, err)
	}
	h.hub.BroadcastChannelMessage(channelID, msg)

	h.emitAudit(c, "INFO", "Channel message sent")
	c.JSON(http.StatusCreated, msg)
}

type postResponse struct {
	models.Post
	AuthorName string `json:"author_name,omitempty"`
}

type messageResponse struct {
	models.Message
	AuthorName string `json:"author_name,omitempty"`
}

func (h *ContentHandler) withAuthorNames(posts []models.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{Post: p, AuthorName: h.authorName(p.AuthorID)})
	}
	return out
}

func (h *ContentHandler) withSenderNames(msgs []models.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Message: m, AuthorName: h.authorName(m.AuthorID)})
	}
	return out
}

func (h *ContentHandler) authorName(userID string) string {
	profile, err := h.engine.Profile(userID)
	if err != nil {
		return ""
	}
	return profile.Name
}

func (h *ContentHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
