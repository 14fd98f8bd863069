package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/repositories"
	"groupnet-service/internal/telemetry"
)

// GroupHandler manages group lifecycle, membership and connection
// endpoints. Mutations go through the engine first; persistence mirrors the
// engine's state afterwards and is fire-and-forget.
type GroupHandler struct {
	engine    *engine.Engine
	groupRepo repositories.GroupRepository
	resolver  *blob.Resolver
	audit     *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(eng *engine.Engine, groupRepo repositories.GroupRepository, resolver *blob.Resolver, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		engine:    eng,
		groupRepo: groupRepo,
		resolver:  resolver,
		audit:     audit,
	}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := currentUserID(c)

	var req struct {
		Name      string `json:"name" binding:"required"`
		AvatarSrc string `json:"avatar_src"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := h.engine.CreateGroup(req.Name, h.resolver.Resolve(req.AvatarSrc), userID)
	recordEngineOp("create_group", nil)
	h.persistGroup(c.Request.Context(), group.ID)

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, group)
}

// ListGroups returns the groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := currentUserID(c)
	c.JSON(http.StatusOK, gin.H{"groups": h.engine.VisibleGroups(userID)})
}

// Discover returns public summaries of every group, for the join-a-group
// listing.
func (h *GroupHandler) Discover(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": h.engine.AllGroups()})
}

// GetGroup returns a single group: the full record to members, the public
// summary to everyone else. Foreign pending queues stay private.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID := currentUserID(c)
	group, err := h.engine.Group(c.Param("group_id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	for _, member := range group.Members {
		if member == userID {
			c.JSON(http.StatusOK, group)
			return
		}
	}
	c.JSON(http.StatusOK, group.Summary())
}

// RequestJoin handles POST /groups/:group_id/join.
func (h *GroupHandler) RequestJoin(c *gin.Context) {
	userID := currentUserID(c)
	groupID := c.Param("group_id")

	err := h.engine.RequestJoin(groupID, userID)
	recordEngineOp("request_join", err)
	if err != nil {
		h.emitAudit(c, "ERROR", "join request rejected")
		respondEngineError(c, err)
		return
	}
	h.persistGroup(c.Request.Context(), groupID)

	h.emitAudit(c, "INFO", "Join requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
}

// PendingJoins returns the join queue; admin only.
func (h *GroupHandler) PendingJoins(c *gin.Context) {
	userID := currentUserID(c)
	pending, err := h.engine.PendingJoins(c.Param("group_id"), userID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// ApproveJoin handles POST /groups/:group_id/join-requests/:user_id/approve.
func (h *GroupHandler) ApproveJoin(c *gin.Context) {
	actingID := currentUserID(c)
	groupID := c.Param("group_id")
	userID := c.Param("user_id")

	err := h.engine.ApproveJoin(groupID, userID, actingID)
	recordEngineOp("approve_join", err)
	if err != nil {
		h.emitAudit(c, "ERROR", "join approval rejected")
		respondEngineError(c, err)
		return
	}
	h.persistGroup(c.Request.Context(), groupID)

	h.emitAudit(c, "INFO", "Join approved")
	c.JSON(http.StatusOK, gin.H{"status": "member"})
}

// RequestConnect handles POST /groups/:group_id/connections.
func (h *GroupHandler) RequestConnect(c *gin.Context) {
	actingID := currentUserID(c)
	fromGroupID := c.Param("group_id")

	var req struct {
		TargetGroupID string `json:"target_group_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.engine.RequestConnect(fromGroupID, req.TargetGroupID, actingID)
	recordEngineOp("request_connect", err)
	if err != nil {
		h.emitAudit(c, "ERROR", "connection request rejected")
		respondEngineError(c, err)
		return
	}
	// The pending entry lives on the target group.
	h.persistGroup(c.Request.Context(), req.TargetGroupID)

	h.emitAudit(c, "INFO", "Connection requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
}

// PendingConnections returns the connection request queue; admin only.
func (h *GroupHandler) PendingConnections(c *gin.Context) {
	userID := currentUserID(c)
	pending, err := h.engine.PendingConnections(c.Param("group_id"), userID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// ApproveConnect handles
// POST /groups/:group_id/connection-requests/:from_group_id/approve.
func (h *GroupHandler) ApproveConnect(c *gin.Context) {
	actingID := currentUserID(c)
	targetGroupID := c.Param("group_id")
	fromGroupID := c.Param("from_group_id")

	channel, err := h.engine.ApproveConnect(targetGroupID, fromGroupID, actingID)
	recordEngineOp("approve_connect", err)
	if err != nil {
		h.emitAudit(c, "ERROR", "connection approval rejected")
		respondEngineError(c, err)
		return
	}

	h.persistGroup(c.Request.Context(), targetGroupID)
	h.persistGroup(c.Request.Context(), fromGroupID)
	if err := h.groupRepo.InsertChannel(c.Request.Context(), channel); err != nil {
		log.Printf("persist channel %s failed: %v", channel.ID, err)
	}

	h.emitAudit(c, "INFO", "Connection approved")
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

// persistGroup mirrors the engine's current record for a group into the
// record store. Failures are logged, not rolled back: the engine remains
// the authority and the store is eventually refreshed wholesale.
func (h *GroupHandler) persistGroup(ctx context.Context, groupID string) {
	group, err := h.engine.Group(groupID)
	if err != nil {
		log.Printf("persist group %s: %v", groupID, err)
		return
	}
	if err := h.groupRepo.UpsertGroup(ctx, group); err != nil {
		log.Printf("persist group %s failed: %v", groupID, err)
	}
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
