package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/models"
	"groupnet-service/internal/repositories"
	"groupnet-service/internal/telemetry"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	engine      *engine.Engine
	profileRepo repositories.ProfileRepository
	resolver    *blob.Resolver
	audit       *telemetry.AuditEmitter
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(eng *engine.Engine, profileRepo repositories.ProfileRepository, resolver *blob.Resolver, audit *telemetry.AuditEmitter) *ProfileHandler {
	return &ProfileHandler{
		engine:      eng,
		profileRepo: profileRepo,
		resolver:    resolver,
		audit:       audit,
	}
}

// Me returns the caller's profile. A token for a user the service has not
// seen yet gets an empty profile back rather than a 404, so clients can
// prompt for a name on first sign-in.
func (h *ProfileHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	profile, err := h.engine.Profile(userID)
	if err != nil {
		if errors.Is(err, engine.ErrProfileNotFound) {
			c.JSON(http.StatusOK, models.Profile{ID: userID})
			return
		}
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe upserts the caller's profile.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
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

	profile := models.Profile{
		ID:        userID,
		Name:      req.Name,
		AvatarRef: h.resolver.Resolve(req.AvatarSrc),
	}
	h.engine.UpsertProfile(profile)
	recordEngineOp("upsert_profile", nil)

	if err := h.profileRepo.UpsertProfile(c.Request.Context(), profile); err != nil {
		log.Printf("persist profile %s failed: %v", userID, err)
	}

	h.emitAudit(c, "INFO", "Profile updated")
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
