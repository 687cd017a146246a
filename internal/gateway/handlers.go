package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/querylog"
	"github.com/mbd888/sentinel/internal/suspicion"
	"github.com/mbd888/sentinel/internal/validation"
)

// Handlers exposes the gateway over HTTP.
type Handlers struct {
	svc   *Service
	users suspicion.Store
	logs  querylog.Store
}

func NewHandlers(svc *Service, users suspicion.Store, logs querylog.Store) *Handlers {
	return &Handlers{svc: svc, users: users, logs: logs}
}

// RegisterRoutes mounts the gateway endpoints on the given group.
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/prompt", h.handlePrompt)
	r.GET("/system-history", h.handleSystemHistory)
	r.GET("/users", h.handleListUsers)
}

type promptRequest struct {
	UserID string `json:"userId"`
	Prompt string `json:"prompt"`
}

func (h *Handlers) handlePrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	req.Prompt = validation.SanitizeString(req.Prompt, validation.MaxPromptLength)

	if errs := validation.Validate(
		validation.Required("userId", req.UserID),
		validation.ValidUserID("userId", req.UserID),
		validation.Required("prompt", req.Prompt),
		validation.MaxLength("prompt", req.Prompt, validation.MaxPromptLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.Error()})
		return
	}

	res, err := h.svc.HandlePrompt(c.Request.Context(), req.UserID, req.Prompt)
	if err != nil {
		h.writeError(c, req.UserID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": res.Response})
}

func (h *Handlers) writeError(c *gin.Context, userID string, err error) {
	log := logging.L(c.Request.Context())
	switch {
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and prompt are required"})
	case errors.Is(err, ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: account flagged for suspicious activity"})
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Account temporarily restricted, try again later"})
	case errors.Is(err, ErrUpstreamUnavailable):
		log.Error("upstream failure serving prompt", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "answer service unavailable"})
	default:
		log.Error("prompt handling failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handlers) handleSystemHistory(c *gin.Context) {
	limit := querylog.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("listing system history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

func (h *Handlers) handleListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("listing users failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}
