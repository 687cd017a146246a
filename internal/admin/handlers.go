package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/logging"
)

// Handlers exposes the admin read API.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes mounts the admin endpoints on the given group.
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/admin/query-logs", h.handleQueryLogs)
	r.GET("/threat-log", h.handleThreatLog)
	r.GET("/threat-log/user/:userId", h.handleThreatLogForUser)
	r.GET("/blockchain-stats", h.handleSummary)
}

// RegisterLegacyRoutes mounts the pre-v1 paths older dashboards still call.
func (h *Handlers) RegisterLegacyRoutes(r *gin.Engine) {
	r.GET("/api/blockchain/status", h.handleChainStatus)

	// Old threat endpoints moved under /api/v1.
	r.GET("/api/threats/stats", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/api/v1/blockchain-stats")
	})
	r.GET("/api/threats/mongodb", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/api/v1/system-history")
	})
	r.GET("/api/threats/blockchain", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/api/v1/threat-log")
	})
}

func (h *Handlers) handleQueryLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	// Fully audited entries by default; all=true opts into the raw log.
	var err error
	var entries any
	if c.Query("all") == "true" {
		entries, err = h.svc.AllQueries(c.Request.Context(), limit)
	} else {
		entries, err = h.svc.RecentQueries(c.Request.Context(), limit)
	}
	if err != nil {
		logging.L(c.Request.Context()).Error("listing query logs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handlers) handleThreatLog(c *gin.Context) {
	filter := ThreatFilter(c.DefaultQuery("filter", string(FilterAll)))

	recs, err := h.svc.ThreatRecords(c.Request.Context(), filter)
	if err != nil {
		if filter != FilterAll && filter != FilterHighSeverity && filter != FilterLastHour {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filter must be one of all, high, lasthour"})
			return
		}
		logging.L(c.Request.Context()).Error("listing threat log failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "records": recs})
}

func (h *Handlers) handleThreatLogForUser(c *gin.Context) {
	userID := c.Param("userId")

	recs, err := h.svc.ThreatRecordsForUser(c.Request.Context(), userID)
	if err != nil {
		logging.L(c.Request.Context()).Error("listing user threat log failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "count": len(recs), "records": recs})
}

func (h *Handlers) handleSummary(c *gin.Context) {
	stats, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("computing summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) handleChainStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ChainStatusNow(c.Request.Context()))
}
