package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/publish"
	"github.com/lysyi3m/rss-curator/app/registry"
)

const (
	defaultListLimit  = 100
	maxListLimit      = 500
	approvedFeedLimit = 50
)

func NewHandler(deps Deps) *Handler {
	return &Handler{
		registry:  deps.Registry,
		items:     deps.Items,
		generator: deps.Generator,
		runner:    deps.Runner,
		suggester: deps.Suggester,
		publisher: deps.Publisher,
		db:        deps.DB,
		cache:     deps.Cache,
		version:   deps.Version,
		startedAt: time.Now(),
	}
}

func (h *Handler) GetApprovedFeed(c *gin.Context) {
	approved := true
	items, err := h.items.List(c.Request.Context(), database.ItemFilter{Approved: &approved, Limit: approvedFeedLimit})
	if err != nil {
		slog.Error("Database error", "operation", "list_approved_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"database":  "ok",
	}

	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		health["status"] = "unhealthy"
		health["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		health["cache"] = h.cache.Health(ctx)
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	sources, err := h.registry.ListActive(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "list_active_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats, err := h.items.Stats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "item_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active_feeds":   len(sources),
		"total_items":    stats.Total,
		"pending_items":  stats.Pending,
		"approved_items": stats.Approved,
	})
}

func (h *Handler) APIListItems(c *gin.Context) {
	filter := database.ItemFilter{Limit: defaultListLimit}

	switch c.DefaultQuery("status", "all") {
	case "pending":
		filter.Approved = lo.ToPtr(false)
	case "approved":
		filter.Approved = lo.ToPtr(true)
	case "all":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, approved, all"})
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	items, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lo.Map(items, toItemResponse),
		"total": len(items),
	})
}

func (h *Handler) APISuggest(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	suggestion, suggestErr := h.suggester.Suggest(ctx, item.Title, item.Summary)
	if suggestErr != nil {
		slog.Warn("AI suggestion failed, storing fallback", "item_id", item.ID, "error", suggestErr)
	}
	if suggestion == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Suggestion unavailable"})
		return
	}

	if _, err := h.items.SetAISuggestion(ctx, item.ID, suggestion); err != nil {
		slog.Error("Database error", "operation", "set_ai_suggestion", "item_id", item.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := gin.H{"id": item.ID, "suggestion": suggestion}
	if suggestErr != nil {
		response["fallback"] = true
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIApprove(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.publisher.Publish(ctx, *item); err != nil {
		if errors.Is(err, publish.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Channel publisher is not configured"})
			return
		}
		slog.Error("Failed to publish item", "item_id", item.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to publish item", "message": err.Error()})
		return
	}

	if _, err := h.items.Approve(ctx, item.ID); err != nil {
		slog.Error("Database error", "operation", "approve_item", "item_id", item.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Item approved", "item_id", item.ID, "feed_source", item.FeedSource)
	c.JSON(http.StatusOK, gin.H{"id": item.ID, "approved": true})
}

func (h *Handler) APIReject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.items.Delete(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_item", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	slog.Info("Item rejected", "item_id", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "rejected": true})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	sources, err := h.registry.List(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": lo.Map(sources, toSourceResponse),
		"total": len(sources),
	})
}

func (h *Handler) APIAddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	source, err := h.registry.Add(c.Request.Context(), req.URL, req.Name)
	switch {
	case errors.Is(err, registry.ErrDuplicateURL):
		c.JSON(http.StatusConflict, gin.H{"error": "Feed already registered", "message": err.Error()})
		return
	case errors.Is(err, registry.ErrInvalidFeed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid feed", "message": err.Error()})
		return
	case err != nil:
		slog.Error("Failed to add feed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, toSourceResponse(*source, 0))
}

func (h *Handler) APIRemoveFeed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	removed, err := h.registry.Remove(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "remove_source", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "removed": removed})
}

func (h *Handler) APISetFeedActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	found, err := h.registry.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		slog.Error("Database error", "operation", "set_source_active", "source_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

func (h *Handler) APIRefresh(c *gin.Context) {
	start := time.Now()

	newItems, err := h.runner.RunCycle(c.Request.Context())
	if err != nil {
		slog.Error("Manual ingestion cycle failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion cycle failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"new_items": newItems,
		"duration":  time.Since(start).Round(time.Millisecond).String(),
	})
}

func (h *Handler) loadItem(c *gin.Context) (*database.Item, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}

	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return nil, false
	}

	return item, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
		return 0, false
	}
	return id, true
}
