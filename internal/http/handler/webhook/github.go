// Package webhook terminates inbound GitHub webhook deliveries: it
// authenticates the raw body, extracts the event envelope from the
// transport headers, and hands the verified event to the dispatcher. The
// core never sees the HTTP request.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeflowhq/forgeflow/common/id"
	"github.com/forgeflowhq/forgeflow/common/logger"
	"github.com/forgeflowhq/forgeflow/internal/dedup"
	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/signature"
)

// Dispatcher fans a verified event out to the registered workflows.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt event.Event)
}

type GitHubWebhookHandler struct {
	secret     []byte
	dispatcher Dispatcher
	deduper    dedup.Deduper
}

func NewGitHubWebhookHandler(secret string, dispatcher Dispatcher, deduper dedup.Deduper) *GitHubWebhookHandler {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &GitHubWebhookHandler{
		secret:     key,
		dispatcher: dispatcher,
		deduper:    deduper,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	// Authentication happens on the raw body, before anything is decoded.
	// A bad signature never reaches the dispatcher.
	if !signature.Verify(h.secret, body, c.GetHeader("X-Hub-Signature")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	eventType := c.GetHeader("X-GitHub-Event")
	if eventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing header: X-GitHub-Event"})
		return
	}

	deliveryID := c.GetHeader("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = id.New()
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must contain json"})
		return
	}

	evt := event.Event{
		Type:       event.Type(eventType),
		DeliveryID: deliveryID,
		Payload:    body,
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: deliveryID,
		EventType:  eventType,
		Repository: repositoryName(payload),
	})

	seen, err := h.deduper.Seen(ctx, deliveryID)
	if err != nil {
		// The guard being down is no reason to drop the event.
		slog.WarnContext(ctx, "dedup guard unavailable", "error", err)
	} else if seen {
		slog.InfoContext(ctx, "duplicate delivery skipped")
		c.Status(http.StatusNoContent)
		return
	}

	slog.InfoContext(ctx, event.Describe(evt))

	h.dispatcher.Dispatch(ctx, evt)

	c.Status(http.StatusNoContent)
}

func repositoryName(payload map[string]any) string {
	repo, ok := payload["repository"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := repo["full_name"].(string)
	return name
}
