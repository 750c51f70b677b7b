package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aescanero/mlsvc/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandlePredictionStream streams prediction events. The optional "type"
// query parameter limits the feed to one event type.
func (h *Handler) HandlePredictionStream(c *gin.Context) {
	filter := ports.EventType(c.Query("type"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()),
		zap.String("filter", string(filter)))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads are only used to notice the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan := make(chan ports.Event, 10)
	if err := h.eventBus.Subscribe(ctx, ports.TopicPredictions, h.forward(eventChan)); err != nil {
		h.logger.Error("failed to subscribe to events",
			zap.String("topic", ports.TopicPredictions),
			zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if filter != "" && event.Type != filter {
				continue
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("failed to write message", zap.Error(err))
				return
			}
		}
	}
}

// forward returns an event handler that feeds ch without blocking
func (h *Handler) forward(ch chan<- ports.Event) ports.EventHandler {
	return func(ctx context.Context, event ports.Event) error {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}
}
