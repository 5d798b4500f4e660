package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intentio/backend/internal/events"
)

type EventsHandler struct {
	bus       *events.Bus
	buffer    int
	heartbeat time.Duration
	logger    zerolog.Logger
}

type eventEnvelope struct {
	ID   string      `json:"id"`
	Name events.Name `json:"name"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

func NewEventsHandler(bus *events.Bus, buffer int, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:       bus,
		buffer:    buffer,
		heartbeat: 30 * time.Second,
		logger:    logger,
	}
}

// Stream forwards bus events as server-sent events until the client goes
// away. ?events=a,b limits the stream to the named events.
func (h *EventsHandler) Stream(c *gin.Context) {
	names, ok := parseEventNames(c.Query("events"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_event", "message": "unknown event name"},
		})
		return
	}

	sub := h.bus.Subscribe(h.buffer, names...)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug().Str("remote_addr", c.ClientIP()).Msg("Event stream opened")
	defer h.logger.Debug().Str("remote_addr", c.ClientIP()).Msg("Event stream closed")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			c.SSEvent(string(event.Name), eventEnvelope{
				ID:   event.ID,
				Name: event.Name,
				At:   event.At,
				Data: event.Payload(),
			})
			c.Writer.Flush()
		}
	}
}

func parseEventNames(raw string) ([]events.Name, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var names []events.Name
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, ok := events.ParseName(part)
		if !ok {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}
