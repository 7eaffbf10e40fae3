package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
)

// reconnectDelay is the retry hint sent to browsers, in milliseconds.
const reconnectDelay = 5000

// Handler streams broker events to the client until it disconnects or the
// broker stops. A full broker answers 503 with the standard error body.
func Handler(broker Broker, logger infralogger.Logger, opts ...ClientOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := infralogger.FromContext(c.Request.Context(), logger)

		events, cleanup := broker.Subscribe(c.Request.Context(), opts...)
		defer cleanup()

		// A rejected subscription arrives closed. Anything already queued,
		// such as a replayed event, is held and written after the greeting.
		pending, open := peek(events)
		if !open {
			log.Warn("SSE connection rejected")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many connections"})
			return
		}

		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		greeting := Event{
			Type:  eventTypeConnected,
			Retry: reconnectDelay,
			Data:  map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)},
		}
		if err := flushEvent(c.Writer, greeting); err != nil {
			return
		}
		if pending != nil {
			if err := flushEvent(c.Writer, *pending); err != nil {
				return
			}
		}

		log.Debug("SSE stream opened")
		stream(c, events, broker.HeartbeatInterval(), log)
		log.Debug("SSE stream closed")
	}
}

// peek takes one event if one is ready. It reports false when the channel
// is closed.
func peek(events <-chan Event) (*Event, bool) {
	select {
	case e, ok := <-events:
		if !ok {
			return nil, false
		}
		return &e, true
	default:
		return nil, true
	}
}

func stream(c *gin.Context, events <-chan Event, heartbeat time.Duration, log infralogger.Logger) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := flushEvent(c.Writer, e); err != nil {
				log.Debug("SSE write failed", infralogger.String("event_type", e.Type), infralogger.Error(err))
				return
			}
		case t := <-ticker.C:
			if _, err := fmt.Fprintf(c.Writer, ": heartbeat %s\n\n", t.UTC().Format(time.RFC3339)); err != nil {
				return
			}
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// EncodeEvent writes event in the text/event-stream format.
func EncodeEvent(w io.Writer, event Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal %s data: %w", event.Type, err)
	}

	var header string
	if event.Type != "" {
		header += "event: " + event.Type + "\n"
	}
	if event.ID != "" {
		header += "id: " + event.ID + "\n"
	}
	if event.Retry > 0 {
		header += fmt.Sprintf("retry: %d\n", event.Retry)
	}

	if _, err := fmt.Fprintf(w, "%sdata: %s\n\n", header, data); err != nil {
		return fmt.Errorf("write %s: %w", event.Type, err)
	}
	return nil
}

func flushEvent(w gin.ResponseWriter, event Event) error {
	if err := EncodeEvent(w, event); err != nil {
		return err
	}
	w.Flush()
	return nil
}
