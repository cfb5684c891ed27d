// Package ws streams monitoring results to dashboard clients over WebSocket.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/event"
	"github.com/HerbHall/netwarden/internal/pulse"
)

// Handler provides the live monitoring feed endpoint.
type Handler struct {
	hub            *Hub
	originPatterns []string
	logger         *zap.Logger
	unsubscribe    []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler fed by the scheduler's events.
// originPatterns lists extra origins allowed to connect; same-origin
// requests are always accepted.
func NewHandler(bus event.Subscriber, originPatterns []string, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:            NewHub(logger),
		originPatterns: originPatterns,
		logger:         logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/monitor", h.handleMonitorStream)
}

// Hub returns the handler's client hub.
func (h *Handler) Hub() *Hub { return h.hub }

// Close detaches the handler from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.unsubscribe = nil
}

// handleMonitorStream upgrades the connection and streams monitoring events
// until the client goes away.
//
//	@Summary		Live monitoring feed
//	@Description	Upgrades to a WebSocket streaming device results, status changes and cycle completions as JSON messages.
//	@Tags			monitor
//	@Success		101 "Switching Protocols"
//	@Router			/ws/monitor [get]
func (h *Handler) handleMonitorStream(w http.ResponseWriter, r *http.Request) {
	// The feed is long-lived; drop the server's per-request write deadline.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, sendBuffer),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func (h *Handler) subscribeToEvents(bus event.Subscriber) {
	if bus == nil {
		return
	}

	h.unsubscribe = append(h.unsubscribe, bus.Subscribe(pulse.TopicDeviceChecked, func(_ context.Context, e event.Event) {
		p, ok := e.Payload.(pulse.DeviceCheckedEvent)
		if !ok {
			return
		}
		r := p.Result
		h.hub.Broadcast(Message{
			Type:      MessageDeviceChecked,
			DeviceID:  p.DeviceID,
			Timestamp: e.Timestamp,
			Data: DeviceCheckedData{
				Class:      p.Class,
				Name:       p.Name,
				IPAddress:  p.IPAddress,
				Status:     r.Status,
				Latency:    r.Latency,
				PacketLoss: r.PacketLoss,
				CPU:        r.CPU,
				RAM:        r.RAMUsage,
				Disk:       r.DiskUsage,
				Uptime:     r.Uptime,
				Error:      r.Error,
			},
		})
	}))

	h.unsubscribe = append(h.unsubscribe, bus.Subscribe(pulse.TopicStatusChanged, func(_ context.Context, e event.Event) {
		p, ok := e.Payload.(pulse.StatusChangedEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageStatusChanged,
			DeviceID:  p.DeviceID,
			Timestamp: e.Timestamp,
			Data: StatusChangedData{
				Class:     p.Class,
				Name:      p.Name,
				IPAddress: p.IPAddress,
				From:      p.From,
				To:        p.To,
			},
		})
	}))

	h.unsubscribe = append(h.unsubscribe, bus.Subscribe(pulse.TopicCycleCompleted, func(_ context.Context, e event.Event) {
		p, ok := e.Payload.(pulse.CycleReport)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageCycleCompleted,
			Timestamp: e.Timestamp,
			Data: CycleCompletedData{
				Devices:    p.Devices,
				Online:     p.Online,
				Offline:    p.Offline,
				Errors:     p.Errors,
				DurationMS: p.DurationMS,
			},
		})
	}))

	h.logger.Debug("subscribed to monitoring events for WebSocket broadcasting")
}
