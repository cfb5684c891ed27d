package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// subjectPublisher is the subset of *nats.Conn the forwarder needs.
type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder republishes every bus event to NATS on "<prefix>.<topic>".
type Forwarder struct {
	conn   subjectPublisher
	prefix string
	logger *zap.Logger
}

// NewForwarder returns a forwarder publishing through conn.
func NewForwarder(conn subjectPublisher, prefix string, logger *zap.Logger) *Forwarder {
	if prefix == "" {
		prefix = "netwarden"
	}
	return &Forwarder{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the NATS subject for topic.
func (f *Forwarder) Subject(topic string) string {
	return f.prefix + "." + topic
}

// Attach subscribes the forwarder to every topic on sub.
func (f *Forwarder) Attach(sub Subscriber) (detach func()) {
	return sub.SubscribeAll(f.Handle)
}

// Handle publishes event as JSON. Publish failures are logged, never returned.
func (f *Forwarder) Handle(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("event not serializable", zap.String("topic", event.Topic), zap.Error(err))
		return
	}
	if err := f.conn.Publish(f.Subject(event.Topic), data); err != nil {
		f.logger.Warn("nats publish failed",
			zap.String("subject", f.Subject(event.Topic)),
			zap.Error(err),
		)
	}
}

// ConnectNATS opens a NATS connection that reconnects indefinitely and
// reports connection state changes through logger.
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("netwarden"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Warn("nats error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
