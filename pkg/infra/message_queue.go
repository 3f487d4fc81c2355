package infra

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fystack/identity-minter/pkg/common/logger"
)

var MaxMsgSize = 10 * 1024 // 10KB

// MessageQueue publishes fire-and-forget notifications.
type MessageQueue interface {
	Enqueue(topic string, message []byte, options *EnqueueOptions) error
	Close()
}

type EnqueueOptions struct {
	IdempotentKey string
}

type natsPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher wraps a core NATS connection. Messages are not persisted;
// subscribers that are offline miss them.
func NewNATSPublisher(nc *nats.Conn) MessageQueue {
	return &natsPublisher{nc: nc}
}

func (p *natsPublisher) Enqueue(topic string, message []byte, options *EnqueueOptions) error {
	if len(message) > MaxMsgSize {
		return fmt.Errorf("message too large: %d > %d bytes", len(message), MaxMsgSize)
	}
	logger.Debug("Publishing message", "topic", topic, "size", len(message))

	msg := nats.NewMsg(topic)
	msg.Data = message
	if options != nil && options.IdempotentKey != "" {
		msg.Header.Set(nats.MsgIdHdr, options.IdempotentKey)
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("error enqueueing message: %w", err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logger.Warn("Drain NATS connection failed", "err", err)
	}
}
