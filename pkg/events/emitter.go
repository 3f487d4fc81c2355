package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fystack/identity-minter/pkg/common/constant"
	"github.com/fystack/identity-minter/pkg/infra"
)

type Emitter interface {
	EmitMinted(event MintedEvent) error
	Close()
}

type emitter struct {
	queue         infra.MessageQueue
	subjectPrefix string
}

func NewEmitter(queue infra.MessageQueue, subjectPrefix string) Emitter {
	return &emitter{
		queue:         queue,
		subjectPrefix: subjectPrefix,
	}
}

// Subject is the NATS subject minted events are published on.
func Subject(prefix string) string {
	if prefix == "" {
		return constant.MintedEventSubject
	}
	return prefix + "." + constant.MintedEventSubject
}

// EmitMinted fills ID and Timestamp when empty and publishes the event keyed by
// tx hash so duplicate publishes can be dropped downstream.
func (e *emitter) EmitMinted(event MintedEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UTC().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.queue.Enqueue(Subject(e.subjectPrefix), data, &infra.EnqueueOptions{
		IdempotentKey: event.TxHash,
	})
}

func (e *emitter) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}

// Noop discards events. Used when NATS is disabled.
type Noop struct{}

func (Noop) EmitMinted(MintedEvent) error { return nil }
func (Noop) Close()                       {}
