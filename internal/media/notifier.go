package media

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const invalidateSubject = "media.cache.invalidate"

// NatsNotifier fans cache invalidations out to sibling processes so they can
// drop their own cached listings.
type NatsNotifier struct {
	nc *nats.Conn
}

func NewNatsNotifier(nc *nats.Conn) *NatsNotifier {
	return &NatsNotifier{nc: nc}
}

type invalidateEvent struct {
	Keys       []string  `json:"keys"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *NatsNotifier) Invalidate(keys ...string) error {
	payload, err := json.Marshal(invalidateEvent{
		Keys:       keys,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal invalidate event: %w", err)
	}

	if err := n.nc.Publish(invalidateSubject, payload); err != nil {
		return fmt.Errorf("publish invalidate event: %w", err)
	}

	return nil
}
