package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/google/uuid"
)

// PubSubPublisher durably publishes committed events to a Cloud Pub/Sub
// topic, ordered per pool (OrderingKey = pool_id, same grounding as the
// teacher's tenant-ordered pubsub_bus.go), and also fans out over an
// in-process Hub for immediate WebSocket push.
type PubSubPublisher struct {
	topic *pubsub.Topic
	hub   *Hub
}

func NewPubSubPublisher(topic *pubsub.Topic, hub *Hub) *PubSubPublisher {
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{topic: topic, hub: hub}
}

func (p *PubSubPublisher) PublishCommitted(ctx context.Context, e CommittedEvent) error {
	evt := toCloudEvent(uuid.NewString(), e)
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("realtime: marshal cloud event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: e.PoolID,
		Attributes: map[string]string{
			"type":    eventType,
			"pool_id": e.PoolID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}

	if p.hub != nil {
		return p.hub.PublishCommitted(ctx, e)
	}
	return nil
}
