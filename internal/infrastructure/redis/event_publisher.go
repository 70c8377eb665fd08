package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"sealed-auction/internal/domain"
)

const eventChannel = "auction_events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

// PublishAuctionEvent fans an event out on the shared channel. Events carry
// actor and timing only, never bid amounts.
func (r *EventPublisherImpl) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventChannel, data).Err()
}
