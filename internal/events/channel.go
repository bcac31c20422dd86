package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChannelPublisher is an in-process bus. Every event type is its own topic.
type ChannelPublisher struct {
	pubSub *gochannel.GoChannel
}

func NewChannelPublisher() *ChannelPublisher {
	return &ChannelPublisher{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

func (p *ChannelPublisher) Publish(_ context.Context, event Event) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.pubSub.Publish(event.EventType(), msg); err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", event.EventType(), err)
	}
	return nil
}

// Subscribe exposes the raw topic for in-process consumers.
func (p *ChannelPublisher) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	return p.pubSub.Subscribe(ctx, eventType)
}

func (p *ChannelPublisher) Close() error {
	return p.pubSub.Close()
}
