package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IPublisherService publishes raw payloads on the in-process job bus.
type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.pubSub.Publish(ps.topicName, msg)
}
