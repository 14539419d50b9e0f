package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const TopicHotelAppended = "hotel.appended"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type Handler func(ctx context.Context, payload []byte) error

type Bus struct {
	pubSub *gochannel.GoChannel
	log    *logrus.Logger
}

// New returns an in-process bus. Delivery is asynchronous and not durable.
func New(log *logrus.Logger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
		log: log,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.SetContext(ctx)

	return b.pubSub.Publish(topic, msg)
}

// Subscribe runs handler for every message on topic until ctx is done.
// Handler errors are logged and the message is acked anyway.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			// Handlers outlive the publishing request.
			if err := handler(context.WithoutCancel(msg.Context()), msg.Payload); err != nil {
				b.log.WithFields(logrus.Fields{
					"topic":      topic,
					"message_id": msg.UUID,
					"error":      err.Error(),
				}).Error("Event handler failed")
			}
			msg.Ack()
		}
	}()

	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Decode unmarshals an event payload published through Bus.
func Decode(payload []byte, v interface{}) error {
	return json.Unmarshal(payload, v)
}
