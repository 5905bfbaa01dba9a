package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/pubsub"
)

// PubSub is the in-process event bus used in single-instance deployments
// and tests. Messages are lost on restart.
type PubSub struct {
	ch *gochannel.GoChannel
}

func NewPubSub(log *logger.Logger) *PubSub {
	return &PubSub{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, pubsub.NewLoggerAdapter(log)),
	}
}

var _ pubsub.PubSub = (*PubSub)(nil)

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.ch.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.ch.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.ch.Close()
}
