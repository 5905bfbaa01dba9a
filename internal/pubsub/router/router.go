package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/pubsub"
)

// Router runs the event bus consumers. Handlers get panic recovery and a
// short retry; a message still failing after that is acked and logged so
// one bad event does not block the topic.
type Router struct {
	router *message.Router
	logger *logger.Logger
}

func NewRouter(log *logger.Logger) (*Router, error) {
	wmLogger := pubsub.NewLoggerAdapter(log)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 15 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	// first added is outermost
	router.AddMiddleware(
		poisonAck(log),
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)

	return &Router{router: router, logger: log}, nil
}

// AddNoPublishHandler registers a consumer that does not emit messages
func (r *Router) AddNoPublishHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, subscriber, handler)
	r.logger.Infow("registered event handler", "handler", name, "topic", topic)
}

// Run blocks until ctx is cancelled or the router is closed
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	return r.router.Close()
}

// poisonAck wraps the retry middleware: an error surviving all retries is
// logged and swallowed so the message is acked
func poisonAck(log *logger.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			out, err := h(msg)
			if err != nil {
				log.Errorw("dropping event after retries",
					"message_uuid", msg.UUID,
					"error", err,
				)
				return nil, nil
			}
			return out, nil
		}
	}
}
