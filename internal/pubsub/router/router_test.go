package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/pubsub/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDeliversAndRetries(t *testing.T) {
	log := logger.NewNopLogger()
	bus := memory.NewPubSub(log)
	defer bus.Close()

	r, err := NewRouter(log)
	require.NoError(t, err)

	var attempts int32
	done := make(chan struct{})
	r.AddNoPublishHandler("test", "tenant.lifecycle", bus, func(msg *message.Message) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()
	<-r.Running()

	require.NoError(t, bus.Publish(ctx, "tenant.lifecycle", message.NewMessage("m-1", []byte(`{}`))))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not retried")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
