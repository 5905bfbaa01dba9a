package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/tenantcore/internal/domain/alert"
	"github.com/flexprice/tenantcore/internal/domain/lifecycle"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/flexprice/tenantcore/internal/webhook"
)

// RecordingPublisher keeps everything published so tests can assert on it
type RecordingPublisher struct {
	mu              sync.Mutex
	lifecycleEvents []*lifecycle.Event
	alerts          []*alert.Alert
	// Err, when set, is returned from every publish
	Err error
}

var _ webhook.Publisher = (*RecordingPublisher)(nil)

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishLifecycleEvent(_ context.Context, e *lifecycle.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.lifecycleEvents = append(p.lifecycleEvents, e)
	return nil
}

func (p *RecordingPublisher) PublishAlert(_ context.Context, a *alert.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.alerts = append(p.alerts, a)
	return nil
}

func (p *RecordingPublisher) LifecycleEvents() []*lifecycle.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*lifecycle.Event(nil), p.lifecycleEvents...)
}

// LifecycleEventTypes lists the published event types in order
func (p *RecordingPublisher) LifecycleEventTypes() []types.LifecycleEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.LifecycleEventType, 0, len(p.lifecycleEvents))
	for _, e := range p.lifecycleEvents {
		out = append(out, e.EventType)
	}
	return out
}

func (p *RecordingPublisher) Alerts() []*alert.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*alert.Alert(nil), p.alerts...)
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lifecycleEvents = nil
	p.alerts = nil
}
