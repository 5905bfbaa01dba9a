package export

import (
	"context"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/logger"
)

// Location tells the caller where a stored export can be fetched
type Location struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink stores a finished export document. A nil Location means the sink
// kept nothing and the caller must return the document inline.
type Sink interface {
	Store(ctx context.Context, tenantID, exportID string, document []byte) (*Location, error)
}

// InlineSink is used when no object storage is configured
type InlineSink struct{}

func (InlineSink) Store(context.Context, string, string, []byte) (*Location, error) {
	return nil, nil
}

// NewSink returns the S3 sink when enabled, the inline sink otherwise
func NewSink(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (Sink, error) {
	if !cfg.Export.S3Enabled {
		log.Infow("s3 export disabled, exports are returned inline")
		return InlineSink{}, nil
	}
	return NewS3Sink(ctx, cfg.Export, log)
}
