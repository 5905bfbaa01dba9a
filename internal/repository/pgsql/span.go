package pgsql

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
)

// StartRepositorySpan opens a sentry span for one repository call. It is a
// no-op child when no transaction is attached to ctx.
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	span := sentry.StartSpan(ctx, fmt.Sprintf("repository.%s.%s", repository, operation))
	span.Description = fmt.Sprintf("%s.%s", repository, operation)
	span.SetTag("db.system", "postgresql")
	span.SetTag("repository", repository)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func SetSpanSuccess(span *sentry.Span) {
	if span != nil {
		span.Status = sentry.SpanStatusOK
	}
}
