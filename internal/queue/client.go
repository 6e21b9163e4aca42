package queue

import "context"

// Client enqueues report-processing jobs. The reports service falls back to
// in-process completion when no client is configured.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
