package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nzcrisisline/safetypipeline/internal/model"
)

// ErrTimeout is returned when a model call does not complete within the
// configured per-call bound (§7: ModelTimeout), distinct from
// model.ErrUnreachable (the provider could not be contacted at all).
var ErrTimeout = errors.New("llm: model call timed out")

type timeoutClient struct {
	next    model.Client
	timeout time.Duration
}

// WithTimeout wraps next so every Complete call is bounded by timeout,
// the "only the external model call may suspend, and only up to a fixed
// bound" rule in §5.
func WithTimeout(next model.Client, timeout time.Duration) model.Client {
	if timeout <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.next.Complete(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return resp, err
}
