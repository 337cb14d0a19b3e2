package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/model"
)

type stubClient struct {
	err error
}

func (s *stubClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	return &model.Response{Text: "ok"}, s.err
}

func TestNewAdaptiveRateLimiterAppliesDefaults(t *testing.T) {
	l := NewAdaptiveRateLimiter(0, 0)
	require.Equal(t, 60000.0, l.currentTPM)
	require.Equal(t, 60000.0, l.maxTPM)
}

func TestNewAdaptiveRateLimiterClampsMaxBelowInitial(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 1000)
	require.Equal(t, 60000.0, l.maxTPM)
}

func TestBackoffHalvesTPMOnRateLimitSignal(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 240000)
	client := l.Middleware()(&stubClient{err: model.ErrRateLimited})

	_, err := client.Complete(context.Background(), &model.Request{Messages: []model.Message{{Content: "hi"}}})
	require.ErrorIs(t, err, model.ErrRateLimited)
	require.Equal(t, 30000.0, l.currentTPM)
}

func TestBackoffNeverGoesBelowMinimum(t *testing.T) {
	l := NewAdaptiveRateLimiter(100, 100)
	for i := 0; i < 20; i++ {
		l.observe(model.ErrRateLimited)
	}
	require.GreaterOrEqual(t, l.currentTPM, l.minTPM)
}

func TestProbeRecoversTowardMaxOnSuccess(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 240000)
	l.backoff()
	after := l.currentTPM
	l.probe()
	require.Greater(t, l.currentTPM, after)
}

func TestProbeNeverExceedsMax(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 60000)
	for i := 0; i < 10; i++ {
		l.probe()
	}
	require.LessOrEqual(t, l.currentTPM, l.maxTPM)
}

func TestMiddlewareNilClientReturnsNil(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 60000)
	require.Nil(t, l.Middleware()(nil))
}

func TestObserveIgnoresNonRateLimitErrors(t *testing.T) {
	l := NewAdaptiveRateLimiter(60000, 60000)
	before := l.currentTPM
	l.observe(errors.New("boom"))
	require.Equal(t, before, l.currentTPM)
}
