package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxTries:        4,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsed:      5 * time.Second,
		AttemptTimeout:  time.Second,
	}
}

func TestRetryServerErrorThenSuccess(t *testing.T) {
	backend := &scripted{
		errs:   []error{&StatusError{Provider: "test", Code: 503}},
		answer: "revenue grew",
	}
	gw := WithRetry(backend, fastRetry(), nil)

	got, err := gw.Complete(context.Background(), Request{UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "revenue grew", got)
	assert.Equal(t, 2, backend.Calls())
}

func TestRetryRateLimited(t *testing.T) {
	backend := &scripted{
		errs: []error{
			&StatusError{Provider: "test", Code: 429},
			&StatusError{Provider: "test", Code: 429},
		},
		answer: "ok",
	}
	gw := WithRetry(backend, fastRetry(), nil)

	got, err := gw.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, backend.Calls())
}

func TestRetryTimeout(t *testing.T) {
	backend := &scripted{
		errs:   []error{context.DeadlineExceeded},
		answer: "ok",
	}
	gw := WithRetry(backend, fastRetry(), nil)

	_, err := gw.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Calls())
}

func TestNoRetryOnClientError(t *testing.T) {
	backend := &scripted{
		errs: []error{&StatusError{Provider: "test", Code: 400, Message: "bad request"}},
	}
	gw := WithRetry(backend, fastRetry(), nil)

	_, err := gw.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, backend.Calls())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.Code)
}

func TestNoRetryOnEmptyResponse(t *testing.T) {
	backend := &scripted{errs: []error{ErrEmptyResponse}}
	gw := WithRetry(backend, fastRetry(), nil)

	_, err := gw.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 1, backend.Calls())
}

func TestRetryGivesUpAfterMaxTries(t *testing.T) {
	unavailable := &StatusError{Provider: "test", Code: 503}
	backend := &scripted{errs: []error{unavailable, unavailable, unavailable, unavailable, unavailable}}
	gw := WithRetry(backend, fastRetry(), nil)

	_, err := gw.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 4, backend.Calls())
}

func TestRetryStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &cancelling{cancel: cancel}
	gw := WithRetry(backend, fastRetry(), nil)

	_, err := gw.Complete(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, backend.calls)
}

// cancelling cancels the caller's context, then fails with a retryable error.
type cancelling struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelling) Complete(ctx context.Context, req Request) (string, error) {
	c.calls++
	c.cancel()
	return "", &StatusError{Provider: "test", Code: 503}
}
