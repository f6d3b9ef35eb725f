package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/pulse/engine"
)

func TestNewRefresherValidatesSchedule(t *testing.T) {
	c := NewCache(&stubSource{loads: [][]engine.FactRow{{}}})

	_, err := NewRefresher(c, "every tuesday", 0, nil)
	assert.Error(t, err)

	r, err := NewRefresher(c, "0 */6 * * *", 0, nil)
	require.NoError(t, err)
	from := time.Date(2025, 3, 1, 7, 30, 0, 0, time.Local)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local), r.Next(from))
}

func TestRefresherReloads(t *testing.T) {
	src := &stubSource{
		loads: [][]engine.FactRow{{{Year: 2024, Month: "Jan"}}},
		errs:  []error{nil, errors.New("timeout")},
	}
	c := NewCache(src)
	r, err := NewRefresher(c, "@every 1h", time.Second, nil)
	require.NoError(t, err)

	r.refresh(context.Background())
	assert.Equal(t, 1, c.Status().Reloads)

	r.refresh(context.Background())
	assert.Equal(t, "timeout", c.Status().LastError)
	_, err = c.Snapshot()
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.refresh(ctx)
	assert.Equal(t, 2, src.calls)
}

func TestRefresherStartStop(t *testing.T) {
	c := NewCache(&stubSource{loads: [][]engine.FactRow{{}}})
	r, err := NewRefresher(c, "@every 1h", 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
	r.Stop()
	assert.Zero(t, c.Status().Reloads)
}
