package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobFunc func(ctx context.Context) (int, error)

func (f jobFunc) Execute(ctx context.Context) (int, error) { return f(ctx) }

func TestScheduler_RegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	err := s.Register("broken", "every now and then", time.Minute, jobFunc(func(context.Context) (int, error) { return 0, nil }))
	assert.Error(t, err)

	require.NoError(t, s.Register("sweep", "@every 15m", time.Minute, jobFunc(func(context.Context) (int, error) { return 0, nil })))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunSurvivesFailures(t *testing.T) {
	s := NewScheduler()
	calls := 0
	failing := jobFunc(func(context.Context) (int, error) {
		calls++
		return 0, errors.New("db unavailable")
	})

	assert.NotPanics(t, func() { s.run(context.Background(), "failing", failing) })
	assert.NotPanics(t, func() { s.run(context.Background(), "failing", failing) })
	assert.Equal(t, 2, calls)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Register("sweep", "@every 1h", time.Minute, jobFunc(func(context.Context) (int, error) { return 0, nil })))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
