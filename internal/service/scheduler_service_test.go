package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduleEveryMinute(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	id, err := s.ScheduleEveryMinute(func() {})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return !s.Next(id).IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next(id)
	assert.Equal(t, 0, next.Second())
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(61*time.Second)))
}

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)
	_, err := s.Schedule("every minute", func() {})
	assert.Error(t, err)
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	var started, running atomic.Int32
	release := make(chan struct{})
	_, err := s.Schedule("* * * * * *", func() {
		started.Add(1)
		running.Add(1)
		defer running.Add(-1)
		<-release
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return started.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(2200 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load(), "second run starts while first is in flight")
	assert.LessOrEqual(t, running.Load(), int32(1))

	close(release)
	s.Stop()
}
