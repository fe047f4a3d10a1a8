package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "hourly", want: time.Hour},
		{in: "Daily", want: 24 * time.Hour},
		{in: " weekly ", want: 7 * 24 * time.Hour},
		{in: "90m", want: 90 * time.Minute},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "sometimes", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "0s", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseInterval(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestSchedulerFiresRepeatedly(t *testing.T) {
	var fired atomic.Int32
	s := New(func(ctx context.Context, configID string) error {
		assert.Equal(t, "photos", configID)
		fired.Add(1)
		return nil
	})

	require.NoError(t, s.Register(context.Background(), "photos", 10*time.Millisecond))
	defer s.Stop()

	require.Eventually(t, func() bool { return fired.Load() >= 3 },
		2*time.Second, 5*time.Millisecond)
}

func TestSchedulerRejectsNonPositiveInterval(t *testing.T) {
	s := New(func(ctx context.Context, configID string) error { return nil })
	assert.Error(t, s.Register(context.Background(), "photos", 0))
	assert.Error(t, s.Register(context.Background(), "photos", -time.Second))
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	s := New(func(ctx context.Context, configID string) error {
		started.Add(1)
		<-release
		return nil
	})

	require.NoError(t, s.Register(context.Background(), "slow", 5*time.Millisecond))

	require.Eventually(t, func() bool { return started.Load() == 1 },
		time.Second, time.Millisecond)

	// several intervals pass while the first run is still blocked
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load(), "ticks during an active run are skipped, not queued")

	close(release)
	s.Stop()
}

func TestSchedulerUnregister(t *testing.T) {
	var fired atomic.Int32
	s := New(func(ctx context.Context, configID string) error {
		fired.Add(1)
		return nil
	})

	require.NoError(t, s.Register(context.Background(), "photos", 10*time.Millisecond))
	require.Eventually(t, func() bool { return fired.Load() >= 1 },
		time.Second, time.Millisecond)

	s.Unregister("photos")
	settled := fired.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, fired.Load(), "no ticks after unregister")

	s.Stop()
}

func TestSchedulerStopWaitsForInFlightRun(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	s := New(func(ctx context.Context, configID string) error {
		<-release
		finished.Store(true)
		return nil
	})

	require.NoError(t, s.Register(context.Background(), "photos", 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond) // let a run start and block

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	s.Stop()
	assert.True(t, finished.Load(), "Stop returns only after the in-flight run finished")
}

func TestSchedulerContextCancelStopsLoop(t *testing.T) {
	var fired atomic.Int32
	s := New(func(ctx context.Context, configID string) error {
		fired.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Register(ctx, "photos", 10*time.Millisecond))
	require.Eventually(t, func() bool { return fired.Load() >= 1 },
		time.Second, time.Millisecond)

	cancel()
	settled := fired.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, fired.Load(), settled+1, "at most one tick can race the cancellation")

	s.Stop()
}
