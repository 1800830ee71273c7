package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisScheduler(t *testing.T, interval time.Duration) *RedisScheduler {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisScheduler("redis://"+mr.Addr(), interval)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRedisScheduler_InvalidURL(t *testing.T) {
	_, err := NewRedisScheduler("not-a-valid-url", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisScheduler_ConnectionFailed(t *testing.T) {
	_, err := NewRedisScheduler("redis://localhost:1", time.Minute)
	assert.Error(t, err)
}

func TestRedisScheduler_OneAdmissionPerWindow(t *testing.T) {
	s := newRedisScheduler(t, time.Minute)
	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	admitted, err := s.Admit(ctx, "obs_st", start, false)
	require.NoError(t, err)
	assert.True(t, admitted, "first admission")

	admitted, err = s.Admit(ctx, "obs_st", start.Add(30*time.Second), false)
	require.NoError(t, err)
	assert.False(t, admitted, "within the interval")

	admitted, err = s.Admit(ctx, "obs_st", start.Add(time.Minute), false)
	require.NoError(t, err)
	assert.True(t, admitted, "at the interval boundary")
}

func TestRedisScheduler_TypesAreIndependent(t *testing.T) {
	s := newRedisScheduler(t, time.Minute)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	admitted, err := s.Admit(ctx, "rapid_wind", now, false)
	require.NoError(t, err)
	require.True(t, admitted)

	admitted, err = s.Admit(ctx, "obs_st", now.Add(time.Second), false)
	require.NoError(t, err)
	assert.True(t, admitted, "obs_st must not be throttled by rapid_wind")
}

func TestRedisScheduler_ForceAlwaysAdmitsAndUpdates(t *testing.T) {
	s := newRedisScheduler(t, time.Minute)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	admitted, err := s.Admit(ctx, "hub_status", now, false)
	require.NoError(t, err)
	require.True(t, admitted)

	admitted, err = s.Admit(ctx, "hub_status", now.Add(time.Second), true)
	require.NoError(t, err)
	assert.True(t, admitted, "force must bypass the interval check")

	// Force updated the timestamp, so the next unforced check counts
	// from the forced admission
	admitted, err = s.Admit(ctx, "hub_status", now.Add(time.Minute), false)
	require.NoError(t, err)
	assert.False(t, admitted, "force must update the last-accepted time")
}

func TestRedisScheduler_FailsOpenOnBackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisScheduler("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer s.Close()

	// Kill the backend after connecting
	mr.Close()

	admitted, err := s.Admit(context.Background(), "obs_st", time.Now(), false)
	assert.Error(t, err)
	assert.True(t, admitted, "scheduler must fail open when Redis is unavailable")
}
