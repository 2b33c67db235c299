package proc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_CleanExit(t *testing.T) {
	p := Spawn(context.Background(), "ok", func(context.Context) error { return nil })
	require.NoError(t, p.Wait(context.Background()))
	assert.False(t, p.Alive())
	assert.Equal(t, 0, p.ExitCode())
	assert.NoError(t, p.Err())
	assert.Equal(t, "ok", p.Name())
}

func TestSpawn_ErrorExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"plain error", errors.New("boom"), 1},
		{"coded error", WithCode(7, errors.New("boom")), 7},
		{"wrapped coded error", WithCode(3, errors.New("inner")), 3},
		{"canceled", context.Canceled, 130},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Spawn(context.Background(), tc.name, func(context.Context) error { return tc.err })
			require.NoError(t, p.Wait(context.Background()))
			assert.Equal(t, tc.code, p.ExitCode())
			assert.Error(t, p.Err())
		})
	}
}

func TestSpawn_PanicBecomesNonzeroExit(t *testing.T) {
	p := Spawn(context.Background(), "crasher", func(context.Context) error {
		panic("unhandled fault")
	})
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 1, p.ExitCode())
	assert.ErrorContains(t, p.Err(), "panic")
}

func TestProc_ExitCodeWhileAlive(t *testing.T) {
	block := make(chan struct{})
	p := Spawn(context.Background(), "blocked", func(ctx context.Context) error {
		<-block
		return nil
	})
	assert.True(t, p.Alive())
	assert.Equal(t, -1, p.ExitCode())
	assert.NoError(t, p.Err())
	close(block)
	require.NoError(t, p.Wait(context.Background()))
}

func TestProc_KillCancelsRunContext(t *testing.T) {
	p := Spawn(context.Background(), "victim", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, p.Alive())
	p.Kill()
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 130, p.ExitCode())
}

func TestProc_WaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := Spawn(context.Background(), "slow", func(context.Context) error {
		<-block
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}
