package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (f *fakeSweeper) CleanupExpired(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestStateCleanup_Sweep(t *testing.T) {
	s := &fakeSweeper{n: 3}
	w := NewStateCleanup(s, zap.NewNop(), time.Minute)

	assert.Equal(t, int64(3), w.Sweep())
	assert.Equal(t, int32(1), s.calls.Load())
}

func TestStateCleanup_SweepError(t *testing.T) {
	s := &fakeSweeper{n: 3, err: errors.New("boom")}
	w := NewStateCleanup(s, zap.NewNop(), time.Minute)

	assert.Equal(t, int64(0), w.Sweep())
}

func TestStateCleanup_RunsOnInterval(t *testing.T) {
	s := &fakeSweeper{}
	w := NewStateCleanup(s, zap.NewNop(), 5*time.Millisecond)
	w.Start()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
	after := s.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, s.calls.Load(), "no sweeps after Stop")
}
