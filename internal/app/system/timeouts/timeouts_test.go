package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	defer Reset()

	Configure(Config{Assistant: 3 * time.Second})

	if got := Assistant(); got != 3*time.Second {
		t.Errorf("Assistant: got %v, want 3s", got)
	}
	if got := Short(); got != DefaultShort {
		t.Errorf("Short should keep default: got %v", got)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Millisecond, Medium: time.Minute})
	Reset()

	cur := Current()
	if cur.Ping != DefaultPing || cur.Medium != DefaultMedium {
		t.Errorf("Reset did not restore defaults: %+v", cur)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 5*time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("err: got %v, want DeadlineExceeded", ctx.Err())
	}
}
