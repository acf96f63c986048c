package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/chat"
	"github.com/dalemusser/dukhiatma/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMentions(t *testing.T) {
	assert.True(t, chat.Mentions("hello @CHAD how are you"))
	assert.True(t, chat.Mentions("@chad"))
	assert.True(t, chat.Mentions("hey @chadwick"))
	assert.False(t, chat.Mentions("hello chadwick"))
	assert.False(t, chat.Mentions("chad"))
}

func TestResponder_FallsThroughToWorkingModel(t *testing.T) {
	backend := &testutil.StubBackend{
		Errs:    map[string]error{"A": errors.New("quota"), "B": errors.New("not found")},
		Replies: map[string]string{"C": "  be gentle with yourself  "},
	}
	r := chat.NewResponder(backend, []string{"A", "B", "C"}, zap.NewNop())

	reply, err := r.Reply(context.Background(), "I feel sad")
	require.NoError(t, err)
	assert.Equal(t, "be gentle with yourself", reply.Text)
	assert.Equal(t, "C", reply.Model)
	assert.Equal(t, []string{"A", "B", "C"}, reply.Attempted)
}

func TestResponder_AllFail(t *testing.T) {
	last := errors.New("C down")
	backend := &testutil.StubBackend{
		Errs:    map[string]error{"A": errors.New("a"), "C": last},
		Replies: map[string]string{"B": "   "}, // blank counts as failure
	}
	r := chat.NewResponder(backend, []string{"A", "B", "C"}, zap.NewNop())

	_, err := r.Reply(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrNoCandidateAvailable)
	assert.ErrorIs(t, err, last)

	var ae *chat.AssistantError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"A", "B", "C"}, ae.Attempted)
}

func TestResponder_PerAttemptTimeout(t *testing.T) {
	backend := &testutil.StubBackend{
		Hang:    map[string]bool{"slow": true},
		Replies: map[string]string{"fast": "ok"},
	}
	r := chat.NewResponder(backend, []string{"slow", "fast"}, zap.NewNop()).WithTimeout(20 * time.Millisecond)

	reply, err := r.Reply(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fast", reply.Model)
}

func TestResponder_StopsWhenContextEnds(t *testing.T) {
	backend := &testutil.StubBackend{Replies: map[string]string{"A": "x"}}
	r := chat.NewResponder(backend, []string{"A"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Reply(ctx, "hi")
	assert.ErrorIs(t, err, chat.ErrNoCandidateAvailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, backend.Calls())
}

func TestResponder_Unconfigured(t *testing.T) {
	r := chat.NewResponder(nil, nil, zap.NewNop())
	assert.False(t, r.Configured())
	assert.Equal(t, chat.DefaultModels, r.Models())

	_, err := r.Reply(context.Background(), "hi")
	assert.ErrorIs(t, err, chat.ErrAssistantUnconfigured)
}
