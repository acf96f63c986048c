package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/system/metrics"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Persona is the fixed system instruction sent with every assistant attempt.
const Persona = `You are "Chad," an empathetic AI therapist inside a group chat called DukhiAtma.
Your job is to comfort and support heartbroken people.
Be warm, gentle, and emotionally intelligent.
Reply in a conversational and human-like tone.
Focus on healing, self-love, and resilience.
Keep responses short and kind.`

// MentionTag is the token that summons the assistant.
const MentionTag = "@chad"

// DefaultModels is the candidate order used when none is configured.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.0-pro"}

// Mentions reports whether content addresses the assistant. The match is a
// case-insensitive substring, so "@chadwick" matches as well.
func Mentions(content string) bool {
	return strings.Contains(strings.ToLower(content), MentionTag)
}

// Backend generates text with a named model.
type Backend interface {
	Generate(ctx context.Context, model, system, user string) (string, error)
}

// Reply is a successful assistant response.
type Reply struct {
	Text      string
	Model     string
	Attempted []string
}

// Responder walks an ordered list of candidate models and returns the first
// non-empty reply.
type Responder struct {
	backend Backend
	models  []string
	timeout time.Duration
	log     *zap.Logger
}

var errEmptyReply = errors.New("model returned no text")

// NewResponder builds a responder. A nil backend yields a responder that
// always fails with ErrAssistantUnconfigured. An empty model list falls back
// to DefaultModels.
func NewResponder(backend Backend, models []string, logger *zap.Logger) *Responder {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Responder{
		backend: backend,
		models:  append([]string(nil), models...),
		log:     logger,
	}
}

// WithTimeout overrides the per-attempt timeout. Zero means timeouts.Assistant().
func (r *Responder) WithTimeout(d time.Duration) *Responder {
	r.timeout = d
	return r
}

// Configured reports whether a backend is available.
func (r *Responder) Configured() bool { return r != nil && r.backend != nil }

// Models returns the candidate order.
func (r *Responder) Models() []string { return append([]string(nil), r.models...) }

// Reply tries each candidate once, in order. Each attempt gets its own
// timeout; a timeout, an error, or a blank result moves on to the next
// candidate. If ctx ends the walk stops early.
func (r *Responder) Reply(ctx context.Context, userText string) (Reply, error) {
	if !r.Configured() {
		return Reply{}, ErrAssistantUnconfigured
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = timeouts.Assistant()
	}

	var attempted []string
	var last error
	for _, model := range r.models {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		attempted = append(attempted, model)

		actx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		text, err := r.backend.Generate(actx, model, Persona, userText)
		cancel()

		text = strings.TrimSpace(text)
		if err == nil && text == "" {
			err = errEmptyReply
		}
		if err != nil {
			last = err
			metrics.AssistantAttempts.WithLabelValues(model, "error").Inc()
			r.log.Warn("assistant attempt failed",
				zap.String("model", model),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))
			continue
		}

		metrics.AssistantAttempts.WithLabelValues(model, "ok").Inc()
		r.log.Debug("assistant replied",
			zap.String("model", model),
			zap.Int("attempts", len(attempted)),
			zap.Duration("took", time.Since(start)))
		return Reply{Text: text, Model: model, Attempted: attempted}, nil
	}

	return Reply{}, &AssistantError{Attempted: attempted, Last: last}
}
