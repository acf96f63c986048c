// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/dukhiatma/internal/app/store/audit"
	"github.com/dalemusser/dukhiatma/internal/app/system/ratelimit"
	"github.com/dalemusser/dukhiatma/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in, sign-out and forced sign-out events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for member removal.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func oid(hex string) *primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

func requestContext(r *http.Request) (ip, ua string) {
	if r == nil {
		return "", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.MemberID != nil {
		fields = append(fields, zap.String("member_id", event.MemberID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a completed sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, m models.Member) {
	ip, ua := requestContext(r)
	id := m.ID
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		MemberID:  &id,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   map[string]string{"email": m.Email},
	})
}

// LoginFailedRemoved logs a sign-in refused because the member was removed.
func (l *Logger) LoginFailedRemoved(ctx context.Context, r *http.Request, email string) {
	ip, ua := requestContext(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRemoved,
		IP:            ip,
		UserAgent:     ua,
		FailureReason: "member removed",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedNoEmail logs a sign-in whose identity carried no email.
func (l *Logger) LoginFailedNoEmail(ctx context.Context, r *http.Request) {
	ip, ua := requestContext(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedNoEmail,
		IP:            ip,
		UserAgent:     ua,
		FailureReason: "identity has no email",
	})
}

// LoginFailedProvider logs an identity provider failure (state mismatch,
// code exchange, userinfo).
func (l *Logger) LoginFailedProvider(ctx context.Context, r *http.Request, reason string) {
	ip, ua := requestContext(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedProvider,
		IP:            ip,
		UserAgent:     ua,
		FailureReason: reason,
	})
}

// Logout logs a sign-out. memberID is the hex id from the session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, memberID string) {
	ip, ua := requestContext(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		MemberID:  oid(memberID),
		IP:        ip,
		UserAgent: ua,
		Success:   true,
	})
}

// ForcedLogout logs a session ended because its member was removed.
func (l *Logger) ForcedLogout(ctx context.Context, memberID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventForcedLogout,
		MemberID:  oid(memberID),
		Success:   true,
	})
}

// --- Admin Events ---

// MemberRemoved logs a successful removal.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, targetID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventMemberRemoved,
		MemberID:  oid(targetID),
		ActorID:   oid(actorID),
		Success:   true,
	})
}

// MemberRemoveDenied logs a refused removal.
func (l *Logger) MemberRemoveDenied(ctx context.Context, actorID, targetID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventMemberRemoveDenied,
		MemberID:      oid(targetID),
		ActorID:       oid(actorID),
		FailureReason: reason,
	})
}

// NewNopLogger returns a Logger that records nothing.
func NewNopLogger() *Logger {
	return New(nil, zap.NewNop(), Config{Auth: "off", Admin: "off"})
}
