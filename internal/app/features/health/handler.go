package health

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/dukhiatma/internal/app/features/errors"
	metricsstore "github.com/dalemusser/dukhiatma/internal/app/store/metrics"
	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client   Pinger
	Realtime string                                    // "changestream" or "local"
	Sessions func() int                                // open chat sessions; may be nil
	Counts   func(context.Context) metricsstore.Counts // room totals; may be nil
	Log      *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(client Pinger, realtimeMode string, sessions func() int, logger *zap.Logger) *Handler {
	return &Handler{
		Client:   client,
		Realtime: realtimeMode,
		Sessions: sessions,
		Log:      logger,
	}
}

type healthResponse struct {
	Status   string               `json:"status"`
	Database string               `json:"database"`
	Realtime string               `json:"realtime,omitempty"`
	Sessions *int                 `json:"sessions,omitempty"`
	Room     *metricsstore.Counts `json:"room,omitempty"`
	Message  string               `json:"message,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "realtime":"changestream", "sessions":3,
//	  "room":{"members":5,"removed":1,"admins":1,"messages":240} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Realtime: h.Realtime,
	}
	if h.Sessions != nil {
		n := h.Sessions()
		resp.Sessions = &n
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.Counts != nil {
		c := h.Counts(ctx)
		resp.Room = &c
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}
