// Package api is the HTTP boundary the external command layer calls. It
// translates requests into engine and ledger operations and serves read-only
// snapshots; it never formats user-facing notification text.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/api/recovery"
	"github.com/guildops/timewarden/internal/attendance"
	"github.com/guildops/timewarden/internal/roles"
	"github.com/guildops/timewarden/internal/tracker"
)

// Deps are the collaborators the handlers operate on.
type Deps struct {
	Engine *tracker.Engine
	Ledger *attendance.Ledger
	Roles  roles.Resolver
	Log    zerolog.Logger
}

// NewRouter wires all routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware(d.Log))

	th := &trackingHandler{deps: d}
	ah := &attendanceHandler{deps: d}

	router.HandleFunc("/api/health", health).Methods(http.MethodGet)

	// Tracking operations
	router.HandleFunc("/api/entities", th.List).Methods(http.MethodGet)
	router.HandleFunc("/api/entities/{entityId}", th.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/entities/{entityId}", th.Remove).Methods(http.MethodDelete)
	router.HandleFunc("/api/entities/{entityId}/tracking/start", th.Start).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/preregister", th.PreRegister).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/pause", th.Pause).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/resume", th.Resume).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/stop", th.Stop).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/cancel", th.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/tracking/reset", th.Reset).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/time/add", th.AddMinutes).Methods(http.MethodPost)
	router.HandleFunc("/api/entities/{entityId}/time/subtract", th.SubtractMinutes).Methods(http.MethodPost)
	router.HandleFunc("/api/tracking/reset", th.ResetAll).Methods(http.MethodPost)
	router.HandleFunc("/api/tracking", th.WipeAll).Methods(http.MethodDelete)

	// Attendance operations
	router.HandleFunc("/api/attendance", ah.List).Methods(http.MethodGet)
	router.HandleFunc("/api/attendance", ah.WipeAll).Methods(http.MethodDelete)
	router.HandleFunc("/api/attendance/transfer", ah.Transfer).Methods(http.MethodPost)
	router.HandleFunc("/api/attendance/reset-weekly", ah.ResetWeekly).Methods(http.MethodPost)
	router.HandleFunc("/api/attendance/reset-daily", ah.ResetDaily).Methods(http.MethodPost)
	router.HandleFunc("/api/attendance/{entityId}", ah.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/attendance/{entityId}/daily", ah.GrantDaily).Methods(http.MethodPost)
	router.HandleFunc("/api/attendance/{entityId}/daily-manual", ah.GrantDailyManual).Methods(http.MethodPost)
	router.HandleFunc("/api/attendance/{entityId}/manual", ah.GrantManual).Methods(http.MethodPost)

	return router
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
