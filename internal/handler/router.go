package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	UserHandler        *UserHandler
	MedicationHandler  *MedicationHandler
	ScheduleHandler    *ScheduleHandler
	DoseHandler        *DoseHandler
	AppointmentHandler *AppointmentHandler
	ProjectionHandler  *ProjectionHandler

	Logger        *slog.Logger
	Collector     metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
	RateLimiter   *middleware.RateLimiter
	CORSOrigin    string
	DefaultUserID string
}

// NewRouter はAPI全体のルーターを構築する。
// ミドルウェアの適用順: CORS → セキュリティヘッダー → ロギング →
// リカバリー → メトリクス → （APIグループ内）ユーザーコンテキスト → レート制限。
// /health と /metrics は認証・レート制限の対象外。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.NewUserContextMiddleware(deps.DefaultUserID))
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.GeneralMiddleware())
		}

		api.Get("/user", deps.UserHandler.Me)

		api.Get("/medications", deps.MedicationHandler.List)
		api.Post("/medications", deps.MedicationHandler.Create)
		api.Get("/medications-with-schedules", deps.MedicationHandler.ListWithSchedules)
		api.Get("/medications/{id}", deps.MedicationHandler.Get)
		api.Put("/medications/{id}", deps.MedicationHandler.Update)
		api.Delete("/medications/{id}", deps.MedicationHandler.Delete)

		api.Get("/schedules", deps.ScheduleHandler.List)
		api.Post("/schedules", deps.ScheduleHandler.Create)
		api.Get("/schedules-with-medications", deps.ScheduleHandler.ListWithMedications)
		api.Get("/schedules/{id}", deps.ScheduleHandler.Get)
		api.Put("/schedules/{id}", deps.ScheduleHandler.Update)
		api.Delete("/schedules/{id}", deps.ScheduleHandler.Delete)

		api.Get("/doses", deps.DoseHandler.List)
		if deps.RateLimiter != nil {
			// 点眼記録の作成は連打による誤記録を防ぐため別枠で制限する
			api.With(deps.RateLimiter.DoseRecordingMiddleware()).
				Post("/doses", deps.DoseHandler.Record)
		} else {
			api.Post("/doses", deps.DoseHandler.Record)
		}
		api.Delete("/doses/{id}", deps.DoseHandler.Delete)

		api.Get("/appointments", deps.AppointmentHandler.List)
		api.Post("/appointments", deps.AppointmentHandler.Create)
		api.Get("/appointments/{id}", deps.AppointmentHandler.Get)
		api.Put("/appointments/{id}", deps.AppointmentHandler.Update)
		api.Delete("/appointments/{id}", deps.AppointmentHandler.Delete)

		api.Get("/next-doses", deps.ProjectionHandler.NextDoses)
		api.Get("/adherence-stats", deps.ProjectionHandler.AdherenceStats)
	})

	return r
}
