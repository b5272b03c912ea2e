package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/projection"
)

// ProjectionServiceInterface は射影ハンドラーが必要とするサービスインターフェース。
type ProjectionServiceInterface interface {
	NextDoses(ctx context.Context, userID string, count int) ([]model.NextDose, error)
	AdherenceStats(ctx context.Context, userID string, days int) (*projection.AdherenceStats, error)
}

// ProjectionHandler は次回点眼予定・遵守統計のHTTPハンドラー。
type ProjectionHandler struct {
	service   ProjectionServiceInterface
	collector metrics.MetricsCollector
}

// NewProjectionHandler はProjectionHandlerを生成する。collectorはnil可。
func NewProjectionHandler(service ProjectionServiceInterface, collector metrics.MetricsCollector) *ProjectionHandler {
	return &ProjectionHandler{service: service, collector: collector}
}

// parsePositiveIntParam はクエリパラメータを正の整数として解釈する。
// 未指定・不正値・0以下の場合は0を返し、サービス側の既定値に委ねる。
func parsePositiveIntParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// NextDoses は今後の点眼予定を時系列順に返す。
// GET /api/next-doses?count=N
func (h *ProjectionHandler) NextDoses(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	count := parsePositiveIntParam(r, "count")

	start := time.Now()
	doses, err := h.service.NextDoses(r.Context(), userID, count)
	if h.collector != nil {
		h.collector.RecordProjectionLatency("next_doses", time.Since(start))
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]nextDoseResponse, 0, len(doses))
	for _, d := range doses {
		resp = append(resp, toNextDoseResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AdherenceStats は直近N日分の遵守統計を返す。
// GET /api/adherence-stats?days=N
func (h *ProjectionHandler) AdherenceStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	days := parsePositiveIntParam(r, "days")

	start := time.Now()
	stats, err := h.service.AdherenceStats(r.Context(), userID, days)
	if h.collector != nil {
		h.collector.RecordProjectionLatency("adherence_stats", time.Since(start))
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdherenceStatsResponse(stats))
}
