package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guillotmd/EyeDropIt/internal/dose"
	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/model"
)

// DoseServiceInterface は点眼記録ハンドラーが必要とするサービスインターフェース。
type DoseServiceInterface interface {
	Record(ctx context.Context, userID string, input dose.Input) (*model.Dose, error)
	List(ctx context.Context, userID string) ([]*model.Dose, error)
	ListByRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Dose, error)
	Delete(ctx context.Context, userID, id string) error
}

// DoseHandler は点眼記録のHTTPハンドラー。
type DoseHandler struct {
	service   DoseServiceInterface
	collector metrics.MetricsCollector
}

// NewDoseHandler はDoseHandlerを生成する。collectorはnil可。
func NewDoseHandler(service DoseServiceInterface, collector metrics.MetricsCollector) *DoseHandler {
	return &DoseHandler{service: service, collector: collector}
}

// List はユーザーの点眼記録一覧を取得する。
// start_dateとend_dateがRFC3339形式で指定された場合は期間で絞り込む。
// GET /api/doses?start_date=...&end_date=...
func (h *DoseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	startParam := r.URL.Query().Get("start_date")
	endParam := r.URL.Query().Get("end_date")

	var doses []*model.Dose
	if startParam != "" || endParam != "" {
		start, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			handleServiceError(w, model.NewValidationError("start_dateはRFC3339形式で指定してください"))
			return
		}
		end, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			handleServiceError(w, model.NewValidationError("end_dateはRFC3339形式で指定してください"))
			return
		}
		doses, err = h.service.ListByRange(r.Context(), userID, start, end)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	} else {
		doses, err = h.service.List(r.Context(), userID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	resp := make([]doseResponse, 0, len(doses))
	for _, d := range doses {
		resp = append(resp, toDoseResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Record は点眼記録を作成する。
// POST /api/doses
func (h *DoseHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input dose.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	d, err := h.service.Record(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordDoseRecorded(d.Skipped)
	}
	writeJSON(w, http.StatusCreated, toDoseResponse(d))
}

// Delete は点眼記録を削除する。
// DELETE /api/doses/{id}
func (h *DoseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordDoseDeleted()
	}
	w.WriteHeader(http.StatusNoContent)
}
