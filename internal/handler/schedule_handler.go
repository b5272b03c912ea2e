package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/schedule"
)

// ScheduleServiceInterface はスケジュールハンドラーが必要とするサービスインターフェース。
type ScheduleServiceInterface interface {
	Create(ctx context.Context, userID string, input schedule.Input) (*model.Schedule, error)
	Get(ctx context.Context, userID, id string) (*model.Schedule, error)
	List(ctx context.Context, userID string) ([]*model.Schedule, error)
	ListWithMedications(ctx context.Context, userID string) ([]*model.ScheduleWithMedication, error)
	Update(ctx context.Context, userID, id string, input schedule.Input) (*model.Schedule, error)
	Delete(ctx context.Context, userID, id string) error
}

// ScheduleHandler は点眼スケジュール管理のHTTPハンドラー。
type ScheduleHandler struct {
	service ScheduleServiceInterface
}

// NewScheduleHandler はScheduleHandlerを生成する。
func NewScheduleHandler(service ScheduleServiceInterface) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List はユーザーのスケジュール一覧を取得する。
// GET /api/schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	scheds, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]scheduleResponse, 0, len(scheds))
	for _, sched := range scheds {
		resp = append(resp, toScheduleResponse(sched))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListWithMedications はスケジュール一覧を薬情報付きで取得する。
// GET /api/schedules-with-medications
func (h *ScheduleHandler) ListWithMedications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	results, err := h.service.ListWithMedications(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]scheduleWithMedicationResponse, 0, len(results))
	for _, s := range results {
		resp = append(resp, toScheduleWithMedicationResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はスケジュールを1件取得する。
// GET /api/schedules/{id}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	sched, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

// Create はスケジュールを作成する。
// POST /api/schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input schedule.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	sched, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(sched))
}

// Update はスケジュールを更新する。
// PUT /api/schedules/{id}
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input schedule.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	sched, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

// Delete はスケジュールを削除する。
// DELETE /api/schedules/{id}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
