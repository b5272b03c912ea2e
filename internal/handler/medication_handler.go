package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guillotmd/EyeDropIt/internal/medication"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/model"
)

// MedicationServiceInterface は薬ハンドラーが必要とするサービスインターフェース。
type MedicationServiceInterface interface {
	Create(ctx context.Context, userID string, input medication.Input) (*model.Medication, error)
	Get(ctx context.Context, userID, id string) (*model.Medication, error)
	List(ctx context.Context, userID string) ([]*model.Medication, error)
	ListWithSchedules(ctx context.Context, userID string) ([]*model.MedicationWithSchedules, error)
	Update(ctx context.Context, userID, id string, input medication.Input) (*model.Medication, error)
	Delete(ctx context.Context, userID, id string) error
}

// MedicationHandler は点眼薬管理のHTTPハンドラー。
type MedicationHandler struct {
	service MedicationServiceInterface
}

// NewMedicationHandler はMedicationHandlerを生成する。
func NewMedicationHandler(service MedicationServiceInterface) *MedicationHandler {
	return &MedicationHandler{service: service}
}

// List はユーザーの薬一覧を取得する。
// GET /api/medications
func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	meds, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]medicationResponse, 0, len(meds))
	for _, med := range meds {
		resp = append(resp, toMedicationResponse(med))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListWithSchedules は薬一覧を各薬のスケジュール付きで取得する。
// GET /api/medications-with-schedules
func (h *MedicationHandler) ListWithSchedules(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	results, err := h.service.ListWithSchedules(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]medicationWithSchedulesResponse, 0, len(results))
	for _, m := range results {
		resp = append(resp, toMedicationWithSchedulesResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は薬を1件取得する。
// GET /api/medications/{id}
func (h *MedicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	med, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMedicationResponse(med))
}

// Create は薬を作成する。
// POST /api/medications
func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input medication.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	med, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMedicationResponse(med))
}

// Update は薬を更新する。
// PUT /api/medications/{id}
func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var input medication.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	med, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMedicationResponse(med))
}

// Delete は薬を削除する。紐づくスケジュール・点眼記録もカスケード削除される。
// DELETE /api/medications/{id}
func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
