package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guillotmd/EyeDropIt/internal/appointment"
	"github.com/guillotmd/EyeDropIt/internal/dose"
	"github.com/guillotmd/EyeDropIt/internal/medication"
	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/projection"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/schedule"
	"github.com/guillotmd/EyeDropIt/internal/security"
	"github.com/guillotmd/EyeDropIt/internal/user"
)

// testServer はインメモリリポジトリで構成されたAPI一式。
type testServer struct {
	router http.Handler
	userID string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	userRepo := repository.NewMemoryUserRepo()
	medRepo := repository.NewMemoryMedicationRepo()
	schedRepo := repository.NewMemoryScheduleRepo()
	doseRepo := repository.NewMemoryDoseRepo()
	apptRepo := repository.NewMemoryAppointmentRepo()
	sanitizer := security.NewTextSanitizer()

	userSvc := user.NewService(userRepo)
	defaultUser, err := userSvc.EnsureDefault(ctx, "guillot")
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	router := NewRouter(RouterDeps{
		UserHandler:        NewUserHandler(userSvc),
		MedicationHandler:  NewMedicationHandler(medication.NewService(medRepo, schedRepo, doseRepo, sanitizer)),
		ScheduleHandler:    NewScheduleHandler(schedule.NewService(schedRepo, medRepo)),
		DoseHandler:        NewDoseHandler(dose.NewService(doseRepo, medRepo, schedRepo, sanitizer, true), collector),
		AppointmentHandler: NewAppointmentHandler(appointment.NewService(apptRepo, sanitizer)),
		ProjectionHandler:  NewProjectionHandler(projection.NewService(schedRepo, medRepo, doseRepo), collector),
		Logger:             logger,
		Collector:          collector,
		CORSOrigin:         "http://localhost:5173",
		DefaultUserID:      defaultUser.ID,
	})

	return &testServer{router: router, userID: defaultUser.ID}
}

// do はJSONボディ付きでリクエストを実行し、レスポンスを返す。
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
}

func (ts *testServer) createMedication(t *testing.T, name string) medicationResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/medications", map[string]any{
		"name":      name,
		"eye":       "both",
		"cap_color": "#00AA44",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create medication: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return decodeBody[medicationResponse](t, rec)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	ctx := context.Background()
	userRepo := repository.NewMemoryUserRepo()
	userSvc := user.NewService(userRepo)
	defaultUser, err := userSvc.EnsureDefault(ctx, "guillot")
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordHTTPStatus(http.StatusOK)

	medRepo := repository.NewMemoryMedicationRepo()
	schedRepo := repository.NewMemoryScheduleRepo()
	doseRepo := repository.NewMemoryDoseRepo()
	sanitizer := security.NewTextSanitizer()

	router := NewRouter(RouterDeps{
		UserHandler:        NewUserHandler(userSvc),
		MedicationHandler:  NewMedicationHandler(medication.NewService(medRepo, schedRepo, doseRepo, sanitizer)),
		ScheduleHandler:    NewScheduleHandler(schedule.NewService(schedRepo, medRepo)),
		DoseHandler:        NewDoseHandler(dose.NewService(doseRepo, medRepo, schedRepo, sanitizer, true), collector),
		AppointmentHandler: NewAppointmentHandler(appointment.NewService(repository.NewMemoryAppointmentRepo(), sanitizer)),
		ProjectionHandler:  NewProjectionHandler(projection.NewService(schedRepo, medRepo, doseRepo), collector),
		Logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Collector:          collector,
		Gatherer:           reg,
		CORSOrigin:         "http://localhost:5173",
		DefaultUserID:      defaultUser.ID,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("eyedropit_http_status_total")) {
		t.Errorf("metrics output missing eyedropit_http_status_total:\n%s", rec.Body.String())
	}
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[userResponse](t, rec)
	if got.ID != ts.userID {
		t.Errorf("ID = %q, want %q", got.ID, ts.userID)
	}
	if got.Username != "guillot" {
		t.Errorf("Username = %q, want %q", got.Username, "guillot")
	}
}

func TestMedicationCRUD(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createMedication(t, "ラタノプロスト")
	if created.Name != "ラタノプロスト" {
		t.Errorf("Name = %q, want %q", created.Name, "ラタノプロスト")
	}
	if created.CapColor != "#00AA44" {
		t.Errorf("CapColor = %q, want %q", created.CapColor, "#00AA44")
	}

	rec := ts.do(t, http.MethodGet, "/api/medications/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, "/api/medications/"+created.ID, map[string]any{
		"name":      "チモロール",
		"eye":       "left",
		"cap_color": "#FFCC00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[medicationResponse](t, rec)
	if updated.Name != "チモロール" {
		t.Errorf("Name = %q, want %q", updated.Name, "チモロール")
	}
	if updated.Eye != "left" {
		t.Errorf("Eye = %q, want %q", updated.Eye, "left")
	}

	rec = ts.do(t, http.MethodDelete, "/api/medications/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/medications/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateMedication_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/medications", map[string]any{
		"name": "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	errResp := decodeBody[middleware.ErrorResponseBody](t, rec)
	if errResp.Code != model.ErrCodeValidation {
		t.Errorf("Code = %q, want %q", errResp.Code, model.ErrCodeValidation)
	}
}

func TestCreateMedication_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/medications", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestScheduleCRUD(t *testing.T) {
	ts := newTestServer(t)
	med := ts.createMedication(t, "ラタノプロスト")

	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"medication_id": med.ID,
		"time":          "08:00",
		"days_of_week":  []string{"Monday", "Wednesday", "Friday"},
		"eye":           "both",
		"active":        true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[scheduleResponse](t, rec)
	if created.Time != "08:00" {
		t.Errorf("Time = %q, want %q", created.Time, "08:00")
	}

	rec = ts.do(t, http.MethodPut, "/api/schedules/"+created.ID, map[string]any{
		"time":         "21:30",
		"days_of_week": []string{"Sunday"},
		"eye":          "right",
		"active":       false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[scheduleResponse](t, rec)
	if updated.Time != "21:30" {
		t.Errorf("Time = %q, want %q", updated.Time, "21:30")
	}
	if updated.MedicationID != med.ID {
		t.Errorf("MedicationID = %q, want %q", updated.MedicationID, med.ID)
	}

	rec = ts.do(t, http.MethodGet, "/api/schedules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	list := decodeBody[[]scheduleResponse](t, rec)
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}

	rec = ts.do(t, http.MethodDelete, "/api/schedules/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
}

func TestScheduleWithMedications(t *testing.T) {
	ts := newTestServer(t)
	med := ts.createMedication(t, "ラタノプロスト")

	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"medication_id": med.ID,
		"time":          "08:00",
		"days_of_week":  []string{"Monday"},
		"eye":           "both",
		"active":        true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/schedules-with-medications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decodeBody[[]scheduleWithMedicationResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].Medication.Name != "ラタノプロスト" {
		t.Errorf("Medication.Name = %q, want %q", list[0].Medication.Name, "ラタノプロスト")
	}
}

func TestDoseRecordAndDelete(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/medications", map[string]any{
		"name":            "ラタノプロスト",
		"eye":             "both",
		"cap_color":       "#00AA44",
		"remaining_doses": 10,
		"total_doses":     10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create medication: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	med := decodeBody[medicationResponse](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/doses", map[string]any{
		"medication_id": med.ID,
		"eye":           "both",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record dose: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	recorded := decodeBody[doseResponse](t, rec)

	// 点眼記録で残量が1減る
	rec = ts.do(t, http.MethodGet, "/api/medications/"+med.ID, nil)
	after := decodeBody[medicationResponse](t, rec)
	if after.RemainingDoses == nil || *after.RemainingDoses != 9 {
		t.Errorf("RemainingDoses = %v, want 9", after.RemainingDoses)
	}

	// 記録削除で残量が戻る
	rec = ts.do(t, http.MethodDelete, "/api/doses/"+recorded.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete dose: status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/medications/"+med.ID, nil)
	restored := decodeBody[medicationResponse](t, rec)
	if restored.RemainingDoses == nil || *restored.RemainingDoses != 10 {
		t.Errorf("RemainingDoses = %v, want 10", restored.RemainingDoses)
	}
}

func TestListDoses_RangeFilter(t *testing.T) {
	ts := newTestServer(t)
	med := ts.createMedication(t, "ラタノプロスト")

	timestamps := []string{
		"2026-03-01T08:00:00Z",
		"2026-03-05T08:00:00Z",
		"2026-03-09T08:00:00Z",
	}
	for _, tsStr := range timestamps {
		rec := ts.do(t, http.MethodPost, "/api/doses", map[string]any{
			"medication_id": med.ID,
			"eye":           "both",
			"timestamp":     tsStr,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("record dose at %s: status = %d", tsStr, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/doses?start_date=2026-03-04T00:00:00Z&end_date=2026-03-06T00:00:00Z", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[[]doseResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}

	// 不正な期間指定は400
	rec = ts.do(t, http.MethodGet, "/api/doses?start_date=not-a-time&end_date=2026-03-06T00:00:00Z", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid start_date: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAppointmentCRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/appointments", map[string]any{
		"doctor_name":      "山田先生",
		"appointment_type": "定期検診",
		"date_time":        "2026-04-01T10:00:00Z",
		"location":         "市民病院 眼科",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[appointmentResponse](t, rec)
	if created.DoctorName != "山田先生" {
		t.Errorf("DoctorName = %q, want %q", created.DoctorName, "山田先生")
	}

	rec = ts.do(t, http.MethodPut, "/api/appointments/"+created.ID, map[string]any{
		"doctor_name":      "山田先生",
		"appointment_type": "視野検査",
		"date_time":        "2026-04-08T10:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/appointments", nil)
	list := decodeBody[[]appointmentResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].AppointmentType != "視野検査" {
		t.Errorf("AppointmentType = %q, want %q", list[0].AppointmentType, "視野検査")
	}

	rec = ts.do(t, http.MethodDelete, "/api/appointments/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/appointments/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNextDosesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	med := ts.createMedication(t, "ラタノプロスト")

	// 全曜日・深夜23:59のスケジュールなら実行時刻に依存せず今日の分が出る
	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"medication_id": med.ID,
		"time":          "23:59",
		"days_of_week":  []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		"eye":           "both",
		"active":        true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/next-doses?count=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[[]nextDoseResponse](t, rec)
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].MedicationName != "ラタノプロスト" {
		t.Errorf("MedicationName = %q, want %q", list[0].MedicationName, "ラタノプロスト")
	}
	if list[0].Time != "23:59" {
		t.Errorf("Time = %q, want %q", list[0].Time, "23:59")
	}
}

func TestAdherenceStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/adherence-stats?days=14", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stats := decodeBody[adherenceStatsResponse](t, rec)
	if len(stats.Days) != 14 {
		t.Errorf("len(Days) = %d, want 14", len(stats.Days))
	}
	if stats.Rate != 0 {
		t.Errorf("Rate = %d, want 0", stats.Rate)
	}
}

func TestNotFoundResponsesAcrossResources(t *testing.T) {
	ts := newTestServer(t)

	paths := []string{
		"/api/medications/missing",
		"/api/schedules/missing",
		"/api/appointments/missing",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, path, nil)
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
			}
		})
	}

	rec := ts.do(t, http.MethodDelete, "/api/doses/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete dose: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMedicationsWithSchedulesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	med := ts.createMedication(t, "ラタノプロスト")

	for i, tm := range []string{"08:00", "20:00"} {
		rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
			"medication_id": med.ID,
			"time":          tm,
			"days_of_week":  []string{"Monday"},
			"eye":           "both",
			"active":        true,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create schedule %d: status = %d", i, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/medications-with-schedules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decodeBody[[]medicationWithSchedulesResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if len(list[0].Schedules) != 2 {
		t.Errorf("len(Schedules) = %d, want 2", len(list[0].Schedules))
	}
}

func TestRefillStatusInMedicationResponse(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		remaining int
		total     int
		wantLevel string
	}{
		{"充分な残量", 9, 10, "ok"},
		{"警告域", 4, 10, "warning"},
		{"危険域", 1, 10, "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/medications", map[string]any{
				"name":            fmt.Sprintf("薬-%s", tt.name),
				"eye":             "both",
				"cap_color":       "#000000",
				"remaining_doses": tt.remaining,
				"total_doses":     tt.total,
			})
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			med := decodeBody[medicationResponse](t, rec)
			if med.RefillStatus == nil {
				t.Fatal("RefillStatus = nil, want populated")
			}
			if med.RefillStatus.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", med.RefillStatus.Level, tt.wantLevel)
			}
		})
	}
}
