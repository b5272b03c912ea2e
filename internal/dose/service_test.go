package dose

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/security"
)

func intPtr(n int) *int { return &n }

type testEnv struct {
	svc     *Service
	medRepo *repository.MemoryMedicationRepo
	medID   string
}

func newTestEnv(t *testing.T, remaining, total *int, clampAtTotal bool) *testEnv {
	t.Helper()
	medRepo := repository.NewMemoryMedicationRepo()
	svc := NewService(
		repository.NewMemoryDoseRepo(),
		medRepo,
		repository.NewMemoryScheduleRepo(),
		security.NewTextSanitizer(),
		clampAtTotal,
	)

	med := &model.Medication{
		ID: "m1", UserID: "u1", Name: "Latanoprost",
		Eye: model.EyeBoth, CapColor: "#00CED1",
		RemainingDoses: remaining, TotalDoses: total,
		CreatedAt: time.Now(),
	}
	if err := medRepo.Create(context.Background(), med); err != nil {
		t.Fatalf("medication Create() error = %v", err)
	}
	return &testEnv{svc: svc, medRepo: medRepo, medID: med.ID}
}

func (e *testEnv) remaining(t *testing.T) int {
	t.Helper()
	med, err := e.medRepo.FindByID(context.Background(), e.medID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if med.RemainingDoses == nil {
		t.Fatal("RemainingDoses = nil")
	}
	return *med.RemainingDoses
}

func TestService_Record_DecrementsInventory(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if dose.Timestamp.IsZero() {
		t.Error("Timestampが設定されていない")
	}
	if got := env.remaining(t); got != 9 {
		t.Errorf("残量 = %d, want 9", got)
	}
}

func TestService_Record_SkippedDoesNotDecrement(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	if _, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth, Skipped: true,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := env.remaining(t); got != 10 {
		t.Errorf("スキップ記録で残量が変化した: %d", got)
	}
}

func TestService_Record_InventoryFloorsAtZero(t *testing.T) {
	env := newTestEnv(t, intPtr(0), intPtr(30), true)
	ctx := context.Background()

	if _, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := env.remaining(t); got != 0 {
		t.Errorf("残量が負になった: %d", got)
	}
}

func TestService_Record_UntrackedMedication(t *testing.T) {
	env := newTestEnv(t, nil, nil, true)
	ctx := context.Background()

	// 在庫管理なしの薬でもエラーにならない
	if _, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func TestService_Record_ExplicitTimestamp(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	ts := time.Date(2026, 3, 9, 21, 30, 0, 0, time.UTC)
	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !dose.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", dose.Timestamp, ts)
	}
}

func TestService_Record_UnknownSchedule(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	schedID := "missing"
	_, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth, ScheduleID: &schedID,
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeScheduleNotFound {
		t.Errorf("error = %v, want schedule not found", err)
	}
}

func TestService_Delete_RestoresInventory(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := env.remaining(t); got != 9 {
		t.Fatalf("残量 = %d, want 9", got)
	}

	if err := env.svc.Delete(ctx, "u1", dose.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := env.remaining(t); got != 10 {
		t.Errorf("削除後の残量 = %d, want 10", got)
	}
}

func TestService_Delete_RestoreClampsAtTotal(t *testing.T) {
	env := newTestEnv(t, intPtr(30), intPtr(30), true)
	ctx := context.Background()

	// 満タンの状態で記録→手動で補充→記録削除、のような経路では
	// 復元が満タンを超えないようクランプされる
	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := env.medRepo.AdjustRemainingDoses(ctx, env.medID, 1, true); err != nil {
		t.Fatalf("AdjustRemainingDoses() error = %v", err)
	}

	if err := env.svc.Delete(ctx, "u1", dose.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := env.remaining(t); got != 30 {
		t.Errorf("残量 = %d, want 30", got)
	}
}

func TestService_Delete_SkippedDoesNotRestore(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth, Skipped: true,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := env.svc.Delete(ctx, "u1", dose.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := env.remaining(t); got != 10 {
		t.Errorf("スキップ記録の削除で残量が変化した: %d", got)
	}
}

func TestService_ListByRange_InvalidRange(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	now := time.Now()
	_, err := env.svc.ListByRange(ctx, "u1", now, now.Add(-time.Hour))
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestService_Record_SanitizesNotes(t *testing.T) {
	env := newTestEnv(t, intPtr(10), intPtr(30), true)
	ctx := context.Background()

	dose, err := env.svc.Record(ctx, "u1", Input{
		MedicationID: env.medID, Eye: model.EyeBoth,
		Notes: `<img src=x onerror=alert(1)>しみる感じがした`,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if dose.Notes != "しみる感じがした" {
		t.Errorf("Notes = %q, サニタイズされていない", dose.Notes)
	}
}
