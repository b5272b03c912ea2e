// Package dose は点眼記録のドメインロジックを提供する。
package dose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/security"
)

// Input は点眼記録の作成リクエスト。
type Input struct {
	MedicationID string  `json:"medication_id"`
	ScheduleID   *string `json:"schedule_id"`
	// Timestamp が未指定（ゼロ値）の場合は現在時刻を使用する。
	Timestamp time.Time `json:"timestamp"`
	Eye       model.Eye `json:"eye"`
	Skipped   bool      `json:"skipped"`
	Notes     string    `json:"notes"`
}

// Service は点眼記録のサービス層。
// 記録の作成時に薬の残量カウンタを連動して減算し、
// 記録の削除時に減算を打ち消す。
type Service struct {
	doseRepo  repository.DoseRepository
	medRepo   repository.MedicationRepository
	schedRepo repository.ScheduleRepository
	sanitizer security.TextSanitizerService
	// clampAtTotal は残量カウンタの増加時に上限をTotalDosesでクランプするか。
	clampAtTotal bool
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	doseRepo repository.DoseRepository,
	medRepo repository.MedicationRepository,
	schedRepo repository.ScheduleRepository,
	sanitizer security.TextSanitizerService,
	clampAtTotal bool,
) *Service {
	return &Service{
		doseRepo:     doseRepo,
		medRepo:      medRepo,
		schedRepo:    schedRepo,
		sanitizer:    sanitizer,
		clampAtTotal: clampAtTotal,
		now:          time.Now,
	}
}

// Record は点眼記録を作成する。スキップでない記録は薬の残量カウンタを
// 1減算する（下限0）。スキップ記録は残量を変更しない。
func (s *Service) Record(ctx context.Context, userID string, input Input) (*model.Dose, error) {
	var messages []string
	if input.MedicationID == "" {
		messages = append(messages, "medication_idは必須です")
	}
	if !model.IsValidEye(input.Eye) {
		messages = append(messages, "eyeはleft、right、bothのいずれかを指定してください")
	}
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages...)
	}

	med, err := s.medRepo.FindByID(ctx, input.MedicationID)
	if err != nil {
		return nil, fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	if med == nil || med.UserID != userID {
		return nil, model.NewMedicationNotFoundError(input.MedicationID)
	}

	if input.ScheduleID != nil {
		sched, err := s.schedRepo.FindByID(ctx, *input.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("スケジュールの取得に失敗しました: %w", err)
		}
		if sched == nil || sched.UserID != userID {
			return nil, model.NewScheduleNotFoundError(*input.ScheduleID)
		}
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	dose := &model.Dose{
		ID:           uuid.NewString(),
		UserID:       userID,
		MedicationID: input.MedicationID,
		ScheduleID:   input.ScheduleID,
		Timestamp:    timestamp,
		Eye:          input.Eye,
		Skipped:      input.Skipped,
		Notes:        s.sanitizer.Sanitize(input.Notes),
	}

	if err := s.doseRepo.Create(ctx, dose); err != nil {
		return nil, fmt.Errorf("点眼記録の作成に失敗しました: %w", err)
	}

	// 実際に点眼した場合のみ在庫を減らす
	if !dose.Skipped {
		if err := s.medRepo.AdjustRemainingDoses(ctx, med.ID, -1, s.clampAtTotal); err != nil {
			return nil, fmt.Errorf("残量カウンタの減算に失敗しました: %w", err)
		}
	}
	return dose, nil
}

// Get は点眼記録を取得する。他ユーザーのものは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Dose, error) {
	dose, err := s.doseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("点眼記録の取得に失敗しました: %w", err)
	}
	if dose == nil || dose.UserID != userID {
		return nil, model.NewDoseNotFoundError(id)
	}
	return dose, nil
}

// List はユーザーの全点眼記録をタイムスタンプ昇順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Dose, error) {
	doses, err := s.doseRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("点眼記録一覧の取得に失敗しました: %w", err)
	}
	return doses, nil
}

// ListByRange はタイムスタンプが[start, end]に入るユーザーの点眼記録を返す。
func (s *Service) ListByRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Dose, error) {
	if end.Before(start) {
		return nil, model.NewValidationError("期間の終端は始端以降を指定してください")
	}
	doses, err := s.doseRepo.ListByUserAndRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("期間指定の点眼記録の取得に失敗しました: %w", err)
	}
	return doses, nil
}

// Delete は点眼記録を削除する。スキップでない記録の削除は残量カウンタの
// 減算を打ち消す（clampAtTotal時は上限TotalDosesでクランプ）。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	dose, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.doseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("点眼記録の削除に失敗しました: %w", err)
	}

	if !dose.Skipped {
		if err := s.medRepo.AdjustRemainingDoses(ctx, dose.MedicationID, 1, s.clampAtTotal); err != nil {
			return fmt.Errorf("残量カウンタの復元に失敗しました: %w", err)
		}
	}
	return nil
}
