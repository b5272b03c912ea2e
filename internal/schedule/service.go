// Package schedule は点眼スケジュール管理のドメインロジックを提供する。
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
)

// Input はスケジュールの作成・更新リクエスト。
type Input struct {
	MedicationID string    `json:"medication_id"`
	Time         string    `json:"time"`
	DaysOfWeek   []string  `json:"days_of_week"`
	Eye          model.Eye `json:"eye"`
	Active       bool      `json:"active"`
}

// Service は点眼スケジュール管理のサービス層。
type Service struct {
	schedRepo repository.ScheduleRepository
	medRepo   repository.MedicationRepository
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(schedRepo repository.ScheduleRepository, medRepo repository.MedicationRepository) *Service {
	return &Service{
		schedRepo: schedRepo,
		medRepo:   medRepo,
		now:       time.Now,
	}
}

// validate は入力値を検証し、問題があればValidationErrorを返す。
func validate(input Input) error {
	var messages []string
	if input.MedicationID == "" {
		messages = append(messages, "medication_idは必須です")
	}
	if !model.IsValidTimeOfDay(input.Time) {
		messages = append(messages, "timeはHH:MM形式（00:00〜23:59）で指定してください")
	}
	if len(input.DaysOfWeek) == 0 {
		messages = append(messages, "days_of_weekは1つ以上の曜日を指定してください")
	}
	seen := make(map[string]bool)
	for _, day := range input.DaysOfWeek {
		if !model.IsValidWeekday(day) {
			messages = append(messages, fmt.Sprintf("不正な曜日です: %s", day))
			continue
		}
		if seen[day] {
			messages = append(messages, fmt.Sprintf("曜日が重複しています: %s", day))
		}
		seen[day] = true
	}
	if !model.IsValidEye(input.Eye) {
		messages = append(messages, "eyeはleft、right、bothのいずれかを指定してください")
	}
	if len(messages) > 0 {
		return model.NewValidationError(messages...)
	}
	return nil
}

// Create はスケジュールを作成して返す。対象の薬が同一ユーザーの
// ものであることを確認する。
func (s *Service) Create(ctx context.Context, userID string, input Input) (*model.Schedule, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	med, err := s.medRepo.FindByID(ctx, input.MedicationID)
	if err != nil {
		return nil, fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	if med == nil || med.UserID != userID {
		return nil, model.NewMedicationNotFoundError(input.MedicationID)
	}

	sched := &model.Schedule{
		ID:           uuid.NewString(),
		UserID:       userID,
		MedicationID: input.MedicationID,
		Time:         input.Time,
		DaysOfWeek:   input.DaysOfWeek,
		Eye:          input.Eye,
		Active:       input.Active,
		CreatedAt:    s.now(),
	}

	if err := s.schedRepo.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("スケジュールの作成に失敗しました: %w", err)
	}
	return sched, nil
}

// Get はスケジュールを取得する。他ユーザーのものは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Schedule, error) {
	sched, err := s.schedRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("スケジュールの取得に失敗しました: %w", err)
	}
	if sched == nil || sched.UserID != userID {
		return nil, model.NewScheduleNotFoundError(id)
	}
	return sched, nil
}

// List はユーザーの全スケジュールを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Schedule, error) {
	scheds, err := s.schedRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}
	return scheds, nil
}

// ListWithMedications はスケジュール一覧を薬情報付きで返す。
// 薬が見つからないスケジュールは結果から除外する。
func (s *Service) ListWithMedications(ctx context.Context, userID string) ([]*model.ScheduleWithMedication, error) {
	scheds, err := s.schedRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}

	results := make([]*model.ScheduleWithMedication, 0, len(scheds))
	for _, sched := range scheds {
		med, err := s.medRepo.FindByID(ctx, sched.MedicationID)
		if err != nil {
			return nil, fmt.Errorf("スケジュールの薬取得に失敗しました: %w", err)
		}
		if med == nil {
			continue
		}
		results = append(results, &model.ScheduleWithMedication{
			Schedule:   *sched,
			Medication: *med,
		})
	}
	return results, nil
}

// Update はスケジュールを更新して返す。MedicationIDは変更できない。
func (s *Service) Update(ctx context.Context, userID, id string, input Input) (*model.Schedule, error) {
	sched, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// 更新時は既存のMedicationIDを引き継いで検証する
	input.MedicationID = sched.MedicationID
	if err := validate(input); err != nil {
		return nil, err
	}

	sched.Time = input.Time
	sched.DaysOfWeek = input.DaysOfWeek
	sched.Eye = input.Eye
	sched.Active = input.Active

	if err := s.schedRepo.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("スケジュールの更新に失敗しました: %w", err)
	}
	return sched, nil
}

// Delete はスケジュールを削除する。過去の点眼記録は残す。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.schedRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("スケジュールの削除に失敗しました: %w", err)
	}
	return nil
}
