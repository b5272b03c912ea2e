// Package medication は点眼薬管理のドメインロジックを提供する。
package medication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/security"
)

// Input は薬の作成・更新リクエスト。
type Input struct {
	Name           string     `json:"name"`
	Dosage         string     `json:"dosage"`
	Instructions   string     `json:"instructions"`
	Eye            model.Eye  `json:"eye"`
	CapColor       string     `json:"cap_color"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	BottleOpenDate *time.Time `json:"bottle_open_date"`
	RemainingDoses *int       `json:"remaining_doses"`
	TotalDoses     *int       `json:"total_doses"`
}

// Service は点眼薬管理のサービス層。
// 薬のCRUDと、薬削除時のスケジュール・点眼記録のカスケード削除を提供する。
type Service struct {
	medRepo   repository.MedicationRepository
	schedRepo repository.ScheduleRepository
	doseRepo  repository.DoseRepository
	sanitizer security.TextSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	medRepo repository.MedicationRepository,
	schedRepo repository.ScheduleRepository,
	doseRepo repository.DoseRepository,
	sanitizer security.TextSanitizerService,
) *Service {
	return &Service{
		medRepo:   medRepo,
		schedRepo: schedRepo,
		doseRepo:  doseRepo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// validate は入力値を検証し、問題があればValidationErrorを返す。
func validate(input Input) error {
	var messages []string
	if input.Name == "" {
		messages = append(messages, "薬の名前は必須です")
	}
	if !model.IsValidEye(input.Eye) {
		messages = append(messages, "eyeはleft、right、bothのいずれかを指定してください")
	}
	if !model.IsValidHexColor(input.CapColor) {
		messages = append(messages, "cap_colorは#RRGGBB形式の16進カラーコードを指定してください")
	}
	if input.RemainingDoses != nil && *input.RemainingDoses < 0 {
		messages = append(messages, "remaining_dosesは0以上を指定してください")
	}
	if input.TotalDoses != nil && *input.TotalDoses < 1 {
		messages = append(messages, "total_dosesは1以上を指定してください")
	}
	if len(messages) > 0 {
		return model.NewValidationError(messages...)
	}
	return nil
}

// Create は薬を作成して返す。
// eyeとcap_colorが未指定の場合はデフォルト値（both、#000000）を補完する。
func (s *Service) Create(ctx context.Context, userID string, input Input) (*model.Medication, error) {
	if input.Eye == "" {
		input.Eye = model.EyeBoth
	}
	if input.CapColor == "" {
		input.CapColor = "#000000"
	}
	if err := validate(input); err != nil {
		return nil, err
	}

	med := &model.Medication{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           s.sanitizer.Sanitize(input.Name),
		Dosage:         s.sanitizer.Sanitize(input.Dosage),
		Instructions:   s.sanitizer.Sanitize(input.Instructions),
		Eye:            input.Eye,
		CapColor:       input.CapColor,
		ExpiryDate:     input.ExpiryDate,
		BottleOpenDate: input.BottleOpenDate,
		RemainingDoses: input.RemainingDoses,
		TotalDoses:     input.TotalDoses,
		CreatedAt:      s.now(),
	}

	if err := s.medRepo.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("薬の作成に失敗しました: %w", err)
	}
	return med, nil
}

// Get は薬を取得する。他ユーザーの薬は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Medication, error) {
	med, err := s.medRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	if med == nil || med.UserID != userID {
		return nil, model.NewMedicationNotFoundError(id)
	}
	return med, nil
}

// List はユーザーの薬一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Medication, error) {
	meds, err := s.medRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("薬一覧の取得に失敗しました: %w", err)
	}
	return meds, nil
}

// ListWithSchedules は薬一覧を各薬のスケジュール付きで返す。
func (s *Service) ListWithSchedules(ctx context.Context, userID string) ([]*model.MedicationWithSchedules, error) {
	meds, err := s.medRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("薬一覧の取得に失敗しました: %w", err)
	}

	results := make([]*model.MedicationWithSchedules, 0, len(meds))
	for _, med := range meds {
		scheds, err := s.schedRepo.ListByMedicationID(ctx, med.ID)
		if err != nil {
			return nil, fmt.Errorf("薬のスケジュール取得に失敗しました: %w", err)
		}
		results = append(results, &model.MedicationWithSchedules{
			Medication: *med,
			Schedules:  scheds,
		})
	}
	return results, nil
}

// Update は薬を更新して返す。在庫カウンタを含め入力値で上書きする。
func (s *Service) Update(ctx context.Context, userID, id string, input Input) (*model.Medication, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	med, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	med.Name = s.sanitizer.Sanitize(input.Name)
	med.Dosage = s.sanitizer.Sanitize(input.Dosage)
	med.Instructions = s.sanitizer.Sanitize(input.Instructions)
	med.Eye = input.Eye
	med.CapColor = input.CapColor
	med.ExpiryDate = input.ExpiryDate
	med.BottleOpenDate = input.BottleOpenDate
	med.RemainingDoses = input.RemainingDoses
	med.TotalDoses = input.TotalDoses

	if err := s.medRepo.Update(ctx, med); err != nil {
		return nil, fmt.Errorf("薬の更新に失敗しました: %w", err)
	}
	return med, nil
}

// Delete は薬を削除する。紐づく点眼記録・スケジュールを先に削除し、
// 参照切れのレコードが残らないようにする。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.doseRepo.DeleteByMedicationID(ctx, id); err != nil {
		return fmt.Errorf("薬に紐づく点眼記録の削除に失敗しました: %w", err)
	}
	if err := s.schedRepo.DeleteByMedicationID(ctx, id); err != nil {
		return fmt.Errorf("薬に紐づくスケジュールの削除に失敗しました: %w", err)
	}
	if err := s.medRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("薬の削除に失敗しました: %w", err)
	}
	return nil
}
