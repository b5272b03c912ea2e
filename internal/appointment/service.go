// Package appointment は受診予約管理のドメインロジックを提供する。
package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/security"
)

// Input は受診予約の作成・更新リクエスト。
type Input struct {
	DoctorName      string    `json:"doctor_name"`
	AppointmentType string    `json:"appointment_type"`
	DateTime        time.Time `json:"date_time"`
	Location        string    `json:"location"`
	Notes           string    `json:"notes"`
}

// Service は受診予約管理のサービス層。
type Service struct {
	apptRepo  repository.AppointmentRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(apptRepo repository.AppointmentRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{apptRepo: apptRepo, sanitizer: sanitizer}
}

// validate は入力値を検証し、問題があればValidationErrorを返す。
func validate(input Input) error {
	var messages []string
	if input.DoctorName == "" {
		messages = append(messages, "doctor_nameは必須です")
	}
	if input.AppointmentType == "" {
		messages = append(messages, "appointment_typeは必須です")
	}
	if input.DateTime.IsZero() {
		messages = append(messages, "date_timeは必須です")
	}
	if len(messages) > 0 {
		return model.NewValidationError(messages...)
	}
	return nil
}

// Create は受診予約を作成して返す。
func (s *Service) Create(ctx context.Context, userID string, input Input) (*model.Appointment, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		ID:              uuid.NewString(),
		UserID:          userID,
		DoctorName:      s.sanitizer.Sanitize(input.DoctorName),
		AppointmentType: s.sanitizer.Sanitize(input.AppointmentType),
		DateTime:        input.DateTime,
		Location:        s.sanitizer.Sanitize(input.Location),
		Notes:           s.sanitizer.Sanitize(input.Notes),
		ReminderSent:    false,
	}

	if err := s.apptRepo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("受診予約の作成に失敗しました: %w", err)
	}
	return appt, nil
}

// Get は受診予約を取得する。他ユーザーのものは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Appointment, error) {
	appt, err := s.apptRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("受診予約の取得に失敗しました: %w", err)
	}
	if appt == nil || appt.UserID != userID {
		return nil, model.NewAppointmentNotFoundError(id)
	}
	return appt, nil
}

// List はユーザーの受診予約を日時昇順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Appointment, error) {
	appts, err := s.apptRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("受診予約一覧の取得に失敗しました: %w", err)
	}
	return appts, nil
}

// Update は受診予約を更新して返す。日時が変更された場合は
// リマインド済みフラグをリセットし、新しい日時で再通知できるようにする。
func (s *Service) Update(ctx context.Context, userID, id string, input Input) (*model.Appointment, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	appt, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if !appt.DateTime.Equal(input.DateTime) {
		appt.ReminderSent = false
	}
	appt.DoctorName = s.sanitizer.Sanitize(input.DoctorName)
	appt.AppointmentType = s.sanitizer.Sanitize(input.AppointmentType)
	appt.DateTime = input.DateTime
	appt.Location = s.sanitizer.Sanitize(input.Location)
	appt.Notes = s.sanitizer.Sanitize(input.Notes)

	if err := s.apptRepo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("受診予約の更新に失敗しました: %w", err)
	}
	return appt, nil
}

// Delete は受診予約を削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.apptRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("受診予約の削除に失敗しました: %w", err)
	}
	return nil
}
