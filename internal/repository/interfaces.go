// Package repository はデータ永続化のインターフェースを定義する。
// 各インターフェースにはPostgreSQL実装（Postgres*Repo）と
// インメモリ実装（Memory*Repo）の2つがあり、射影・集計ロジックは
// ストレージ実装に依存しない。
package repository

import (
	"context"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// ListAll は全ユーザーを返す。リマインダーワーカーがユーザーごとの
	// 射影を再計算するために使用する。
	ListAll(ctx context.Context) ([]*model.User, error)
}

// MedicationRepository は点眼薬データの永続化インターフェース。
type MedicationRepository interface {
	// FindByID は指定IDの薬を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Medication, error)

	// ListByUserID はユーザーの薬一覧を作成日時昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Medication, error)

	// Create は薬を作成する。
	Create(ctx context.Context, med *model.Medication) error

	// Update は薬を上書き更新する。
	Update(ctx context.Context, med *model.Medication) error

	// Delete は指定IDの薬を削除する。
	Delete(ctx context.Context, id string) error

	// AdjustRemainingDoses は残量カウンタをdeltaだけ増減する。
	// 下限は常に0。clampAtTotalがtrueの場合は上限をTotalDosesとする。
	// RemainingDosesがnilの薬（在庫管理なし）には何もしない。
	// 単一文のUPDATEとして実装することでread-modify-writeの競合を狭める。
	AdjustRemainingDoses(ctx context.Context, id string, delta int, clampAtTotal bool) error
}

// ScheduleRepository は点眼スケジュールの永続化インターフェース。
type ScheduleRepository interface {
	// FindByID は指定IDのスケジュールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Schedule, error)

	// ListByUserID はユーザーの全スケジュールを返す。activeでないものも含む。
	ListByUserID(ctx context.Context, userID string) ([]*model.Schedule, error)

	// ListByMedicationID は指定薬のスケジュール一覧を返す。
	ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Schedule, error)

	// Create はスケジュールを作成する。
	Create(ctx context.Context, sched *model.Schedule) error

	// Update はスケジュールを上書き更新する。
	Update(ctx context.Context, sched *model.Schedule) error

	// Delete は指定IDのスケジュールを削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByMedicationID は指定薬の全スケジュールを削除する。
	// 薬削除のカスケードで使用する。
	DeleteByMedicationID(ctx context.Context, medicationID string) error
}

// DoseRepository は点眼記録の永続化インターフェース。
type DoseRepository interface {
	// FindByID は指定IDの点眼記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Dose, error)

	// ListByUserID はユーザーの全点眼記録を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Dose, error)

	// ListByMedicationID は指定薬の点眼記録一覧を返す。
	ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Dose, error)

	// ListByUserAndRange はタイムスタンプが[start, end]に入る
	// ユーザーの点眼記録を返す。遵守統計の日次集計で使用する。
	ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Dose, error)

	// Create は点眼記録を作成する。
	Create(ctx context.Context, dose *model.Dose) error

	// Delete は指定IDの点眼記録を削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByMedicationID は指定薬の全点眼記録を削除する。
	// 薬削除のカスケードで使用する。
	DeleteByMedicationID(ctx context.Context, medicationID string) error
}

// AppointmentRepository は受診予約の永続化インターフェース。
type AppointmentRepository interface {
	// FindByID は指定IDの受診予約を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Appointment, error)

	// ListByUserID はユーザーの受診予約を日時昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Appointment, error)

	// ListDueForReminder はdate_timeが[from, until]に入り、
	// reminder_sentがfalseの受診予約を全ユーザー分返す。
	ListDueForReminder(ctx context.Context, from, until time.Time) ([]*model.Appointment, error)

	// Create は受診予約を作成する。
	Create(ctx context.Context, appt *model.Appointment) error

	// Update は受診予約を上書き更新する。
	Update(ctx context.Context, appt *model.Appointment) error

	// Delete は指定IDの受診予約を削除する。
	Delete(ctx context.Context, id string) error

	// MarkReminderSent はリマインド済みフラグを立てる。
	MarkReminderSent(ctx context.Context, id string) error
}
