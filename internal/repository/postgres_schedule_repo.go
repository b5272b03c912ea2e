package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// PostgresScheduleRepo はPostgreSQLを使用した点眼スケジュールリポジトリ。
// DaysOfWeekはJSONB列として保存する。
type PostgresScheduleRepo struct {
	db *sql.DB
}

// NewPostgresScheduleRepo はPostgresScheduleRepoを生成する。
func NewPostgresScheduleRepo(db *sql.DB) *PostgresScheduleRepo {
	return &PostgresScheduleRepo{db: db}
}

const scheduleColumns = `id, user_id, medication_id, time_of_day, days_of_week, eye, active, created_at`

// scanSchedule は1行分のスケジュールデータをスキャンする。
func scanSchedule(scan func(dest ...any) error) (*model.Schedule, error) {
	sched := &model.Schedule{}
	var daysJSON []byte

	if err := scan(
		&sched.ID, &sched.UserID, &sched.MedicationID, &sched.Time,
		&daysJSON, &sched.Eye, &sched.Active, &sched.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(daysJSON, &sched.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("曜日集合のデコードに失敗しました: %w", err)
	}
	return sched, nil
}

// FindByID は指定IDのスケジュールを取得する。見つからない場合はnilを返す。
func (r *PostgresScheduleRepo) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)

	sched, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スケジュールの取得に失敗しました: %w", err)
	}
	return sched, nil
}

// ListByUserID はユーザーの全スケジュールを返す。
func (r *PostgresScheduleRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Schedule, error) {
	return r.list(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
}

// ListByMedicationID は指定薬のスケジュール一覧を返す。
func (r *PostgresScheduleRepo) ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Schedule, error) {
	return r.list(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE medication_id = $1 ORDER BY created_at ASC`,
		medicationID,
	)
}

func (r *PostgresScheduleRepo) list(ctx context.Context, query string, arg any) ([]*model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var scheds []*model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("スケジュール一覧の読み取りに失敗しました: %w", err)
		}
		scheds = append(scheds, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スケジュール一覧の走査に失敗しました: %w", err)
	}
	return scheds, nil
}

// Create はスケジュールを作成する。
func (r *PostgresScheduleRepo) Create(ctx context.Context, sched *model.Schedule) error {
	daysJSON, err := json.Marshal(sched.DaysOfWeek)
	if err != nil {
		return fmt.Errorf("曜日集合のエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO schedules (id, user_id, medication_id, time_of_day, days_of_week, eye, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sched.ID, sched.UserID, sched.MedicationID, sched.Time,
		daysJSON, sched.Eye, sched.Active, sched.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("スケジュールの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はスケジュールを上書き更新する。
func (r *PostgresScheduleRepo) Update(ctx context.Context, sched *model.Schedule) error {
	daysJSON, err := json.Marshal(sched.DaysOfWeek)
	if err != nil {
		return fmt.Errorf("曜日集合のエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE schedules SET
		    time_of_day = $2, days_of_week = $3, eye = $4, active = $5
		 WHERE id = $1`,
		sched.ID, sched.Time, daysJSON, sched.Eye, sched.Active,
	)
	if err != nil {
		return fmt.Errorf("スケジュールの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのスケジュールを削除する。
func (r *PostgresScheduleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("スケジュールの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByMedicationID は指定薬の全スケジュールを削除する。
func (r *PostgresScheduleRepo) DeleteByMedicationID(ctx context.Context, medicationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE medication_id = $1`, medicationID)
	if err != nil {
		return fmt.Errorf("薬に紐づくスケジュールの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ScheduleRepository = (*PostgresScheduleRepo)(nil)
