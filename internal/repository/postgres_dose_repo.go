package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// PostgresDoseRepo はPostgreSQLを使用した点眼記録リポジトリ。
type PostgresDoseRepo struct {
	db *sql.DB
}

// NewPostgresDoseRepo はPostgresDoseRepoを生成する。
func NewPostgresDoseRepo(db *sql.DB) *PostgresDoseRepo {
	return &PostgresDoseRepo{db: db}
}

const doseColumns = `id, user_id, medication_id, schedule_id, taken_at, eye, skipped, notes`

// scanDose は1行分の点眼記録をスキャンする。
func scanDose(scan func(dest ...any) error) (*model.Dose, error) {
	dose := &model.Dose{}
	var scheduleID, notes sql.NullString

	if err := scan(
		&dose.ID, &dose.UserID, &dose.MedicationID, &scheduleID,
		&dose.Timestamp, &dose.Eye, &dose.Skipped, &notes,
	); err != nil {
		return nil, err
	}

	if scheduleID.Valid {
		s := scheduleID.String
		dose.ScheduleID = &s
	}
	dose.Notes = nullStringValue(notes)
	return dose, nil
}

// FindByID は指定IDの点眼記録を取得する。見つからない場合はnilを返す。
func (r *PostgresDoseRepo) FindByID(ctx context.Context, id string) (*model.Dose, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+doseColumns+` FROM doses WHERE id = $1`, id)

	dose, err := scanDose(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("点眼記録の取得に失敗しました: %w", err)
	}
	return dose, nil
}

// ListByUserID はユーザーの全点眼記録をタイムスタンプ昇順で返す。
func (r *PostgresDoseRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Dose, error) {
	return r.list(ctx,
		`SELECT `+doseColumns+` FROM doses WHERE user_id = $1 ORDER BY taken_at ASC`,
		userID,
	)
}

// ListByMedicationID は指定薬の点眼記録一覧を返す。
func (r *PostgresDoseRepo) ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Dose, error) {
	return r.list(ctx,
		`SELECT `+doseColumns+` FROM doses WHERE medication_id = $1 ORDER BY taken_at ASC`,
		medicationID,
	)
}

// ListByUserAndRange はタイムスタンプが[start, end]に入るユーザーの点眼記録を返す。
func (r *PostgresDoseRepo) ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Dose, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+doseColumns+` FROM doses
		 WHERE user_id = $1 AND taken_at >= $2 AND taken_at <= $3
		 ORDER BY taken_at ASC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("期間指定の点眼記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *PostgresDoseRepo) list(ctx context.Context, query string, arg any) ([]*model.Dose, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("点眼記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *PostgresDoseRepo) collect(rows *sql.Rows) ([]*model.Dose, error) {
	var doses []*model.Dose
	for rows.Next() {
		dose, err := scanDose(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("点眼記録の読み取りに失敗しました: %w", err)
		}
		doses = append(doses, dose)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("点眼記録の走査に失敗しました: %w", err)
	}
	return doses, nil
}

// Create は点眼記録を作成する。
func (r *PostgresDoseRepo) Create(ctx context.Context, dose *model.Dose) error {
	var scheduleID sql.NullString
	if dose.ScheduleID != nil {
		scheduleID = sql.NullString{String: *dose.ScheduleID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO doses (id, user_id, medication_id, schedule_id, taken_at, eye, skipped, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		dose.ID, dose.UserID, dose.MedicationID, scheduleID,
		dose.Timestamp, dose.Eye, dose.Skipped, nullString(dose.Notes),
	)
	if err != nil {
		return fmt.Errorf("点眼記録の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの点眼記録を削除する。
func (r *PostgresDoseRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM doses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("点眼記録の削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByMedicationID は指定薬の全点眼記録を削除する。
func (r *PostgresDoseRepo) DeleteByMedicationID(ctx context.Context, medicationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM doses WHERE medication_id = $1`, medicationID)
	if err != nil {
		return fmt.Errorf("薬に紐づく点眼記録の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DoseRepository = (*PostgresDoseRepo)(nil)
