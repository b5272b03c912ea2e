package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// PostgresAppointmentRepo はPostgreSQLを使用した受診予約リポジトリ。
type PostgresAppointmentRepo struct {
	db *sql.DB
}

// NewPostgresAppointmentRepo はPostgresAppointmentRepoを生成する。
func NewPostgresAppointmentRepo(db *sql.DB) *PostgresAppointmentRepo {
	return &PostgresAppointmentRepo{db: db}
}

const appointmentColumns = `id, user_id, doctor_name, appointment_type, date_time, location, notes, reminder_sent`

// scanAppointment は1行分の受診予約をスキャンする。
func scanAppointment(scan func(dest ...any) error) (*model.Appointment, error) {
	appt := &model.Appointment{}
	var location, notes sql.NullString

	if err := scan(
		&appt.ID, &appt.UserID, &appt.DoctorName, &appt.AppointmentType,
		&appt.DateTime, &location, &notes, &appt.ReminderSent,
	); err != nil {
		return nil, err
	}

	appt.Location = nullStringValue(location)
	appt.Notes = nullStringValue(notes)
	return appt, nil
}

// FindByID は指定IDの受診予約を取得する。見つからない場合はnilを返す。
func (r *PostgresAppointmentRepo) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)

	appt, err := scanAppointment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("受診予約の取得に失敗しました: %w", err)
	}
	return appt, nil
}

// ListByUserID はユーザーの受診予約を日時昇順で返す。
func (r *PostgresAppointmentRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE user_id = $1 ORDER BY date_time ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("受診予約一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// ListDueForReminder はdate_timeが[from, until]に入り、未リマインドの受診予約を返す。
func (r *PostgresAppointmentRepo) ListDueForReminder(ctx context.Context, from, until time.Time) ([]*model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE date_time >= $1 AND date_time <= $2 AND reminder_sent = FALSE
		 ORDER BY date_time ASC`,
		from, until,
	)
	if err != nil {
		return nil, fmt.Errorf("リマインド対象の受診予約の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *PostgresAppointmentRepo) collect(rows *sql.Rows) ([]*model.Appointment, error) {
	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("受診予約の読み取りに失敗しました: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("受診予約の走査に失敗しました: %w", err)
	}
	return appts, nil
}

// Create は受診予約を作成する。
func (r *PostgresAppointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appointments (id, user_id, doctor_name, appointment_type, date_time, location, notes, reminder_sent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		appt.ID, appt.UserID, appt.DoctorName, appt.AppointmentType,
		appt.DateTime, nullString(appt.Location), nullString(appt.Notes), appt.ReminderSent,
	)
	if err != nil {
		return fmt.Errorf("受診予約の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は受診予約を上書き更新する。
func (r *PostgresAppointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET
		    doctor_name = $2, appointment_type = $3, date_time = $4,
		    location = $5, notes = $6, reminder_sent = $7
		 WHERE id = $1`,
		appt.ID, appt.DoctorName, appt.AppointmentType, appt.DateTime,
		nullString(appt.Location), nullString(appt.Notes), appt.ReminderSent,
	)
	if err != nil {
		return fmt.Errorf("受診予約の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの受診予約を削除する。
func (r *PostgresAppointmentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("受診予約の削除に失敗しました: %w", err)
	}
	return nil
}

// MarkReminderSent はリマインド済みフラグを立てる。
func (r *PostgresAppointmentRepo) MarkReminderSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("リマインド済みフラグの更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AppointmentRepository = (*PostgresAppointmentRepo)(nil)
