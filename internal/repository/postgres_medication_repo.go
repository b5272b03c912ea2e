package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// PostgresMedicationRepo はPostgreSQLを使用した点眼薬リポジトリ。
type PostgresMedicationRepo struct {
	db *sql.DB
}

// NewPostgresMedicationRepo はPostgresMedicationRepoを生成する。
func NewPostgresMedicationRepo(db *sql.DB) *PostgresMedicationRepo {
	return &PostgresMedicationRepo{db: db}
}

const medicationColumns = `id, user_id, name, dosage, instructions, eye, cap_color,
	 expiry_date, bottle_open_date, remaining_doses, total_doses, created_at`

// scanMedication は1行分の薬データをスキャンする。
func scanMedication(scan func(dest ...any) error) (*model.Medication, error) {
	med := &model.Medication{}
	var dosage, instructions sql.NullString
	var expiryDate, bottleOpenDate sql.NullTime
	var remaining, total sql.NullInt64

	if err := scan(
		&med.ID, &med.UserID, &med.Name, &dosage, &instructions,
		&med.Eye, &med.CapColor, &expiryDate, &bottleOpenDate,
		&remaining, &total, &med.CreatedAt,
	); err != nil {
		return nil, err
	}

	med.Dosage = nullStringValue(dosage)
	med.Instructions = nullStringValue(instructions)
	med.ExpiryDate = nullTimeValue(expiryDate)
	med.BottleOpenDate = nullTimeValue(bottleOpenDate)
	med.RemainingDoses = nullIntValue(remaining)
	med.TotalDoses = nullIntValue(total)
	return med, nil
}

// FindByID は指定IDの薬を取得する。見つからない場合はnilを返す。
func (r *PostgresMedicationRepo) FindByID(ctx context.Context, id string) (*model.Medication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)

	med, err := scanMedication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	return med, nil
}

// ListByUserID はユーザーの薬一覧を作成日時昇順で返す。
func (r *PostgresMedicationRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Medication, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("薬一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var meds []*model.Medication
	for rows.Next() {
		med, err := scanMedication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("薬一覧の読み取りに失敗しました: %w", err)
		}
		meds = append(meds, med)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("薬一覧の走査に失敗しました: %w", err)
	}
	return meds, nil
}

// Create は薬を作成する。
func (r *PostgresMedicationRepo) Create(ctx context.Context, med *model.Medication) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO medications (id, user_id, name, dosage, instructions, eye, cap_color,
		                          expiry_date, bottle_open_date, remaining_doses, total_doses, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		med.ID, med.UserID, med.Name, nullString(med.Dosage), nullString(med.Instructions),
		med.Eye, med.CapColor, nullTime(med.ExpiryDate), nullTime(med.BottleOpenDate),
		nullInt(med.RemainingDoses), nullInt(med.TotalDoses), med.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("薬の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は薬を上書き更新する。
func (r *PostgresMedicationRepo) Update(ctx context.Context, med *model.Medication) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE medications SET
		    name = $2, dosage = $3, instructions = $4, eye = $5, cap_color = $6,
		    expiry_date = $7, bottle_open_date = $8, remaining_doses = $9, total_doses = $10
		 WHERE id = $1`,
		med.ID, med.Name, nullString(med.Dosage), nullString(med.Instructions),
		med.Eye, med.CapColor, nullTime(med.ExpiryDate), nullTime(med.BottleOpenDate),
		nullInt(med.RemainingDoses), nullInt(med.TotalDoses),
	)
	if err != nil {
		return fmt.Errorf("薬の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの薬を削除する。
func (r *PostgresMedicationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("薬の削除に失敗しました: %w", err)
	}
	return nil
}

// AdjustRemainingDoses は残量カウンタをdeltaだけ増減する。
// 下限0（と、clampAtTotal時は上限TotalDoses）のクランプを
// 単一のUPDATE文で行い、read-modify-writeの競合を狭める。
func (r *PostgresMedicationRepo) AdjustRemainingDoses(ctx context.Context, id string, delta int, clampAtTotal bool) error {
	var err error
	if clampAtTotal {
		_, err = r.db.ExecContext(ctx,
			`UPDATE medications
			 SET remaining_doses = LEAST(COALESCE(total_doses, remaining_doses + $2),
			                             GREATEST(0, remaining_doses + $2))
			 WHERE id = $1 AND remaining_doses IS NOT NULL`,
			id, delta,
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE medications
			 SET remaining_doses = GREATEST(0, remaining_doses + $2)
			 WHERE id = $1 AND remaining_doses IS NOT NULL`,
			id, delta,
		)
	}
	if err != nil {
		return fmt.Errorf("残量カウンタの更新に失敗しました: %w", err)
	}
	return nil
}

// --- null変換ヘルパー ---

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullTimeValue はsql.NullTimeから*time.Timeを取得する。
func nullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// nullInt は*intをsql.NullInt64に変換する。
func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullIntValue はsql.NullInt64から*intを取得する。
func nullIntValue(ni sql.NullInt64) *int {
	if ni.Valid {
		i := int(ni.Int64)
		return &i
	}
	return nil
}

// compile-time interface check
var _ MedicationRepository = (*PostgresMedicationRepo)(nil)
