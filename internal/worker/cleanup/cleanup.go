// Package cleanup は古い履歴データの自動削除ジョブを提供する。
// 保持期間（デフォルト365日）を超過した点眼記録と、終了済みの古い
// 受診予約を日次バッチで削除する。遵守統計は直近の期間のみを参照する
// ため、保持期間を超えた履歴は安全に削除できる。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は保持期間を超過した履歴の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 履歴の保持日数（デフォルト: 365）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は365日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 365,
	}
}

// Run は保持期間を超過した履歴を削除する。
// taken_atがRetentionDays日前より古い点眼記録と、date_timeが
// RetentionDays日前より古い受診予約をDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	doseQuery := `DELETE FROM doses WHERE taken_at < now() - $1::interval`
	doseResult, err := j.db.ExecContext(ctx, doseQuery, interval)
	if err != nil {
		j.logger.Error("点眼記録クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("点眼記録クリーンアップの実行に失敗: %w", err)
	}

	deletedDoses, err := doseResult.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	apptQuery := `DELETE FROM appointments WHERE date_time < now() - $1::interval`
	apptResult, err := j.db.ExecContext(ctx, apptQuery, interval)
	if err != nil {
		j.logger.Error("受診予約クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("受診予約クリーンアップの実行に失敗: %w", err)
	}

	deletedAppts, err := apptResult.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("履歴クリーンアップジョブが完了しました",
		slog.Int64("deleted_doses", deletedDoses),
		slog.Int64("deleted_appointments", deletedAppts),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
