// Package projection はスケジュールと点眼記録から導出される読み取り専用
// ビュー（次回点眼の予定、遵守統計）を計算する。永続化された状態は持たず、
// 同一入力に対して常に同一の結果を返す。
package projection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
)

// DefaultNextDoseCount は次回点眼予定の既定件数。
const DefaultNextDoseCount = 5

// DefaultAdherenceDays は遵守統計の既定日数。
const DefaultAdherenceDays = 7

// lookaheadDays は次回点眼予定の探索範囲（今日を含む日数）。
// 全曜日を1周カバーするため7日あれば十分。
const lookaheadDays = 7

// AdherenceStats は遵守統計の計算結果。
type AdherenceStats struct {
	Days           []model.AdherenceDay
	TotalScheduled int
	TotalCompleted int
	// Rate は遵守率（0〜100に丸めた整数）。予定件数が0の場合は0。
	Rate int
}

// Service は射影計算のサービス層。
type Service struct {
	schedRepo repository.ScheduleRepository
	medRepo   repository.MedicationRepository
	doseRepo  repository.DoseRepository
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	schedRepo repository.ScheduleRepository,
	medRepo repository.MedicationRepository,
	doseRepo repository.DoseRepository,
) *Service {
	return &Service{
		schedRepo: schedRepo,
		medRepo:   medRepo,
		doseRepo:  doseRepo,
		now:       time.Now,
	}
}

// NextDoses は今後の点眼予定を時系列順に最大count件返す。
// countが0以下の場合は既定の5件。
//
// 今日から7日先までを走査し、各日に曜日が一致する有効なスケジュールを
// 展開する。今日の分は現在時刻より後の予定のみを含める（HH:MM文字列の
// 辞書順比較で判定する。ゼロ埋めされたHH:MM形式では辞書順と時刻順が
// 一致する）。薬が削除済みのスケジュールは黙って読み飛ばす。
func (s *Service) NextDoses(ctx context.Context, userID string, count int) ([]model.NextDose, error) {
	if count <= 0 {
		count = DefaultNextDoseCount
	}

	scheds, err := s.schedRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}
	meds, err := s.medRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("薬一覧の取得に失敗しました: %w", err)
	}

	medByID := make(map[string]*model.Medication, len(meds))
	for _, med := range meds {
		medByID[med.ID] = med
	}

	now := s.now()
	nowHHMM := now.Format("15:04")

	var results []model.NextDose
	for offset := 0; offset < lookaheadDays; offset++ {
		day := now.AddDate(0, 0, offset)
		date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		weekday := day.Weekday().String()

		for _, sched := range scheds {
			if !sched.Active || !sched.MatchesWeekday(weekday) {
				continue
			}
			// 今日の分は未来の時刻のみ
			if offset == 0 && sched.Time <= nowHHMM {
				continue
			}
			med, ok := medByID[sched.MedicationID]
			if !ok {
				continue
			}
			results = append(results, model.NextDose{
				ScheduleID:     sched.ID,
				MedicationID:   med.ID,
				MedicationName: med.Name,
				Time:           sched.Time,
				Eye:            sched.Eye,
				Dosage:         med.Dosage,
				CapColor:       med.CapColor,
				Date:           date,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.Before(results[j].Date)
		}
		return results[i].Time < results[j].Time
	})

	if len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// AdherenceStats は今日を末尾とする直近days日分の遵守統計を返す。
// daysが0以下の場合は既定の7日。
//
// 各日の予定件数は、その日の曜日に一致する有効なスケジュールの数。
// 実施件数は、その日のローカル日付に記録されたスキップでない点眼記録の数。
func (s *Service) AdherenceStats(ctx context.Context, userID string, days int) (*AdherenceStats, error) {
	if days <= 0 {
		days = DefaultAdherenceDays
	}

	scheds, err := s.schedRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スケジュール一覧の取得に失敗しました: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := today.AddDate(0, 0, -(days - 1))
	windowEnd := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	doses, err := s.doseRepo.ListByUserAndRange(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("期間指定の点眼記録の取得に失敗しました: %w", err)
	}

	// 日付キーごとの実施件数
	completedByDay := make(map[string]int)
	for _, dose := range doses {
		if dose.Skipped {
			continue
		}
		key := dose.Timestamp.In(now.Location()).Format("2006-01-02")
		completedByDay[key]++
	}

	stats := &AdherenceStats{Days: make([]model.AdherenceDay, 0, days)}
	for offset := 0; offset < days; offset++ {
		day := windowStart.AddDate(0, 0, offset)
		key := day.Format("2006-01-02")

		scheduled := 0
		for _, sched := range scheds {
			if sched.Active && sched.MatchesWeekday(day.Weekday().String()) {
				scheduled++
			}
		}
		completed := completedByDay[key]

		stats.Days = append(stats.Days, model.AdherenceDay{
			Date:      key,
			Scheduled: scheduled,
			Completed: completed,
		})
		stats.TotalScheduled += scheduled
		stats.TotalCompleted += completed
	}

	if stats.TotalScheduled > 0 {
		stats.Rate = int(math.Round(float64(stats.TotalCompleted) / float64(stats.TotalScheduled) * 100))
	}
	return stats, nil
}
