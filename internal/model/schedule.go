// Package model はドメインモデルを定義する。
package model

import (
	"regexp"
	"time"
)

// Weekdays は正規の英語曜日名の一覧（日曜始まり）。
// time.Weekday.String()と同一表記であり、スケジュールのDaysOfWeekは
// この集合の部分集合でなければならない。
var Weekdays = []string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// IsValidWeekday は曜日名が正規の7つの英語曜日名のいずれかであるかを検証する。
func IsValidWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// timeOfDayPattern は時刻文字列の許容フォーマット（ゼロ埋め24時間制 HH:MM）。
// ゼロ埋めを強制することで文字列の辞書順比較が時刻順と一致する。
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidTimeOfDay は時刻文字列がHH:MM形式であるかを検証する。
func IsValidTimeOfDay(t string) bool {
	return timeOfDayPattern.MatchString(t)
}

// Schedule は1つの薬に対する定期点眼指示（時刻＋曜日＋眼）を表す。
// 薬が削除されるとスケジュールもカスケード削除される。
type Schedule struct {
	ID           string
	UserID       string
	MedicationID string
	Time         string   // HH:MM形式（24時間制、ゼロ埋め）
	DaysOfWeek   []string // 正規の英語曜日名の部分集合。順序は保持しない
	Eye          Eye
	Active       bool
	CreatedAt    time.Time
}

// MatchesWeekday はスケジュールが指定曜日に点眼を指示しているかを返す。
func (s *Schedule) MatchesWeekday(day string) bool {
	for _, d := range s.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// ScheduleWithMedication はスケジュールと薬情報を結合した表示用モデル。
type ScheduleWithMedication struct {
	Schedule
	Medication Medication
}
