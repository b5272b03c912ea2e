// Package model はドメインモデルを定義する。
package model

import "time"

// NextDose はスケジュールを将来の日付に射影したエフェメラルな予定点眼。
// 永続化されず、問い合わせのたびに再計算される。
type NextDose struct {
	ScheduleID     string
	MedicationID   string
	MedicationName string
	Time           string // HH:MM
	Eye            Eye
	Dosage         string
	CapColor       string
	Date           time.Time // 対象のカレンダー日付（ローカル深夜0時）
}

// AdherenceDay は1日分の服薬遵守統計を表す。
// Completedはスケジュール数でキャップされない。臨時点眼により
// Completed > Scheduled になり得る。
type AdherenceDay struct {
	Date      string // YYYY-MM-DD
	Scheduled int
	Completed int
}
