// Package model はドメインモデルを定義する。
package model

import "time"

// Dose は点眼の実績（点眼した、または明示的にスキップした）を表す。
// ScheduleIDはスケジュール外の臨時点眼ではnilになる。
type Dose struct {
	ID           string
	UserID       string
	MedicationID string
	ScheduleID   *string
	Timestamp    time.Time // 未指定時は記録時刻
	Eye          Eye
	Skipped      bool
	Notes        string
}
