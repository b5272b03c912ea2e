// Package model はドメインモデルを定義する。
package model

import "time"

// Appointment は眼科の受診予約を表す。
// 薬・スケジュールとは独立しており、カスケード削除の対象にならない。
type Appointment struct {
	ID              string
	UserID          string
	DoctorName      string
	AppointmentType string
	DateTime        time.Time
	Location        string
	Notes           string
	ReminderSent    bool
}
