// Package model はドメインモデルを定義する。
package model

import (
	"regexp"
	"time"
)

// Eye は点眼対象の眼を表す。
type Eye string

const (
	// EyeLeft は左眼のみ。
	EyeLeft Eye = "left"
	// EyeRight は右眼のみ。
	EyeRight Eye = "right"
	// EyeBoth は両眼。
	EyeBoth Eye = "both"
)

// IsValidEye は点眼対象が left/right/both のいずれかであるかを検証する。
func IsValidEye(eye Eye) bool {
	switch eye {
	case EyeLeft, EyeRight, EyeBoth:
		return true
	}
	return false
}

// hexColorPattern はキャップ色の許容フォーマット（#RGB または #RRGGBB）。
var hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// IsValidHexColor はキャップ色が16進カラーコードであるかを検証する。
func IsValidHexColor(color string) bool {
	return hexColorPattern.MatchString(color)
}

// Medication は点眼薬を表す。
// RemainingDoses/TotalDosesは在庫管理を行わない薬ではnilになる。
type Medication struct {
	ID             string
	UserID         string
	Name           string
	Dosage         string
	Instructions   string
	Eye            Eye    // 点眼対象。デフォルトはboth
	CapColor       string // キャップ色（16進カラーコード）。デフォルトは#000000
	ExpiryDate     *time.Time
	BottleOpenDate *time.Time
	RemainingDoses *int
	TotalDoses     *int
	CreatedAt      time.Time
}

// MedicationWithSchedules は薬とそのスケジュール一覧を結合した表示用モデル。
type MedicationWithSchedules struct {
	Medication
	Schedules []*Schedule
}
