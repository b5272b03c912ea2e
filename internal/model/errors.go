// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeMedicationNotFound  = "MEDICATION_NOT_FOUND"
	ErrCodeScheduleNotFound    = "SCHEDULE_NOT_FOUND"
	ErrCodeDoseNotFound        = "DOSE_NOT_FOUND"
	ErrCodeAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
// フィールドごとのメッセージを結合して保持する。暗黙の型変換は行わない。
func NewValidationError(fieldMessages ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", strings.Join(fieldMessages, "; ")),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewMedicationNotFoundError は薬が見つからない場合のエラーを生成する。
// 他ユーザーの薬を指定した場合も存在を漏らさないよう同一のエラーを返す。
func NewMedicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeMedicationNotFound,
		Message:  fmt.Sprintf("指定された薬が見つかりません: %s", id),
		Category: "not_found",
		Action:   "薬のIDを確認してください。",
	}
}

// NewScheduleNotFoundError はスケジュールが見つからない場合のエラーを生成する。
func NewScheduleNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeScheduleNotFound,
		Message:  fmt.Sprintf("指定されたスケジュールが見つかりません: %s", id),
		Category: "not_found",
		Action:   "スケジュールのIDを確認してください。",
	}
}

// NewDoseNotFoundError は点眼記録が見つからない場合のエラーを生成する。
func NewDoseNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeDoseNotFound,
		Message:  fmt.Sprintf("指定された点眼記録が見つかりません: %s", id),
		Category: "not_found",
		Action:   "点眼記録のIDを確認してください。",
	}
}

// NewAppointmentNotFoundError は受診予約が見つからない場合のエラーを生成する。
func NewAppointmentNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAppointmentNotFound,
		Message:  fmt.Sprintf("指定された受診予約が見つかりません: %s", id),
		Category: "not_found",
		Action:   "受診予約のIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "not_found",
		Action:   "サーバーの初期化状態を確認してください。",
	}
}
