// Package inventory は点眼薬ボトルの残量計算と補充判定を提供する。
package inventory

import (
	"math"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// RefillLevel は補充緊急度の区分。
type RefillLevel string

const (
	// RefillOK は残量に余裕がある状態（50%超）。
	RefillOK RefillLevel = "ok"
	// RefillWarning は補充の準備を促す状態（20%超50%以下）。
	RefillWarning RefillLevel = "warning"
	// RefillCritical は早急な補充が必要な状態（20%以下）。
	RefillCritical RefillLevel = "critical"
)

// RefillStatus は補充判定の結果。
type RefillStatus struct {
	Level RefillLevel
	// Percent は残量割合（0〜100に丸めた整数）。
	Percent int
	// DaysUntilWarning はLevelがokの場合のみ意味を持ち、
	// 1日5%消費の仮定でwarning水準（20%）に達するまでの概算日数。
	DaysUntilWarning int
}

// RemainingPercent は残量割合を0〜100の整数（四捨五入）で返す。
// totalが0以下の場合は0を返す。
func RemainingPercent(remaining, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(remaining) / float64(total) * 100))
}

// MedicationPercent は薬の残量割合を返す。在庫管理していない薬
// （RemainingDosesまたはTotalDosesがnil）は第2戻り値がfalse。
func MedicationPercent(med *model.Medication) (int, bool) {
	if med.RemainingDoses == nil || med.TotalDoses == nil {
		return 0, false
	}
	return RemainingPercent(*med.RemainingDoses, *med.TotalDoses), true
}

// Status は残量割合から補充判定を行う。
// 50%超はok、20%超はwarning、20%以下はcritical。
// okの場合は1日5%消費の仮定で20%に達するまでの日数を付記する。
func Status(percent int) RefillStatus {
	switch {
	case percent > 50:
		days := int(math.Ceil(float64(percent-20) / 5))
		return RefillStatus{Level: RefillOK, Percent: percent, DaysUntilWarning: days}
	case percent > 20:
		return RefillStatus{Level: RefillWarning, Percent: percent}
	default:
		return RefillStatus{Level: RefillCritical, Percent: percent}
	}
}
