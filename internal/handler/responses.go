package handler

import (
	"time"

	"github.com/guillotmd/EyeDropIt/internal/inventory"
	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/projection"
)

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}

// refillStatusResponse は補充判定のAPIレスポンス。
type refillStatusResponse struct {
	Level            string `json:"level"`
	Percent          int    `json:"percent"`
	DaysUntilWarning int    `json:"days_until_warning,omitempty"`
}

// medicationResponse は薬情報のAPIレスポンス。
// 在庫管理している薬には残量割合と補充判定を付与する。
type medicationResponse struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Dosage         string                `json:"dosage,omitempty"`
	Instructions   string                `json:"instructions,omitempty"`
	Eye            string                `json:"eye"`
	CapColor       string                `json:"cap_color"`
	ExpiryDate     *time.Time            `json:"expiry_date,omitempty"`
	BottleOpenDate *time.Time            `json:"bottle_open_date,omitempty"`
	RemainingDoses *int                  `json:"remaining_doses,omitempty"`
	TotalDoses     *int                  `json:"total_doses,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	RefillStatus   *refillStatusResponse `json:"refill_status,omitempty"`
}

func toMedicationResponse(med *model.Medication) medicationResponse {
	resp := medicationResponse{
		ID:             med.ID,
		Name:           med.Name,
		Dosage:         med.Dosage,
		Instructions:   med.Instructions,
		Eye:            string(med.Eye),
		CapColor:       med.CapColor,
		ExpiryDate:     med.ExpiryDate,
		BottleOpenDate: med.BottleOpenDate,
		RemainingDoses: med.RemainingDoses,
		TotalDoses:     med.TotalDoses,
		CreatedAt:      med.CreatedAt,
	}

	if percent, ok := inventory.MedicationPercent(med); ok {
		status := inventory.Status(percent)
		resp.RefillStatus = &refillStatusResponse{
			Level:            string(status.Level),
			Percent:          status.Percent,
			DaysUntilWarning: status.DaysUntilWarning,
		}
	}
	return resp
}

// scheduleResponse はスケジュール情報のAPIレスポンス。
type scheduleResponse struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	Time         string    `json:"time"`
	DaysOfWeek   []string  `json:"days_of_week"`
	Eye          string    `json:"eye"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toScheduleResponse(sched *model.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:           sched.ID,
		MedicationID: sched.MedicationID,
		Time:         sched.Time,
		DaysOfWeek:   sched.DaysOfWeek,
		Eye:          string(sched.Eye),
		Active:       sched.Active,
		CreatedAt:    sched.CreatedAt,
	}
}

// medicationWithSchedulesResponse は薬とそのスケジュールを結合したAPIレスポンス。
type medicationWithSchedulesResponse struct {
	medicationResponse
	Schedules []scheduleResponse `json:"schedules"`
}

func toMedicationWithSchedulesResponse(m *model.MedicationWithSchedules) medicationWithSchedulesResponse {
	scheds := make([]scheduleResponse, 0, len(m.Schedules))
	for _, sched := range m.Schedules {
		scheds = append(scheds, toScheduleResponse(sched))
	}
	return medicationWithSchedulesResponse{
		medicationResponse: toMedicationResponse(&m.Medication),
		Schedules:          scheds,
	}
}

// scheduleWithMedicationResponse はスケジュールと薬情報を結合したAPIレスポンス。
type scheduleWithMedicationResponse struct {
	scheduleResponse
	Medication medicationResponse `json:"medication"`
}

func toScheduleWithMedicationResponse(s *model.ScheduleWithMedication) scheduleWithMedicationResponse {
	return scheduleWithMedicationResponse{
		scheduleResponse: toScheduleResponse(&s.Schedule),
		Medication:       toMedicationResponse(&s.Medication),
	}
}

// doseResponse は点眼記録のAPIレスポンス。
type doseResponse struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	ScheduleID   *string   `json:"schedule_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Eye          string    `json:"eye"`
	Skipped      bool      `json:"skipped"`
	Notes        string    `json:"notes,omitempty"`
}

func toDoseResponse(dose *model.Dose) doseResponse {
	return doseResponse{
		ID:           dose.ID,
		MedicationID: dose.MedicationID,
		ScheduleID:   dose.ScheduleID,
		Timestamp:    dose.Timestamp,
		Eye:          string(dose.Eye),
		Skipped:      dose.Skipped,
		Notes:        dose.Notes,
	}
}

// appointmentResponse は受診予約のAPIレスポンス。
type appointmentResponse struct {
	ID              string    `json:"id"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentType string    `json:"appointment_type"`
	DateTime        time.Time `json:"date_time"`
	Location        string    `json:"location,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ReminderSent    bool      `json:"reminder_sent"`
}

func toAppointmentResponse(appt *model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              appt.ID,
		DoctorName:      appt.DoctorName,
		AppointmentType: appt.AppointmentType,
		DateTime:        appt.DateTime,
		Location:        appt.Location,
		Notes:           appt.Notes,
		ReminderSent:    appt.ReminderSent,
	}
}

// nextDoseResponse は次回点眼予定のAPIレスポンス。
type nextDoseResponse struct {
	ScheduleID     string `json:"schedule_id"`
	MedicationID   string `json:"medication_id"`
	MedicationName string `json:"medication_name"`
	Date           string `json:"date"` // YYYY-MM-DD
	Time           string `json:"time"` // HH:MM
	Eye            string `json:"eye"`
	Dosage         string `json:"dosage,omitempty"`
	CapColor       string `json:"cap_color"`
}

func toNextDoseResponse(nd model.NextDose) nextDoseResponse {
	return nextDoseResponse{
		ScheduleID:     nd.ScheduleID,
		MedicationID:   nd.MedicationID,
		MedicationName: nd.MedicationName,
		Date:           nd.Date.Format("2006-01-02"),
		Time:           nd.Time,
		Eye:            string(nd.Eye),
		Dosage:         nd.Dosage,
		CapColor:       nd.CapColor,
	}
}

// adherenceDayResponse は1日分の遵守統計のAPIレスポンス。
type adherenceDayResponse struct {
	Date      string `json:"date"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
}

// adherenceStatsResponse は遵守統計のAPIレスポンス。
type adherenceStatsResponse struct {
	Days           []adherenceDayResponse `json:"days"`
	TotalScheduled int                    `json:"total_scheduled"`
	TotalCompleted int                    `json:"total_completed"`
	Rate           int                    `json:"rate"`
}

func toAdherenceStatsResponse(stats *projection.AdherenceStats) adherenceStatsResponse {
	days := make([]adherenceDayResponse, 0, len(stats.Days))
	for _, day := range stats.Days {
		days = append(days, adherenceDayResponse{
			Date:      day.Date,
			Scheduled: day.Scheduled,
			Completed: day.Completed,
		})
	}
	return adherenceStatsResponse{
		Days:           days,
		TotalScheduled: stats.TotalScheduled,
		TotalCompleted: stats.TotalCompleted,
		Rate:           stats.Rate,
	}
}
