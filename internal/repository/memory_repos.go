package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/model"
)

// このファイルは全リポジトリインターフェースのインメモリ実装を提供する。
// DATABASE_URLが未設定の場合のバックエンドとして、またサービス層の
// テストで使用する。mutexで保護したマップにコピーを格納し、
// 呼び出し側の変更が格納済みデータへ波及しないようにする。

// MemoryUserRepo はインメモリのユーザーリポジトリ。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]model.User)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = *user
	return nil
}

// ListAll は全ユーザーを作成日時昇順で返す。
func (r *MemoryUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.users))
	for _, user := range r.users {
		u := user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

var _ UserRepository = (*MemoryUserRepo)(nil)

// MemoryMedicationRepo はインメモリの点眼薬リポジトリ。
type MemoryMedicationRepo struct {
	mu   sync.RWMutex
	meds map[string]model.Medication
}

// NewMemoryMedicationRepo はMemoryMedicationRepoを生成する。
func NewMemoryMedicationRepo() *MemoryMedicationRepo {
	return &MemoryMedicationRepo{meds: make(map[string]model.Medication)}
}

// FindByID は指定IDの薬を取得する。見つからない場合はnilを返す。
func (r *MemoryMedicationRepo) FindByID(ctx context.Context, id string) (*model.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	med, ok := r.meds[id]
	if !ok {
		return nil, nil
	}
	return copyMedication(med), nil
}

// ListByUserID はユーザーの薬一覧を作成日時昇順で返す。
func (r *MemoryMedicationRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var meds []*model.Medication
	for _, med := range r.meds {
		if med.UserID == userID {
			meds = append(meds, copyMedication(med))
		}
	}
	sort.Slice(meds, func(i, j int) bool {
		return meds[i].CreatedAt.Before(meds[j].CreatedAt)
	})
	return meds, nil
}

// Create は薬を作成する。
func (r *MemoryMedicationRepo) Create(ctx context.Context, med *model.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meds[med.ID] = *copyMedication(*med)
	return nil
}

// Update は薬を上書き更新する。
func (r *MemoryMedicationRepo) Update(ctx context.Context, med *model.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meds[med.ID]; !ok {
		return nil
	}
	r.meds[med.ID] = *copyMedication(*med)
	return nil
}

// Delete は指定IDの薬を削除する。
func (r *MemoryMedicationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.meds, id)
	return nil
}

// AdjustRemainingDoses は残量カウンタをdeltaだけ増減する。
// RemainingDosesがnilの薬には何もしない。
func (r *MemoryMedicationRepo) AdjustRemainingDoses(ctx context.Context, id string, delta int, clampAtTotal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	med, ok := r.meds[id]
	if !ok || med.RemainingDoses == nil {
		return nil
	}

	next := *med.RemainingDoses + delta
	if next < 0 {
		next = 0
	}
	if clampAtTotal && med.TotalDoses != nil && next > *med.TotalDoses {
		next = *med.TotalDoses
	}
	med.RemainingDoses = &next
	r.meds[id] = med
	return nil
}

// copyMedication はポインタフィールドを含めた深いコピーを返す。
func copyMedication(med model.Medication) *model.Medication {
	out := med
	if med.ExpiryDate != nil {
		t := *med.ExpiryDate
		out.ExpiryDate = &t
	}
	if med.BottleOpenDate != nil {
		t := *med.BottleOpenDate
		out.BottleOpenDate = &t
	}
	if med.RemainingDoses != nil {
		n := *med.RemainingDoses
		out.RemainingDoses = &n
	}
	if med.TotalDoses != nil {
		n := *med.TotalDoses
		out.TotalDoses = &n
	}
	return &out
}

var _ MedicationRepository = (*MemoryMedicationRepo)(nil)

// MemoryScheduleRepo はインメモリの点眼スケジュールリポジトリ。
type MemoryScheduleRepo struct {
	mu     sync.RWMutex
	scheds map[string]model.Schedule
}

// NewMemoryScheduleRepo はMemoryScheduleRepoを生成する。
func NewMemoryScheduleRepo() *MemoryScheduleRepo {
	return &MemoryScheduleRepo{scheds: make(map[string]model.Schedule)}
}

// FindByID は指定IDのスケジュールを取得する。見つからない場合はnilを返す。
func (r *MemoryScheduleRepo) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sched, ok := r.scheds[id]
	if !ok {
		return nil, nil
	}
	return copySchedule(sched), nil
}

// ListByUserID はユーザーの全スケジュールを作成日時昇順で返す。
func (r *MemoryScheduleRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Schedule, error) {
	return r.listBy(func(s model.Schedule) bool { return s.UserID == userID })
}

// ListByMedicationID は指定薬のスケジュール一覧を返す。
func (r *MemoryScheduleRepo) ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Schedule, error) {
	return r.listBy(func(s model.Schedule) bool { return s.MedicationID == medicationID })
}

func (r *MemoryScheduleRepo) listBy(match func(model.Schedule) bool) ([]*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var scheds []*model.Schedule
	for _, sched := range r.scheds {
		if match(sched) {
			scheds = append(scheds, copySchedule(sched))
		}
	}
	sort.Slice(scheds, func(i, j int) bool {
		return scheds[i].CreatedAt.Before(scheds[j].CreatedAt)
	})
	return scheds, nil
}

// Create はスケジュールを作成する。
func (r *MemoryScheduleRepo) Create(ctx context.Context, sched *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scheds[sched.ID] = *copySchedule(*sched)
	return nil
}

// Update はスケジュールを上書き更新する。
func (r *MemoryScheduleRepo) Update(ctx context.Context, sched *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scheds[sched.ID]; !ok {
		return nil
	}
	r.scheds[sched.ID] = *copySchedule(*sched)
	return nil
}

// Delete は指定IDのスケジュールを削除する。
func (r *MemoryScheduleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.scheds, id)
	return nil
}

// DeleteByMedicationID は指定薬の全スケジュールを削除する。
func (r *MemoryScheduleRepo) DeleteByMedicationID(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sched := range r.scheds {
		if sched.MedicationID == medicationID {
			delete(r.scheds, id)
		}
	}
	return nil
}

// copySchedule は曜日スライスを含めた深いコピーを返す。
func copySchedule(sched model.Schedule) *model.Schedule {
	out := sched
	out.DaysOfWeek = append([]string(nil), sched.DaysOfWeek...)
	return &out
}

var _ ScheduleRepository = (*MemoryScheduleRepo)(nil)

// MemoryDoseRepo はインメモリの点眼記録リポジトリ。
type MemoryDoseRepo struct {
	mu    sync.RWMutex
	doses map[string]model.Dose
}

// NewMemoryDoseRepo はMemoryDoseRepoを生成する。
func NewMemoryDoseRepo() *MemoryDoseRepo {
	return &MemoryDoseRepo{doses: make(map[string]model.Dose)}
}

// FindByID は指定IDの点眼記録を取得する。見つからない場合はnilを返す。
func (r *MemoryDoseRepo) FindByID(ctx context.Context, id string) (*model.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dose, ok := r.doses[id]
	if !ok {
		return nil, nil
	}
	return copyDose(dose), nil
}

// ListByUserID はユーザーの全点眼記録をタイムスタンプ昇順で返す。
func (r *MemoryDoseRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Dose, error) {
	return r.listBy(func(d model.Dose) bool { return d.UserID == userID })
}

// ListByMedicationID は指定薬の点眼記録一覧を返す。
func (r *MemoryDoseRepo) ListByMedicationID(ctx context.Context, medicationID string) ([]*model.Dose, error) {
	return r.listBy(func(d model.Dose) bool { return d.MedicationID == medicationID })
}

// ListByUserAndRange はタイムスタンプが[start, end]に入るユーザーの点眼記録を返す。
func (r *MemoryDoseRepo) ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Dose, error) {
	return r.listBy(func(d model.Dose) bool {
		return d.UserID == userID && !d.Timestamp.Before(start) && !d.Timestamp.After(end)
	})
}

func (r *MemoryDoseRepo) listBy(match func(model.Dose) bool) ([]*model.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var doses []*model.Dose
	for _, dose := range r.doses {
		if match(dose) {
			doses = append(doses, copyDose(dose))
		}
	}
	sort.Slice(doses, func(i, j int) bool {
		return doses[i].Timestamp.Before(doses[j].Timestamp)
	})
	return doses, nil
}

// Create は点眼記録を作成する。
func (r *MemoryDoseRepo) Create(ctx context.Context, dose *model.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doses[dose.ID] = *copyDose(*dose)
	return nil
}

// Delete は指定IDの点眼記録を削除する。
func (r *MemoryDoseRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.doses, id)
	return nil
}

// DeleteByMedicationID は指定薬の全点眼記録を削除する。
func (r *MemoryDoseRepo) DeleteByMedicationID(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, dose := range r.doses {
		if dose.MedicationID == medicationID {
			delete(r.doses, id)
		}
	}
	return nil
}

// copyDose はScheduleIDポインタを含めた深いコピーを返す。
func copyDose(dose model.Dose) *model.Dose {
	out := dose
	if dose.ScheduleID != nil {
		s := *dose.ScheduleID
		out.ScheduleID = &s
	}
	return &out
}

var _ DoseRepository = (*MemoryDoseRepo)(nil)

// MemoryAppointmentRepo はインメモリの受診予約リポジトリ。
type MemoryAppointmentRepo struct {
	mu    sync.RWMutex
	appts map[string]model.Appointment
}

// NewMemoryAppointmentRepo はMemoryAppointmentRepoを生成する。
func NewMemoryAppointmentRepo() *MemoryAppointmentRepo {
	return &MemoryAppointmentRepo{appts: make(map[string]model.Appointment)}
}

// FindByID は指定IDの受診予約を取得する。見つからない場合はnilを返す。
func (r *MemoryAppointmentRepo) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, nil
	}
	a := appt
	return &a, nil
}

// ListByUserID はユーザーの受診予約を日時昇順で返す。
func (r *MemoryAppointmentRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Appointment, error) {
	return r.listBy(func(a model.Appointment) bool { return a.UserID == userID })
}

// ListDueForReminder はdate_timeが[from, until]に入り、未リマインドの受診予約を返す。
func (r *MemoryAppointmentRepo) ListDueForReminder(ctx context.Context, from, until time.Time) ([]*model.Appointment, error) {
	return r.listBy(func(a model.Appointment) bool {
		return !a.ReminderSent && !a.DateTime.Before(from) && !a.DateTime.After(until)
	})
}

func (r *MemoryAppointmentRepo) listBy(match func(model.Appointment) bool) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var appts []*model.Appointment
	for _, appt := range r.appts {
		if match(appt) {
			a := appt
			appts = append(appts, &a)
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].DateTime.Before(appts[j].DateTime)
	})
	return appts, nil
}

// Create は受診予約を作成する。
func (r *MemoryAppointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appts[appt.ID] = *appt
	return nil
}

// Update は受診予約を上書き更新する。
func (r *MemoryAppointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appts[appt.ID]; !ok {
		return nil
	}
	r.appts[appt.ID] = *appt
	return nil
}

// Delete は指定IDの受診予約を削除する。
func (r *MemoryAppointmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.appts, id)
	return nil
}

// MarkReminderSent はリマインド済みフラグを立てる。
func (r *MemoryAppointmentRepo) MarkReminderSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil
	}
	appt.ReminderSent = true
	r.appts[id] = appt
	return nil
}

var _ AppointmentRepository = (*MemoryAppointmentRepo)(nil)
