// Package remind は点眼予定と受診予約のリマインダーワーカーを提供する。
// 一定間隔のポーリングでリード時間内に迫った予定を検出し、
// Notifier経由で通知する。
package remind

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/model"
	"github.com/guillotmd/EyeDropIt/internal/repository"
)

// appointmentLookahead は受診予約リマインドの検出範囲。
const appointmentLookahead = 24 * time.Hour

// doseLookupCount は1サイクルで取得する次回点眼予定の件数。
// リード時間内の予定をすべて拾える十分な大きさを確保する。
const doseLookupCount = 50

// Notification は送信する1件のリマインダー。
type Notification struct {
	UserID string
	Kind   string // "dose" または "appointment"
	Title  string
	Body   string
}

// Notifier はリマインダーの送信インターフェース。
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SlogNotifier は構造化ログへ通知を出力するNotifier実装。
// 外部の通知チャネルを持たない構成での既定の送信先。
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier はSlogNotifierを生成する。
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

// Notify は通知内容をINFOログとして出力する。
func (n *SlogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.Info("reminder",
		slog.String("user_id", notification.UserID),
		slog.String("kind", notification.Kind),
		slog.String("title", notification.Title),
		slog.String("body", notification.Body),
	)
	return nil
}

// NextDoseProjector は次回点眼予定の取得インターフェース。
// projection.Serviceの部分集合として定義する。
type NextDoseProjector interface {
	NextDoses(ctx context.Context, userID string, count int) ([]model.NextDose, error)
}

// Poller は点眼・受診予約リマインダーのポーリングワーカー。
// 点眼リマインドはスケジュールIDと日付の組でデデュープし、
// 同一の予定に対して1回だけ通知する。受診予約のデデュープは
// 永続化されたreminder_sentフラグで行う。
type Poller struct {
	userRepo  repository.UserRepository
	apptRepo  repository.AppointmentRepository
	projector NextDoseProjector
	notifier  Notifier
	collector metrics.MetricsCollector
	logger    *slog.Logger

	// leadTime は点眼予定の何分前から通知するか。
	leadTime time.Duration
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time // 通知済みキー → 通知時刻
}

// NewPoller はPollerの新しいインスタンスを生成する。
// leadTimeが0以下の場合はデフォルトの5分を使用する。
func NewPoller(
	userRepo repository.UserRepository,
	apptRepo repository.AppointmentRepository,
	projector NextDoseProjector,
	notifier Notifier,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	leadTime time.Duration,
) *Poller {
	if leadTime <= 0 {
		leadTime = 5 * time.Minute
	}
	return &Poller{
		userRepo:  userRepo,
		apptRepo:  apptRepo,
		projector: projector,
		notifier:  notifier,
		collector: collector,
		logger:    logger,
		leadTime:  leadTime,
		now:       time.Now,
		sent:      make(map[string]time.Time),
	}
}

// Start は指定間隔のティッカーでポーリングを開始する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("リマインダーワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("lead_time", p.leadTime),
	)

	// 起動直後に1回実行
	if err := p.RunOnce(ctx); err != nil {
		p.logger.Error("リマインドサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("リマインダーワーカーを停止しました")
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Error("リマインドサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はリマインドサイクルを1回実行する。
// 全ユーザーの点眼予定と、全ユーザー横断の受診予約を検査する。
func (p *Poller) RunOnce(ctx context.Context) error {
	p.pruneSent()

	users, err := p.userRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	for _, user := range users {
		if err := p.remindDoses(ctx, user.ID); err != nil {
			p.logger.Error("点眼リマインドの処理に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := p.remindAppointments(ctx); err != nil {
		p.logger.Error("受診予約リマインドの処理に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// remindDoses はリード時間内に迫った点眼予定を通知する。
func (p *Poller) remindDoses(ctx context.Context, userID string) error {
	nextDoses, err := p.projector.NextDoses(ctx, userID, doseLookupCount)
	if err != nil {
		return fmt.Errorf("次回点眼予定の取得に失敗しました: %w", err)
	}

	now := p.now()
	deadline := now.Add(p.leadTime)

	for _, nd := range nextDoses {
		dueAt, err := doseDueTime(nd)
		if err != nil {
			continue
		}
		if !dueAt.After(now) || dueAt.After(deadline) {
			continue
		}

		key := doseKey(nd)
		if p.alreadySent(key) {
			continue
		}

		n := Notification{
			UserID: userID,
			Kind:   "dose",
			Title:  fmt.Sprintf("%s の点眼時間です", nd.MedicationName),
			Body:   fmt.Sprintf("%s に %s（%s）を点眼してください。", nd.Time, nd.MedicationName, string(nd.Eye)),
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.logger.Error("点眼リマインドの送信に失敗しました",
				slog.String("user_id", userID),
				slog.String("schedule_id", nd.ScheduleID),
				slog.String("error", err.Error()),
			)
			continue
		}

		p.markSent(key)
		if p.collector != nil {
			p.collector.RecordReminderSent("dose")
		}
	}
	return nil
}

// remindAppointments は24時間以内に迫った未リマインドの受診予約を通知する。
func (p *Poller) remindAppointments(ctx context.Context) error {
	now := p.now()
	appts, err := p.apptRepo.ListDueForReminder(ctx, now, now.Add(appointmentLookahead))
	if err != nil {
		return fmt.Errorf("リマインド対象の受診予約の取得に失敗しました: %w", err)
	}

	for _, appt := range appts {
		n := Notification{
			UserID: appt.UserID,
			Kind:   "appointment",
			Title:  fmt.Sprintf("%s の受診予定があります", appt.DoctorName),
			Body:   fmt.Sprintf("%s に %s の予約があります。", appt.DateTime.Format("2006-01-02 15:04"), appt.AppointmentType),
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.logger.Error("受診予約リマインドの送信に失敗しました",
				slog.String("appointment_id", appt.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := p.apptRepo.MarkReminderSent(ctx, appt.ID); err != nil {
			p.logger.Error("リマインド済みフラグの更新に失敗しました",
				slog.String("appointment_id", appt.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if p.collector != nil {
			p.collector.RecordReminderSent("appointment")
		}
	}
	return nil
}

// doseDueTime は予定日と時刻文字列から通知基準時刻を算出する。
func doseDueTime(nd model.NextDose) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", nd.Time, nd.Date.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("時刻文字列の解析に失敗しました: %w", err)
	}
	return nd.Date.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

// doseKey は点眼予定のデデュープキーを返す。
func doseKey(nd model.NextDose) string {
	return fmt.Sprintf("%s|%s|%s", nd.ScheduleID, nd.Date.Format("2006-01-02"), nd.Time)
}

func (p *Poller) alreadySent(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sent[key]
	return ok
}

func (p *Poller) markSent(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[key] = p.now()
}

// pruneSent は48時間より古いデデュープエントリを破棄する。
func (p *Poller) pruneSent() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-48 * time.Hour)
	for key, at := range p.sent {
		if at.Before(cutoff) {
			delete(p.sent, key)
		}
	}
}
