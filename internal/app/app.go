// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/guillotmd/EyeDropIt/internal/appointment"
	"github.com/guillotmd/EyeDropIt/internal/config"
	"github.com/guillotmd/EyeDropIt/internal/database"
	"github.com/guillotmd/EyeDropIt/internal/dose"
	"github.com/guillotmd/EyeDropIt/internal/handler"
	"github.com/guillotmd/EyeDropIt/internal/logger"
	"github.com/guillotmd/EyeDropIt/internal/medication"
	"github.com/guillotmd/EyeDropIt/internal/metrics"
	"github.com/guillotmd/EyeDropIt/internal/middleware"
	"github.com/guillotmd/EyeDropIt/internal/projection"
	"github.com/guillotmd/EyeDropIt/internal/repository"
	"github.com/guillotmd/EyeDropIt/internal/schedule"
	"github.com/guillotmd/EyeDropIt/internal/security"
	"github.com/guillotmd/EyeDropIt/internal/user"
	"github.com/guillotmd/EyeDropIt/internal/worker/cleanup"
	"github.com/guillotmd/EyeDropIt/internal/worker/remind"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandRemind:
		return runRemind(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// repositories はストレージ実装一式をまとめる。
type repositories struct {
	users        repository.UserRepository
	medications  repository.MedicationRepository
	schedules    repository.ScheduleRepository
	doses        repository.DoseRepository
	appointments repository.AppointmentRepository

	// db はPostgreSQL構成のときのみ非nil。生SQLを使うバッチジョブが参照する。
	db *sql.DB
	// close はDB接続のクリーンアップ。インメモリ構成ではnil。
	close func() error
}

// buildRepositories はDATABASE_URLの有無に応じてストレージ実装を選択する。
// 未設定の場合はインメモリストアで起動する（開発・テスト用）。
func buildRepositories(cfg *config.Config) (*repositories, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, using in-memory store")
		return &repositories{
			users:        repository.NewMemoryUserRepo(),
			medications:  repository.NewMemoryMedicationRepo(),
			schedules:    repository.NewMemoryScheduleRepo(),
			doses:        repository.NewMemoryDoseRepo(),
			appointments: repository.NewMemoryAppointmentRepo(),
		}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	return &repositories{
		users:        repository.NewPostgresUserRepo(db),
		medications:  repository.NewPostgresMedicationRepo(db),
		schedules:    repository.NewPostgresScheduleRepo(db),
		doses:        repository.NewPostgresDoseRepo(db),
		appointments: repository.NewPostgresAppointmentRepo(db),
		db:           db,
		close:        db.Close,
	}, nil
}

// rateLimiterConfig はconfigのreq/min値をreq/secのレート設定へ変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitDoseRec > 0 {
		rlCfg.DoseRecRate = rate.Limit(float64(cfg.RateLimitDoseRec) / 60.0)
		rlCfg.DoseRecBurst = cfg.RateLimitDoseRec
	}
	return rlCfg
}

// runServe はAPIサーバーモードで起動する。
// ストレージを初期化し、既定ユーザーを確保し、全依存関係をワイヤリング
// してHTTPサーバーを起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	repos, err := buildRepositories(cfg)
	if err != nil {
		return err
	}
	if repos.close != nil {
		defer repos.close()
	}

	// セキュリティ・メトリクスの初期化
	sanitizer := security.NewTextSanitizer()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// ドメインサービスの初期化
	userService := user.NewService(repos.users)
	medicationService := medication.NewService(repos.medications, repos.schedules, repos.doses, sanitizer)
	scheduleService := schedule.NewService(repos.schedules, repos.medications)
	doseService := dose.NewService(repos.doses, repos.medications, repos.schedules, sanitizer, cfg.ClampAtTotal)
	appointmentService := appointment.NewService(repos.appointments, sanitizer)
	projectionService := projection.NewService(repos.schedules, repos.medications, repos.doses)

	// 既定ユーザーの確保
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defaultUser, err := userService.EnsureDefault(ctx, cfg.DefaultUsername)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to ensure default user: %w", err)
	}

	// ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		UserHandler:        handler.NewUserHandler(userService),
		MedicationHandler:  handler.NewMedicationHandler(medicationService),
		ScheduleHandler:    handler.NewScheduleHandler(scheduleService),
		DoseHandler:        handler.NewDoseHandler(doseService, collector),
		AppointmentHandler: handler.NewAppointmentHandler(appointmentService),
		ProjectionHandler:  handler.NewProjectionHandler(projectionService, collector),
		Logger:             slog.Default(),
		Collector:          collector,
		Gatherer:           registry,
		RateLimiter:        rateLimiter,
		CORSOrigin:         cfg.CORSAllowedOrigin,
		DefaultUserID:      defaultUser.ID,
	})

	// HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("default_user_id", defaultUser.ID),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runRemind はリマインダーワーカーモードで起動する。
// 点眼予定と受診予約をポーリングし、期限が近いものを通知する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runRemind(cfg *config.Config) error {
	repos, err := buildRepositories(cfg)
	if err != nil {
		return err
	}
	if repos.close != nil {
		defer repos.close()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	projectionService := projection.NewService(repos.schedules, repos.medications, repos.doses)
	notifier := remind.NewSlogNotifier(slog.Default())

	poller := remind.NewPoller(
		repos.users, repos.appointments, projectionService, notifier,
		collector, slog.Default(), cfg.RemindLeadTime,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down reminder worker...")
		cancel()
	}()

	slog.Info("reminder worker starting",
		slog.Duration("interval", cfg.RemindInterval),
		slog.Duration("lead_time", cfg.RemindLeadTime),
	)

	// 履歴クリーンアップジョブを日次でバックグラウンド実行
	// （生SQLを使うためPostgreSQL構成のときのみ）
	if repos.db != nil {
		cleanupJob := cleanup.NewCleanupJob(repos.db, slog.Default())
		go func() {
			// 起動直後に1回実行
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}

			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := cleanupJob.Run(ctx); err != nil {
						slog.Error("cleanup job failed", slog.String("error", err.Error()))
					}
				}
			}
		}()
	}

	// ポーラーをメインgoroutineで実行（ブロッキング）
	poller.Start(ctx, cfg.RemindInterval)

	slog.Info("reminder worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
