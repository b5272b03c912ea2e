// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// 未設定の場合はインメモリストアで起動する（開発・テスト用）。
	DatabaseURL string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// User
	// 認証は導入していないため、起動時にこのユーザー名のユーザーを
	// 用意し、全リクエストをそのユーザーとして扱う。
	DefaultUsername string

	// Inventory
	// trueの場合、点眼記録の削除による残量の戻しをTotalDosesで
	// クランプする。falseの場合は無制限に加算する。
	ClampAtTotal bool

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitDoseRec int

	// Reminder
	RemindInterval time.Duration
	RemindLeadTime time.Duration
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（未存在は無視）。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ServerPort:        getEnvString("SERVER_PORT", "8080"),
		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		DefaultUsername:   getEnvString("DEFAULT_USERNAME", "testuser"),
		ClampAtTotal:      getEnvBool("INVENTORY_CLAMP_AT_TOTAL", true),
		RateLimitGeneral:  getEnvInt("RATE_LIMIT_GENERAL", 120),
		RateLimitDoseRec:  getEnvInt("RATE_LIMIT_DOSE_REC", 30),
		RemindInterval:    getEnvDuration("REMIND_INTERVAL", time.Minute),
		RemindLeadTime:    getEnvDuration("REMIND_LEAD_TIME", 5*time.Minute),
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
