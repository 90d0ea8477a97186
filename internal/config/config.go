package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env            string
	Port           string
	AppSecret      string
	DatabaseURL    string
	JWTExpiry      time.Duration
	RecoveryExpiry time.Duration
	FrontendURL    string

	// TMDB 外部目录服务
	TMDBAPIKey  string
	TMDBBaseURL string
	TMDBTimeout time.Duration

	// 找回密码邮件
	MailHost   string
	MailPort   string
	MailUser   string
	MailPass   string
	MailSender string

	// 是否允许重命名主列表（原始行为：允许）
	AllowMainListRename bool
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "24"))
	recoveryMinutes, _ := strconv.Atoi(getEnv("RECOVERY_EXPIRY_MINUTES", "60"))
	tmdbTimeout, _ := strconv.Atoi(getEnv("TMDB_TIMEOUT_SECONDS", "10"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinelist")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL))

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	if getEnv("TMDB_API_KEY", "") == "" {
		fmt.Println("【警告】未配置 TMDB_API_KEY，目录接口将不可用。")
	}

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8000"),
		AppSecret:      appSecret,
		DatabaseURL:    dbURL,
		JWTExpiry:      time.Duration(expiryHours) * time.Hour,
		RecoveryExpiry: time.Duration(recoveryMinutes) * time.Minute,
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),

		TMDBAPIKey:  getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBTimeout: time.Duration(tmdbTimeout) * time.Second,

		MailHost:   getEnv("MAIL_HOST", "localhost"),
		MailPort:   getEnv("MAIL_PORT", "25"),
		MailUser:   getEnv("MAIL_USER", ""),
		MailPass:   getEnv("MAIL_PASS", ""),
		MailSender: getEnv("MAIL_SENDER", "no-reply@cinelist.local"),

		AllowMainListRename: getEnv("ALLOW_MAIN_LIST_RENAME", "true") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
