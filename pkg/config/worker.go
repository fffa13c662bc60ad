package config

import "time"

// WorkerConfig holds runtime configuration for the notification worker.
type WorkerConfig struct {
	Environment            string
	Addr                   string
	DatabaseURL            string
	MigrationsDir          string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	QueuePrefix            string
	QueueWorkers           int
	QueueMaxAttempts       int
	GithubAPIURL           string
	GithubToken            string
	GithubAppID            string
	GithubAppKeyPEM        string
	BotLogin               string
	UserContentDomain      string
	WebHost                string
	EnablePRComments       bool
	EnableDeploymentStatus bool
	ChatWebhookURL         string
	ChatBotName            string
	ChatIconURL            string
	ChatDedupTTL           time.Duration
	ChatDedupMaxEntries    int
	EmailAPIURL            string
	EmailAPIKey            string
	EmailFromAddress       string
	LogLevel               string
}

// LoadWorkerConfig constructs a WorkerConfig from environment variables.
func LoadWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Environment:            GetString("APP_ENV", "development"),
		Addr:                   GetString("WORKER_ADDR", ":4600"),
		DatabaseURL:            GetString("DATABASE_URL", "postgres://pheidi:pheidi@db:5432/pheidi?sslmode=disable"),
		MigrationsDir:          GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		RedisAddr:              GetString("REDIS_ADDR", "redis:6379"),
		RedisPassword:          GetString("REDIS_PASSWORD", ""),
		RedisDB:                GetInt("REDIS_DB", 0),
		QueuePrefix:            GetString("QUEUE_PREFIX", "pheidi"),
		QueueWorkers:           GetInt("QUEUE_WORKERS", 4),
		QueueMaxAttempts:       GetInt("QUEUE_MAX_ATTEMPTS", 5),
		GithubAPIURL:           GetString("GITHUB_API_URL", "https://api.github.com"),
		GithubToken:            GetString("GITHUB_TOKEN", ""),
		GithubAppID:            GetString("GITHUB_APP_ID", ""),
		GithubAppKeyPEM:        GetString("GITHUB_APP_PRIVATE_KEY", ""),
		BotLogin:               GetString("GITHUB_BOT_LOGIN", "runnabot"),
		UserContentDomain:      GetString("USER_CONTENT_DOMAIN", "runnableapp.com"),
		WebHost:                GetString("WEB_HOST", "https://app.runnable.io"),
		EnablePRComments:       GetBool("ENABLE_PR_COMMENTS", true),
		EnableDeploymentStatus: GetBool("ENABLE_DEPLOYMENT_STATUS", false),
		ChatWebhookURL:         GetString("CHAT_WEBHOOK_URL", ""),
		ChatBotName:            GetString("CHAT_BOT_NAME", "runnabot"),
		ChatIconURL:            GetString("CHAT_ICON_URL", ""),
		ChatDedupTTL:           GetSeconds("CHAT_DEDUP_TTL_SECONDS", 180),
		ChatDedupMaxEntries:    GetInt("CHAT_DEDUP_MAX_ENTRIES", 1000),
		EmailAPIURL:            GetString("EMAIL_API_URL", "https://api.sendgrid.com/v3"),
		EmailAPIKey:            GetString("EMAIL_API_KEY", ""),
		EmailFromAddress:       GetString("EMAIL_FROM_ADDRESS", "support@runnable.com"),
		LogLevel:               GetString("LOG_LEVEL", "info"),
	}
}
