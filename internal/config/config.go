package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Instagram  InstagramConfig  `yaml:"instagram"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Worker     WorkerConfig     `yaml:"worker"`
	Moderation ModerationConfig `yaml:"moderation"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	S3         S3Config         `yaml:"s3"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type InstagramConfig struct {
	AccountID          string `yaml:"account_id"`
	BotUsername        string `yaml:"bot_username"`
	AccessToken        string `yaml:"access_token"`
	GraphAPIBaseURL    string `yaml:"graph_api_base_url"`
	WebhookVerifyToken string `yaml:"webhook_verify_token"`
}

type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	ClassificationModel string `yaml:"classification_model"`
	AnswerModel         string `yaml:"answer_model"`
	VisionModel         string `yaml:"vision_model"`
}

type RateLimitConfig struct {
	// Max replies granted inside one sliding window
	Limit int `yaml:"limit"`
	// Window width in seconds
	PeriodSeconds int    `yaml:"period_seconds"`
	Key           string `yaml:"key"`
}

type WorkerConfig struct {
	Concurrency       int    `yaml:"concurrency"`
	QueuePrefix       string `yaml:"queue_prefix"`
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds"`
	StaleAfterMinutes int    `yaml:"stale_after_minutes"`
	WatchdogCron      string `yaml:"watchdog_cron"`
	SweeperCron       string `yaml:"sweeper_cron"`
}

// LockTTL returns how long a worker may hold a processing lock
func (w WorkerConfig) LockTTL() time.Duration {
	return time.Duration(w.LockTTLSeconds) * time.Second
}

// StaleAfter returns the age past which a PROCESSING row is considered abandoned
func (w WorkerConfig) StaleAfter() time.Duration {
	return time.Duration(w.StaleAfterMinutes) * time.Minute
}

type ModerationConfig struct {
	AutoDelete bool `yaml:"auto_delete"`
	Notify     bool `yaml:"notify"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
}

// Window returns the sliding-window width as a duration
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.PeriodSeconds) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     8003,
			Env:      "dev",
			LogLevel: "debug",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		Instagram: InstagramConfig{
			GraphAPIBaseURL: "https://graph.instagram.com/v21.0",
		},
		OpenAI: OpenAIConfig{
			ClassificationModel: "gpt-4o-mini",
			AnswerModel:         "gpt-4o",
			VisionModel:         "gpt-4o-mini",
		},
		RateLimit: RateLimitConfig{
			Limit:         25,
			PeriodSeconds: 3600,
			Key:           "comment_pilot:reply_rate",
		},
		Worker: WorkerConfig{
			Concurrency:       4,
			QueuePrefix:       "comment_pilot",
			LockTTLSeconds:    30,
			StaleAfterMinutes: 15,
			WatchdogCron:      "*/5 * * * *",
			SweeperCron:       "*/10 * * * *",
		},
		Moderation: ModerationConfig{
			AutoDelete: false,
			Notify:     true,
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}
	if accountID := os.Getenv("INSTAGRAM_ACCOUNT_ID"); accountID != "" {
		cfg.Instagram.AccountID = accountID
	}
	if botUsername := os.Getenv("INSTAGRAM_BOT_USERNAME"); botUsername != "" {
		cfg.Instagram.BotUsername = botUsername
	}
	if token := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); token != "" {
		cfg.Instagram.AccessToken = token
	}
	if verifyToken := os.Getenv("WEBHOOK_VERIFY_TOKEN"); verifyToken != "" {
		cfg.Instagram.WebhookVerifyToken = verifyToken
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.OpenAI.APIKey = apiKey
	}
	if limit := os.Getenv("RATE_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			cfg.RateLimit.Limit = l
		}
	}
	if period := os.Getenv("RATE_LIMIT_PERIOD"); period != "" {
		if p, err := strconv.Atoi(period); err == nil {
			cfg.RateLimit.PeriodSeconds = p
		}
	}
	if concurrency := os.Getenv("WORKER_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			cfg.Worker.Concurrency = n
		}
	}
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		cfg.Telegram.BotToken = botToken
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.S3.Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		cfg.S3.Region = region
	}
	if accessKey := os.Getenv("S3_ACCESS_KEY_ID"); accessKey != "" {
		cfg.S3.AccessKeyID = accessKey
	}
	if secretAccess := os.Getenv("S3_SECRET_ACCESS_KEY"); secretAccess != "" {
		cfg.S3.SecretAccessKey = secretAccess
	}

	return cfg, nil
}
