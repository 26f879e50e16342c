package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	BaseURL   string
	WebDir    string

	JWTSecret      string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration

	PostmarkToken string
	FromEmail     string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
	NotifyLookahead time.Duration
	NotifyInterval  time.Duration

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	BackupS3Endpoint  string
	BackupS3Bucket    string
	BackupS3Region    string
	BackupS3AccessKey string
	BackupS3SecretKey string
	BackupPassphrase  string
	BackupInterval    time.Duration
	BackupRetention   time.Duration
}

// Load reads CHOREO_* environment variables, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("CHOREO_PORT", "8080"),
		DBPath:          getEnv("CHOREO_DB_PATH", "choreo.db"),
		LogLevel:        getEnv("CHOREO_LOG_LEVEL", "info"),
		LogFormat:       getEnv("CHOREO_LOG_FORMAT", "text"),
		BaseURL:         strings.TrimRight(getEnv("CHOREO_BASE_URL", "http://localhost:8080"), "/"),
		WebDir:          getEnv("CHOREO_WEB_DIR", ""),
		JWTSecret:       getEnv("CHOREO_JWT_SECRET", ""),
		PostmarkToken:   getEnv("CHOREO_POSTMARK_TOKEN", ""),
		FromEmail:       getEnv("CHOREO_FROM_EMAIL", ""),
		VAPIDPublicKey:  getEnv("CHOREO_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("CHOREO_VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber: getEnv("CHOREO_VAPID_SUBSCRIBER", ""),
		AllowedOrigins:  splitList(getEnv("CHOREO_ALLOWED_ORIGINS", "")),

		BackupS3Endpoint:  getEnv("CHOREO_BACKUP_S3_ENDPOINT", ""),
		BackupS3Bucket:    getEnv("CHOREO_BACKUP_S3_BUCKET", ""),
		BackupS3Region:    getEnv("CHOREO_BACKUP_S3_REGION", "us-east-1"),
		BackupS3AccessKey: getEnv("CHOREO_BACKUP_S3_ACCESS_KEY", ""),
		BackupS3SecretKey: getEnv("CHOREO_BACKUP_S3_SECRET_KEY", ""),
		BackupPassphrase:  getEnv("CHOREO_BACKUP_PASSPHRASE", ""),
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("CHOREO_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("CHOREO_SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.NotifyLookahead, err = getDuration("CHOREO_NOTIFY_LOOKAHEAD", time.Hour); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = getDuration("CHOREO_NOTIFY_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackupInterval, err = getDuration("CHOREO_BACKUP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BackupRetention, err = getDuration("CHOREO_BACKUP_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PushEnabled reports whether both VAPID keys are set.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: duration must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
