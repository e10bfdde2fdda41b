// Package config assembles the server configuration from built-in defaults,
// an optional JSON file, CERTHUB_* environment variables and command-line
// flags, in that order.
package config

import (
	"fmt"
	"net"
	"os"
	"time"
)

// Config holds runtime settings for the certhub server.
type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR"`
	PublicBaseURL     string        `env:"PUBLIC_BASE_URL"`
	DatabaseDSN       string        `env:"DATABASE_DSN"`
	SecretKey         string        `env:"SECRET_KEY"`
	TokenValidity     time.Duration `env:"TOKEN_VALIDITY"`
	InstitutionDomain string        `env:"INSTITUTION_DOMAIN"`
	CodeTTL           time.Duration `env:"CODE_TTL"`
	DataDir           string        `env:"DATA_DIR"`

	// BlobBackend is "fs" (files under DataDir) or "s3".
	BlobBackend    string `env:"BLOB_BACKEND"`
	S3RootUser     string `env:"S3_ROOT_USER"`
	S3RootPassword string `env:"S3_ROOT_PASSWORD"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`

	// RedisAddr selects the Redis code store; empty keeps codes in memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	AuthRatePerMinute int `env:"AUTH_RATE_PER_MINUTE"`
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty trusts no proxy.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// SMTPHost empty disables outbound mail.
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPFrom      string `env:"SMTP_FROM"`
	MailQueueSize int    `env:"MAIL_QUEUE_SIZE"`
	MailWorkers   int    `env:"MAIL_WORKERS"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	MaxTemplatePixels int   `env:"MAX_TEMPLATE_PIXELS"`
	MaxUploadBytes    int64 `env:"MAX_UPLOAD_BYTES"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.PublicBaseURL = "http://localhost:8080"
	c.DatabaseDSN = "file:data/certhub.db?_pragma=busy_timeout(5000)"
	c.SecretKey = ""
	c.TokenValidity = 7 * 24 * time.Hour
	c.InstitutionDomain = "st.niituniversity.in"
	c.CodeTTL = 15 * time.Minute
	c.DataDir = "data"
	c.BlobBackend = "fs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "certhub"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.AuthRatePerMinute = 60
	c.SMTPPort = 587
	c.MailQueueSize = 256
	c.MailWorkers = 2
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.MaxTemplatePixels = 40_000_000
	c.MaxUploadBytes = 32 << 20
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// the environment, then command-line flags. Invalid input panics, as this
// only runs at startup.
func LoadConfig() *Config {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, nil)
	parseFlags(cfg, args)
	validate(cfg)
	return cfg
}

// validate panics on values the server cannot start with.
func validate(c *Config) {
	if c.TokenValidity <= 0 {
		panic(fmt.Sprintf("config: token validity must be positive, got %s", c.TokenValidity))
	}
	if c.CodeTTL <= 0 {
		panic(fmt.Sprintf("config: code TTL must be positive, got %s", c.CodeTTL))
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				panic(fmt.Sprintf("config: trusted proxy %q is neither an IP nor a CIDR", p))
			}
		}
	}
}
