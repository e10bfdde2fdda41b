package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/certhub/internal/flagx"
	"github.com/dmitrijs2005/certhub/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations are written
// as strings ("15m", "168h").
type JsonConfig struct {
	HTTPAddr          string         `json:"http_addr"`
	PublicBaseURL     string         `json:"public_base_url"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	TokenValidity     timex.Duration `json:"token_validity"`
	InstitutionDomain string         `json:"institution_domain"`
	CodeTTL           timex.Duration `json:"code_ttl"`
	DataDir           string         `json:"data_dir"`
	BlobBackend       string         `json:"blob_backend"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	RedisAddr         string         `json:"redis_addr"`
	RedisPassword     string         `json:"redis_password"`
	AuthRatePerMinute int            `json:"auth_rate_per_minute"`
	TrustedProxies    []string       `json:"trusted_proxies"`
	SMTPHost          string         `json:"smtp_host"`
	SMTPPort          int            `json:"smtp_port"`
	SMTPUser          string         `json:"smtp_user"`
	SMTPPassword      string         `json:"smtp_password"`
	SMTPFrom          string         `json:"smtp_from"`
	MailQueueSize     int            `json:"mail_queue_size"`
	MailWorkers       int            `json:"mail_workers"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`
	MaxTemplatePixels int            `json:"max_template_pixels"`
	MaxUploadBytes    int64          `json:"max_upload_bytes"`
}

// parseJson overlays the values present in the file named by -c/-config.
// Keys missing from the file keep their current value.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidity.Duration > 0 {
		config.TokenValidity = c.TokenValidity.Duration
	}
	setString(&config.InstitutionDomain, c.InstitutionDomain)
	if c.CodeTTL.Duration > 0 {
		config.CodeTTL = c.CodeTTL.Duration
	}
	setString(&config.DataDir, c.DataDir)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.AuthRatePerMinute, c.AuthRatePerMinute)
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setInt(&config.MailQueueSize, c.MailQueueSize)
	setInt(&config.MailWorkers, c.MailWorkers)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setInt(&config.MaxTemplatePixels, c.MaxTemplatePixels)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
