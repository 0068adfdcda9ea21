package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap/zapcore"
)

const (
	DEFAULT_PORT                       = 6001
	DEFAULT_HOMIE_PORT                 = 1883
	DEFAULT_HOMIE_PREFIX               = "homie"
	DEFAULT_RECONNECT_INTERVAL_SECONDS = 5
	DEFAULT_REQUEST_SYNC_RATE_LIMIT    = 10
	DEFAULT_REPORT_TIMEOUT_MILLIS      = 5000
)

type Config struct {
	LogLevel zapcore.Level
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
	Secrets  SecretsConfig `mapstructure:"secrets"`
	Google   GoogleConfig  `mapstructure:"google"`
	Users    []UserConfig  `mapstructure:"users"`
}

type SecretsConfig struct {
	AccessKey string `mapstructure:"access_key"`
}

type GoogleConfig struct {
	CredentialsFile             string `mapstructure:"credentials_file"`
	ProjectId                   string `mapstructure:"project_id"`
	RequestSyncRateLimitSeconds uint32 `mapstructure:"request_sync_rate_limit_seconds"`
	ReportTimeoutMillis         uint32 `mapstructure:"report_timeout_millis"`
	ResyncCron                  string `mapstructure:"resync_cron"`
}

type UserConfig struct {
	Id    string
	Email string
	Homie *HomieConfig
}

type HomieConfig struct {
	Host                     string
	Port                     int
	UseTLS                   bool `mapstructure:"use_tls"`
	Username                 string
	Password                 string
	ClientId                 string `mapstructure:"client_id"`
	HomiePrefix              string `mapstructure:"homie_prefix"`
	ReconnectIntervalSeconds uint32 `mapstructure:"reconnect_interval_seconds"`
}

// Enabled reports whether HomeGraph reporting is configured.
func (c GoogleConfig) Enabled() bool {
	return c.CredentialsFile != ""
}

func (c GoogleConfig) RequestSyncRateLimit() time.Duration {
	return time.Duration(c.RequestSyncRateLimitSeconds) * time.Second
}

func (c GoogleConfig) ReportTimeout() time.Duration {
	return time.Duration(c.ReportTimeoutMillis) * time.Millisecond
}

func (c HomieConfig) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalSeconds) * time.Second
}

// User finds a configured user by id.
func (c *Config) User(id string) (*UserConfig, bool) {
	for i := range c.Users {
		if c.Users[i].Id == id {
			return &c.Users[i], true
		}
	}
	return nil, false
}

// ApplyDefaults fills the per user defaults viper cannot express for list
// entries.
func (c *Config) ApplyDefaults() {
	if c.Google.RequestSyncRateLimitSeconds == 0 {
		c.Google.RequestSyncRateLimitSeconds = DEFAULT_REQUEST_SYNC_RATE_LIMIT
	}
	if c.Google.ReportTimeoutMillis == 0 {
		c.Google.ReportTimeoutMillis = DEFAULT_REPORT_TIMEOUT_MILLIS
	}
	for i := range c.Users {
		u := &c.Users[i]
		u.Id = strings.ToLower(u.Id)
		h := u.Homie
		if h == nil {
			continue
		}
		if h.Port == 0 {
			h.Port = DEFAULT_HOMIE_PORT
		}
		if h.HomiePrefix == "" {
			h.HomiePrefix = DEFAULT_HOMIE_PREFIX
		}
		if h.ReconnectIntervalSeconds == 0 {
			h.ReconnectIntervalSeconds = DEFAULT_RECONNECT_INTERVAL_SECONDS
		}
		if h.ClientId == "" && len(u.Id) >= 8 {
			h.ClientId = "homie2google-" + u.Id[:8]
		}
	}
}

func (c *Config) Validate() error {
	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Google.RequestSyncRateLimitSeconds < 1 {
		return errors.New("google.request_sync_rate_limit_seconds must be at least 1")
	}
	if c.Google.ResyncCron != "" {
		if _, err := quartz.NewCronTrigger(c.Google.ResyncCron); err != nil {
			return fmt.Errorf("invalid google.resync_cron: %w", err)
		}
	}
	seen := map[string]bool{}
	for i := range c.Users {
		u := &c.Users[i]
		if _, err := uuid.Parse(u.Id); err != nil {
			return fmt.Errorf("user %d: invalid id %q: %w", i, u.Id, err)
		}
		if seen[u.Id] {
			return fmt.Errorf("user %d: duplicated id %s", i, u.Id)
		}
		seen[u.Id] = true
		if u.Homie == nil {
			continue
		}
		if u.Homie.Host == "" {
			return fmt.Errorf("user %s: homie.host is required", u.Id)
		}
		if u.Homie.Port <= 0 || u.Homie.Port > 65535 {
			return fmt.Errorf("user %s: invalid homie.port %d", u.Id, u.Homie.Port)
		}
		prefix, err := CheckMQTTTopic(u.Homie.HomiePrefix)
		if err != nil {
			return fmt.Errorf("user %s: invalid homie.homie_prefix: %w", u.Id, err)
		}
		u.Homie.HomiePrefix = prefix
		if u.Homie.ReconnectIntervalSeconds < 1 {
			return fmt.Errorf("user %s: homie.reconnect_interval_seconds must be at least 1", u.Id)
		}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Secrets.AccessKey != "" {
		c.Secrets.AccessKey = "*****"
	}
	users := make([]UserConfig, len(c.Users))
	for i, u := range c.Users {
		if u.Homie != nil {
			h := *u.Homie
			if h.Password != "" {
				h.Password = "*****"
			}
			u.Homie = &h
		}
		users[i] = u
	}
	c.Users = users
	return c
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_-]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers, hyphens and underscores")
	}
	return lowerBaseTopic, nil
}
