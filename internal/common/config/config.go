// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	HTTP          HTTPConfig         `mapstructure:"http"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Channel       ChannelConfig      `mapstructure:"channel"`
	Dispatcher    DispatcherConfig   `mapstructure:"dispatcher"`
	Listener      ListenerConfig     `mapstructure:"listener"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Search        SearchConfig       `mapstructure:"search"`
	Reconcile     ReconcileConfig    `mapstructure:"reconcile"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address         string  `mapstructure:"address"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"` // milliseconds
	RateLimit       float64 `mapstructure:"rate_limit"`       // submissions per second
	RateBurst       int     `mapstructure:"rate_burst"`
	MaxUploadBytes  int64   `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // postgres | sqlite3
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GetDSN returns the go-sqlite3 data source name.
func (s SQLiteConfig) GetDSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", s.Path)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ChannelConfig names the pub/sub topics shared with the analysis worker.
type ChannelConfig struct {
	RequestTopic  string `mapstructure:"request_topic"`
	ResponseTopic string `mapstructure:"response_topic"`
}

type DispatcherConfig struct {
	WaitTimeout int `mapstructure:"wait_timeout"` // milliseconds
}

type ListenerConfig struct {
	Consumers int `mapstructure:"consumers"`
	Buffer    int `mapstructure:"buffer"`
}

// StorageConfig points at an S3-compatible bucket (MinIO in development).
type StorageConfig struct {
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	Endpoint   string `mapstructure:"endpoint"`
	Prefix     string `mapstructure:"prefix"`
	PresignTTL int    `mapstructure:"presign_ttl"` // milliseconds
}

// Enabled reports whether uploads are configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

type NotificationConfig struct {
	Region      string `mapstructure:"region"`
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
}

func (n NotificationConfig) Enabled() bool {
	return n.SNSTopicARN != ""
}

type SearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

func (s SearchConfig) Enabled() bool {
	return len(s.Addresses) > 0
}

type ReconcileConfig struct {
	StaleAfter int `mapstructure:"stale_after"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
