// Package config loads gateway configuration from GATEWAY_-prefixed
// environment variables and an optional YAML file via Viper, with the
// precedence env > file > default. No per-setting command-line flags are
// bound; the cli's --config flag only selects the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete set of tunables the gateway's main wiring reads
// at startup.
type Config struct {
	Port  int
	Debug bool

	PluginVersion string

	RevisionCacheSize  int
	TraceMaxEntries    int
	TraceMaxBytes      int
	TraceFlushEvery    int
	TraceFlushInterval time.Duration

	SessionTTL time.Duration

	RedisURL string

	PersistenceBackend string // "memory", "bolt", "couch"
	BoltPath           string
	CouchURL           string
	CouchDatabase      string

	PostgresDSN string // empty = in-memory event ring fallback

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	MetricsNamespace string

	RateLimit float64 // HTTP requests per second per client IP (Echo rate limiter, all routes), 0 = unlimited
}

// Load reads configuration via Viper: defaults, then a YAML file (if
// present), then GATEWAY_-prefixed environment variables, with
// viper.Get* calls already reflecting that precedence.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cubeforge")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Config{
		Port:               v.GetInt("port"),
		Debug:              v.GetBool("debug"),
		PluginVersion:      v.GetString("plugin_version"),
		RevisionCacheSize:  v.GetInt("revision.cache_size"),
		TraceMaxEntries:    v.GetInt("trace.max_entries"),
		TraceMaxBytes:      v.GetInt("trace.max_bytes"),
		TraceFlushEvery:    v.GetInt("trace.flush_every"),
		TraceFlushInterval: v.GetDuration("trace.flush_interval"),
		SessionTTL:         v.GetDuration("session.ttl"),
		RedisURL:           v.GetString("redis.url"),
		PersistenceBackend: v.GetString("persistence.backend"),
		BoltPath:           v.GetString("persistence.bolt_path"),
		CouchURL:           v.GetString("persistence.couch_url"),
		CouchDatabase:      v.GetString("persistence.couch_database"),
		PostgresDSN:        v.GetString("postgres.dsn"),
		S3Bucket:           v.GetString("s3.bucket"),
		S3Region:           v.GetString("s3.region"),
		S3Endpoint:         v.GetString("s3.endpoint"),
		S3AccessKey:        v.GetString("s3.access_key"),
		S3SecretKey:        v.GetString("s3.secret_key"),
		MetricsNamespace:   v.GetString("metrics.namespace"),
		RateLimit:          v.GetFloat64("rate_limit"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8787)
	v.SetDefault("debug", false)
	v.SetDefault("plugin_version", "0.1.0")
	v.SetDefault("revision.cache_size", 64)
	v.SetDefault("trace.max_entries", 2000)
	v.SetDefault("trace.max_bytes", 10*1024*1024)
	v.SetDefault("trace.flush_every", 50)
	v.SetDefault("trace.flush_interval", 5*time.Second)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("persistence.backend", "memory")
	v.SetDefault("persistence.bolt_path", "gateway.db")
	v.SetDefault("persistence.couch_url", "http://localhost:5984")
	v.SetDefault("persistence.couch_database", "gateway_pipeline")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("metrics.namespace", "cubeforge_gateway")
	v.SetDefault("rate_limit", 0.0)
}
