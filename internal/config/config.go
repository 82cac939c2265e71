// Package config handles loading of runtime settings and of the optional lake
// layout file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/BartekS5/lakecheck/pkg/database"
)

// Sink kinds.
const (
	SinkFile  = "file"
	SinkMongo = "mongo"
	SinkSQL   = "sql"
	SinkKafka = "kafka"
)

// Config holds all configuration for the application, loaded from
// LAKECHECK_* environment variables (populated by the .env file in main.go)
// and an optional lakecheck.yaml in the working directory.
type Config struct {
	Root          string `mapstructure:"root"`
	Output        string `mapstructure:"output"`
	Layout        string `mapstructure:"layout"`
	Workers       int    `mapstructure:"workers"`
	Sink          string `mapstructure:"sink"`
	Strict        bool   `mapstructure:"strict"`
	DryRun        bool   `mapstructure:"dry_run"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
	MetricsFile   string `mapstructure:"metrics_file"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
	LogFile       string `mapstructure:"log_file"`
	Debug         bool   `mapstructure:"debug"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	SQLDriver     string `mapstructure:"sql_driver"`
	SQLDSN        string `mapstructure:"sql_dsn"`
	KafkaBrokers  string `mapstructure:"kafka_brokers"`
	KafkaTopic    string `mapstructure:"kafka_topic"`
}

var defaults = map[string]interface{}{
	"root":           "test-data",
	"output":         "processed-data/processed_data.json",
	"workers":        1,
	"sink":           SinkFile,
	"mongo_database": "lakecheck",
	"sql_driver":     database.DriverSQLite,
	"kafka_topic":    "lakecheck.reports",
}

// LoadConfig loads application settings. A missing lakecheck.yaml is not an
// error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("lakecheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LAKECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	bindEnvs(v, Config{})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read lakecheck.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// bindEnvs registers every mapstructure key of cfg so viper consults the
// matching environment variable when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any) {
	typ := reflect.TypeOf(cfg)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			_ = v.BindEnv(tag)
		}
	}
}

// Brokers splits the comma separated broker list.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate reports settings that cannot produce a run.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("lake root is not set")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.Sink {
	case SinkFile:
		if c.Output == "" {
			return errors.New("output path is not set")
		}
	case SinkMongo:
		if c.MongoURI == "" {
			return errors.New("LAKECHECK_MONGO_URI environment variable not set")
		}
	case SinkSQL:
		if c.SQLDSN == "" {
			return errors.New("LAKECHECK_SQL_DSN environment variable not set")
		}
		if c.SQLDriver != database.DriverSQLServer && c.SQLDriver != database.DriverSQLite {
			return fmt.Errorf("unsupported sql driver '%s'", c.SQLDriver)
		}
	case SinkKafka:
		if len(c.Brokers()) == 0 {
			return errors.New("LAKECHECK_KAFKA_BROKERS environment variable not set")
		}
	default:
		return fmt.Errorf("unknown sink '%s'", c.Sink)
	}
	return nil
}
