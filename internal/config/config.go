package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // time zones resolve without system zoneinfo

	"github.com/spf13/viper"
)

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	TimeZone  string `mapstructure:"time_zone"`
	// Schedules disables registration of the cron schedules when false.
	Schedules bool `mapstructure:"schedules"`
}

type BackupConfig struct {
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	Tables          []string      `mapstructure:"tables"`
	Window          time.Duration `mapstructure:"window"`
	MaxBackups      int           `mapstructure:"max_backups"`
	CredentialsFile string        `mapstructure:"credentials_file"`
}

type NotificationConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

type Config struct {
	DatabaseURL    string             `mapstructure:"database_url"`
	ServerPort     string             `mapstructure:"server_port"`
	JWTSecret      string             `mapstructure:"jwt_secret"`
	AllowedOrigins []string           `mapstructure:"allowed_origins"`
	Temporal       TemporalConfig     `mapstructure:"temporal"`
	Backup         BackupConfig       `mapstructure:"backup"`
	Notifications  NotificationConfig `mapstructure:"notifications"`
	Email          EmailConfig        `mapstructure:"email"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	AppURL   string `mapstructure:"app_url"`
}

// DefaultBackupTables are the tables exported by every backup run. Notifications are excluded.
var DefaultBackupTables = []string{
	"users",
	"projects",
	"project_workers",
	"project_invitations",
	"payments",
	"expenses",
	"work_hours",
	"rewards",
	"reward_history",
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("Error reading config file: %v", err)
		}
		log.Println("No config file found, relying on environment")
	}

	config, err := FromViper(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return config
}

// FromViper applies environment overrides and defaults to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("workforce")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if config.JWTSecret == "" {
		return nil, errors.New("jwt_secret must be set")
	}
	if config.DatabaseURL == "" {
		return nil, errors.New("database_url must be set")
	}
	if len(config.Backup.Tables) == 0 {
		config.Backup.Tables = append([]string(nil), DefaultBackupTables...)
	}
	if _, err := time.LoadLocation(config.Temporal.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid temporal.time_zone %q: %w", config.Temporal.TimeZone, err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "WORKFORCE_MAINTENANCE")
	v.SetDefault("temporal.time_zone", "Asia/Singapore")
	v.SetDefault("temporal.schedules", true)

	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.prefix", "backups/")
	v.SetDefault("backup.window", 7*24*time.Hour)
	v.SetDefault("backup.max_backups", 2)
	v.SetDefault("backup.credentials_file", "")

	v.SetDefault("notifications.retention", 14*24*time.Hour)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.app_url", "http://localhost:3000")
}
