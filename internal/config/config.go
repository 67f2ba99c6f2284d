package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration for all station binaries.
// Precedence: environment (ATTEND_ prefix) > config file > defaults.
type Config struct {
	DBPath  string        `mapstructure:"db_path"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Badge   BadgeConfig   `mapstructure:"badge"`
	Report  ReportConfig  `mapstructure:"report"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

// LogConfig selects log level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig is the active (subject, room) pair for the scan station.
type SessionConfig struct {
	Subject string `mapstructure:"subject"`
	Room    string `mapstructure:"room"`
}

// ScanConfig tunes the live scan loop. Image, when set, switches the
// station to a one-shot decode of that still image.
type ScanConfig struct {
	CameraIndex int           `mapstructure:"camera_index"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	Image       string        `mapstructure:"image"`
}

// BadgeConfig is the student identity for badge generation.
type BadgeConfig struct {
	StudentID   string `mapstructure:"student_id"`
	StudentName string `mapstructure:"student_name"`
	Out         string `mapstructure:"out"`
	Size        int    `mapstructure:"size"`
}

// ReportConfig drives the history/statistics report. Date defaults to
// today; Export, when set, also writes the filtered records to that path.
type ReportConfig struct {
	Date    string `mapstructure:"date"`
	Subject string `mapstructure:"subject"`
	Export  string `mapstructure:"export"`
}

// AdminConfig drives subject and record administration. Each field selects
// one explicit operator action; empty/zero fields are skipped.
type AdminConfig struct {
	AddSubject    string `mapstructure:"add_subject"`
	DeleteSubject string `mapstructure:"delete_subject"`
	DeleteRecord  int64  `mapstructure:"delete_record"`
}

// Load reads config from an optional file and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", "./attendance.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("scan.camera_index", 0)
	v.SetDefault("scan.cooldown", "3s")
	v.SetDefault("scan.image", "")

	v.SetDefault("session.subject", "")
	v.SetDefault("session.room", "")

	v.SetDefault("badge.student_id", "")
	v.SetDefault("badge.student_name", "")
	v.SetDefault("badge.out", "./badge.png")
	v.SetDefault("badge.size", 280)

	v.SetDefault("admin.add_subject", "")
	v.SetDefault("admin.delete_subject", "")
	v.SetDefault("admin.delete_record", 0)

	v.SetDefault("report.date", "")
	v.SetDefault("report.subject", "")
	v.SetDefault("report.export", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ATTEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file: defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every binary depends on.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}
	if c.Scan.Cooldown < 0 {
		return fmt.Errorf("config: scan.cooldown must not be negative")
	}
	if c.Badge.Size < 0 {
		return fmt.Errorf("config: badge.size must not be negative")
	}
	return nil
}
