package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Job       JobConfig        `mapstructure:"job"`
	Secrets   SecretsConfig    `mapstructure:"secrets"`
	Snapshot  SnapshotConfig   `mapstructure:"snapshot"`
	Sync      SyncConfig       `mapstructure:"sync"`
	Archive   ArchiveConfig    `mapstructure:"archive"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Notifiers []NotifierConfig `mapstructure:"notifiers"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	LockPath string `mapstructure:"lock_path"`
}

type JobConfig struct {
	// Kind selects which pipelines run: "files" (snapshot + sync +
	// weekly archives) or "database" (dumps + local retention).
	Kind     string `mapstructure:"kind"`
	Schedule string `mapstructure:"schedule"`
}

type SecretsConfig struct {
	Region          string `mapstructure:"region"`
	KeyParameter    string `mapstructure:"key_parameter"`
	BucketParameter string `mapstructure:"bucket_parameter"`
}

type SnapshotConfig struct {
	// Marker is the fixed schema prefix snapshot identifiers carry in
	// the bucket listing, ahead of the calendar date.
	Marker        string `mapstructure:"marker"`
	MountPoint    string `mapstructure:"mount_point"`
	Sentinel      string `mapstructure:"sentinel"`
	MountBinary   string `mapstructure:"mount_binary"`
	UnmountBinary string `mapstructure:"unmount_binary"`
}

type SyncConfig struct {
	Binary      string `mapstructure:"binary"`
	Source      string `mapstructure:"source"`
	Destination string `mapstructure:"destination"`
	Threads     int    `mapstructure:"threads"`
	KeepDays    int    `mapstructure:"keep_days"`
}

type ArchiveConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	UnitRoot     string         `mapstructure:"unit_root"`
	Exclude      []string       `mapstructure:"exclude"`
	Weekday      string         `mapstructure:"weekday"`
	RemotePrefix string         `mapstructure:"remote_prefix"`
	// RetentionDays bounds how long uploaded archives stay on the
	// targets. Zero disables remote pruning.
	RetentionDays int            `mapstructure:"retention_days"`
	Targets       []TargetConfig `mapstructure:"targets"`
}

type TargetConfig struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// S3
	Prefix string `mapstructure:"prefix"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DefaultsFile  string `mapstructure:"defaults_file"`
	DumpDir       string `mapstructure:"dump_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type NotifierConfig struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Mail
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	From   string `mapstructure:"from"`
	To     string `mapstructure:"to"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "argus")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.lock_path", "/var/lock/argus.lock")
	v.SetDefault("secrets.region", "us-east-1")
	v.SetDefault("snapshot.marker", "snap-")
	v.SetDefault("snapshot.sentinel", ".sentinel")
	v.SetDefault("snapshot.mount_binary", "mount.objectivefs")
	v.SetDefault("snapshot.unmount_binary", "umount")
	v.SetDefault("sync.binary", "b2")
	v.SetDefault("sync.threads", 10)
	v.SetDefault("sync.keep_days", 30)
	v.SetDefault("archive.weekday", "Sunday")
	v.SetDefault("archive.retention_days", 90)
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.retention_days", 14)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Job.Kind {
	case "files":
		if c.Sync.Source == "" {
			return fmt.Errorf("sync.source is required for files jobs")
		}
		if c.Sync.Destination == "" {
			return fmt.Errorf("sync.destination is required for files jobs")
		}
		if c.Snapshot.MountPoint == "" {
			return fmt.Errorf("snapshot.mount_point is required for files jobs")
		}
		if c.Archive.Enabled {
			if c.Archive.UnitRoot == "" {
				return fmt.Errorf("archive.unit_root is required when archiving is enabled")
			}
			if _, err := c.ArchiveWeekday(); err != nil {
				return err
			}
		}
	case "database":
		if c.Database.DumpDir == "" {
			return fmt.Errorf("database.dump_dir is required for database jobs")
		}
		if c.Database.DefaultsFile == "" {
			return fmt.Errorf("database.defaults_file is required for database jobs")
		}
	default:
		return fmt.Errorf("job.kind must be \"files\" or \"database\", got %q", c.Job.Kind)
	}

	if c.Secrets.KeyParameter == "" {
		return fmt.Errorf("secrets.key_parameter is required")
	}
	if c.Secrets.BucketParameter == "" {
		return fmt.Errorf("secrets.bucket_parameter is required")
	}

	for i, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch n.Type {
		case "mail":
			if n.Host == "" || n.From == "" || n.To == "" {
				return fmt.Errorf("notifiers[%d]: mail requires host, from and to", i)
			}
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return fmt.Errorf("notifiers[%d]: telegram requires bot_token and chat_id", i)
			}
		default:
			return fmt.Errorf("notifiers[%d]: unknown type %q", i, n.Type)
		}
	}

	return nil
}

// ArchiveWeekday parses the configured archive trigger day.
func (c *Config) ArchiveWeekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == c.Archive.Weekday {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("archive.weekday: unknown day %q", c.Archive.Weekday)
}

func (c *Config) GetEnabledNotifiers() []NotifierConfig {
	var enabled []NotifierConfig
	for _, n := range c.Notifiers {
		if n.Enabled {
			enabled = append(enabled, n)
		}
	}
	return enabled
}

func (c *Config) GetEnabledTargets() []TargetConfig {
	var enabled []TargetConfig
	for _, t := range c.Archive.Targets {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}
