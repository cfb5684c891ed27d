// Package config loads netwarden settings from defaults, an optional YAML
// file, and NW_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of the settings consumed by the monitoring core.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Pulse      PulseConfig      `mapstructure:"pulse"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Events     EventsConfig     `mapstructure:"events"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
	DevMode    bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PulseConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	RotateEvery  int           `mapstructure:"rotate_every"`
}

type ProbeConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	Count      int           `mapstructure:"count"`
	MinReplies int           `mapstructure:"min_replies"`
	Privileged bool          `mapstructure:"privileged"`
}

type CollectorsConfig struct {
	SSH   SSHConfig   `mapstructure:"ssh"`
	SNMP  SNMPConfig  `mapstructure:"snmp"`
	WinRM WinRMConfig `mapstructure:"winrm"`
}

type SSHConfig struct {
	Port         int           `mapstructure:"port"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
	ExecTimeout  time.Duration `mapstructure:"exec_timeout"`
	Command      string        `mapstructure:"command"`
}

type SNMPConfig struct {
	Port      int           `mapstructure:"port"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	Community string        `mapstructure:"community"`
	Version   string        `mapstructure:"version"`
}

type WinRMConfig struct {
	Port     int           `mapstructure:"port"`
	HTTPS    bool          `mapstructure:"https"`
	Insecure bool          `mapstructure:"insecure"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type VaultConfig struct {
	Key string `mapstructure:"key"`
}

type JournalConfig struct {
	File     string `mapstructure:"file"`
	MaxLines int    `mapstructure:"max_lines"`
}

type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/netwarden.db")

	v.SetDefault("pulse.interval", "60s")
	v.SetDefault("pulse.cycle_timeout", "55s")
	v.SetDefault("pulse.rotate_every", 100)

	v.SetDefault("probe.timeout", "3s")
	v.SetDefault("probe.count", 1)
	v.SetDefault("probe.min_replies", 1)
	v.SetDefault("probe.privileged", runtime.GOOS == "windows")

	v.SetDefault("collectors.ssh.port", 22)
	v.SetDefault("collectors.ssh.ready_timeout", "5s")
	v.SetDefault("collectors.ssh.exec_timeout", "10s")
	v.SetDefault("collectors.ssh.command", "/system resource print")
	v.SetDefault("collectors.snmp.port", 161)
	v.SetDefault("collectors.snmp.timeout", "3s")
	v.SetDefault("collectors.snmp.retries", 1)
	v.SetDefault("collectors.snmp.community", "public")
	v.SetDefault("collectors.snmp.version", "2c")
	v.SetDefault("collectors.winrm.port", 5985)
	v.SetDefault("collectors.winrm.https", false)
	v.SetDefault("collectors.winrm.insecure", false)
	v.SetDefault("collectors.winrm.timeout", "10s")

	v.SetDefault("vault.key", "")
	v.SetDefault("journal.file", "./logs/surveillance.log")
	v.SetDefault("journal.max_lines", 10000)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "netwarden")
}

// Load builds a Viper instance from defaults, the config file, and the
// environment. A missing config file is not an error.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("netwarden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/netwarden")
	}

	// NW_PULSE_INTERVAL=30s overrides pulse.interval.
	v.SetEnvPrefix("NW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// Monitoring unmarshals the typed configuration and validates it.
func Monitoring(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the scheduler and collectors cannot run with.
func (c Config) Validate() error {
	if c.Pulse.Interval <= 0 {
		return fmt.Errorf("pulse.interval must be positive, got %s", c.Pulse.Interval)
	}
	if c.Pulse.CycleTimeout <= 0 {
		return fmt.Errorf("pulse.cycle_timeout must be positive, got %s", c.Pulse.CycleTimeout)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout)
	}
	if c.Probe.MinReplies < 1 || c.Probe.Count < c.Probe.MinReplies {
		return fmt.Errorf("probe.count (%d) must be >= probe.min_replies (%d) >= 1", c.Probe.Count, c.Probe.MinReplies)
	}
	switch c.Collectors.SNMP.Version {
	case "1", "2c":
	default:
		return fmt.Errorf("collectors.snmp.version must be \"1\" or \"2c\", got %q", c.Collectors.SNMP.Version)
	}
	if c.Journal.MaxLines < 1 {
		return fmt.Errorf("journal.max_lines must be positive, got %d", c.Journal.MaxLines)
	}
	return nil
}
