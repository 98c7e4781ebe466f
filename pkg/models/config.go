package models

import (
	"fmt"
	"time"
)

type GlobalConfig struct {
	Paths    PathsConfig    `toml:"paths" json:"paths"`
	SSH      SSHConfig      `toml:"ssh" json:"ssh"`
	Email    EmailConfig    `toml:"email" json:"email"`
	Schedule ScheduleConfig `toml:"schedule" json:"schedule"`
	Runtime  RuntimeConfig  `toml:"runtime" json:"runtime"`
	Timeouts TimeoutsConfig `toml:"timeouts" json:"timeouts"`
	Logging  LoggingConfig  `toml:"logging" json:"logging"`
	Backup   BackupConfig   `toml:"backup" json:"backup"`
}

type PathsConfig struct {
	DockerParent string `toml:"docker_parent" json:"docker_parent"`
	RemoteRoot   string `toml:"remote_root" json:"remote_root"`
	ScratchDir   string `toml:"scratch_dir" json:"scratch_dir"`
}

type Transport string

const (
	TransportSSH   Transport = "ssh"
	TransportLocal Transport = "local"
)

type SSHConfig struct {
	Transport             Transport `toml:"transport" json:"transport"`
	Host                  string    `toml:"host" json:"host"`
	User                  string    `toml:"user" json:"user"`
	Port                  int       `toml:"port" json:"port"`
	Key                   string    `toml:"key" json:"key"`
	Passphrase            string    `toml:"passphrase,omitempty" json:"-"`
	KnownHosts            string    `toml:"known_hosts" json:"known_hosts"`
	InsecureIgnoreHostKey bool      `toml:"insecure_ignore_host_key" json:"insecure_ignore_host_key"`
}

func (c SSHConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type EmailConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	Host      string `toml:"host" json:"host"`
	Port      int    `toml:"port" json:"port"`
	User      string `toml:"user" json:"user"`
	Password  string `toml:"password,omitempty" json:"-"`
	Recipient string `toml:"recipient" json:"recipient"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron" json:"cron"`
}

type RuntimeConfig struct {
	SocketPath  string `toml:"socket_path" json:"socket_path"`
	HelperImage string `toml:"helper_image" json:"helper_image"`
	TLSCA       string `toml:"tls_ca" json:"tls_ca"`
	TLSCert     string `toml:"tls_cert" json:"tls_cert"`
	TLSKey      string `toml:"tls_key" json:"tls_key"`
}

type TimeoutsConfig struct {
	Archive       Duration `toml:"archive" json:"archive"`
	Transfer      Duration `toml:"transfer" json:"transfer"`
	RemoteCommand Duration `toml:"remote_command" json:"remote_command"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

type BackupConfig struct {
	UploadConfig bool `toml:"upload_config" json:"upload_config"`
}

// Duration round-trips through TOML and JSON as a Go duration string.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}
