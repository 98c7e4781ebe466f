package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aelpxy/dockup/internal/logging"
	"github.com/aelpxy/dockup/internal/schedule"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/aelpxy/dockup/pkg/models"
)

// Key names one settable configuration value.
type Key int

const (
	KeyDockerParent Key = iota
	KeyRemoteRoot
	KeyScratchDir
	KeySSHTransport
	KeySSHHost
	KeySSHUser
	KeySSHPort
	KeySSHKey
	KeySSHPassphrase
	KeySSHKnownHosts
	KeySSHInsecureIgnoreHostKey
	KeyEmailEnabled
	KeyEmailHost
	KeyEmailPort
	KeyEmailUser
	KeyEmailPassword
	KeyEmailRecipient
	KeyScheduleCron
	KeyRuntimeSocket
	KeyRuntimeHelperImage
	KeyRuntimeTLSCA
	KeyRuntimeTLSCert
	KeyRuntimeTLSKey
	KeyTimeoutArchive
	KeyTimeoutTransfer
	KeyTimeoutRemoteCommand
	KeyLoggingLevel
	KeyLoggingFile
	KeyBackupUploadConfig

	keyCount
)

type keyDef struct {
	name   string
	secret bool
	get    func(*models.GlobalConfig) string
	set    func(*models.GlobalConfig, string) error
}

// keyDefs is indexed by Key; the array length ties it to the enumeration.
var keyDefs = [keyCount]keyDef{
	KeyDockerParent: {
		name: "paths.docker_parent",
		get:  func(c *models.GlobalConfig) string { return c.Paths.DockerParent },
		set:  func(c *models.GlobalConfig, v string) error { return setPath(&c.Paths.DockerParent, v) },
	},
	KeyRemoteRoot: {
		name: "paths.remote_root",
		get:  func(c *models.GlobalConfig) string { return c.Paths.RemoteRoot },
		set:  func(c *models.GlobalConfig, v string) error { return setRequired(&c.Paths.RemoteRoot, v) },
	},
	KeyScratchDir: {
		name: "paths.scratch_dir",
		get:  func(c *models.GlobalConfig) string { return c.Paths.ScratchDir },
		set:  func(c *models.GlobalConfig, v string) error { return setPath(&c.Paths.ScratchDir, v) },
	},
	KeySSHTransport: {
		name: "ssh.transport",
		get:  func(c *models.GlobalConfig) string { return string(c.SSH.Transport) },
		set: func(c *models.GlobalConfig, v string) error {
			switch t := models.Transport(strings.ToLower(strings.TrimSpace(v))); t {
			case models.TransportSSH, models.TransportLocal:
				c.SSH.Transport = t
				return nil
			}
			return fmt.Errorf("transport must be %q or %q", models.TransportSSH, models.TransportLocal)
		},
	},
	KeySSHHost: {
		name: "ssh.host",
		get:  func(c *models.GlobalConfig) string { return c.SSH.Host },
		set:  func(c *models.GlobalConfig, v string) error { return setRequired(&c.SSH.Host, v) },
	},
	KeySSHUser: {
		name: "ssh.user",
		get:  func(c *models.GlobalConfig) string { return c.SSH.User },
		set:  func(c *models.GlobalConfig, v string) error { return setRequired(&c.SSH.User, v) },
	},
	KeySSHPort: {
		name: "ssh.port",
		get:  func(c *models.GlobalConfig) string { return strconv.Itoa(c.SSH.Port) },
		set:  func(c *models.GlobalConfig, v string) error { return setPort(&c.SSH.Port, v) },
	},
	KeySSHKey: {
		name: "ssh.key",
		get:  func(c *models.GlobalConfig) string { return c.SSH.Key },
		set:  func(c *models.GlobalConfig, v string) error { c.SSH.Key = strings.TrimSpace(v); return nil },
	},
	KeySSHPassphrase: {
		name:   "ssh.passphrase",
		secret: true,
		get:    func(c *models.GlobalConfig) string { return c.SSH.Passphrase },
		set:    func(c *models.GlobalConfig, v string) error { c.SSH.Passphrase = v; return nil },
	},
	KeySSHKnownHosts: {
		name: "ssh.known_hosts",
		get:  func(c *models.GlobalConfig) string { return c.SSH.KnownHosts },
		set:  func(c *models.GlobalConfig, v string) error { c.SSH.KnownHosts = strings.TrimSpace(v); return nil },
	},
	KeySSHInsecureIgnoreHostKey: {
		name: "ssh.insecure_ignore_host_key",
		get:  func(c *models.GlobalConfig) string { return strconv.FormatBool(c.SSH.InsecureIgnoreHostKey) },
		set:  func(c *models.GlobalConfig, v string) error { return setBool(&c.SSH.InsecureIgnoreHostKey, v) },
	},
	KeyEmailEnabled: {
		name: "email.enabled",
		get:  func(c *models.GlobalConfig) string { return strconv.FormatBool(c.Email.Enabled) },
		set:  func(c *models.GlobalConfig, v string) error { return setBool(&c.Email.Enabled, v) },
	},
	KeyEmailHost: {
		name: "email.host",
		get:  func(c *models.GlobalConfig) string { return c.Email.Host },
		set:  func(c *models.GlobalConfig, v string) error { c.Email.Host = strings.TrimSpace(v); return nil },
	},
	KeyEmailPort: {
		name: "email.port",
		get:  func(c *models.GlobalConfig) string { return strconv.Itoa(c.Email.Port) },
		set:  func(c *models.GlobalConfig, v string) error { return setPort(&c.Email.Port, v) },
	},
	KeyEmailUser: {
		name: "email.user",
		get:  func(c *models.GlobalConfig) string { return c.Email.User },
		set:  func(c *models.GlobalConfig, v string) error { c.Email.User = strings.TrimSpace(v); return nil },
	},
	KeyEmailPassword: {
		name:   "email.password",
		secret: true,
		get:    func(c *models.GlobalConfig) string { return c.Email.Password },
		set:    func(c *models.GlobalConfig, v string) error { c.Email.Password = v; return nil },
	},
	KeyEmailRecipient: {
		name: "email.recipient",
		get:  func(c *models.GlobalConfig) string { return c.Email.Recipient },
		set:  func(c *models.GlobalConfig, v string) error { c.Email.Recipient = strings.TrimSpace(v); return nil },
	},
	KeyScheduleCron: {
		name: "schedule.cron",
		get:  func(c *models.GlobalConfig) string { return c.Schedule.Cron },
		set: func(c *models.GlobalConfig, v string) error {
			if err := schedule.Validate(v); err != nil {
				return err
			}
			c.Schedule.Cron = strings.TrimSpace(v)
			return nil
		},
	},
	KeyRuntimeSocket: {
		name: "runtime.socket_path",
		get:  func(c *models.GlobalConfig) string { return c.Runtime.SocketPath },
		set:  func(c *models.GlobalConfig, v string) error { c.Runtime.SocketPath = strings.TrimSpace(v); return nil },
	},
	KeyRuntimeHelperImage: {
		name: "runtime.helper_image",
		get:  func(c *models.GlobalConfig) string { return c.Runtime.HelperImage },
		set:  func(c *models.GlobalConfig, v string) error { return setRequired(&c.Runtime.HelperImage, v) },
	},
	KeyRuntimeTLSCA: {
		name: "runtime.tls_ca",
		get:  func(c *models.GlobalConfig) string { return c.Runtime.TLSCA },
		set:  func(c *models.GlobalConfig, v string) error { c.Runtime.TLSCA = strings.TrimSpace(v); return nil },
	},
	KeyRuntimeTLSCert: {
		name: "runtime.tls_cert",
		get:  func(c *models.GlobalConfig) string { return c.Runtime.TLSCert },
		set:  func(c *models.GlobalConfig, v string) error { c.Runtime.TLSCert = strings.TrimSpace(v); return nil },
	},
	KeyRuntimeTLSKey: {
		name: "runtime.tls_key",
		get:  func(c *models.GlobalConfig) string { return c.Runtime.TLSKey },
		set:  func(c *models.GlobalConfig, v string) error { c.Runtime.TLSKey = strings.TrimSpace(v); return nil },
	},
	KeyTimeoutArchive: {
		name: "timeouts.archive",
		get:  func(c *models.GlobalConfig) string { return c.Timeouts.Archive.String() },
		set:  func(c *models.GlobalConfig, v string) error { return setDuration(&c.Timeouts.Archive, v) },
	},
	KeyTimeoutTransfer: {
		name: "timeouts.transfer",
		get:  func(c *models.GlobalConfig) string { return c.Timeouts.Transfer.String() },
		set:  func(c *models.GlobalConfig, v string) error { return setDuration(&c.Timeouts.Transfer, v) },
	},
	KeyTimeoutRemoteCommand: {
		name: "timeouts.remote_command",
		get:  func(c *models.GlobalConfig) string { return c.Timeouts.RemoteCommand.String() },
		set:  func(c *models.GlobalConfig, v string) error { return setDuration(&c.Timeouts.RemoteCommand, v) },
	},
	KeyLoggingLevel: {
		name: "logging.level",
		get:  func(c *models.GlobalConfig) string { return c.Logging.Level },
		set: func(c *models.GlobalConfig, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			if !logging.ValidLevel(v) {
				return fmt.Errorf("log level must be one of debug, info, warn, error")
			}
			c.Logging.Level = v
			return nil
		},
	},
	KeyLoggingFile: {
		name: "logging.file",
		get:  func(c *models.GlobalConfig) string { return c.Logging.File },
		set:  func(c *models.GlobalConfig, v string) error { c.Logging.File = strings.TrimSpace(v); return nil },
	},
	KeyBackupUploadConfig: {
		name: "backup.upload_config",
		get:  func(c *models.GlobalConfig) string { return strconv.FormatBool(c.Backup.UploadConfig) },
		set:  func(c *models.GlobalConfig, v string) error { return setBool(&c.Backup.UploadConfig, v) },
	},
}

// legacyNames maps the flat key names of earlier config files.
var legacyNames = map[string]Key{
	"docker_parent":      KeyDockerParent,
	"remote_backup_path": KeyRemoteRoot,
	"ssh_user":           KeySSHUser,
	"ssh_host":           KeySSHHost,
	"ssh_key":            KeySSHKey,
	"email_host":         KeyEmailHost,
	"email_port":         KeyEmailPort,
	"email_user":         KeyEmailUser,
	"email_password":     KeyEmailPassword,
	"receiver_mail":      KeyEmailRecipient,
}

// ParseKey resolves a key name as typed on the command line.
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := Key(0); k < keyCount; k++ {
		if keyDefs[k].name == name {
			return k, nil
		}
	}
	if k, ok := legacyNames[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown config key %q (valid keys: %s)", name, strings.Join(KeyNames(), ", "))
}

func Keys() []Key {
	keys := make([]Key, 0, keyCount)
	for k := Key(0); k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}

func KeyNames() []string {
	names := make([]string, 0, keyCount)
	for _, k := range Keys() {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}

func (k Key) String() string {
	if k < 0 || k >= keyCount {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyDefs[k].name
}

func (k Key) Secret() bool {
	return keyDefs[k].secret
}

func (k Key) Get(cfg *models.GlobalConfig) string {
	return keyDefs[k].get(cfg)
}

// Display is Get with secrets masked.
func (k Key) Display(cfg *models.GlobalConfig) string {
	v := k.Get(cfg)
	if k.Secret() && v != "" {
		return utils.MaskSensitive(v, 0)
	}
	return v
}

func (k Key) Set(cfg *models.GlobalConfig, value string) error {
	if err := keyDefs[k].set(cfg, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", k, err)
	}
	return nil
}

func setRequired(dst *string, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("value cannot be empty")
	}
	*dst = v
	return nil
}

func setPath(dst *string, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("value cannot be empty")
	}
	*dst = utils.ExpandHome(v)
	return nil
}

func setPort(dst *int, v string) error {
	port, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	*dst = port
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("expected true or false")
	}
	*dst = b
	return nil
}

func setDuration(dst *models.Duration, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	dst.Duration = d
	return nil
}
