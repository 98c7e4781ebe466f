// Package config loads and saves the dockup configuration file and the
// optional .env file that carries secrets.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/joho/godotenv"
)

const (
	EnvSSHPassphrase = "DOCKUP_SSH_PASSPHRASE"
	EnvEmailPassword = "DOCKUP_EMAIL_PASSWORD"
)

type Manager struct {
	configPath string
	envPath    string
	config     *models.GlobalConfig
	env        map[string]string
	exists     bool
}

// Dir returns ~/.dockup.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.AppDirName), nil
}

// NewManager loads the config at path, or ~/.dockup/config.toml when path
// is empty. A missing file yields the defaults. The .env file is read from
// the same directory as the config file.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, constants.ConfigFileName)
	}
	path = utils.ExpandHome(path)

	cm := &Manager{
		configPath: path,
		envPath:    filepath.Join(filepath.Dir(path), constants.EnvFileName),
	}

	if err := cm.Load(); err != nil {
		if os.IsNotExist(err) {
			cm.config = Default()
			return cm, cm.loadEnv()
		}
		return nil, err
	}

	return cm, nil
}

// Default returns the configuration used for every value the file leaves
// out.
func Default() *models.GlobalConfig {
	base := "~"
	if home, err := os.UserHomeDir(); err == nil {
		base = home
	}

	return &models.GlobalConfig{
		Paths: models.PathsConfig{
			DockerParent: filepath.Join(base, "docker"),
			RemoteRoot:   "backups",
			ScratchDir:   filepath.Join(os.TempDir(), constants.ScratchDirName),
		},
		SSH: models.SSHConfig{
			Transport: models.TransportSSH,
			Port:      constants.DefaultSSHPort,
		},
		Email: models.EmailConfig{
			Port: 587,
		},
		Schedule: models.ScheduleConfig{
			Cron: constants.DefaultCron,
		},
		Runtime: models.RuntimeConfig{
			HelperImage: constants.HelperImage,
		},
		Timeouts: models.TimeoutsConfig{
			Archive:       models.Duration{Duration: constants.DefaultArchiveTimeout},
			Transfer:      models.Duration{Duration: constants.DefaultTransferTimeout},
			RemoteCommand: models.Duration{Duration: constants.DefaultRemoteCommandTimeout},
		},
		Logging: models.LoggingConfig{
			Level: constants.DefaultLogLevel,
			File:  filepath.Join(base, constants.AppDirName, "logs", constants.LogFileName),
		},
	}
}

// Load decodes the config file over the defaults and rereads the .env file.
func (cm *Manager) Load() error {
	if _, err := os.Stat(cm.configPath); err != nil {
		return err
	}

	config := Default()
	if _, err := toml.DecodeFile(cm.configPath, config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	cm.config = config
	cm.exists = true
	return cm.loadEnv()
}

func (cm *Manager) loadEnv() error {
	env, err := godotenv.Read(cm.envPath)
	if err != nil {
		if os.IsNotExist(err) {
			cm.env = map[string]string{}
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", cm.envPath, err)
	}
	cm.env = env
	return nil
}

// Save writes the file values. Secrets that only come from the environment
// are never written.
func (cm *Manager) Save() error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cm.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := utils.AtomicWriteFile(cm.configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cm.exists = true
	return nil
}

// GetConfig returns the file values for editing.
func (cm *Manager) GetConfig() *models.GlobalConfig {
	return cm.config
}

// Effective returns the configuration the rest of the program runs with:
// file values with secrets from the process environment or the .env file
// layered on top, in that order of precedence.
func (cm *Manager) Effective() models.GlobalConfig {
	cfg := *cm.config
	if v := cm.lookup(EnvSSHPassphrase); v != "" {
		cfg.SSH.Passphrase = v
	}
	if v := cm.lookup(EnvEmailPassword); v != "" {
		cfg.Email.Password = v
	}
	cfg.Paths.DockerParent = utils.ExpandHome(cfg.Paths.DockerParent)
	cfg.Paths.ScratchDir = utils.ExpandHome(cfg.Paths.ScratchDir)
	cfg.Logging.File = utils.ExpandHome(cfg.Logging.File)
	return cfg
}

func (cm *Manager) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return cm.env[key]
}

func (cm *Manager) Path() string {
	return cm.configPath
}

func (cm *Manager) EnvPath() string {
	return cm.envPath
}

// Exists reports whether the config was read from, or saved to, disk.
func (cm *Manager) Exists() bool {
	return cm.exists
}

// Set parses and applies one key, then saves.
func (cm *Manager) Set(key Key, value string) error {
	if err := key.Set(cm.config, value); err != nil {
		return err
	}
	return cm.Save()
}

// ResetSchedule restores the default backup schedule and saves.
func (cm *Manager) ResetSchedule() error {
	cm.config.Schedule.Cron = constants.DefaultCron
	return cm.Save()
}

// ValidateBackup checks the values a backup or restore needs.
func ValidateBackup(cfg models.GlobalConfig) error {
	if cfg.Paths.RemoteRoot == "" {
		return fmt.Errorf("paths.remote_root is not configured")
	}
	if cfg.SSH.Transport == models.TransportLocal {
		return nil
	}
	if cfg.SSH.Host == "" {
		return fmt.Errorf("ssh.host is not configured")
	}
	if cfg.SSH.User == "" {
		return fmt.Errorf("ssh.user is not configured")
	}
	return nil
}
