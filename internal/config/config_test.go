package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv(EnvSSHPassphrase, "")
	t.Setenv(EnvEmailPassword, "")
	cm, err := NewManager(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return cm
}

func TestNewManager_MissingFileUsesDefaults(t *testing.T) {
	cm := newTestManager(t)

	assert.False(t, cm.Exists())
	cfg := cm.GetConfig()
	assert.Equal(t, constants.DefaultCron, cfg.Schedule.Cron)
	assert.Equal(t, models.TransportSSH, cfg.SSH.Transport)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Equal(t, constants.HelperImage, cfg.Runtime.HelperImage)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.RemoteCommand.Duration)
	assert.Equal(t, filepath.Join(filepath.Dir(cm.Path()), ".env"), cm.EnvPath())
}

func TestManager_SaveAndLoad(t *testing.T) {
	cm := newTestManager(t)
	cfg := cm.GetConfig()
	cfg.SSH.Host = "backup.example.com"
	cfg.SSH.User = "ops"
	cfg.Timeouts.Transfer = models.Duration{Duration: 45 * time.Minute}
	require.NoError(t, cm.Save())

	info, err := os.Stat(cm.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(cm.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `transfer = "45m0s"`)

	reloaded, err := NewManager(cm.Path())
	require.NoError(t, err)
	assert.True(t, reloaded.Exists())
	assert.Equal(t, "backup.example.com", reloaded.GetConfig().SSH.Host)
	assert.Equal(t, 45*time.Minute, reloaded.GetConfig().Timeouts.Transfer.Duration)
}

func TestManager_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvSSHPassphrase, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ssh]\nhost = \"nas\"\n\n[timeouts]\narchive = \"30m\"\n"), 0600))

	cm, err := NewManager(path)
	require.NoError(t, err)
	cfg := cm.GetConfig()
	assert.Equal(t, "nas", cfg.SSH.Host)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Equal(t, 30*time.Minute, cfg.Timeouts.Archive.Duration)
	assert.Equal(t, constants.DefaultTransferTimeout, cfg.Timeouts.Transfer.Duration)
}

func TestManager_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timeouts]\narchive = \"soon\"\n"), 0600))

	_, err := NewManager(path)
	assert.ErrorContains(t, err, "failed to decode config")
}

func TestManager_EnvSecrets(t *testing.T) {
	t.Setenv(EnvSSHPassphrase, "")
	t.Setenv(EnvEmailPassword, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DOCKUP_SSH_PASSPHRASE=from-dotenv\nDOCKUP_EMAIL_PASSWORD=mail-dotenv\n"), 0600))

	cm, err := NewManager(path)
	require.NoError(t, err)

	eff := cm.Effective()
	assert.Equal(t, "from-dotenv", eff.SSH.Passphrase)
	assert.Equal(t, "mail-dotenv", eff.Email.Password)
	assert.Empty(t, cm.GetConfig().SSH.Passphrase)

	t.Setenv(EnvSSHPassphrase, "from-process")
	assert.Equal(t, "from-process", cm.Effective().SSH.Passphrase)

	require.NoError(t, cm.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-")
	assert.NotContains(t, string(data), "dotenv")
}

func TestManager_SetAndResetSchedule(t *testing.T) {
	cm := newTestManager(t)

	require.NoError(t, cm.Set(KeyScheduleCron, "30 1 * * *"))
	assert.Equal(t, "30 1 * * *", cm.GetConfig().Schedule.Cron)
	assert.True(t, cm.Exists())

	assert.Error(t, cm.Set(KeyScheduleCron, "every night"))
	assert.Equal(t, "30 1 * * *", cm.GetConfig().Schedule.Cron)

	require.NoError(t, cm.ResetSchedule())
	reloaded, err := NewManager(cm.Path())
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultCron, reloaded.GetConfig().Schedule.Cron)
}

func TestValidateBackup(t *testing.T) {
	cfg := *Default()
	assert.ErrorContains(t, ValidateBackup(cfg), "ssh.host")

	cfg.SSH.Host = "nas"
	assert.ErrorContains(t, ValidateBackup(cfg), "ssh.user")

	cfg.SSH.User = "ops"
	assert.NoError(t, ValidateBackup(cfg))

	local := *Default()
	local.SSH.Transport = models.TransportLocal
	assert.NoError(t, ValidateBackup(local))

	local.Paths.RemoteRoot = ""
	assert.ErrorContains(t, ValidateBackup(local), "remote_root")
}

func TestKeys_AllDefined(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Keys() {
		def := keyDefs[k]
		require.NotEmpty(t, def.name, "key %d has no name", int(k))
		require.NotNil(t, def.get, k.String())
		require.NotNil(t, def.set, k.String())
		assert.False(t, seen[def.name], "duplicate key name %s", def.name)
		seen[def.name] = true

		parsed, err := ParseKey(strings.ToUpper(def.name))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	assert.Len(t, KeyNames(), int(keyCount))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("remote_backup_path")
	require.NoError(t, err)
	assert.Equal(t, KeyRemoteRoot, k)

	k, err = ParseKey("receiver_mail")
	require.NoError(t, err)
	assert.Equal(t, KeyEmailRecipient, k)

	_, err = ParseKey("ssh.hostname")
	assert.ErrorContains(t, err, "unknown config key")
	assert.ErrorContains(t, err, "ssh.host")
}

func TestKey_Set(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key     Key
		value   string
		wantErr bool
		check   func() string
		want    string
	}{
		{KeySSHPort, "2222", false, func() string { return KeySSHPort.Get(cfg) }, "2222"},
		{KeySSHPort, "0", true, nil, ""},
		{KeySSHPort, "ssh", true, nil, ""},
		{KeySSHTransport, "LOCAL", false, func() string { return string(cfg.SSH.Transport) }, "local"},
		{KeySSHTransport, "ftp", true, nil, ""},
		{KeyEmailEnabled, "true", false, func() string { return KeyEmailEnabled.Get(cfg) }, "true"},
		{KeyEmailEnabled, "maybe", true, nil, ""},
		{KeyTimeoutArchive, "90m", false, func() string { return KeyTimeoutArchive.Get(cfg) }, "1h30m0s"},
		{KeyTimeoutArchive, "-1s", true, nil, ""},
		{KeyLoggingLevel, "DEBUG", false, func() string { return cfg.Logging.Level }, "debug"},
		{KeyLoggingLevel, "loud", true, nil, ""},
		{KeyRemoteRoot, "  ", true, nil, ""},
		{KeyRemoteRoot, "/srv/backups", false, func() string { return cfg.Paths.RemoteRoot }, "/srv/backups"},
	}

	for _, tt := range tests {
		t.Run(tt.key.String()+"="+tt.value, func(t *testing.T) {
			err := tt.key.Set(cfg, tt.value)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid value for "+tt.key.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.check())
		})
	}
}

func TestKey_DisplayMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Email.Password = "hunter2"

	assert.True(t, KeyEmailPassword.Secret())
	assert.Equal(t, "****", KeyEmailPassword.Display(cfg))
	assert.Equal(t, "", KeySSHPassphrase.Display(cfg))
	assert.Equal(t, "587", KeyEmailPort.Display(cfg))
}

func TestAnswers_Apply(t *testing.T) {
	cfg := Default()
	answers := Answers{
		DockerParent:   "/srv/docker",
		RemoteRoot:     "/mnt/backups",
		Transport:      "ssh",
		SSHHost:        "nas.lan",
		SSHUser:        "backup",
		SSHPort:        "2222",
		EmailEnabled:   true,
		EmailRecipient: "ops@example.com",
	}
	require.NoError(t, answers.Apply(cfg))

	assert.Equal(t, "/srv/docker", cfg.Paths.DockerParent)
	assert.Equal(t, "nas.lan", cfg.SSH.Host)
	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Equal(t, constants.DefaultCron, cfg.Schedule.Cron)

	bad := answers
	bad.SSHPort = "70000"
	assert.Error(t, bad.Apply(Default()))
}

func TestQuestions(t *testing.T) {
	qs := Questions(Default())
	var names []string
	for _, q := range qs {
		names = append(names, q.Name)
	}
	assert.Contains(t, names, "docker_parent")
	assert.Contains(t, names, "cron")

	for _, q := range qs {
		if q.Name == "cron" {
			assert.Error(t, q.Validate("nope"))
			assert.NoError(t, q.Validate("0 4 * * *"))
		}
	}
}
