package config

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aelpxy/dockup/pkg/models"
)

// Answers mirrors the questions asked by Interactive.
type Answers struct {
	DockerParent   string `survey:"docker_parent"`
	RemoteRoot     string `survey:"remote_root"`
	Transport      string `survey:"transport"`
	SSHHost        string `survey:"ssh_host"`
	SSHUser        string `survey:"ssh_user"`
	SSHPort        string `survey:"ssh_port"`
	SSHKey         string `survey:"ssh_key"`
	EmailEnabled   bool   `survey:"email_enabled"`
	EmailHost      string `survey:"email_host"`
	EmailPort      string `survey:"email_port"`
	EmailUser      string `survey:"email_user"`
	EmailRecipient string `survey:"email_recipient"`
	Cron           string `survey:"cron"`
}

// Questions builds the init questionnaire with cfg's values as defaults.
func Questions(cfg *models.GlobalConfig) []*survey.Question {
	validate := func(key Key) survey.Validator {
		return func(ans interface{}) error {
			probe := *cfg
			switch v := ans.(type) {
			case string:
				return key.Set(&probe, v)
			case survey.OptionAnswer:
				return key.Set(&probe, v.Value)
			}
			return nil
		}
	}

	transport := string(cfg.SSH.Transport)
	if transport == "" {
		transport = string(models.TransportSSH)
	}

	return []*survey.Question{
		{
			Name:     "docker_parent",
			Prompt:   &survey.Input{Message: "Directory holding your compose apps:", Default: cfg.Paths.DockerParent},
			Validate: validate(KeyDockerParent),
		},
		{
			Name:     "remote_root",
			Prompt:   &survey.Input{Message: "Remote backup root:", Default: cfg.Paths.RemoteRoot},
			Validate: validate(KeyRemoteRoot),
		},
		{
			Name: "transport",
			Prompt: &survey.Select{
				Message: "Where should backups go?",
				Options: []string{string(models.TransportSSH), string(models.TransportLocal)},
				Default: transport,
			},
		},
		{
			Name:   "ssh_host",
			Prompt: &survey.Input{Message: "SSH host:", Default: cfg.SSH.Host},
		},
		{
			Name:   "ssh_user",
			Prompt: &survey.Input{Message: "SSH user:", Default: cfg.SSH.User},
		},
		{
			Name:     "ssh_port",
			Prompt:   &survey.Input{Message: "SSH port:", Default: strconv.Itoa(cfg.SSH.Port)},
			Validate: validate(KeySSHPort),
		},
		{
			Name:   "ssh_key",
			Prompt: &survey.Input{Message: "SSH private key path:", Default: cfg.SSH.Key},
		},
		{
			Name:   "email_enabled",
			Prompt: &survey.Confirm{Message: "Send a report by email after each backup?", Default: cfg.Email.Enabled},
		},
		{
			Name:   "email_host",
			Prompt: &survey.Input{Message: "SMTP host:", Default: cfg.Email.Host},
		},
		{
			Name:     "email_port",
			Prompt:   &survey.Input{Message: "SMTP port:", Default: strconv.Itoa(cfg.Email.Port)},
			Validate: validate(KeyEmailPort),
		},
		{
			Name:   "email_user",
			Prompt: &survey.Input{Message: "SMTP user (sender address):", Default: cfg.Email.User},
		},
		{
			Name:   "email_recipient",
			Prompt: &survey.Input{Message: "Report recipient:", Default: cfg.Email.Recipient},
		},
		{
			Name:     "cron",
			Prompt:   &survey.Input{Message: "Backup schedule (cron):", Default: cfg.Schedule.Cron},
			Validate: validate(KeyScheduleCron),
		},
	}
}

// Apply writes the answers into cfg through the key setters. Empty
// optional answers leave the current value alone.
func (a Answers) Apply(cfg *models.GlobalConfig) error {
	values := []struct {
		key      Key
		value    string
		optional bool
	}{
		{KeyDockerParent, a.DockerParent, false},
		{KeyRemoteRoot, a.RemoteRoot, false},
		{KeySSHTransport, a.Transport, true},
		{KeySSHHost, a.SSHHost, true},
		{KeySSHUser, a.SSHUser, true},
		{KeySSHPort, a.SSHPort, true},
		{KeySSHKey, a.SSHKey, true},
		{KeyEmailEnabled, strconv.FormatBool(a.EmailEnabled), false},
		{KeyEmailHost, a.EmailHost, true},
		{KeyEmailPort, a.EmailPort, true},
		{KeyEmailUser, a.EmailUser, true},
		{KeyEmailRecipient, a.EmailRecipient, true},
		{KeyScheduleCron, a.Cron, true},
	}

	for _, v := range values {
		if v.optional && v.value == "" {
			continue
		}
		if err := v.key.Set(cfg, v.value); err != nil {
			return err
		}
	}
	return nil
}

// Interactive runs the questionnaire against cfg. Secrets are not asked
// for; they belong in the .env file next to the config.
func Interactive(cfg *models.GlobalConfig, opts ...survey.AskOpt) error {
	var answers Answers
	if err := survey.Ask(Questions(cfg), &answers, opts...); err != nil {
		return fmt.Errorf("survey failed: %w", err)
	}
	return answers.Apply(cfg)
}
