package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aelpxy/dockup/internal/config"
	"github.com/aelpxy/dockup/internal/notify"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage dockup configuration",
	Long:  "show, change, create and test the dockup configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print every configuration value",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}

		fmt.Println(titleStyle.Render("==> configuration"))
		fmt.Println()
		source := manager.Path()
		if !manager.Exists() {
			source += " (not created yet, showing defaults)"
		}
		fmt.Printf("  %s %s\n", labelStyle.Render("file:"), dimStyle.Render(source))
		fmt.Printf("  %s %s\n", labelStyle.Render("secrets:"), dimStyle.Render(manager.EnvPath()))
		fmt.Println()

		cfg := manager.Effective()
		rows := [][]string{}
		for _, key := range config.Keys() {
			rows = append(rows, []string{key.String(), key.Display(&cfg)})
		}
		fmt.Println(renderTable([]string{"key", "value"}, rows))
		fmt.Println()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "change one configuration value",
	Long:  "change one configuration value; run 'dockup config show' for the list of keys",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, err := config.ParseKey(args[0])
		if err != nil {
			fatal(err.Error())
		}

		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}
		if err := manager.Set(key, args[1]); err != nil {
			fatal(err.Error())
		}

		cfg := manager.GetConfig()
		fmt.Println(successStyle.Render("[done]") + fmt.Sprintf(" %s = %s", key, key.Display(cfg)))
		if key.Secret() {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  secrets can also live in %s as %s / %s",
				manager.EnvPath(), config.EnvSSHPassphrase, config.EnvEmailPassword)))
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "create the configuration interactively",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}

		if manager.Exists() {
			overwrite := false
			prompt := &survey.Confirm{
				Message: fmt.Sprintf("%s already exists. Update it?", manager.Path()),
				Default: true,
			}
			if err := survey.AskOne(prompt, &overwrite); err != nil || !overwrite {
				fmt.Println(dimStyle.Render("config left unchanged"))
				return
			}
		}

		fmt.Println(titleStyle.Render("==> dockup configuration"))
		fmt.Println()
		fmt.Println("  " + dimStyle.Render("you'll need:"))
		fmt.Println("    " + dimStyle.Render("• the directory holding your compose apps"))
		fmt.Println("    " + dimStyle.Render("• an ssh account on the backup host (key based)"))
		fmt.Println("    " + dimStyle.Render("• optionally an smtp account for reports"))
		fmt.Println()

		if err := config.Interactive(manager.GetConfig()); err != nil {
			fatal(err.Error())
		}
		if err := manager.Save(); err != nil {
			fatal(fmt.Sprintf("failed to save config: %v", err))
		}

		fmt.Println()
		fmt.Println(successStyle.Render("  [done]") + " configuration saved to " + manager.Path())
		fmt.Println()
		fmt.Println(dimStyle.Render("  put secrets in " + manager.EnvPath() + ":"))
		fmt.Println(infoStyle.Render(fmt.Sprintf("    %s=...", config.EnvSSHPassphrase)))
		fmt.Println(infoStyle.Render(fmt.Sprintf("    %s=...", config.EnvEmailPassword)))
		fmt.Println()
		fmt.Println(dimStyle.Render("  check everything with: dockup config test"))
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "check the remote host and email settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := mustSession()
		defer s.Close()

		ok := testRemote(s)
		ok = testEmail(s) && ok
		if !ok {
			os.Exit(1)
		}
	},
}

func testRemote(s *session) bool {
	fmt.Println(titleStyle.Render("==> remote host"))

	store, err := s.openStore()
	if err != nil {
		fmt.Printf("  %s %s\n", errorStyle.Render("[error]"), err)
		return false
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeouts.RemoteCommand.Duration+10*time.Second)
	defer cancel()

	root := s.cfg.Paths.RemoteRoot
	if err := store.MkdirAll(ctx, root); err != nil {
		fmt.Printf("  %s cannot create %s: %v\n", errorStyle.Render("[error]"), root, err)
		return false
	}
	entries, err := store.List(ctx, root)
	if err != nil {
		fmt.Printf("  %s cannot list %s: %v\n", errorStyle.Render("[error]"), root, err)
		return false
	}

	fmt.Printf("  %s %s reachable, %d project(s) in %s\n",
		successStyle.Render("[done]"), transportName(s), len(remote.Dirs(entries)), root)
	return true
}

func testEmail(s *session) bool {
	fmt.Println(titleStyle.Render("==> email"))

	mailer := notify.NewMailer(s.cfg.Email, s.logger.Logger)
	if !mailer.Enabled() {
		fmt.Println(dimStyle.Render("  disabled (dockup config set email.enabled true)"))
		return true
	}

	report := notify.Report{
		Subject: "dockup test message",
		Text:    "If you can read this, dockup can send backup reports.",
		HTML:    "<p>If you can read this, dockup can send backup reports.</p>",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mailer.Send(ctx, report); err != nil {
		fmt.Printf("  %s %v\n", errorStyle.Render("[error]"), err)
		return false
	}
	fmt.Printf("  %s test message sent to %s\n", successStyle.Render("[done]"), s.cfg.Email.Recipient)
	return true
}

func transportName(s *session) string {
	if s.cfg.SSH.Transport == models.TransportLocal {
		return "local filesystem"
	}
	return fmt.Sprintf("%s@%s", s.cfg.SSH.User, s.cfg.SSH.Address())
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configTestCmd)
	rootCmd.AddCommand(configCmd)
}
