package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	configPath string
	verbose    bool
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "dockup",
	Short: "backup and restore for docker compose apps",
	Long: titleStyle.Render(`
     _            _
  __| | ___   ___| | ___   _ _ __
 / _`+"`"+` |/ _ \ / __| |/ / | | | '_ \
| (_| | (_) | (__|   <| |_| | |_) |
 \__,_|\___/ \___|_|\_\\__,_| .__/
                            |_|
`) + "\n" + subtitleStyle.Render("backups for your compose apps") + "\n\n" +
		"Archives every app's files and volumes to a remote host over SSH,\n" +
		"and restores them interactively when things go wrong.",
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
	rootCmd.Version = fmt.Sprintf("%s (built: %s, commit: %s)", version, buildTime, gitCommit)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] Error: %v", err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.dockup/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
