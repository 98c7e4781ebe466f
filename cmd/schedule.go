package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aelpxy/dockup/internal/config"
	"github.com/aelpxy/dockup/internal/schedule"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "manage the backup schedule",
	Long:  "show or change the cron schedule, or run scheduled backups in the foreground",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the schedule and its next runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}
		printSchedule(manager.GetConfig().Schedule.Cron)
	},
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <cron>",
	Short: "change the schedule",
	Long:  "change the schedule, e.g. dockup schedule set \"30 2 * * *\" or \"@every 12h\"",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}
		if err := manager.Set(config.KeyScheduleCron, args[0]); err != nil {
			fatal(err.Error())
		}
		fmt.Println(successStyle.Render("[done]") + " schedule updated")
		fmt.Println()
		printSchedule(manager.GetConfig().Schedule.Cron)
	},
}

var scheduleResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "restore the default schedule",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := config.NewManager(configPath)
		if err != nil {
			fatal(fmt.Sprintf("failed to load config: %v", err))
		}
		if err := manager.ResetSchedule(); err != nil {
			fatal(err.Error())
		}
		fmt.Println(successStyle.Render("[done]") + " schedule reset")
		fmt.Println()
		printSchedule(manager.GetConfig().Schedule.Cron)
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run [app...]",
	Short: "run scheduled backups in the foreground",
	Long:  "Stay in the foreground and run a scheduled backup each time the schedule fires. Stop with ctrl+c.",
	Run: func(cmd *cobra.Command, args []string) {
		s := mustSession()
		defer s.Close()

		runner, err := schedule.NewRunner(s.cfg.Schedule.Cron, s.logger.Logger)
		if err != nil {
			fatal(err.Error())
		}

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println(titleStyle.Render("==> scheduler running"))
		printSchedule(s.cfg.Schedule.Cron)

		err = runner.Run(ctx, func(ctx context.Context) {
			if _, err := runBackupJob(ctx, s, args, models.BackupKindScheduled); err != nil {
				s.logger.Error("scheduled backup failed", "err", err)
			}
		})
		if err != nil {
			fatal(err.Error())
		}
		fmt.Println(dimStyle.Render("scheduler stopped"))
	},
}

func printSchedule(expr string) {
	s, err := schedule.Parse(expr)
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("  %s %s\n", labelStyle.Render("cron:"), valueStyle.Render(s.Expr()))
	fmt.Printf("  %s %s\n", labelStyle.Render("runs:"), valueStyle.Render(s.Describe()))
	fmt.Println()
	fmt.Println(labelStyle.Render("  next runs"))
	for _, t := range s.NextN(time.Now(), 5) {
		fmt.Printf("    %s %s\n", t.Format("Mon 2006-01-02 15:04"), dimStyle.Render(humanize.Time(t)))
	}
	fmt.Println()
}

func init() {
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleResetCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}
