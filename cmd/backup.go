package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/aelpxy/dockup/internal/archive"
	"github.com/aelpxy/dockup/internal/backup"
	"github.com/aelpxy/dockup/internal/docker"
	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/internal/notify"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var backupScheduled bool

var backupCmd = &cobra.Command{
	Use:   "backup [app...]",
	Short: "Back up compose apps to the remote host",
	Long: "Archive each app's files and volumes and upload them to the remote host.\n" +
		"With no arguments every discovered app is backed up.",
	Run: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	kind := models.BackupKindManual
	if backupScheduled {
		kind = models.BackupKindScheduled
	}

	summary, err := runBackupJob(ctx, s, args, kind)
	if err != nil {
		fatal(err.Error())
	}
	if !summary.OK() {
		os.Exit(1)
	}
}

// runBackupJob runs one backup pass, prints its summary and sends the
// report.
func runBackupJob(ctx context.Context, s *session, names []string, kind models.BackupKind) (models.RunSummary, error) {
	apps, unreadable, err := selectApps(s.cfg.Paths.DockerParent, names)
	if err != nil {
		return models.RunSummary{}, err
	}
	if len(apps) == 0 && len(unreadable) == 0 {
		fmt.Println(dimStyle.Render("  no compose apps found, nothing to back up"))
		return models.RunSummary{Kind: kind}, nil
	}

	unlock, err := s.lockRun()
	if err != nil {
		return models.RunSummary{}, err
	}
	defer unlock()

	store, err := s.openStore()
	if err != nil {
		return models.RunSummary{}, err
	}
	defer store.Close()

	var named backup.Archiver
	if needsRuntime(apps) {
		client, err := s.openDocker(ctx)
		if err != nil {
			s.logger.Warn("container runtime unavailable, named volumes will fail", "err", err)
		} else {
			defer client.Close()
			named = docker.NewVolumeArchiver(client, s.cfg.Runtime.HelperImage)
		}
	}

	opts := backup.Options{
		RemoteRoot:     s.cfg.Paths.RemoteRoot,
		ScratchDir:     s.cfg.Paths.ScratchDir,
		Kind:           kind,
		ArchiveTimeout: s.cfg.Timeouts.Archive.Duration,
		Unreadable:     unreadable,
	}
	if s.cfg.Backup.UploadConfig && s.manager.Exists() {
		opts.ConfigFile = s.manager.Path()
	}

	manager := backup.NewManager(store, archive.Local{}, named, s.logger.Logger, opts)
	manager.SetHooks(backup.Hooks{
		AppStarted: func(plan backup.AppPlan) {
			fmt.Println(progressStyle.Render(fmt.Sprintf("  --> %s (%d item(s))", plan.App.Name, len(plan.Items))))
		},
		ItemDone: func(app string, o models.ItemOutcome) {
			if o.OK() {
				fmt.Printf("    %s %s %s\n", successStyle.Render("[done]"), o.Name, dimStyle.Render(o.Size.String()))
			} else {
				fmt.Printf("    %s %s %s\n", errorStyle.Render("[error]"), o.Name, dimStyle.Render(o.Err.Error()))
			}
		},
		AppDone: func(summary models.AppSummary) {
			if summary.Err == nil {
				return
			}
			if failure.Is(summary.Err, failure.Discovery) {
				fmt.Println(progressStyle.Render(fmt.Sprintf("  --> %s (skipped)", summary.Name)))
			}
			fmt.Printf("    %s %s\n", errorStyle.Render("[error]"), dimStyle.Render(summary.Err.Error()))
		},
	})

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> backing up %d app(s) (%s)", len(apps), kind)))
	fmt.Println()

	summary := manager.Run(ctx, apps)

	fmt.Println()
	printRunSummary(summary)

	mailer := notify.NewMailer(s.cfg.Email, s.logger.Logger)
	if mailer.Enabled() {
		if err := mailer.Notify(ctx, summary); err != nil {
			fmt.Println(errorStyle.Render("  [error] ") + dimStyle.Render("report email failed: "+err.Error()))
		} else {
			fmt.Println(successStyle.Render("  [done]") + " report sent to " + s.cfg.Email.Recipient)
		}
	}

	return summary, nil
}

func needsRuntime(apps []models.Application) bool {
	for _, app := range apps {
		for _, v := range app.Volumes {
			if !v.IsBind() {
				return true
			}
		}
	}
	return false
}

func printRunSummary(summary models.RunSummary) {
	rows := [][]string{}
	for _, app := range summary.Apps {
		if app.Err != nil {
			rows = append(rows, []string{app.Name, "-", "-", statusText(false), "-", "-", utils.TruncateString(app.Err.Error(), 50)})
		}
		for _, item := range app.Items {
			errText := ""
			if item.Err != nil {
				errText = utils.TruncateString(item.Err.Error(), 50)
			}
			rows = append(rows, []string{
				app.Name,
				item.Name,
				string(item.Kind),
				statusText(item.OK()),
				item.Size.String(),
				item.DurationString(),
				errText,
			})
		}
	}

	fmt.Println(titleStyle.Render("==> summary"))
	fmt.Println()
	if len(rows) > 0 {
		fmt.Println(renderTable([]string{"app", "item", "kind", "status", "size", "duration", "error"}, rows))
		fmt.Println()
	}

	t := summary.Totals()
	line := fmt.Sprintf("  total: %d item(s), %d ok, %d failed, %s in %.1fs",
		t.Items, t.Succeeded, t.Failed, humanize.IBytes(uint64(t.Bytes)), t.Duration.Seconds())
	if summary.OK() {
		fmt.Println(successStyle.Render("  [done]") + dimStyle.Render(line))
	} else {
		fmt.Println(errorStyle.Render("  [error]") + dimStyle.Render(line))
	}
	fmt.Println()
}

func init() {
	backupCmd.Flags().BoolVar(&backupScheduled, "scheduled", false, "mark this run as a scheduled backup")
	rootCmd.AddCommand(backupCmd)
}
