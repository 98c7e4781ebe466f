package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aelpxy/dockup/internal/archive"
	"github.com/aelpxy/dockup/internal/docker"
	"github.com/aelpxy/dockup/internal/restore"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/spf13/cobra"
)

var (
	restoreProject string
	restoreVersion string
	restoreRepo    bool
	restoreVolumes []string
	restoreAll     bool
	restoreYes     bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an app's files or volumes from a backup",
	Long: "Browse remote backups and restore the selected items.\n\n" +
		"Without flags an interactive browser opens. With --project the restore\n" +
		"is described on the command line; --version defaults to the newest backup.\n" +
		"Every restored destination is deleted and replaced.",
	Args: cobra.NoArgs,
	Run:  runRestore,
}

func runRestore(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	inv, err := readInventory(ctx, s)
	if err != nil {
		fatal(err.Error())
	}
	if inv.Len() == 0 {
		fmt.Println(dimStyle.Render("no backups found on the remote host"))
		return
	}

	var sel restore.Selection
	if restoreProject == "" {
		var ok bool
		sel, ok, err = restore.Browse(restore.NewState(inv), s.cfg.Paths.RemoteRoot, s.logger.Console())
		if err != nil {
			fatal(err.Error())
		}
		if !ok {
			fmt.Println(dimStyle.Render("restore cancelled"))
			return
		}
	} else {
		sel, err = restore.Resolve(inv, restore.Request{
			Project: restoreProject,
			Version: restoreVersion,
			Repo:    restoreRepo,
			Volumes: restoreVolumes,
			All:     restoreAll,
		})
		if err != nil {
			if hint := versionHint(inv, restoreProject); hint != "" {
				fatal(fmt.Sprintf("%v (recent versions: %s)", err, hint))
			}
			fatal(err.Error())
		}
		if !confirmRestore(s, sel) {
			fmt.Println(dimStyle.Render("restore cancelled"))
			return
		}
	}

	unlock, err := s.lockRun()
	if err != nil {
		fatal(err.Error())
	}
	defer unlock()

	store, err := s.openStore()
	if err != nil {
		fatal(err.Error())
	}
	defer store.Close()

	var volumes restore.VolumeRestorer
	if selectionNeedsRuntime(sel) {
		client, err := s.openDocker(ctx)
		if err != nil {
			s.logger.Warn("container runtime unavailable, named volumes will fail", "err", err)
		} else {
			defer client.Close()
			volumes = docker.NewVolumeArchiver(client, s.cfg.Runtime.HelperImage)
		}
	}

	executor := restore.NewExecutor(store, archive.Local{}, volumes, s.cfg.Paths.RemoteRoot, s.cfg.Paths.ScratchDir, s.logger.Logger)
	executor.SetExtractTimeout(s.cfg.Timeouts.Archive.Duration)

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> restoring %s from %s", sel.Record.Name, sel.Record.Timestamp.Format("2006-01-02 15:04:05"))))
	fmt.Println()

	failed := 0
	executor.Execute(ctx, sel, func(o restore.Outcome) {
		if o.OK() {
			fmt.Printf("  %s %s\n", successStyle.Render("[done]"), o.Line())
		} else {
			failed++
			fmt.Printf("  %s %s\n", errorStyle.Render("[error]"), o.Line())
		}
	})

	fmt.Println()
	if failed > 0 {
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [error] %d item(s) failed to restore", failed)))
		os.Exit(1)
	}
	fmt.Println(successStyle.Render("  [done] restore complete"))
	fmt.Println(dimStyle.Render("  restart the app with: docker compose up -d"))
}

func confirmRestore(s *session, sel restore.Selection) bool {
	fmt.Println(titleStyle.Render("==> restore plan"))
	fmt.Println()
	for _, step := range restore.Steps(s.cfg.Paths.RemoteRoot, sel) {
		fmt.Printf("  %s -> %s\n", valueStyle.Render(step.Name), step.Destination)
	}
	fmt.Println()
	fmt.Println(errorStyle.Render("  existing data at every destination above will be deleted and replaced"))
	fmt.Println()

	if restoreYes {
		return true
	}

	var proceed bool
	prompt := &survey.Confirm{
		Message: "Proceed with the restore?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		return false
	}
	return proceed
}

func selectionNeedsRuntime(sel restore.Selection) bool {
	return needsRuntime([]models.Application{{Volumes: sel.Volumes}})
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreProject, "project", "p", "", "project to restore")
	restoreCmd.Flags().StringVar(&restoreVersion, "version", "latest", "backup version (directory name) to restore")
	restoreCmd.Flags().BoolVar(&restoreRepo, "repo", false, "restore the app's files")
	restoreCmd.Flags().StringArrayVar(&restoreVolumes, "volume", nil, "volume to restore (repeatable)")
	restoreCmd.Flags().BoolVar(&restoreAll, "all", false, "restore the app's files and every volume")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}
