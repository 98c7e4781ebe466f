package cmd

import (
	"fmt"
	"time"

	"github.com/aelpxy/dockup/internal/backup"
	"github.com/aelpxy/dockup/internal/project"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/spf13/cobra"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run [app...]",
	Short: "Show what a backup would do",
	Long:  "Print the archives and remote paths a backup would create, without touching anything",
	Run:   runDryRun,
}

func runDryRun(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	apps, unreadable, err := selectApps(s.cfg.Paths.DockerParent, args)
	if err != nil {
		fatal(err.Error())
	}
	for _, f := range unreadable {
		fmt.Println(errorStyle.Render("  [error] ") + dimStyle.Render(f.Error()))
	}

	plans := backup.PlanRun(s.cfg.Paths.RemoteRoot, apps, time.Now().Truncate(time.Second))

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> dry run: %d app(s)", len(plans))))
	fmt.Println()

	for _, plan := range plans {
		fmt.Println(progressStyle.Render(fmt.Sprintf("  --> %s", plan.App.Name)))
		fmt.Printf("    %s %s\n", dimStyle.Render("remote:"), dimStyle.Render(plan.Layout.Dir()))
		for _, item := range plan.Items {
			fmt.Printf("    %s\n", item.Describe())
		}
		fmt.Printf("    %s %s\n", dimStyle.Render("meta:"), dimStyle.Render(plan.Layout.Metadata()))
		fmt.Println()
	}
	fmt.Println(dimStyle.Render("  nothing was archived or uploaded"))
}

// selectApps discovers the apps under root and keeps the named ones, or all
// of them when names is empty, plus the descriptor failures among them.
func selectApps(root string, names []string) ([]models.Application, []project.AppFailure, error) {
	discovery, err := project.Discover(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return discovery.Select(names)
}

func init() {
	rootCmd.AddCommand(dryRunCmd)
}
