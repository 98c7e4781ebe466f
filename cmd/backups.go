package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aelpxy/dockup/internal/catalog"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups [project]",
	Short: "List backups on the remote host",
	Long:  "Read the remote backup root and list every backup, newest first",
	Args:  cobra.MaximumNArgs(1),
	Run:   runBackups,
}

func runBackups(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	inv, err := readInventory(ctx, s)
	if err != nil {
		fatal(err.Error())
	}

	records := inv.All()
	if len(args) > 0 {
		records = inv.Backups(args[0])
	}

	if len(records) == 0 {
		if len(args) > 0 {
			fmt.Println(dimStyle.Render(fmt.Sprintf("no backups found for project: %s", args[0])))
		} else {
			fmt.Println(dimStyle.Render("no backups found"))
		}
		fmt.Println()
		fmt.Println(dimStyle.Render("create a backup with: dockup backup"))
		return
	}

	if len(args) > 0 {
		fmt.Println(titleStyle.Render(fmt.Sprintf("==> backups for: %s (%d)", args[0], len(records))))
	} else {
		fmt.Println(titleStyle.Render(fmt.Sprintf("==> all backups (%d across %d projects)", len(records), len(inv.Projects()))))
	}
	fmt.Println()

	rows := [][]string{}
	for _, rec := range records {
		var volumes []string
		for _, v := range rec.Volumes {
			volumes = append(volumes, v.Name)
		}
		rows = append(rows, []string{
			rec.Name,
			layout.DirName(rec),
			string(rec.Kind),
			humanize.Time(rec.Timestamp),
			joinOrDash(volumes),
		})
	}

	fmt.Println(renderTable([]string{"project", "version", "kind", "age", "volumes"}, rows))
	fmt.Println()

	fmt.Println(dimStyle.Render("  commands:"))
	fmt.Printf("    %s\n", dimStyle.Render("dockup restore                              # browse and restore"))
	fmt.Printf("    %s\n", dimStyle.Render("dockup restore --project <p> --repo --yes   # restore latest repo"))
	fmt.Println()
}

// readInventory opens the configured store and reads every backup record
// under the remote root.
func readInventory(ctx context.Context, s *session) (*catalog.Inventory, error) {
	store, err := s.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, remoteReadTimeout(s))
	defer cancel()

	fmt.Println(progressStyle.Render("  --> reading remote inventory..."))
	inv, err := catalog.NewReader(store, s.cfg.Paths.RemoteRoot, s.logger.Logger).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote inventory: %w", err)
	}
	fmt.Println()
	return inv, nil
}

func remoteReadTimeout(s *session) time.Duration {
	if d := s.cfg.Timeouts.Transfer.Duration; d > 0 {
		return d
	}
	return time.Hour
}

func versionHint(inv *catalog.Inventory, project string) string {
	var names []string
	for _, rec := range inv.Backups(project) {
		names = append(names, layout.DirName(rec))
		if len(names) == 5 {
			break
		}
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}
