package cmd

import (
	"fmt"
	"strings"

	"github.com/aelpxy/dockup/internal/project"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the compose apps dockup would back up",
	Long:  "Scan the docker parent directory for compose apps and show their volumes",
	Args:  cobra.NoArgs,
	Run:   runScan,
}

func runScan(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	root := s.cfg.Paths.DockerParent
	discovery, err := project.Discover(root)
	if err != nil {
		fatal(fmt.Sprintf("failed to scan %s: %v", root, err))
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> apps in %s (%d)", root, len(discovery.Applications))))
	fmt.Println()

	if len(discovery.Applications) == 0 {
		fmt.Println(dimStyle.Render("  no compose apps found"))
		fmt.Println(dimStyle.Render("  set the directory with: dockup config set paths.docker_parent <dir>"))
	} else {
		rows := [][]string{}
		for _, app := range discovery.Applications {
			var bind, named []string
			for _, v := range app.Volumes {
				if v.IsBind() {
					bind = append(bind, v.Name)
				} else {
					named = append(named, v.Name)
				}
			}
			rows = append(rows, []string{
				app.Name,
				utils.TruncateString(app.Path, 40),
				joinOrDash(bind),
				joinOrDash(named),
			})
		}
		fmt.Println(renderTable([]string{"app", "path", "bind volumes", "named volumes"}, rows))
	}

	if len(discovery.Failures) > 0 {
		fmt.Println()
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [error] %d app(s) could not be read", len(discovery.Failures))))
		for _, f := range discovery.Failures {
			fmt.Printf("    %s\n", dimStyle.Render(f.Error()))
		}
	}
	fmt.Println()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
