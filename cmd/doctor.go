package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aelpxy/dockup/internal/config"
	"github.com/aelpxy/dockup/internal/notify"
	"github.com/aelpxy/dockup/internal/project"
	"github.com/aelpxy/dockup/internal/runtime"
	"github.com/aelpxy/dockup/internal/schedule"
	"github.com/aelpxy/dockup/internal/utils"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and dependencies",
	Long:  "Verify the container runtime, local directories, remote host and configuration",
	Run:   runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	s := mustSession()
	defer s.Close()

	fmt.Println(titleStyle.Render("==> checking system health"))
	fmt.Println()

	allGood := true

	allGood = checkConfig(s) && allGood
	allGood = checkRuntime(s) && allGood
	allGood = checkDirectories(s) && allGood
	allGood = checkRemote(s) && allGood

	fmt.Println()
	if allGood {
		fmt.Println(successStyle.Render("  [done] all checks passed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  dockup is ready to back up your apps"))
	} else {
		fmt.Println(errorStyle.Render("  [error] some checks failed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  fix the issues above before running a backup"))
		os.Exit(1)
	}
}

func checkConfig(s *session) bool {
	fmt.Println(labelStyle.Render("  configuration"))
	allGood := true

	if s.manager.Exists() {
		fmt.Printf("    %s %s exists\n", successStyle.Render("[✓]"), dimStyle.Render(s.manager.Path()))
	} else {
		fmt.Printf("    %s %s missing\n", errorStyle.Render("[!]"), dimStyle.Render(s.manager.Path()))
		fmt.Printf("      %s\n", dimStyle.Render("run 'dockup config init' to create it"))
	}

	if err := config.ValidateBackup(s.cfg); err != nil {
		fmt.Printf("    %s %s\n", errorStyle.Render("[✗]"), err)
		allGood = false
	} else {
		fmt.Printf("    %s remote settings complete\n", successStyle.Render("[✓]"))
	}

	if sched, err := schedule.Parse(s.cfg.Schedule.Cron); err != nil {
		fmt.Printf("    %s %s\n", errorStyle.Render("[✗]"), err)
		allGood = false
	} else {
		fmt.Printf("    %s schedule: %s\n", successStyle.Render("[✓]"), dimStyle.Render(sched.Describe()))
	}

	if s.cfg.Email.Enabled {
		if err := notify.NewMailer(s.cfg.Email, s.logger.Logger).Validate(); err != nil {
			fmt.Printf("    %s %s\n", errorStyle.Render("[✗]"), err)
			allGood = false
		} else {
			fmt.Printf("    %s email reports to %s\n", successStyle.Render("[✓]"), dimStyle.Render(s.cfg.Email.Recipient))
		}
	}

	fmt.Println()
	return allGood
}

func checkRuntime(s *session) bool {
	fmt.Println(labelStyle.Render("  runtime"))

	info, err := runtime.DetectRuntime(s.cfg.Runtime.SocketPath)
	if err != nil {
		fmt.Printf("    %s runtime not detected\n", errorStyle.Render("[!]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		fmt.Printf("      %s\n", dimStyle.Render("named volumes cannot be backed up without docker or podman"))
		fmt.Println()
		return true
	}

	fmt.Printf("    %s %s detected\n", successStyle.Render("[✓]"), valueStyle.Render(info.GetRuntimeName()))
	if info.SocketPath != "" {
		fmt.Printf("      %s %s\n", dimStyle.Render("socket:"), dimStyle.Render(info.SocketPath))
	} else {
		fmt.Printf("      %s %s\n", dimStyle.Render("host:"), dimStyle.Render(info.Host))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := s.openDocker(ctx)
	if err != nil {
		fmt.Printf("    %s runtime daemon not responding\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		fmt.Println()
		return false
	}
	defer client.Close()

	serverVersion, _ := client.ServerVersion(ctx)
	fmt.Printf("    %s daemon running\n", successStyle.Render("[✓]"))
	fmt.Printf("      %s %s\n", dimStyle.Render("version:"), dimStyle.Render(serverVersion))
	fmt.Println()

	return true
}

func checkDirectories(s *session) bool {
	fmt.Println(labelStyle.Render("  directories"))
	allGood := true

	dir, err := config.Dir()
	if err == nil {
		if info, err := os.Stat(dir); err != nil {
			fmt.Printf("    %s ~/.dockup missing\n", errorStyle.Render("[!]"))
			fmt.Printf("      %s\n", dimStyle.Render("created by 'dockup config init'"))
		} else if info.Mode().Perm()&0077 != 0 {
			fmt.Printf("    %s ~/.dockup is readable by other users\n", errorStyle.Render("[!]"))
			fmt.Printf("      %s\n", dimStyle.Render("run: chmod 700 ~/.dockup"))
		} else {
			fmt.Printf("    %s %s exists\n", successStyle.Render("[✓]"), dimStyle.Render("~/.dockup"))
		}
	}

	parent, err := utils.ValidateDirectory(s.cfg.Paths.DockerParent)
	if err != nil {
		fmt.Printf("    %s apps directory: %v\n", errorStyle.Render("[✗]"), err)
		fmt.Printf("      %s\n", dimStyle.Render("run: dockup config set paths.docker_parent <dir>"))
		allGood = false
	} else if discovery, err := project.Discover(parent); err != nil {
		fmt.Printf("    %s cannot read %s: %v\n", errorStyle.Render("[✗]"), parent, err)
		allGood = false
	} else {
		fmt.Printf("    %s %s (%d app(s))\n", successStyle.Render("[✓]"), dimStyle.Render(parent), len(discovery.Applications))
		for _, f := range discovery.Failures {
			fmt.Printf("    %s %s\n", errorStyle.Render("[!]"), dimStyle.Render(f.Error()))
		}
	}

	scratch := s.cfg.Paths.ScratchDir
	if err := os.MkdirAll(scratch, 0700); err != nil {
		fmt.Printf("    %s scratch directory %s: %v\n", errorStyle.Render("[✗]"), scratch, err)
		allGood = false
	} else if probe, err := os.CreateTemp(scratch, ".probe-*"); err != nil {
		fmt.Printf("    %s scratch directory %s is not writable\n", errorStyle.Render("[✗]"), scratch)
		allGood = false
	} else {
		probe.Close()
		os.Remove(probe.Name())
		fmt.Printf("    %s scratch %s writable\n", successStyle.Render("[✓]"), dimStyle.Render(scratch))
	}

	fmt.Println()
	return allGood
}

func checkRemote(s *session) bool {
	fmt.Println(labelStyle.Render("  remote host"))

	if err := config.ValidateBackup(s.cfg); err != nil {
		fmt.Printf("    %s skipped, configuration incomplete\n", errorStyle.Render("[!]"))
		fmt.Println()
		return false
	}

	store, err := s.openStore()
	if err != nil {
		fmt.Printf("    %s %v\n", errorStyle.Render("[✗]"), err)
		fmt.Println()
		return false
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeouts.RemoteCommand.Duration+10*time.Second)
	defer cancel()

	if _, err := store.List(ctx, s.cfg.Paths.RemoteRoot); err != nil {
		fmt.Printf("    %s cannot list %s on %s\n", errorStyle.Render("[✗]"), s.cfg.Paths.RemoteRoot, transportName(s))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		fmt.Println()
		return false
	}

	fmt.Printf("    %s %s reachable\n", successStyle.Render("[✓]"), valueStyle.Render(transportName(s)))
	fmt.Println()
	return true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
