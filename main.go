package main

import "github.com/aelpxy/dockup/cmd"

var (
	Version   = "alpha"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit)
	cmd.Execute()
}
