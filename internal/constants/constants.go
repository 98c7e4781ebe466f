package constants

import "time"

const (
	// TimestampFormat names backup directories. It sorts lexicographically
	// in chronological order.
	TimestampFormat = "2006_01_02_150405"
	// TimestampFormatShort is the minute-resolution form, accepted on read.
	TimestampFormatShort = "2006_01_02_1504"
)

const (
	RepoDir         = "REPO"
	VolumesDir      = "VOLUMES"
	RepoArchive     = "repo.tar.gz"
	ArchiveExt      = ".tar.gz"
	MetadataFile    = "meta.json"
	ConfigUploadAs  = "dockup.toml"
	DefaultSSHPort  = 22
	DefaultCron     = "0 3 * * *"
	HelperImage     = "alpine:latest"
	AppDirName      = ".dockup"
	ConfigFileName  = "config.toml"
	EnvFileName     = ".env"
	LogFileName     = "dockup.log"
	ScratchDirName  = "dockup-scratch"
	DefaultLogLevel = "info"
)

var ComposeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

const (
	DefaultArchiveTimeout       = 2 * time.Hour
	DefaultTransferTimeout      = 2 * time.Hour
	DefaultRemoteCommandTimeout = 2 * time.Minute
	DialTimeout                 = 30 * time.Second
	ImagePullTimeout            = 10 * time.Minute
)

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// ParseTimestamp reads a backup directory name in local time.
func ParseTimestamp(name string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampFormat, name, time.Local)
	if err == nil {
		return t, nil
	}
	if short, shortErr := time.ParseInLocation(TimestampFormatShort, name, time.Local); shortErr == nil {
		return short, nil
	}
	return time.Time{}, err
}
