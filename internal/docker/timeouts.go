package docker

import (
	"time"

	"github.com/aelpxy/dockup/internal/constants"
)

const (
	ImagePullTimeout   = constants.ImagePullTimeout
	ContainerOpTimeout = 30 * time.Second
)
