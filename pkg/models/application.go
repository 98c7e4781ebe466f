package models

import (
	"strings"
	"time"
)

type VolumeKind string

const (
	VolumeKindBind  VolumeKind = "bind"
	VolumeKindNamed VolumeKind = "named"
)

type Volume struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Kind VolumeKind `json:"kind,omitempty"`
}

func (v Volume) IsBind() bool {
	return v.Kind == VolumeKindBind
}

type Application struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Volumes      []Volume  `json:"volumes"`
}

// ClassifyMount decides whether the host side of a compose mount is a
// filesystem path or a runtime-managed volume identifier.
func ClassifyMount(source string) VolumeKind {
	switch {
	case strings.HasPrefix(source, "/"),
		strings.HasPrefix(source, "./"),
		strings.HasPrefix(source, "../"),
		strings.HasPrefix(source, "~"),
		source == ".", source == "..":
		return VolumeKindBind
	default:
		return VolumeKindNamed
	}
}
