package project

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/pkg/models"
	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services yaml.Node                 `yaml:"services"`
	Volumes  map[string]*composeVolume `yaml:"volumes"`
}

type composeService struct {
	Volumes []serviceMount `yaml:"volumes"`
}

type composeVolume struct {
	Name     string    `yaml:"name"`
	External yaml.Node `yaml:"external"`
}

func (v *composeVolume) isExternal() bool {
	switch v.External.Kind {
	case yaml.ScalarNode:
		return v.External.Value == "true"
	case yaml.MappingNode:
		return true
	default:
		return false
	}
}

// serviceMount is one entry of a service's volumes list, in either the short
// "source:target[:mode]" form or the long mapping form.
type serviceMount struct {
	Type   string `yaml:"type"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

func (m *serviceMount) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parts := strings.Split(node.Value, ":")
		if len(parts) >= 2 {
			m.Source = parts[0]
			m.Target = parts[1]
		} else {
			// anonymous volume, no host side
			m.Target = parts[0]
		}
		return nil
	case yaml.MappingNode:
		type plain serviceMount
		var long plain
		if err := node.Decode(&long); err != nil {
			return err
		}
		*m = serviceMount(long)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported volume entry", node.Line)
	}
}

// FindComposeFile returns the compose descriptor inside dir, or "" when the
// directory has none.
func FindComposeFile(dir string) string {
	for _, name := range constants.ComposeFileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadVolumes parses the compose descriptor and returns the host side of its
// data mounts, deduplicated by source in first-seen order.
func LoadVolumes(composePath, appRoot string) ([]models.Volume, error) {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(composePath), err)
	}

	var compose composeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(composePath), err)
	}

	projectName := compose.Name
	if projectName == "" {
		projectName = filepath.Base(appRoot)
	}
	projectName = NormalizeProjectName(projectName)

	mounts, err := serviceMounts(&compose.Services)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(composePath), err)
	}

	volumes := []models.Volume{}
	seen := make(map[string]bool)

	for _, mount := range mounts {
		if mount.Source == "" || mount.Type == "tmpfs" || mount.Type == "npipe" {
			continue
		}
		if seen[mount.Source] {
			continue
		}
		seen[mount.Source] = true

		kind := models.ClassifyMount(mount.Source)
		switch mount.Type {
		case "bind":
			kind = models.VolumeKindBind
		case "volume":
			kind = models.VolumeKindNamed
		}

		vol := models.Volume{Name: mount.Source, Kind: kind}
		if kind == models.VolumeKindBind {
			vol.Path = resolveHostPath(mount.Source, appRoot)
		} else {
			vol.Path = runtimeVolumeName(projectName, mount.Source, compose.Volumes)
		}
		volumes = append(volumes, vol)
	}

	return volumes, nil
}

// services are walked in document order so discovery is deterministic
func serviceMounts(services *yaml.Node) ([]serviceMount, error) {
	if services.Kind == 0 {
		return nil, nil
	}
	if services.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: services must be a mapping", services.Line)
	}

	var mounts []serviceMount
	for i := 0; i+1 < len(services.Content); i += 2 {
		var svc composeService
		if err := services.Content[i+1].Decode(&svc); err != nil {
			return nil, fmt.Errorf("service %s: %w", services.Content[i].Value, err)
		}
		mounts = append(mounts, svc.Volumes...)
	}
	return mounts, nil
}

func resolveHostPath(source, appRoot string) string {
	if strings.HasPrefix(source, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(source, "~"))
		}
	}
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(appRoot, source)
}

func runtimeVolumeName(projectName, source string, defs map[string]*composeVolume) string {
	if def, ok := defs[source]; ok && def != nil {
		if def.Name != "" {
			return def.Name
		}
		if def.isExternal() {
			return source
		}
	}
	return projectName + "_" + source
}

var invalidProjectChars = regexp.MustCompile(`[^a-z0-9_-]`)

// NormalizeProjectName applies the compose rules for project names, which
// prefix the runtime names of the project's volumes.
func NormalizeProjectName(name string) string {
	return invalidProjectChars.ReplaceAllString(strings.ToLower(name), "")
}
