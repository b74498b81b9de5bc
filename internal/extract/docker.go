package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

var (
	dockerFromRe   = regexp.MustCompile(`(?m)^FROM\s+(?:--platform=[^\s]+\s+)?([^\s]+)`)
	dockerExposeRe = regexp.MustCompile(`(?m)^EXPOSE\s+(\d+)`)
	dockerArgRe    = regexp.MustCompile(`(?m)^ARG\s+([^\s=]+)`)
)

// DockerExtractor turns a Dockerfile into a container node keyed by the
// directory holding it, plus a library node for the base image. The
// dockerfile path lands in the container's metadata so the secret detector
// can re-read it.
type DockerExtractor struct {
	log *zap.Logger
}

func NewDockerExtractor(logger *zap.Logger) *DockerExtractor {
	return &DockerExtractor{log: logger.Named("extract.docker")}
}

func (e *DockerExtractor) Name() string { return "docker" }

func (e *DockerExtractor) CanHandle(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "Dockerfile")
}

func (e *DockerExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	raw, err := os.ReadFile(path)
	if err != nil {
		e.log.Debug("unreadable dockerfile", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	content := string(raw)

	var baseImage string
	if m := dockerFromRe.FindStringSubmatch(content); m != nil {
		baseImage = m[1]
	}
	var ports []string
	for _, m := range dockerExposeRe.FindAllStringSubmatch(content, -1) {
		ports = append(ports, m[1])
	}
	var args []string
	for _, m := range dockerArgRe.FindAllStringSubmatch(content, -1) {
		args = append(args, m[1])
	}

	dir := filepath.Base(filepath.Dir(path))
	containerID := "container:" + dir
	nodes := []schemas.Node{{
		ID:   containerID,
		Name: dir,
		Kind: schemas.NodeContainer,
		Metadata: map[string]any{
			"base_image":    baseImage,
			"exposed_ports": ports,
			"build_args":    args,
			"dockerfile":    path,
		},
	}}

	var edges []schemas.Edge
	if baseImage != "" {
		imageID := "lib:" + baseImage
		nodes = append(nodes, schemas.Node{
			ID:       imageID,
			Name:     baseImage,
			Kind:     schemas.NodeLibrary,
			Metadata: map[string]any{"type": "docker_image"},
		})
		edges = append(edges, schemas.Edge{
			Source:   containerID,
			Target:   imageID,
			Kind:     schemas.EdgeDependsOn,
			Metadata: map[string]any{"relationship": "base_image"},
		})
	}
	return nodes, edges
}
