package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

const (
	// NginxConfFile is the generated proxy configuration inside the build directory.
	NginxConfFile = "nginx.conf"
	// DockerfileFile is the generated image definition inside the build directory.
	DockerfileFile = "Dockerfile"
)

// BuildContext writes the proxy image build inputs into a dedicated directory.
type BuildContext struct {
	dir string
	log *log.Logger
}

var _ out.ArtifactWriter = (*BuildContext)(nil)

// NewBuildContext creates a writer targeting dir.
func NewBuildContext(dir string, logger *log.Logger) *BuildContext {
	return &BuildContext{
		dir: dir,
		log: logger.With("adapter", "filesystem"),
	}
}

// Write stores nginx.conf and Dockerfile and returns the build directory.
func (b *BuildContext) Write(artifacts domain.Artifacts) (string, error) {
	if err := os.MkdirAll(b.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create build directory: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{NginxConfFile, artifacts.NginxConf},
		{DockerfileFile, artifacts.Dockerfile},
	}
	for _, f := range files {
		path := filepath.Join(b.dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		b.log.Debug("build artifact written", "path", path, "bytes", len(f.content))
	}

	return b.dir, nil
}
