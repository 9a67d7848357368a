package out

import "github.com/bnema/proxy-manager/internal/domain"

// ConfigStore persists the declared state.
type ConfigStore interface {
	// Load returns the stored state, or the defaults when nothing was stored yet.
	Load() (*domain.Config, error)
	// Save overwrites the stored state.
	Save(cfg *domain.Config) error
}

// ArtifactWriter writes the proxy image build context.
type ArtifactWriter interface {
	// Write stores the artifacts and returns the build directory.
	Write(artifacts domain.Artifacts) (string, error)
}
