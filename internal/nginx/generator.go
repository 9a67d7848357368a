// Package nginx renders the proxy build context: an nginx.conf with one server
// block per resolved route and the Dockerfile that bakes it into an image.
package nginx

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/bnema/proxy-manager/internal/domain"
)

const (
	// DefaultImage is the base image of the proxy.
	DefaultImage = "nginx:alpine"

	// Resolver is the embedded DNS server of user-defined Docker networks.
	Resolver    = "127.0.0.11"
	ResolverTTL = "30s"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type server struct {
	HostPort     uint16
	Target       string
	QuotedTarget string
	Port         uint16
}

type confData struct {
	Resolver    string
	ResolverTTL string
	Servers     []server
}

type dockerfileData struct {
	BaseImage string
	Ports     []uint16
}

// Generator renders nginx.conf and Dockerfile text from the declared state.
type Generator struct {
	image string
}

// NewGenerator returns a generator building on image, or DefaultImage when empty.
func NewGenerator(image string) *Generator {
	if image == "" {
		image = DefaultImage
	}
	return &Generator{image: image}
}

// Image returns the base image used in the Dockerfile.
func (g *Generator) Image() string {
	return g.image
}

// Config renders the complete nginx.conf. Routes are emitted in stored order and
// routes whose target is not a declared container are skipped.
func (g *Generator) Config(cfg *domain.Config) (string, error) {
	data := confData{
		Resolver:    Resolver,
		ResolverTTL: ResolverTTL,
	}
	for _, st := range cfg.RouteStatuses() {
		if !st.Resolved {
			continue
		}
		data.Servers = append(data.Servers, server{
			HostPort:     st.HostPort,
			Target:       st.Target,
			QuotedTarget: domain.QuoteNginx(st.Target),
			Port:         st.InternalPort,
		})
	}
	return render("nginx.conf.tmpl", data)
}

// Dockerfile renders the image definition exposing every host port.
func (g *Generator) Dockerfile(hostPorts []uint16) (string, error) {
	return render("Dockerfile.tmpl", dockerfileData{
		BaseImage: g.image,
		Ports:     hostPorts,
	})
}

// Artifacts renders both build inputs for cfg.
func (g *Generator) Artifacts(cfg *domain.Config) (domain.Artifacts, error) {
	conf, err := g.Config(cfg)
	if err != nil {
		return domain.Artifacts{}, err
	}
	dockerfile, err := g.Dockerfile(cfg.HostPorts())
	if err != nil {
		return domain.Artifacts{}, err
	}
	return domain.Artifacts{NginxConf: conf, Dockerfile: dockerfile}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
