package handlers

import (
	"context"

	"mixer/internal/mixer"
	"mixer/internal/pkg/logger"
	"mixer/internal/ports"
)

// Runner executes one mix.
type Runner interface {
	Run(ctx context.Context, req mixer.Request) (*mixer.Manifest, error)
}

// ManifestStore persists manifests between requests.
type ManifestStore interface {
	Save(ctx context.Context, m *mixer.Manifest) error
	Get(ctx context.Context, mixID string) (*mixer.Manifest, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Runner    Runner
	Manifests ManifestStore
	SP        ports.StorageProvider
	Log       *logger.Logger

	ServiceName string
	Version     string
	// PublicBaseURL prefixes the download links in responses.
	PublicBaseURL string
}

type Handler struct {
	runner    Runner
	manifests ManifestStore
	sp        ports.StorageProvider
	log       *logger.Logger

	serviceName   string
	version       string
	publicBaseURL string
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		runner:        d.Runner,
		manifests:     d.Manifests,
		sp:            d.SP,
		log:           log.WithComponent("httpapi"),
		serviceName:   d.ServiceName,
		version:       d.Version,
		publicBaseURL: d.PublicBaseURL,
	}
}
