package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/render"
	"github.com/dmitrijs2005/certhub/internal/server/store"
)

// CertificateService reads certificates and produces their artifacts.
type CertificateService struct {
	store    *store.Store
	renderer *render.Renderer
	blobs    blob.Store
	logger   logging.Logger
}

func NewCertificateService(s *store.Store, renderer *render.Renderer, blobs blob.Store, logger logging.Logger) *CertificateService {
	return &CertificateService{store: s, renderer: renderer, blobs: blobs, logger: logger.With("module", "certificates")}
}

func (s *CertificateService) Get(ctx context.Context, id int64) (*models.Certificate, error) {
	return s.store.Repos().Certificates.Get(ctx, id)
}

func (s *CertificateService) List(ctx context.Context) ([]models.Certificate, error) {
	return s.store.Repos().Certificates.List(ctx)
}

func (s *CertificateService) ListByHolder(ctx context.Context, email string) ([]models.Certificate, error) {
	return s.store.Repos().Certificates.ListByHolderEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Artifact renders the certificate and refreshes its cached copy. Rendering
// is deterministic, so the cached bytes only change when the template does.
func (s *CertificateService) Artifact(ctx context.Context, id int64) (*render.Artifact, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a := s.renderer.Render(ctx, c)
	if err := s.blobs.Put(ctx, blob.ArtifactKey(c.ID, a.Ext()), a.Data); err != nil {
		s.logger.Warn(ctx, "artifact cache write failed", "cert_id", c.ID, "error", err)
	}
	return a, nil
}
