package services

import (
	"context"

	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/certhub/internal/server/store"
)

type ClearResult struct {
	Certificates int64 `json:"certificates"`
	Templates    int64 `json:"templates"`
	Proofs       int64 `json:"proofs"`
}

type AdminService struct {
	store  *store.Store
	blobs  blob.Store
	logger logging.Logger
}

func NewAdminService(s *store.Store, blobs blob.Store, logger logging.Logger) *AdminService {
	return &AdminService{store: s, blobs: blobs, logger: logger.With("module", "admin")}
}

// ClearAll deletes every proof, certificate and template in one
// transaction, then removes their blobs. Blob failures are logged only.
// Id counters keep counting.
func (s *AdminService) ClearAll(ctx context.Context) (*ClearResult, error) {
	var (
		res      ClearResult
		blobKeys []string
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, r *repomanager.Repos) error {
		certs, err := r.Certificates.List(ctx)
		if err != nil {
			return err
		}
		tpls, err := r.Templates.List(ctx)
		if err != nil {
			return err
		}

		keys := make([]string, 0, 2*len(certs)+len(tpls))
		for _, c := range certs {
			keys = append(keys, blob.ArtifactKey(c.ID, ".png"), blob.ArtifactKey(c.ID, ".txt"))
		}
		for _, t := range tpls {
			keys = append(keys, t.Filename)
		}

		if res.Proofs, err = r.Proofs.DeleteAll(ctx); err != nil {
			return err
		}
		if res.Certificates, err = r.Certificates.DeleteAll(ctx); err != nil {
			return err
		}
		if res.Templates, err = r.Templates.DeleteAll(ctx); err != nil {
			return err
		}
		blobKeys = keys
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, k := range blobKeys {
		if err := s.blobs.Delete(ctx, k); err != nil {
			s.logger.Warn(ctx, "blob delete failed", "key", k, "error", err)
		}
	}

	s.logger.Info(ctx, "records cleared",
		"certificates", res.Certificates, "templates", res.Templates, "proofs", res.Proofs)
	return &res, nil
}
