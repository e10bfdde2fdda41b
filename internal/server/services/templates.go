package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/certhub/internal/server/store"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageExt = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"webp": ".webp",
	"bmp":  ".bmp",
}

// TemplateRegistry stores certificate background images and their field
// layouts. Templates are never modified; uploading again creates a new id.
type TemplateRegistry struct {
	store     *store.Store
	blobs     blob.Store
	maxPixels int
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

func NewTemplateRegistry(s *store.Store, blobs blob.Store, maxPixels int, logger logging.Logger) *TemplateRegistry {
	return &TemplateRegistry{
		store:     s,
		blobs:     blobs,
		maxPixels: maxPixels,
		logger:    logger.With("module", "templates"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ParseLayout decodes layout JSON. Empty input is the empty layout.
func ParseLayout(raw []byte) (models.Layout, error) {
	var l models.Layout
	if len(bytes.TrimSpace(raw)) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("%w: layout: %v", common.ErrValidation, err)
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("%w: layout: %v", common.ErrValidation, err)
	}
	return l, nil
}

// Register stores image under a fresh id together with layout.
func (r *TemplateRegistry) Register(ctx context.Context, uploadedBy string, img []byte, layout models.Layout) (*models.Template, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: layout: %v", common.ErrValidation, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: not a supported image: %v", common.ErrValidation, err)
	}
	ext, ok := imageExt[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image format %s", common.ErrValidation, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", common.ErrValidation)
	}
	if r.maxPixels > 0 && cfg.Width*cfg.Height > r.maxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds %d pixels", common.ErrValidation, cfg.Width, cfg.Height, r.maxPixels)
	}

	id := r.newID()
	t := &models.Template{
		ID:         id,
		Filename:   blob.TemplateKey(id, ext),
		Layout:     layout,
		UploadedBy: uploadedBy,
		UploadedAt: r.now().UTC(),
	}

	if err := r.blobs.Put(ctx, t.Filename, img); err != nil {
		return nil, err
	}

	err = r.store.WithTx(ctx, func(ctx context.Context, repos *repomanager.Repos) error {
		return repos.Templates.Create(ctx, t)
	})
	if err != nil {
		if derr := r.blobs.Delete(ctx, t.Filename); derr != nil {
			r.logger.Warn(ctx, "orphaned template image", "key", t.Filename, "error", derr)
		}
		return nil, err
	}

	r.logger.Info(ctx, "template registered", "template_id", id, "width", cfg.Width, "height", cfg.Height)
	return t, nil
}

func (r *TemplateRegistry) Get(ctx context.Context, id string) (*models.Template, error) {
	return r.store.Repos().Templates.Get(ctx, id)
}

func (r *TemplateRegistry) List(ctx context.Context) ([]models.Template, error) {
	return r.store.Repos().Templates.List(ctx)
}
