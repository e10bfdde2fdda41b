// Package render produces the downloadable artifact for a certificate: the
// bound template with the holder fields drawn on it as PNG, or a plain-text
// certificate when no usable template exists. Output depends only on the
// record, the template and its layout.
package render

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/models"
)

const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain; charset=utf-8"
)

type Artifact struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Ext is the artifact's file extension including the dot.
func (a *Artifact) Ext() string {
	if a.ContentType == ContentTypePNG {
		return ".png"
	}
	return ".txt"
}

type TemplateGetter interface {
	Get(ctx context.Context, id string) (*models.Template, error)
}

// QRFunc returns a PNG QR code for the certificate.
type QRFunc func(c *models.Certificate) ([]byte, error)

type Renderer struct {
	templates TemplateGetter
	images    blob.Store
	qr        QRFunc
	maxPixels int
	logger    logging.Logger
}

// New builds a Renderer. qr may be nil to never draw QR blocks;
// maxPixels <= 0 disables the size bound.
func New(templates TemplateGetter, images blob.Store, qr QRFunc, maxPixels int, logger logging.Logger) *Renderer {
	return &Renderer{
		templates: templates,
		images:    images,
		qr:        qr,
		maxPixels: maxPixels,
		logger:    logger.With("module", "render"),
	}
}

// Render never fails: any problem with the template path falls back to
// the text artifact.
func (r *Renderer) Render(ctx context.Context, c *models.Certificate) *Artifact {
	if c.TemplateID != nil && *c.TemplateID != "" {
		a, err := r.renderTemplate(ctx, c, *c.TemplateID)
		if err == nil {
			return a
		}
		r.logger.Warn(ctx, "template render failed, using text",
			"cert_id", c.ID, "template_id", *c.TemplateID, "error", err)
	}
	return Text(c)
}

func (r *Renderer) renderTemplate(ctx context.Context, c *models.Certificate, templateID string) (*Artifact, error) {
	tpl, err := r.templates.Get(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", templateID, err)
	}
	raw, err := r.images.Get(ctx, tpl.Filename)
	if err != nil {
		return nil, fmt.Errorf("template image %s: %w", tpl.Filename, err)
	}

	var qrPNG []byte
	if tpl.Layout.QR != nil && r.qr != nil {
		if qrPNG, err = r.qr(c); err != nil {
			return nil, fmt.Errorf("qr: %w", err)
		}
	}

	data, err := Compose(raw, tpl.Layout, c, qrPNG, r.maxPixels)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Data:        data,
		ContentType: ContentTypePNG,
		Filename:    fmt.Sprintf("certificate_%d.png", c.ID),
	}, nil
}
