package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/qr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplates map[string]*models.Template

func (f fakeTemplates) Get(_ context.Context, id string) (*models.Template, error) {
	t, ok := f[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }

func sampleCert(templateID *string) *models.Certificate {
	return &models.Certificate{
		ID: 7,
		Fields: map[string]string{
			"name":   "Ada Lovelace",
			"degree": "BSc",
			"email":  "ada@x.com",
			"club":   "chess",
		},
		GeneratedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		TemplateID:  templateID,
	}
}

type fixture struct {
	renderer *Renderer
	blobs    *blob.FSStore
	tpls     fakeTemplates
}

func newFixture(t *testing.T, qrFn QRFunc, maxPixels int) *fixture {
	t.Helper()
	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	tpls := fakeTemplates{}
	return &fixture{
		renderer: New(tpls, blobs, qrFn, maxPixels, logging.NewNop()),
		blobs:    blobs,
		tpls:     tpls,
	}
}

func (f *fixture) addTemplate(t *testing.T, id string, img []byte, layout models.Layout) {
	t.Helper()
	key := blob.TemplateKey(id, ".png")
	require.NoError(t, f.blobs.Put(context.Background(), key, img))
	f.tpls[id] = &models.Template{ID: id, Filename: key, Layout: layout}
}

func TestText_Format(t *testing.T) {
	a := Text(sampleCert(nil))

	assert.Equal(t, ContentTypeText, a.ContentType)
	assert.Equal(t, "certificate_7.txt", a.Filename)
	assert.Equal(t, ".txt", a.Ext())

	s := string(a.Data)
	assert.Contains(t, s, "Certificate ID: 7\n")
	assert.Contains(t, s, "Issue Date: 2025-06-01\n")
	assert.Contains(t, s, "Name: Ada Lovelace\n")
	assert.Contains(t, s, "Degree: BSc\n")
	assert.Contains(t, s, "Major: N/A\n")
	assert.Contains(t, s, "GPA: N/A\n")
	assert.Contains(t, s, "club: chess\n")
	assert.Contains(t, s, "email: ada@x.com\n")
	assert.Less(t, strings.Index(s, "club:"), strings.Index(s, "email:"))
}

func TestRender_NoTemplateIsText(t *testing.T) {
	f := newFixture(t, nil, 0)

	a := f.renderer.Render(context.Background(), sampleCert(nil))
	assert.Equal(t, Text(sampleCert(nil)), a)
}

func TestRender_MissingTemplateFallsBack(t *testing.T) {
	f := newFixture(t, nil, 0)
	ctx := context.Background()

	a := f.renderer.Render(ctx, sampleCert(strPtr("unknown")))
	assert.Equal(t, ContentTypeText, a.ContentType)

	// metadata present, image file gone
	f.tpls["gone"] = &models.Template{ID: "gone", Filename: blob.TemplateKey("gone", ".png")}
	a = f.renderer.Render(ctx, sampleCert(strPtr("gone")))
	assert.Equal(t, ContentTypeText, a.ContentType)
	assert.Contains(t, string(a.Data), "Certificate ID: 7")
	assert.Contains(t, string(a.Data), "Ada Lovelace")
}

func TestRender_CorruptImageFallsBack(t *testing.T) {
	f := newFixture(t, nil, 0)
	f.addTemplate(t, "bad", []byte("not an image"), models.Layout{})

	a := f.renderer.Render(context.Background(), sampleCert(strPtr("bad")))
	assert.Equal(t, ContentTypeText, a.ContentType)
}

func TestRender_PixelBoundFallsBack(t *testing.T) {
	f := newFixture(t, nil, 100)
	f.addTemplate(t, "big", whitePNG(t, 20, 20), models.Layout{})

	a := f.renderer.Render(context.Background(), sampleCert(strPtr("big")))
	assert.Equal(t, ContentTypeText, a.ContentType)
}

func TestRender_TemplateComposite(t *testing.T) {
	f := newFixture(t, nil, 0)
	tpl := whitePNG(t, 400, 300)
	f.addTemplate(t, "t1", tpl, models.Layout{})

	a := f.renderer.Render(context.Background(), sampleCert(strPtr("t1")))
	require.Equal(t, ContentTypePNG, a.ContentType)
	assert.Equal(t, "certificate_7.png", a.Filename)

	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	// name is drawn centered around y = 0.40 * 300
	assert.True(t, hasDarkPixel(img, image.Rect(100, 100, 300, 140)), "name text expected")
	// gpa is absent, nothing drawn at its default row
	assert.False(t, hasDarkPixel(img, image.Rect(0, 212, 400, 226)), "gpa row must stay blank")
}

func TestRender_LayoutPositionOverridesDefault(t *testing.T) {
	f := newFixture(t, nil, 0)
	layout := models.Layout{Fields: map[string]models.FieldPlacement{
		"name": {X: 100, Y: 30, FontSize: 20},
	}}
	f.addTemplate(t, "t1", whitePNG(t, 400, 300), layout)

	a := f.renderer.Render(context.Background(), sampleCert(strPtr("t1")))
	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)

	assert.True(t, hasDarkPixel(img, image.Rect(20, 15, 180, 45)))
	assert.False(t, hasDarkPixel(img, image.Rect(0, 105, 400, 135)), "default name row must be empty")
}

func TestRender_Deterministic(t *testing.T) {
	qrFn := func(c *models.Certificate) ([]byte, error) { return qr.Encode("cert-7", 64) }
	f := newFixture(t, qrFn, 0)
	layout := models.Layout{QR: &models.QRPlacement{X: 10, Y: 10, Size: 80}}
	f.addTemplate(t, "t1", whitePNG(t, 400, 300), layout)

	ctx := context.Background()
	a := f.renderer.Render(ctx, sampleCert(strPtr("t1")))
	b := f.renderer.Render(ctx, sampleCert(strPtr("t1")))
	require.Equal(t, ContentTypePNG, a.ContentType)
	assert.Equal(t, a.Data, b.Data)

	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.True(t, hasDarkPixel(img, image.Rect(10, 10, 90, 90)), "qr block expected")
}

func TestRender_QRErrorFallsBack(t *testing.T) {
	qrFn := func(*models.Certificate) ([]byte, error) { return nil, assert.AnError }
	f := newFixture(t, qrFn, 0)
	f.addTemplate(t, "t1", whitePNG(t, 100, 100), models.Layout{QR: &models.QRPlacement{Size: 10}})

	a := f.renderer.Render(context.Background(), sampleCert(strPtr("t1")))
	assert.Equal(t, ContentTypeText, a.ContentType)
}

func TestCompose_ErrorsAreRenderErrors(t *testing.T) {
	_, err := Compose([]byte("junk"), models.Layout{}, sampleCert(nil), nil, 0)
	assert.ErrorIs(t, err, common.ErrRender)
}

func hasDarkPixel(img image.Image, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr < 0x8000 && cg < 0x8000 && cb < 0x8000 {
				return true
			}
		}
	}
	return false
}
