package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"sync"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Default vertical positions as fractions of image height. Fields are
// centered horizontally unless the layout gives an x.
var defaultY = map[string]float64{
	models.FieldName:           0.40,
	models.FieldEnrollmentNo:   0.48,
	models.FieldDegree:         0.55,
	models.FieldMajor:          0.61,
	models.FieldGraduationYear: 0.67,
	models.FieldGPA:            0.73,
}

const (
	nameSizeFraction  = 0.05
	otherSizeFraction = 0.03
	minFontSize       = 8
)

var textColor = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}

var (
	fontsOnce         sync.Once
	boldFont, regFont *opentype.Font
	fontsErr          error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if boldFont, fontsErr = opentype.Parse(gobold.TTF); fontsErr != nil {
			return
		}
		regFont, fontsErr = opentype.Parse(goregular.TTF)
	})
	return fontsErr
}

// Compose draws the recognized fields of c (and the QR image, if given and
// placed by the layout) over the template image and encodes a PNG.
// All failures are common.ErrRender.
func Compose(templateImage []byte, layout models.Layout, c *models.Certificate, qrPNG []byte, maxPixels int) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("%w: fonts: %v", common.ErrRender, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(templateImage))
	if err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", common.ErrRender, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", common.ErrRender)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: image %dx%d exceeds %d pixels", common.ErrRender, cfg.Width, cfg.Height, maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(templateImage))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", common.ErrRender, err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)

	layer := image.NewRGBA(canvas.Bounds())
	if err := drawFields(layer, layout, c); err != nil {
		return nil, err
	}
	draw.Draw(canvas, canvas.Bounds(), layer, image.Point{}, draw.Over)

	if layout.QR != nil && len(qrPNG) > 0 {
		qrImg, err := png.Decode(bytes.NewReader(qrPNG))
		if err != nil {
			return nil, fmt.Errorf("%w: qr decode: %v", common.ErrRender, err)
		}
		q := layout.QR
		xdraw.NearestNeighbor.Scale(canvas, image.Rect(q.X, q.Y, q.X+q.Size, q.Y+q.Size), qrImg, qrImg.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", common.ErrRender, err)
	}
	return buf.Bytes(), nil
}

func drawFields(dst *image.RGBA, layout models.Layout, c *models.Certificate) error {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()

	for _, field := range models.RecognizedFields {
		text, ok := c.Field(field)
		if !ok {
			continue
		}

		x := w / 2
		y := int(defaultY[field] * float64(h))
		size := otherSizeFraction * float64(h)
		if field == models.FieldName {
			size = nameSizeFraction * float64(h)
		}
		if p, ok := layout.Placement(field); ok {
			x, y = p.X, p.Y
			if p.FontSize > 0 {
				size = p.FontSize
			}
		}
		if size < minFontSize {
			size = minFontSize
		}

		f := regFont
		if field == models.FieldName {
			f = boldFont
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return fmt.Errorf("%w: face: %v", common.ErrRender, err)
		}
		drawCentered(dst, face, text, x, y)
		_ = face.Close()
	}
	return nil
}

// drawCentered draws text with its horizontal center at x and its vertical
// center on y.
func drawCentered(dst *image.RGBA, face font.Face, text string, x, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(textColor), Face: face}
	m := face.Metrics()
	width := d.MeasureString(text)

	d.Dot = fixed.Point26_6{
		X: fixed.I(x) - width/2,
		Y: fixed.I(y) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}
