package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Template is an uploaded certificate background plus the positions of the
// fields drawn on it. Templates are never updated; a new upload gets a new ID.
type Template struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Layout     Layout    `json:"layout"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// FieldPlacement is where a field's text is centered, in image pixels.
// A zero FontSize means the renderer default.
type FieldPlacement struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	FontSize float64 `json:"font_size,omitempty"`
}

// QRPlacement is the top-left corner and edge length of the QR block.
type QRPlacement struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

// Layout maps field names to placements. On the wire it is one flat object
// where the reserved key "qr" holds the QR placement.
type Layout struct {
	Fields map[string]FieldPlacement
	QR     *QRPlacement
}

const layoutQRKey = "qr"

func (l Layout) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Fields)+1)
	for k, v := range l.Fields {
		out[k] = v
	}
	if l.QR != nil {
		out[layoutQRKey] = l.QR
	}
	return json.Marshal(out)
}

func (l *Layout) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	l.Fields = make(map[string]FieldPlacement, len(raw))
	l.QR = nil
	for key, msg := range raw {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == layoutQRKey {
			var qr QRPlacement
			if err := json.Unmarshal(msg, &qr); err != nil {
				return fmt.Errorf("layout %q: %w", key, err)
			}
			l.QR = &qr
			continue
		}

		var p struct {
			FieldPlacement
			CamelFontSize float64 `json:"fontSize"`
		}
		if err := json.Unmarshal(msg, &p); err != nil {
			return fmt.Errorf("layout %q: %w", key, err)
		}
		if p.FontSize == 0 {
			p.FontSize = p.CamelFontSize
		}
		l.Fields[name] = p.FieldPlacement
	}
	return nil
}

// Validate rejects negative coordinates and sizes.
func (l Layout) Validate() error {
	names := make([]string, 0, len(l.Fields))
	for k := range l.Fields {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		p := l.Fields[name]
		if p.X < 0 || p.Y < 0 || p.FontSize < 0 {
			return fmt.Errorf("field %q: negative position or font size", name)
		}
	}
	if l.QR != nil && (l.QR.X < 0 || l.QR.Y < 0 || l.QR.Size <= 0) {
		return fmt.Errorf("qr: position must be non-negative and size positive")
	}
	return nil
}

// Placement returns the layout entry for a field, if any.
func (l Layout) Placement(field string) (FieldPlacement, bool) {
	p, ok := l.Fields[field]
	return p, ok
}
