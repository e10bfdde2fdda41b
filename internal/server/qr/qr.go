// Package qr encodes verification payloads as PNG QR codes. A QR code
// carries no authenticity of its own; scanners must still ask the
// verification endpoint.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// Encode returns a size×size PNG encoding content at medium error
// correction. The same input always gives the same bytes.
func Encode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// EncodeJSON marshals payload and encodes it.
func EncodeJSON(payload any, size int) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qr payload: %w", err)
	}
	return Encode(string(b), size)
}

// Base64 is the form returned to API clients.
func Base64(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
