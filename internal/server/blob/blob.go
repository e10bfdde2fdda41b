// Package blob stores binary objects: template images and rendered
// certificate artifacts. Keys are slash-separated relative paths.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/common"
)

// Store is a flat key/value byte store. Get of a missing key returns
// common.ErrorNotFound; Delete of a missing key succeeds.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

func TemplateKey(id, ext string) string {
	return "templates/template_" + id + ext
}

func ArtifactKey(certID int64, ext string) string {
	return fmt.Sprintf("certs/certificate_%d%s", certID, ext)
}

// cleanKey normalizes key and rejects absolute paths and parent escapes.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: invalid blob key %q", common.ErrValidation, key)
	}
	k := path.Clean(key)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("%w: invalid blob key %q", common.ErrValidation, key)
	}
	return k, nil
}
