package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/store"
	"github.com/stretchr/testify/require"
)

const instDomain = "st.niituniversity.in"

func openStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "certhub.db") + "?_pragma=busy_timeout(5000)"
	s, err := store.Open(context.Background(), dsn, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openBlobs(t *testing.T) *blob.FSStore {
	t.Helper()
	b, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return b
}

func pngBytes(t *testing.T, w, h int) []byte {
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

// fakeCodes accepts code "123456" once per email and proofs listed in
// proven.
type fakeCodes struct {
	mu     sync.Mutex
	proven map[string]bool
	used   map[string]bool
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{proven: map[string]bool{}, used: map[string]bool{}}
}

func (f *fakeCodes) IsInstitutional(email string) bool {
	return len(email) > len(instDomain) && email[len(email)-len(instDomain)-1:] == "@"+instDomain
}

func (f *fakeCodes) Verify(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used[email] {
		return common.ErrCodeNotFound
	}
	if code != "123456" {
		return common.ErrCodeMismatch
	}
	f.used[email] = true
	return nil
}

func (f *fakeCodes) ConsumeProof(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.proven[email] {
		return common.ErrCodeNotFound
	}
	delete(f.proven, email)
	return nil
}

func (f *fakeCodes) RecordProof(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proven[email] = true
	return nil
}

type sent struct {
	certID int64
	to     string
}

type fakeDispatch struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeDispatch) EnqueueCertificate(_ context.Context, certID int64, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{certID, to})
}
