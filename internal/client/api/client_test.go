package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", 5*time.Second, logging.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_KeepsTokenAndSendsBearer(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "ada@example.org", in["email"])
			assert.Equal(t, "pw", in["password"])
			writeJSON(w, http.StatusOK, map[string]any{
				"token": "tok-1",
				"user":  map[string]any{"id": 7, "email": "ada@example.org", "role": "student"},
			})
		case "/student/certificates":
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"count": 0, "certificates": []any{}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	s, err := c.Login(context.Background(), "ada@example.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.User.ID)
	assert.Equal(t, "tok-1", c.Token())

	certs, err := c.HolderCertificates(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, certs)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestErrorResponses_UnwrapToKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   string
		want   error
	}{
		{"validation", http.StatusBadRequest, common.KindValidation, common.ErrValidation},
		{"auth", http.StatusUnauthorized, common.KindAuth, common.ErrorUnauthorized},
		{"forbidden", http.StatusForbidden, common.KindForbidden, common.ErrForbidden},
		{"not found", http.StatusNotFound, common.KindNotFound, common.ErrorNotFound},
		{"conflict", http.StatusBadRequest, common.KindConflict, common.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": "nope", "kind": tt.kind})
			})

			_, err := c.Verify(context.Background(), "1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestErrorResponse_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway\n")
	})

	err := c.Health(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.Nil(t, apiErr.Unwrap())
}

func TestUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, time.Second, logging.NewNop())
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestIssue_SendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/university/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "batch.csv", fh.Filename)
		assert.Equal(t, "name\nAda\n", string(data))
		assert.Equal(t, "tpl-1", r.FormValue("template_id"))

		writeJSON(w, http.StatusOK, map[string]any{
			"uploaded": 1,
			"rows":     []any{map[string]any{"student": map[string]string{"name": "Ada"}, "cert_id": 1}},
		})
	})

	rows, err := c.Issue(context.Background(), "batch.csv", []byte("name\nAda\n"), "tpl-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].CertID)
	assert.Equal(t, "Ada", rows[0].Student["name"])
}

func TestIssue_OmitsEmptyTemplateID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["template_id"]
		assert.False(t, present)
		writeJSON(w, http.StatusOK, map[string]any{"uploaded": 0, "rows": []any{}})
	})

	_, err := c.Issue(context.Background(), "batch.csv", []byte("name\n"), "")
	require.NoError(t, err)
}

func TestDownload_UsesContentDisposition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/certificates/3", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="certificate_3.txt"`)
		_, _ = io.WriteString(w, "CERTIFICATE")
	})

	a, err := c.Download(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "certificate_3.txt", a.Filename)
	assert.Equal(t, "CERTIFICATE", string(a.Data))
}

func TestSearchAndClearAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/employer/search":
			assert.Equal(t, "ada lovelace", r.URL.Query().Get("q"))
			writeJSON(w, http.StatusOK, map[string]any{"count": 1, "results": []any{
				map[string]any{"certificate": map[string]any{"cert_id": 1}, "matched": true},
			}})
		case "/university/clear-all":
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": map[string]int{
				"certificates": 2, "templates": 1, "proofs": 2,
			}})
		}
	})

	res, err := c.Search(context.Background(), "ada lovelace")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, res[0].Matched)

	cleared, err := c.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ClearResult{Certificates: 2, Templates: 1, Proofs: 2}, *cleared)
}
