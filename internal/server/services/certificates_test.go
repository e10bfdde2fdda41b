package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/blob"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateService_Artifact(t *testing.T) {
	st := openStore(t)
	blobs := openBlobs(t)
	log := logging.NewNop()
	ctx := context.Background()

	reg := NewTemplateRegistry(st, blobs, 0, log)
	tpl, err := reg.Register(ctx, "", pngBytes(t, 400, 300), models.Layout{})
	require.NoError(t, err)

	iss := NewCredentialIssuer(st, nil, log)
	_, err = iss.IssueCSV(ctx, []byte(sampleCSV), "")
	require.NoError(t, err)
	_, err = iss.IssueCSV(ctx, []byte("name\nGrace\n"), tpl.ID)
	require.NoError(t, err)

	svc := NewCertificateService(st, render.New(st.Repos().Templates, blobs, nil, 0, log), blobs, log)

	a, err := svc.Artifact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, render.ContentTypeText, a.ContentType)
	assert.Contains(t, string(a.Data), "Ada")
	cached, err := blobs.Get(ctx, blob.ArtifactKey(1, ".txt"))
	require.NoError(t, err)
	assert.Equal(t, a.Data, cached)

	img, err := svc.Artifact(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, render.ContentTypePNG, img.ContentType)
	again, err := svc.Artifact(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, img.Data, again.Data)

	_, err = svc.Artifact(ctx, 42)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mine, err := svc.ListByHolder(ctx, "ADA@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].ID)
}
