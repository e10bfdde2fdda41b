package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/dmitrijs2005/certhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

type issuedRow struct {
	Student map[string]string `json:"student"`
	CertID  int64             `json:"cert_id"`
}

// readFormFile reads the named multipart file, bounded by MaxUploadBytes.
func (h *Handler) readFormFile(c *gin.Context, field string) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+1<<20)
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: multipart field %q required", common.ErrValidation, field)
	}
	if fh.Size > h.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, h.opts.MaxUploadBytes)
	}
	return readAll(fh)
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", common.ErrValidation, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) uploadTemplate(c *gin.Context) {
	img, err := h.readFormFile(c, "file")
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	layout, err := services.ParseLayout([]byte(c.PostForm("layout")))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	tpl, err := h.svc.Templates.Register(c.Request.Context(), claimsOf(c).Email, img, layout)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "template_id": tpl.ID, "template": tpl})
}

func (h *Handler) listTemplates(c *gin.Context) {
	list, err := h.svc.Templates.List(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	byID := make(map[string]models.Template, len(list))
	for _, t := range list {
		byID[t.ID] = t
	}
	c.JSON(http.StatusOK, gin.H{"templates": byID})
}

func (h *Handler) uploadRecords(c *gin.Context) {
	data, err := h.readFormFile(c, "file")
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	certs, err := h.svc.Issuer.IssueCSV(c.Request.Context(), data, c.PostForm("template_id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	rows := make([]issuedRow, len(certs))
	for i, cert := range certs {
		rows[i] = issuedRow{Student: cert.Fields, CertID: cert.ID}
	}
	c.JSON(http.StatusOK, gin.H{"uploaded": len(certs), "rows": rows})
}

func (h *Handler) listCertificates(c *gin.Context) {
	certs, err := h.svc.Certificates.List(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	writeCertificates(c, certs)
}

func (h *Handler) clearAll(c *gin.Context) {
	res, err := h.svc.Admin.ClearAll(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "all records deleted", "deleted": res})
}

func (h *Handler) resendCertificate(c *gin.Context) {
	id, ok := h.certID(c)
	if !ok {
		return
	}
	cert, err := h.svc.Issuer.Resend(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": true, "emailed_to": cert.EmailedTo})
}

func (h *Handler) certID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("cert_id"), 10, 64)
	if err != nil || id <= 0 {
		h.abortWithError(c, fmt.Errorf("%w: invalid certificate id", common.ErrValidation))
		return 0, false
	}
	return id, true
}

func writeCertificates(c *gin.Context, certs []models.Certificate) {
	if certs == nil {
		certs = []models.Certificate{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(certs), "certificates": certs})
}
