package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/server/qr"
	"github.com/gin-gonic/gin"
)

type identifierRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) downloadCertificate(c *gin.Context) {
	id, ok := h.certID(c)
	if !ok {
		return
	}
	a, err := h.svc.Certificates.Artifact(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Filename))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// studentCertificates lists certificates for the email query parameter,
// or for the caller's own email.
func (h *Handler) studentCertificates(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		email = claimsOf(c).Email
	}
	certs, err := h.svc.Certificates.ListByHolder(c.Request.Context(), email)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	writeCertificates(c, certs)
}

func (h *Handler) generateQR(c *gin.Context) {
	var req identifierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.svc.Verification.Lookup(ctx, req.StudentID); err != nil {
		h.abortWithError(c, err)
		return
	}

	now := time.Now().UTC()
	token, err := h.svc.Verification.IssueToken(req.StudentID, now)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	payload := gin.H{
		"student_id": req.StudentID,
		"timestamp":  now.Format(time.RFC3339),
		"token":      token,
	}
	png, err := qr.EncodeJSON(payload, qr.DefaultSize)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_base64": qr.Base64(png), "payload": payload})
}

func (h *Handler) verifyIdentifier(c *gin.Context) {
	var req identifierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Verification.VerifyByIdentifier(c.Request.Context(), req.StudentID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) search(c *gin.Context) {
	res, err := h.svc.Verification.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(res), "results": res})
}

// verifyToken takes the token from a JSON body or the token query
// parameter, as in the link printed on certificates.
func (h *Handler) verifyToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" && c.Request.Method == http.MethodPost {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		h.abortWithError(c, fmt.Errorf("%w: token required", common.ErrValidation))
		return
	}

	res, err := h.svc.Verification.VerifyToken(c.Request.Context(), token)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
