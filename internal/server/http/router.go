// Package http exposes the certificate services over a JSON HTTP API
// built on gin.
package http

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/otp"
	"github.com/dmitrijs2005/certhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Services are the handlers' collaborators.
type Services struct {
	Auth         *services.AuthService
	Codes        *otp.Service
	Templates    *services.TemplateRegistry
	Issuer       *services.CredentialIssuer
	Certificates *services.CertificateService
	Verification *services.VerificationQueryService
	Admin        *services.AdminService
}

type Options struct {
	// AuthRatePerMinute limits /auth requests per client IP; 0 disables.
	AuthRatePerMinute int
	// MaxUploadBytes bounds multipart bodies.
	MaxUploadBytes int64
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the client IP is always the peer address.
	TrustedProxies []string
}

type Handler struct {
	svc      Services
	opts     Options
	validate *validator.Validate
	logger   logging.Logger
}

func NewHandler(svc Services, opts Options, logger logging.Logger) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		svc:      svc,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("module", "http"),
	}
}

// NewRouter wires routes and middleware.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(h.opts.TrustedProxies); err != nil {
		h.logger.Error(context.Background(), "invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(RequestLogger(h.logger))
	r.MaxMultipartMemory = h.opts.MaxUploadBytes

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authGroup := r.Group("/auth", NewRateLimiter(h.opts.AuthRatePerMinute).Handler())
	{
		authGroup.POST("/send_verification", h.sendVerification)
		authGroup.POST("/verify_code", h.verifyCode)
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	university := r.Group("/university", h.requireAuth, h.requireInstitution)
	{
		university.POST("/template/upload", h.uploadTemplate)
		university.GET("/templates", h.listTemplates)
		university.POST("/upload", h.uploadRecords)
		university.GET("/certificates", h.listCertificates)
		university.POST("/clear-all", h.clearAll)
	}

	r.GET("/certificates/:cert_id", h.downloadCertificate)
	r.POST("/certificates/:cert_id/resend", h.requireAuth, h.requireInstitution, h.resendCertificate)
	r.GET("/student/certificates", h.requireAuth, h.requireHolder, h.studentCertificates)

	r.POST("/generate_qr", h.generateQR)
	r.POST("/blockchain/verify", h.verifyIdentifier)
	r.GET("/employer/search", h.search)
	r.POST("/verify_token", h.verifyToken)
	r.GET("/verify_token", h.verifyToken)

	return r
}

// bindJSON decodes and validates the body into dst.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.abortWithError(c, &fieldError{field: "body", msg: "must be a JSON object"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.abortWithError(c, err)
		return false
	}
	return true
}
