package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/logging"
	"github.com/dmitrijs2005/certhub/internal/server/auth"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDKey = "request_id"
	claimsKey    = "claims"
)

// RequestLogger logs every request once, with its request id.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(common.RequestIDHeaderName))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(common.RequestIDHeaderName, requestID)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", requestID,
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "http_request", args...)
		case status >= 400:
			logger.Warn(ctx, "http_request", args...)
		default:
			logger.Info(ctx, "http_request", args...)
		}
	}
}

// RateLimiter throttles each client IP to a fixed number of requests per minute.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil, meaning no limit, when requestsPerMinute <= 0.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		window:  5 * time.Minute,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !r.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests", "kind": "rate_limited",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) get(key string) *rate.Limiter {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.clients[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	l := rate.NewLimiter(r.limit, r.burst)
	r.clients[key] = &clientLimiter{limiter: l, lastSeen: now}
	for k, e := range r.clients {
		if now.Sub(e.lastSeen) > r.window {
			delete(r.clients, k)
		}
	}
	return l
}

// requireAuth validates the bearer token and stores its claims.
func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader(common.AuthorizationHeaderName)
	if !strings.HasPrefix(header, common.BearerPrefix) {
		h.abortWithError(c, common.ErrorUnauthorized)
		return
	}
	claims, err := h.svc.Auth.Authenticate(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix)))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

// requireInstitution admits verified institution actors only.
func (h *Handler) requireInstitution(c *gin.Context) {
	cl := claimsOf(c)
	if cl == nil || cl.Role != models.RoleInstitution || !cl.Verified {
		h.abortWithError(c, common.ErrForbidden)
		return
	}
	c.Next()
}

func (h *Handler) requireHolder(c *gin.Context) {
	cl := claimsOf(c)
	if cl == nil || cl.Role != models.RoleHolder {
		h.abortWithError(c, common.ErrForbidden)
		return
	}
	c.Next()
}

func claimsOf(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	cl, _ := v.(*auth.Claims)
	return cl
}
