package http

import (
	"net/http"

	"github.com/dmitrijs2005/certhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
	Code     string `json:"code"     validate:"omitempty,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		Token: s.Token,
		User: userResponse{
			ID:       s.Actor.ID,
			Username: s.Actor.Username,
			Email:    s.Actor.Email,
			Role:     string(s.Actor.Role),
			Verified: s.Actor.DomainVerified,
		},
	}
}

func (h *Handler) sendVerification(c *gin.Context) {
	var req emailRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.svc.Codes.Send(c.Request.Context(), req.Email); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "verification code sent"})
}

func (h *Handler) verifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.svc.Codes.Verify(c.Request.Context(), req.Email, req.Code); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Code:     req.Code,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}
