package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/auth/login", h.Login)
	r.POST("/auth/signup", h.Signup)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(tokenTTL / time.Second),
	})
}

type SignupRequest struct {
	Email            string  `json:"email" binding:"required"`
	FullName         string  `json:"full_name" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	MembershipNumber *string `json:"membership_number,omitempty"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	acct, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"member_id":         acct.MemberID,
		"membership_number": acct.MembershipNumber,
	})
}
