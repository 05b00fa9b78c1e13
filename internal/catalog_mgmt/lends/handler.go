package lends

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/lends", authz.Require(authz.CapCreateOwnLoan), h.CreateLend)
	r.POST("/lends/:lend_ulid/return", authz.Require(authz.CapCreateOwnLoan), h.ReturnLend)
	r.GET("/lends", authz.Require(authz.CapViewOwnLoans), h.ListLends)
	r.GET("/lends/overdue", authz.Require(authz.CapViewOwnLoans), h.ListOverdue)
	r.GET("/lends/stats", authz.Require(authz.CapViewAllLoans), h.Stats)
}

func (h *Handler) CreateLend(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	var req CreateLendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	res, err := h.svc.Create(c.Request.Context(), caller, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.Header("Location", "/lends/"+res.LendULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ReturnLend(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	res, err := h.svc.Return(c.Request.Context(), caller, c.Param("lend_ulid"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListLends(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	f := LendFilter{}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		if st != StatusActive && st != StatusCompleted {
			c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("status must be 'active' or 'completed'")))
			return
		}
		f.Status = &st
	}
	if v := c.Query("kind"); v != "" {
		k, ok := ParseKind(v)
		if !ok {
			c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("kind must be 'borrow' or 'reserve'")))
			return
		}
		f.Kind = &k
	}
	if v := c.Query("member_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.MemberID = &id
		}
	}
	if v := c.Query("book_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.BookID = &id
		}
	}
	if v := c.Query("overdue"); v == "true" || v == "1" {
		f.OverdueOnly = true
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	res, err := h.svc.List(c.Request.Context(), caller, f, p)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListOverdue(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	res, err := h.svc.Overdue(c.Request.Context(), caller, p)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
