package members

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

	r.GET("/members/me", h.Me)
	r.GET("/members", authz.Require(authz.CapManageMembers), h.ListMembers)
	r.GET("/members/:member_id", authz.Require(authz.CapManageMembers), h.GetMember)
	r.PUT("/members/:member_id/role", authz.Require(authz.CapManageMembers), h.SetRole)
	r.PUT("/members/:member_id/active", authz.Require(authz.CapManageMembers), h.SetActive)
}

func (h *Handler) Me(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	res, err := h.svc.Get(c.Request.Context(), caller.MemberID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetMember(c *gin.Context) {
	id, err := parseID(c.Param("member_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListMembers(c *gin.Context) {
	q := MemberSearchQuery{}
	if v := c.Query("role"); v != "" {
		q.Role = &v
	}
	if v := c.Query("active"); v == "true" || v == "1" {
		q.ActiveOnly = true
	}
	if v := c.Query("q"); v != "" {
		q.Search = &v
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}

	res, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SetRole(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	id, err := parseID(c.Param("member_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	res, err := h.svc.SetRole(c.Request.Context(), caller, id, req.Role)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SetActive(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	id, err := parseID(c.Param("member_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	res, err := h.svc.SetActive(c.Request.Context(), caller, id, *req.IsActive)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrInvalid("member_id must be a positive integer")
	}
	return id, nil
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
