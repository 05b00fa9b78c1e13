package books

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

	r.GET("/books", authz.Require(authz.CapViewCatalog), h.ListBooks)
	r.GET("/books/:book_id", authz.Require(authz.CapViewCatalog), h.GetBook)
	r.POST("/books", authz.Require(authz.CapMutateCatalog), h.CreateBook)
	r.PUT("/books/:book_id", authz.Require(authz.CapMutateCatalog), h.UpdateBook)
	r.DELETE("/books/:book_id", authz.Require(authz.CapMutateCatalog), h.DeleteBook)
	r.POST("/books/:book_id/availability", authz.Require(authz.CapMutateCatalog), h.AdjustAvailability)
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.Header("Location", "/books/"+strconv.FormatInt(res.BookID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetBook(c *gin.Context) {
	id, err := parseID(c.Param("book_id"))
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

func (h *Handler) ListBooks(c *gin.Context) {
	q := BookSearchQuery{}
	if v := c.Query("title"); v != "" {
		q.Title = &v
	}
	if v := c.Query("author"); v != "" {
		q.Author = &v
	}
	if v := c.Query("category"); v != "" {
		q.Category = &v
	}
	if v := c.Query("available"); v == "true" || v == "1" {
		q.AvailableOnly = true
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	res, err := h.svc.List(c.Request.Context(), q, p)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	id, err := parseID(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json")))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	id, err := parseID(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// AdjustAvailability is the manual stock correction for lost or recovered
// copies; circulation moves the counter through the ledger instead.
func (h *Handler) AdjustAvailability(c *gin.Context) {
	id, err := parseID(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(err))
		return
	}
	var req AdjustAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("delta is required and must not be zero")))
		return
	}
	if err := h.svc.AdjustAvailability(c.Request.Context(), id, req.Delta); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrInvalid("invalid id")
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
