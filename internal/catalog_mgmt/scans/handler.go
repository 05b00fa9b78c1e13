package scans

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
)

const maxImageBytes = 8 << 20

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/scans", authz.Require(authz.CapRunIngestion), h.IngestImage)
	r.POST("/scans/merge", authz.Require(authz.CapRunIngestion), h.Merge)
	r.GET("/scans", authz.Require(authz.CapRunIngestion), h.ListScans)
}

// IngestImage accepts a multipart upload: "image" (the shelf photo) plus an
// optional "shelf_location" override for books created by the merge.
func (h *Handler) IngestImage(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("image file is required")))
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("image exceeds the 8MB limit")))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("image file could not be read")))
		return
	}
	defer f.Close()
	image, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("image file could not be read")))
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	var shelf *string
	if v := c.PostForm("shelf_location"); v != "" {
		shelf = &v
	}
	imageRef := fh.Filename

	res, err := h.svc.IngestImage(c.Request.Context(), caller, image, mimeType, &imageRef, shelf)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Merge(c *gin.Context) {
	caller, err := authz.CallerFrom(c)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}

	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.BodyFrom(apperr.ErrInvalid("invalid json or missing required fields")))
		return
	}

	res, err := h.svc.Merge(c.Request.Context(), caller, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListScans(c *gin.Context) {
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	res, err := h.svc.List(c.Request.Context(), p)
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
