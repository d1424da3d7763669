package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mephisto/internal/assetkind"
	"github.com/xxxsen/mephisto/internal/pkg/errcode"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/response"
	"github.com/xxxsen/mephisto/internal/service"
)

// SiteAccess decides whether a user may manage a site's assets.
type SiteAccess interface {
	CanManageSite(ctx context.Context, userID, siteID string) (bool, error)
}

type AssetHandler struct {
	assets  *service.AssetService
	access  SiteAccess
	maxSize int64
}

func NewAssetHandler(assets *service.AssetService, access SiteAccess, maxSize int64) *AssetHandler {
	return &AssetHandler{assets: assets, access: access, maxSize: maxSize}
}

type updateAssetRequest struct {
	Filename *string `json:"filename"`
	Title    *string `json:"title"`
}

func (h *AssetHandler) Upload(c *gin.Context) {
	siteID, ok := h.authorizeSite(c)
	if !ok {
		return
	}
	if h.maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+multipartOverhead)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, errcode.ErrTooLarge, "file exceeds "+formatUploadLimit(h.maxSize))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	view, err := h.assets.Upload(c.Request.Context(), service.UploadInput{
		SiteID:      siteID,
		Filename:    file.Filename,
		Title:       c.PostForm("title"),
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

// List accepts ?kinds=image,movie to restrict the result to those kinds.
func (h *AssetHandler) List(c *gin.Context) {
	siteID, ok := h.authorizeSite(c)
	if !ok {
		return
	}
	in := service.AssetListInput{Query: c.Query("q"), Limit: 20}
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			in.Limit = uint(parsed)
		}
	}
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			in.Offset = uint(parsed)
		}
	}
	if value := c.Query("kinds"); value != "" {
		for _, raw := range strings.Split(value, ",") {
			kind, err := assetkind.Parse(raw)
			if err != nil {
				handleError(c, appErr.NewValidationError("kinds", "is invalid"))
				return
			}
			in.Kinds = append(in.Kinds, kind)
		}
	}
	items, err := h.assets.List(c.Request.Context(), siteID, in)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *AssetHandler) Get(c *gin.Context) {
	siteID, ok := h.authorizeSite(c)
	if !ok {
		return
	}
	view, err := h.assets.Get(c.Request.Context(), siteID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *AssetHandler) Update(c *gin.Context) {
	siteID, ok := h.authorizeSite(c)
	if !ok {
		return
	}
	var req updateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	view, err := h.assets.Update(c.Request.Context(), siteID, c.Param("id"), service.AssetUpdateInput{
		Filename: req.Filename,
		Title:    req.Title,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *AssetHandler) Delete(c *gin.Context) {
	siteID, ok := h.authorizeSite(c)
	if !ok {
		return
	}
	if err := h.assets.Delete(c.Request.Context(), siteID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AssetHandler) authorizeSite(c *gin.Context) (string, bool) {
	siteID := c.Param("site_id")
	allowed, err := h.access.CanManageSite(c.Request.Context(), getUserID(c), siteID)
	if err != nil {
		handleError(c, err)
		return "", false
	}
	if !allowed {
		handleError(c, appErr.ErrForbidden)
		return "", false
	}
	return siteID, true
}
