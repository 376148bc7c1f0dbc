package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aitracks/studio/imaging"
	"github.com/aitracks/studio/utils"
)

// multipart framing allowance on top of the image size limit
const multipartOverhead = 1 << 20

// UploadController stores admin image uploads as WEBP.
type UploadController struct {
	pipeline *imaging.Pipeline
}

func NewUploadController(p *imaging.Pipeline) *UploadController {
	return &UploadController{pipeline: p}
}

// UploadImage accepts a multipart "file" field and returns the stored asset.
func (u *UploadController) UploadImage(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, u.pipeline.MaxBytes()+multipartOverhead)

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40041, "missing file")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !imaging.Allowed(contentType) {
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "unsupported file type, allowed: jpeg, png, gif, webp")
		return
	}

	f, err := fh.Open()
	if err != nil {
		utils.Sugar.Errorf("open upload %s: %v", fh.Filename, err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to read upload")
		return
	}
	defer f.Close()

	asset, err := u.pipeline.Upload(ctx.Request.Context(), f, contentType)
	if err != nil {
		respondImageError(ctx, err)
		return
	}
	utils.Success(ctx, asset)
}

// DeleteImage removes a stored image named by the filename query parameter.
func (u *UploadController) DeleteImage(ctx *gin.Context) {
	filename := strings.TrimSpace(ctx.Query("filename"))
	if filename == "" {
		utils.Error(ctx, http.StatusBadRequest, 40042, "filename is required")
		return
	}
	if err := u.pipeline.Delete(ctx.Request.Context(), filename); err != nil {
		respondImageError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"filename": filename})
}

func respondImageError(ctx *gin.Context, err error) {
	var perr *imaging.ProcessingError
	switch {
	case errors.Is(err, imaging.ErrUnsupportedMediaType):
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "unsupported file type, allowed: jpeg, png, gif, webp")
	case errors.Is(err, imaging.ErrPayloadTooLarge):
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
	case errors.Is(err, imaging.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "image not found")
	case errors.As(err, &perr):
		utils.Sugar.Errorf("image %s: %v", perr.Op, perr.Err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to process image")
	default:
		utils.Sugar.Errorf("image: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to process image")
	}
}
