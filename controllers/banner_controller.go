package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/imaging"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

type BannerController struct {
	repo   *repositories.Banners
	images *imaging.Pipeline
}

// NewBannerController removes replaced or deleted banner images through images when it is not nil.
func NewBannerController(db *gorm.DB, images *imaging.Pipeline) *BannerController {
	return &BannerController{repo: repositories.NewBanners(db), images: images}
}

type bannerRequest struct {
	ID       string  `json:"id" binding:"omitempty,max=50"`
	PageType *string `json:"page_type"`
	Image    *string `json:"image" binding:"omitempty,max=500"`
}

var errPageTypeTaken = errors.New("page type already has a banner")

// GetBannerByPage returns the banner configured for one page.
func (b *BannerController) GetBannerByPage(ctx *gin.Context) {
	pageType, ok := models.NormalizePageType(ctx.Param("page_type"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40014, "unknown page type")
		return
	}
	item, err := b.repo.ByPageType(ctx.Request.Context(), pageType)
	if err != nil {
		respondRepoError(ctx, err, fmt.Sprintf("banner for page type %s not found", pageType), "load banner")
		return
	}
	utils.Success(ctx, item)
}

func (b *BannerController) ListBanners(ctx *gin.Context) {
	skip, limit := parsePagination(ctx)
	items, err := b.repo.List(ctx.Request.Context(), skip, limit)
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "list banners")
		return
	}
	total, err := b.repo.Count(ctx.Request.Context())
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "list banners")
		return
	}
	utils.Success(ctx, utils.ListResult{Total: total, Items: items})
}

func (b *BannerController) GetBanner(ctx *gin.Context) {
	item, err := b.repo.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "load banner")
		return
	}
	utils.Success(ctx, item)
}

// CreateBanner refuses a second banner for the same page; callers update instead.
func (b *BannerController) CreateBanner(ctx *gin.Context) {
	var req bannerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	if req.PageType == nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "unknown page type")
		return
	}
	pageType, ok := models.NormalizePageType(*req.PageType)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40014, "unknown page type")
		return
	}
	if req.Image == nil || strings.TrimSpace(*req.Image) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40015, "image is required")
		return
	}

	rctx := ctx.Request.Context()
	id := strings.TrimSpace(req.ID)
	if id != "" {
		if _, err := b.repo.Get(rctx, id); err == nil {
			utils.Error(ctx, http.StatusBadRequest, 40013, "banner with this ID already exists")
			return
		}
	}
	if err := b.ensurePageTypeFree(ctx, pageType, ""); err != nil {
		if errors.Is(err, errPageTypeTaken) {
			utils.Error(ctx, http.StatusBadRequest, 40016,
				fmt.Sprintf("banner for page type %s already exists, update it instead", pageType))
			return
		}
		respondRepoError(ctx, err, "banner not found", "create banner")
		return
	}

	item := models.Banner{ID: id, PageType: pageType, Image: strings.TrimSpace(*req.Image)}
	if err := b.repo.Create(rctx, &item); err != nil {
		respondRepoError(ctx, err, "banner not found", "create banner")
		return
	}
	utils.Created(ctx, item)
}

func (b *BannerController) UpdateBanner(ctx *gin.Context) {
	var req bannerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	id := ctx.Param("id")
	rctx := ctx.Request.Context()

	existing, err := b.repo.Get(rctx, id)
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "update banner")
		return
	}

	fields := map[string]interface{}{}
	if req.PageType != nil {
		pageType, ok := models.NormalizePageType(*req.PageType)
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40014, "unknown page type")
			return
		}
		if err := b.ensurePageTypeFree(ctx, pageType, id); err != nil {
			if errors.Is(err, errPageTypeTaken) {
				utils.Error(ctx, http.StatusBadRequest, 40016,
					fmt.Sprintf("banner for page type %s already exists", pageType))
				return
			}
			respondRepoError(ctx, err, "banner not found", "update banner")
			return
		}
		fields["page_type"] = pageType
	}
	if v := trimPtr(req.Image); v != nil {
		if *v == "" {
			utils.Error(ctx, http.StatusBadRequest, 40015, "image is required")
			return
		}
		fields["image"] = *v
	}

	item, err := b.repo.Update(rctx, id, fields)
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "update banner")
		return
	}
	if item.Image != existing.Image {
		b.removeImage(ctx, existing.Image)
	}
	utils.Success(ctx, item)
}

func (b *BannerController) DeleteBanner(ctx *gin.Context) {
	id := ctx.Param("id")
	rctx := ctx.Request.Context()
	existing, err := b.repo.Get(rctx, id)
	if err != nil {
		respondRepoError(ctx, err, "banner not found", "delete banner")
		return
	}
	if err := b.repo.Delete(rctx, id); err != nil {
		respondRepoError(ctx, err, "banner not found", "delete banner")
		return
	}
	b.removeImage(ctx, existing.Image)
	utils.Success(ctx, gin.H{"id": id})
}

// removeImage deletes an uploaded banner image. Failures are logged and never fail the request.
func (b *BannerController) removeImage(ctx *gin.Context, image string) {
	if b.images == nil {
		return
	}
	name, ok := b.images.FilenameFromURL(image)
	if !ok {
		return
	}
	err := b.images.Delete(ctx.Request.Context(), name)
	if err != nil && !errors.Is(err, imaging.ErrNotFound) {
		utils.Sugar.Warnf("remove banner image %s: %v", name, err)
	}
}

func (b *BannerController) ensurePageTypeFree(ctx *gin.Context, pageType, selfID string) error {
	existing, err := b.repo.ByPageType(ctx.Request.Context(), pageType)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return errPageTypeTaken
	}
	return nil
}
