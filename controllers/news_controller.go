package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

type NewsController struct {
	repo *repositories.NewsRepo
}

func NewNewsController(db *gorm.DB) *NewsController {
	return &NewsController{repo: repositories.NewNews(db)}
}

type newsRequest struct {
	ID      string       `json:"id" binding:"omitempty,max=50"`
	Title   *string      `json:"title" binding:"omitempty,max=255"`
	Excerpt *string      `json:"excerpt"`
	Content *string      `json:"content"`
	Date    *models.Date `json:"date"`
	Image   *string      `json:"image" binding:"omitempty,max=500"`
	Author  *string      `json:"author" binding:"omitempty,max=100"`
}

// ListNews returns articles newest first. Cached for an hour.
func (n *NewsController) ListNews(ctx *gin.Context) {
	skip, limit := parsePagination(ctx)
	page := utils.ListPage{Kind: utils.ListNews, Skip: skip, Limit: limit}
	cachedList(ctx, page, func() (utils.ListResult, error) {
		return n.page(ctx, skip, limit)
	}, "list news")
}

func (n *NewsController) AdminListNews(ctx *gin.Context) {
	skip, limit := parsePagination(ctx)
	res, err := n.page(ctx, skip, limit)
	if err != nil {
		respondRepoError(ctx, err, "news not found", "list news")
		return
	}
	utils.Success(ctx, res)
}

func (n *NewsController) page(ctx *gin.Context, skip, limit int) (utils.ListResult, error) {
	items, err := n.repo.List(ctx.Request.Context(), skip, limit)
	if err != nil {
		return utils.ListResult{}, err
	}
	total, err := n.repo.Count(ctx.Request.Context())
	return utils.ListResult{Total: total, Items: items}, err
}

func (n *NewsController) GetNews(ctx *gin.Context) {
	item, err := n.repo.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondRepoError(ctx, err, "news not found", "load news")
		return
	}
	utils.Success(ctx, item)
}

func (n *NewsController) ViewNews(ctx *gin.Context) {
	if _, err := n.repo.IncrementViews(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondRepoError(ctx, err, "news not found", "count news view")
		return
	}
	n.GetNews(ctx)
}

func (n *NewsController) CreateNews(ctx *gin.Context) {
	var req newsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title is required")
		return
	}

	rctx := ctx.Request.Context()
	id := strings.TrimSpace(req.ID)
	if id != "" {
		if _, err := n.repo.Get(rctx, id); err == nil {
			utils.Error(ctx, http.StatusBadRequest, 40013, "news with this ID already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondRepoError(ctx, err, "news not found", "create news")
			return
		}
	}

	item := models.News{ID: id, Title: utils.SanitizePlain(*req.Title), Date: req.Date}
	if req.Excerpt != nil {
		item.Excerpt = utils.Sanitize(*req.Excerpt)
	}
	if req.Content != nil {
		item.Content = utils.Sanitize(*req.Content)
	}
	if req.Image != nil {
		item.Image = strings.TrimSpace(*req.Image)
	}
	if req.Author != nil {
		item.Author = utils.SanitizePlain(*req.Author)
	}
	if err := n.repo.Create(rctx, &item); err != nil {
		respondRepoError(ctx, err, "news not found", "create news")
		return
	}
	utils.InvalidateList(utils.ListNews)
	utils.Created(ctx, item)
}

func (n *NewsController) UpdateNews(ctx *gin.Context) {
	var req newsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		title := utils.SanitizePlain(*req.Title)
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40012, "title is required")
			return
		}
		fields["title"] = title
	}
	if req.Excerpt != nil {
		fields["excerpt"] = utils.Sanitize(*req.Excerpt)
	}
	if req.Content != nil {
		fields["content"] = utils.Sanitize(*req.Content)
	}
	if v := trimPtr(req.Image); v != nil {
		fields["image"] = *v
	}
	if req.Author != nil {
		fields["author"] = utils.SanitizePlain(*req.Author)
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}

	item, err := n.repo.Update(ctx.Request.Context(), ctx.Param("id"), fields)
	if err != nil {
		respondRepoError(ctx, err, "news not found", "update news")
		return
	}
	utils.InvalidateList(utils.ListNews)
	utils.Success(ctx, item)
}

func (n *NewsController) DeleteNews(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := n.repo.Delete(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "news not found", "delete news")
		return
	}
	utils.InvalidateList(utils.ListNews)
	utils.Success(ctx, gin.H{"id": id})
}
