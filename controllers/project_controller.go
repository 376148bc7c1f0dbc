package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

// ProjectController serves the game and website showcase.
type ProjectController struct {
	repo *repositories.Projects
}

func NewProjectController(db *gorm.DB) *ProjectController {
	return &ProjectController{repo: repositories.NewProjects(db)}
}

type projectRequest struct {
	ID          string       `json:"id" binding:"omitempty,max=50"`
	Title       *string      `json:"title" binding:"omitempty,max=255"`
	Description *string      `json:"description"`
	Image       *string      `json:"image" binding:"omitempty,max=500"`
	Category    *string      `json:"category"`
	Date        *models.Date `json:"date"`
	Tags        *[]string    `json:"tags"`
	Link        *string      `json:"link" binding:"omitempty,max=500"`
}

func normalizeCategory(raw string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	return c, models.ValidCategory(c)
}

// ListProjects returns a page of projects, optionally filtered by category. Cached for an hour.
func (p *ProjectController) ListProjects(ctx *gin.Context) {
	p.list(ctx, true)
}

// AdminListProjects is ListProjects without the cache.
func (p *ProjectController) AdminListProjects(ctx *gin.Context) {
	p.list(ctx, false)
}

func (p *ProjectController) list(ctx *gin.Context, useCache bool) {
	skip, limit := parsePagination(ctx)
	category := ""
	if raw := ctx.Query("category"); raw != "" {
		c, ok := normalizeCategory(raw)
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40011, "category must be GAME or WEBSITE")
			return
		}
		category = c
	}

	build := func() (utils.ListResult, error) {
		var (
			items []models.Project
			total int64
			err   error
		)
		rctx := ctx.Request.Context()
		if category != "" {
			if items, err = p.repo.ListByCategory(rctx, category, skip, limit); err == nil {
				total, err = p.repo.CountByCategory(rctx, category)
			}
		} else {
			if items, err = p.repo.List(rctx, skip, limit); err == nil {
				total, err = p.repo.Count(rctx)
			}
		}
		return utils.ListResult{Total: total, Items: items}, err
	}

	if !useCache {
		res, err := build()
		if err != nil {
			respondRepoError(ctx, err, "project not found", "list projects")
			return
		}
		utils.Success(ctx, res)
		return
	}
	page := utils.ListPage{Kind: utils.ListProjects, Filter: category, Skip: skip, Limit: limit}
	cachedList(ctx, page, build, "list projects")
}

func (p *ProjectController) GetProject(ctx *gin.Context) {
	item, err := p.repo.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondRepoError(ctx, err, "project not found", "load project")
		return
	}
	utils.Success(ctx, item)
}

// ViewProject counts one view and returns the updated project.
func (p *ProjectController) ViewProject(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := p.repo.IncrementViews(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "project not found", "count project view")
		return
	}
	p.GetProject(ctx)
}

func (p *ProjectController) CreateProject(ctx *gin.Context) {
	var req projectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title is required")
		return
	}
	if req.Category == nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "category must be GAME or WEBSITE")
		return
	}
	category, ok := normalizeCategory(*req.Category)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40011, "category must be GAME or WEBSITE")
		return
	}

	rctx := ctx.Request.Context()
	id := strings.TrimSpace(req.ID)
	if id != "" {
		if _, err := p.repo.Get(rctx, id); err == nil {
			utils.Error(ctx, http.StatusBadRequest, 40013, "project with this ID already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondRepoError(ctx, err, "project not found", "create project")
			return
		}
	}

	project := models.Project{
		ID:       id,
		Title:    utils.SanitizePlain(*req.Title),
		Category: category,
		Date:     req.Date,
	}
	if req.Description != nil {
		project.Description = utils.Sanitize(*req.Description)
	}
	if req.Image != nil {
		project.Image = strings.TrimSpace(*req.Image)
	}
	if req.Link != nil {
		project.Link = strings.TrimSpace(*req.Link)
	}
	if req.Tags != nil {
		project.Tags = datatypes.JSONSlice[string](cleanTags(*req.Tags))
	}
	if err := p.repo.Create(rctx, &project); err != nil {
		respondRepoError(ctx, err, "project not found", "create project")
		return
	}
	utils.InvalidateList(utils.ListProjects)
	utils.Created(ctx, project)
}

// UpdateProject applies only the fields present in the payload.
func (p *ProjectController) UpdateProject(ctx *gin.Context) {
	var req projectRequest
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
	if req.Category != nil {
		category, ok := normalizeCategory(*req.Category)
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40011, "category must be GAME or WEBSITE")
			return
		}
		fields["category"] = category
	}
	if req.Description != nil {
		fields["description"] = utils.Sanitize(*req.Description)
	}
	if v := trimPtr(req.Image); v != nil {
		fields["image"] = *v
	}
	if v := trimPtr(req.Link); v != nil {
		fields["link"] = *v
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](cleanTags(*req.Tags))
	}

	item, err := p.repo.Update(ctx.Request.Context(), ctx.Param("id"), fields)
	if err != nil {
		respondRepoError(ctx, err, "project not found", "update project")
		return
	}
	utils.InvalidateList(utils.ListProjects)
	utils.Success(ctx, item)
}

func (p *ProjectController) DeleteProject(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := p.repo.Delete(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "project not found", "delete project")
		return
	}
	utils.InvalidateList(utils.ListProjects)
	utils.Success(ctx, gin.H{"id": id})
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = utils.SanitizePlain(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
