package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

type AboutController struct {
	repo *repositories.About
}

func NewAboutController(db *gorm.DB) *AboutController {
	return &AboutController{repo: repositories.NewAbout(db)}
}

type aboutRequest struct {
	Title        *string              `json:"title" binding:"omitempty,max=255"`
	Subtitle     *string              `json:"subtitle"`
	Description  *string              `json:"description"`
	Image        *string              `json:"image" binding:"omitempty,max=500"`
	Values       *[]models.AboutValue `json:"values"`
	ContactEmail *string              `json:"contact_email" binding:"omitempty,email"`
}

// GetAbout returns the live about page, which is the most recently updated one.
func (a *AboutController) GetAbout(ctx *gin.Context) {
	item, err := a.repo.Latest(ctx.Request.Context())
	if err != nil {
		respondRepoError(ctx, err, "about us content not found", "load about page")
		return
	}
	utils.Success(ctx, item)
}

func (a *AboutController) GetAboutByID(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	item, err := a.repo.Get(ctx.Request.Context(), id)
	if err != nil {
		respondRepoError(ctx, err, "about us content not found", "load about page")
		return
	}
	utils.Success(ctx, item)
}

func (a *AboutController) ViewAbout(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	if _, err := a.repo.IncrementViews(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "about us content not found", "count about view")
		return
	}
	a.GetAboutByID(ctx)
}

func (a *AboutController) AdminListAbout(ctx *gin.Context) {
	skip, limit := parsePagination(ctx)
	items, err := a.repo.List(ctx.Request.Context(), skip, limit)
	if err != nil {
		respondRepoError(ctx, err, "about us content not found", "list about pages")
		return
	}
	total, err := a.repo.Count(ctx.Request.Context())
	if err != nil {
		respondRepoError(ctx, err, "about us content not found", "list about pages")
		return
	}
	utils.Success(ctx, utils.ListResult{Total: total, Items: items})
}

func (a *AboutController) CreateAbout(ctx *gin.Context) {
	var req aboutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "title is required")
		return
	}

	item := models.AboutUs{Title: utils.SanitizePlain(*req.Title), Values: datatypes.JSONSlice[models.AboutValue]{}}
	if req.Subtitle != nil {
		item.Subtitle = utils.Sanitize(*req.Subtitle)
	}
	if req.Description != nil {
		item.Description = utils.Sanitize(*req.Description)
	}
	if req.Image != nil {
		item.Image = strings.TrimSpace(*req.Image)
	}
	if req.Values != nil {
		item.Values = cleanValues(*req.Values)
	}
	if req.ContactEmail != nil {
		item.ContactEmail = strings.TrimSpace(*req.ContactEmail)
	}
	if err := a.repo.Create(ctx.Request.Context(), &item); err != nil {
		respondRepoError(ctx, err, "about us content not found", "create about page")
		return
	}
	utils.Created(ctx, item)
}

func (a *AboutController) UpdateAbout(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req aboutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = utils.SanitizePlain(*req.Title)
	}
	if req.Subtitle != nil {
		fields["subtitle"] = utils.Sanitize(*req.Subtitle)
	}
	if req.Description != nil {
		fields["description"] = utils.Sanitize(*req.Description)
	}
	if v := trimPtr(req.Image); v != nil {
		fields["image"] = *v
	}
	if req.Values != nil {
		fields["values"] = cleanValues(*req.Values)
	}
	if v := trimPtr(req.ContactEmail); v != nil {
		fields["contact_email"] = *v
	}

	item, err := a.repo.Update(ctx.Request.Context(), id, fields)
	if err != nil {
		respondRepoError(ctx, err, "about us content not found", "update about page")
		return
	}
	utils.Success(ctx, item)
}

func (a *AboutController) DeleteAbout(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.repo.Delete(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "about us content not found", "delete about page")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

func cleanValues(values []models.AboutValue) datatypes.JSONSlice[models.AboutValue] {
	out := make(datatypes.JSONSlice[models.AboutValue], 0, len(values))
	for _, v := range values {
		out = append(out, models.AboutValue{
			Icon:        utils.SanitizePlain(v.Icon),
			Title:       utils.SanitizePlain(v.Title),
			Description: utils.SanitizePlain(v.Description),
		})
	}
	return out
}
