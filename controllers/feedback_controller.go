package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/captcha"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

// FeedbackController accepts contact form messages and lets admins triage them.
type FeedbackController struct {
	repo     *repositories.Feedback
	captcha  *captcha.Store
	mailer   utils.Mailer
	notifyTo string
}

// NewFeedbackController builds the controller. A nil mailer or empty notifyTo disables notifications.
func NewFeedbackController(db *gorm.DB, store *captcha.Store, mailer utils.Mailer, notifyTo string) *FeedbackController {
	return &FeedbackController{
		repo:     repositories.NewFeedback(db),
		captcha:  store,
		mailer:   mailer,
		notifyTo: strings.TrimSpace(notifyTo),
	}
}

type createFeedbackRequest struct {
	Name          string         `json:"name" binding:"required,max=100"`
	Email         string         `json:"email" binding:"required,email,max=255"`
	Subject       string         `json:"subject" binding:"max=255"`
	Message       string         `json:"message" binding:"required"`
	CaptchaID     string         `json:"captcha_id" binding:"required"`
	CaptchaAnswer captcha.Answer `json:"captcha_answer"`
}

// CreateFeedback checks the captcha, stores the message and notifies the site owner in the background.
func (f *FeedbackController) CreateFeedback(ctx *gin.Context) {
	var req createFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	if err := f.captcha.Validate(ctx.Request.Context(), req.CaptchaID, req.CaptchaAnswer.String()); err != nil {
		switch {
		case errors.Is(err, captcha.ErrInvalidOrExpired):
			utils.Error(ctx, http.StatusBadRequest, 40021, "invalid or expired captcha")
		case errors.Is(err, captcha.ErrInvalidAnswerFormat):
			utils.Error(ctx, http.StatusBadRequest, 40022, "invalid captcha answer format")
		case errors.Is(err, captcha.ErrIncorrectAnswer):
			utils.Error(ctx, http.StatusBadRequest, 40023, "incorrect captcha answer")
		default:
			utils.Sugar.Errorf("validate captcha: %v", err)
			utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to validate captcha")
		}
		return
	}

	item := models.Feedback{
		Name:    utils.SanitizePlain(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: utils.SanitizePlain(req.Subject),
		Message: utils.SanitizePlain(req.Message),
	}
	if item.Name == "" || item.Message == "" {
		utils.Error(ctx, http.StatusBadRequest, 40024, "name and message must not be empty")
		return
	}
	if err := f.repo.Create(ctx.Request.Context(), &item); err != nil {
		respondRepoError(ctx, err, "feedback not found", "save feedback")
		return
	}

	f.notify(item)
	utils.Created(ctx, item)
}

func (f *FeedbackController) notify(item models.Feedback) {
	if f.mailer == nil || f.notifyTo == "" {
		return
	}
	subject, body := utils.FeedbackNotification(item.Name, item.Email, item.Subject, item.Message)
	go func() {
		if err := f.mailer.Send(f.notifyTo, subject, body); err != nil {
			utils.Sugar.Warnf("feedback notification for #%d failed: %v", item.ID, err)
		}
	}()
}

// ListFeedback pages through feedback, only unread entries when unread_only=true.
func (f *FeedbackController) ListFeedback(ctx *gin.Context) {
	skip, limit := parsePagination(ctx)
	unreadOnly, _ := strconv.ParseBool(ctx.DefaultQuery("unread_only", "false"))
	rctx := ctx.Request.Context()

	var (
		items []models.Feedback
		total int64
		err   error
	)
	if unreadOnly {
		if items, err = f.repo.ListUnread(rctx, skip, limit); err == nil {
			total, err = f.repo.CountUnread(rctx)
		}
	} else {
		if items, err = f.repo.List(rctx, skip, limit); err == nil {
			total, err = f.repo.Count(rctx)
		}
	}
	if err != nil {
		respondRepoError(ctx, err, "feedback not found", "list feedback")
		return
	}
	utils.Success(ctx, utils.ListResult{Total: total, Items: items})
}

func (f *FeedbackController) GetFeedback(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	item, err := f.repo.Get(ctx.Request.Context(), id)
	if err != nil {
		respondRepoError(ctx, err, "feedback not found", "load feedback")
		return
	}
	utils.Success(ctx, item)
}

// UpdateFeedback toggles the read flag.
func (f *FeedbackController) UpdateFeedback(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		IsRead *bool `json:"is_read"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	fields := map[string]interface{}{}
	if req.IsRead != nil {
		fields["is_read"] = *req.IsRead
	}
	item, err := f.repo.Update(ctx.Request.Context(), id, fields)
	if err != nil {
		respondRepoError(ctx, err, "feedback not found", "update feedback")
		return
	}
	utils.Success(ctx, item)
}

func (f *FeedbackController) DeleteFeedback(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	if err := f.repo.Delete(ctx.Request.Context(), id); err != nil {
		respondRepoError(ctx, err, "feedback not found", "delete feedback")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

func (f *FeedbackController) UnreadCount(ctx *gin.Context) {
	n, err := f.repo.CountUnread(ctx.Request.Context())
	if err != nil {
		respondRepoError(ctx, err, "feedback not found", "count unread feedback")
		return
	}
	utils.Success(ctx, gin.H{"unread_count": n})
}
