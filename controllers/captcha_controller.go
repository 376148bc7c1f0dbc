package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitracks/studio/captcha"
	"github.com/aitracks/studio/utils"
)

// CaptchaController hands out challenges that guard the feedback form.
type CaptchaController struct {
	store *captcha.Store
}

func NewCaptchaController(store *captcha.Store) *CaptchaController {
	return &CaptchaController{store: store}
}

// Captcha issues a fresh challenge. For the image kind the challenge is a data URI.
func (c *CaptchaController) Captcha(ctx *gin.Context) {
	id, challenge, err := c.store.Generate(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("generate captcha: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{
		"captcha_id": id,
		"kind":       c.store.Kind(),
		"challenge":  challenge,
	})
}
