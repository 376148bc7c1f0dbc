package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/captcha"
	"github.com/aitracks/studio/config"
	"github.com/aitracks/studio/controllers"
	"github.com/aitracks/studio/imaging"
	"github.com/aitracks/studio/middleware"
	"github.com/aitracks/studio/utils"
)

// Deps are the long-lived components the handlers share.
type Deps struct {
	DB      *gorm.DB
	Captcha *captcha.Store
	Images  *imaging.Pipeline
	Mailer  utils.Mailer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(cfg.UploadURLPrefix, d.Images.Dir())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	projects := controllers.NewProjectController(d.DB)
	news := controllers.NewNewsController(d.DB)
	about := controllers.NewAboutController(d.DB)
	banners := controllers.NewBannerController(d.DB, d.Images)
	feedback := controllers.NewFeedbackController(d.DB, d.Captcha, d.Mailer, cfg.FeedbackNotifyTo)
	captchaCtl := controllers.NewCaptchaController(d.Captcha)
	auth := controllers.NewAuthController(d.DB)
	uploads := controllers.NewUploadController(d.Images)
	stats := controllers.NewStatsController(d.DB)

	api := r.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api.GET("/projects", projects.ListProjects)
	api.GET("/projects/:id", projects.GetProject)
	api.POST("/projects/:id/view", projects.ViewProject)

	api.GET("/news", news.ListNews)
	api.GET("/news/:id", news.GetNews)
	api.POST("/news/:id/view", news.ViewNews)

	api.GET("/about", about.GetAbout)
	api.GET("/about/:id", about.GetAboutByID)
	api.POST("/about/:id/view", about.ViewAbout)

	api.GET("/banners/page/:page_type", banners.GetBannerByPage)

	// anonymous endpoints that cost a captcha or a mail get their own limiter
	limited := api.Group("")
	limited.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	limited.GET("/captcha", captchaCtl.Captcha)
	limited.POST("/feedback", feedback.CreateFeedback)

	adminPublic := api.Group("/admin")
	adminPublic.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	adminPublic.POST("/login", auth.Login)
	adminPublic.POST("/logout", auth.Logout)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(d.DB))
	admin.GET("/me", auth.Me)
	admin.GET("/profile", auth.GetProfile)
	admin.PUT("/profile", auth.UpdateProfile)
	admin.GET("/stats", stats.GetStats)

	admin.GET("/projects", projects.AdminListProjects)
	admin.GET("/projects/:id", projects.GetProject)
	admin.POST("/projects", projects.CreateProject)
	admin.PUT("/projects/:id", projects.UpdateProject)
	admin.DELETE("/projects/:id", projects.DeleteProject)

	admin.GET("/news", news.AdminListNews)
	admin.GET("/news/:id", news.GetNews)
	admin.POST("/news", news.CreateNews)
	admin.PUT("/news/:id", news.UpdateNews)
	admin.DELETE("/news/:id", news.DeleteNews)

	admin.GET("/about", about.AdminListAbout)
	admin.GET("/about/:id", about.GetAboutByID)
	admin.POST("/about", about.CreateAbout)
	admin.PUT("/about/:id", about.UpdateAbout)
	admin.DELETE("/about/:id", about.DeleteAbout)

	admin.GET("/banners", banners.ListBanners)
	admin.GET("/banners/page/:page_type", banners.GetBannerByPage)
	admin.GET("/banners/:id", banners.GetBanner)
	admin.POST("/banners", banners.CreateBanner)
	admin.PUT("/banners/:id", banners.UpdateBanner)
	admin.DELETE("/banners/:id", banners.DeleteBanner)

	admin.GET("/feedback", feedback.ListFeedback)
	admin.GET("/feedback/stats/unread-count", feedback.UnreadCount)
	admin.GET("/feedback/:id", feedback.GetFeedback)
	admin.PUT("/feedback/:id", feedback.UpdateFeedback)
	admin.DELETE("/feedback/:id", feedback.DeleteFeedback)

	admin.POST("/upload/image", uploads.UploadImage)
	admin.DELETE("/upload/image", uploads.DeleteImage)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
