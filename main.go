package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/aitracks/studio/captcha"
	"github.com/aitracks/studio/config"
	"github.com/aitracks/studio/controllers"
	"github.com/aitracks/studio/imaging"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/routes"
	"github.com/aitracks/studio/utils"
)

func main() {
	createAdmin := flag.Bool("create-admin", false, "create or reset an admin account and exit")
	adminEmail := flag.String("email", "", "admin email for -create-admin")
	adminPassword := flag.String("password", "", "admin password for -create-admin")
	adminName := flag.String("name", "", "admin display name for -create-admin")
	flag.Parse()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	if *createAdmin {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		user, err := controllers.SeedAdmin(ctx, db, *adminEmail, *adminPassword, *adminName)
		if err != nil {
			utils.Sugar.Fatalf("create admin: %v", err)
		}
		utils.Sugar.Infof("admin account ready: id=%d email=%s", user.ID, user.Email)
		return
	}

	store := captcha.NewStore(
		captcha.NewStrategy(cfg.CaptchaMode),
		captchaBackend(cfg),
		captcha.WithTTL(time.Duration(cfg.CaptchaTTLMinutes)*time.Minute),
	)

	images, err := imaging.New(imaging.Options{
		Dir:           cfg.UploadDir,
		URLPrefix:     cfg.UploadURLPrefix,
		MaxBytes:      int64(cfg.UploadMaxMB) << 20,
		MaxPixels:     int64(cfg.UploadMaxPixels),
		Quality:       cfg.UploadQuality,
		MaxConcurrent: cfg.UploadMaxConcurrent,
		Logger:        utils.Logger.Named("imaging"),
	})
	if err != nil {
		utils.Sugar.Fatalf("upload directory: %v", err)
	}

	var mailer utils.Mailer
	if cfg.SMTPHost != "" {
		mailer = utils.SMTPMailer{}
	}

	r := routes.SetupRouter(routes.Deps{
		DB:      db,
		Captcha: store,
		Images:  images,
		Mailer:  mailer,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful), captcha=%s/%s", cfg.AppPort, cfg.CaptchaMode, cfg.CaptchaStore)
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeDB); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// captchaBackend returns the Redis backend when selected and a Redis host is set, memory otherwise.
func captchaBackend(cfg config.AppConfig) captcha.Backend {
	if strings.EqualFold(cfg.CaptchaStore, "redis") {
		if rc := utils.GetRedis(); rc != nil {
			return captcha.NewRedisBackend(rc)
		}
		utils.Sugar.Warn("captcha store is redis but no redis host is configured, using memory")
	}
	return captcha.NewMemoryBackend()
}
