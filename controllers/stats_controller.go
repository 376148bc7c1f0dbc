package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/utils"
)

// StatsController provides the admin dashboard counters.
type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns content counts and total views.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(q *gorm.DB) int64 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			// a broken counter shows as 0 rather than failing the dashboard
			utils.Sugar.Warnf("stats count: %v", err)
			return 0
		}
		return n
	}
	sumViews := func(model interface{}) int64 {
		var n int64
		if err := db.Model(model).Select("COALESCE(SUM(views),0)").Scan(&n).Error; err != nil {
			utils.Sugar.Warnf("stats views: %v", err)
			return 0
		}
		return n
	}

	utils.Success(ctx, gin.H{
		"project_count":   count(db.Model(&models.Project{})),
		"game_count":      count(db.Model(&models.Project{}).Where("category = ?", models.CategoryGame)),
		"website_count":   count(db.Model(&models.Project{}).Where("category = ?", models.CategoryWebsite)),
		"news_count":      count(db.Model(&models.News{})),
		"banner_count":    count(db.Model(&models.Banner{})),
		"feedback_count":  count(db.Model(&models.Feedback{})),
		"unread_feedback": count(db.Model(&models.Feedback{}).Where("is_read = ?", false)),
		"project_views":   sumViews(&models.Project{}),
		"news_views":      sumViews(&models.News{}),
	})
}
