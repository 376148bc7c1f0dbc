package repositories

import (
	"context"

	"github.com/aitracks/studio/models"
	"gorm.io/gorm"
)

type Projects struct {
	*Base[models.Project]
}

func NewProjects(db *gorm.DB) *Projects {
	return &Projects{Base: NewBase[models.Project](db, "created_at desc")}
}

func (r *Projects) ListByCategory(ctx context.Context, category string, skip, limit int) ([]models.Project, error) {
	items := make([]models.Project, 0)
	err := page(r.ordered(ctx).Where("category = ?", category), skip, limit).Find(&items).Error
	return items, err
}

func (r *Projects) CountByCategory(ctx context.Context, category string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Project{}).Where("category = ?", category).Count(&n).Error
	return n, err
}

// NewsRepo lists articles newest first.
type NewsRepo struct {
	*Base[models.News]
}

func NewNews(db *gorm.DB) *NewsRepo {
	return &NewsRepo{Base: NewBase[models.News](db, "date desc, created_at desc")}
}

type About struct {
	*Base[models.AboutUs]
}

func NewAbout(db *gorm.DB) *About {
	return &About{Base: NewBase[models.AboutUs](db, "updated_at desc, id desc")}
}

// Latest returns the most recently updated about page.
func (r *About) Latest(ctx context.Context) (*models.AboutUs, error) {
	var m models.AboutUs
	if err := r.ordered(ctx).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

type Banners struct {
	*Base[models.Banner]
}

func NewBanners(db *gorm.DB) *Banners {
	return &Banners{Base: NewBase[models.Banner](db, "page_type asc")}
}

func (r *Banners) ByPageType(ctx context.Context, pageType string) (*models.Banner, error) {
	var m models.Banner
	if err := r.conn(ctx).Where("page_type = ?", pageType).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}
