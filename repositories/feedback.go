package repositories

import (
	"context"

	"github.com/aitracks/studio/models"
	"gorm.io/gorm"
)

type Feedback struct {
	*Base[models.Feedback]
}

func NewFeedback(db *gorm.DB) *Feedback {
	return &Feedback{Base: NewBase[models.Feedback](db, "created_at desc, id desc")}
}

func (r *Feedback) ListUnread(ctx context.Context, skip, limit int) ([]models.Feedback, error) {
	items := make([]models.Feedback, 0)
	err := page(r.ordered(ctx).Where("is_read = ?", false), skip, limit).Find(&items).Error
	return items, err
}

func (r *Feedback) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Feedback{}).Where("is_read = ?", false).Count(&n).Error
	return n, err
}
