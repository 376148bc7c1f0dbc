package repositories

import (
	"context"
	"strings"

	"github.com/aitracks/studio/models"
	"gorm.io/gorm"
)

type Users struct {
	*Base[models.User]
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{Base: NewBase[models.User](db, "id asc")}
}

// ByEmail looks an account up case-insensitively.
func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.conn(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Save writes every field of u.
func (r *Users) Save(ctx context.Context, u *models.User) error {
	return r.conn(ctx).Save(u).Error
}
