// Package repositories wraps the GORM queries behind the content models.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = fmt.Errorf("record not found: %w", gorm.ErrRecordNotFound)

// DefaultLimit caps list queries that pass a non-positive limit.
const DefaultLimit = 100

// Base provides the CRUD operations shared by every model with an "id" primary key.
type Base[T any] struct {
	db    *gorm.DB
	order string
}

func NewBase[T any](db *gorm.DB, order string) *Base[T] {
	return &Base[T]{db: db, order: order}
}

func (b *Base[T]) conn(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

func (b *Base[T]) ordered(ctx context.Context) *gorm.DB {
	q := b.conn(ctx).Model(new(T))
	if b.order != "" {
		q = q.Order(b.order)
	}
	return q
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func page(q *gorm.DB, skip, limit int) *gorm.DB {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return q.Offset(skip).Limit(limit)
}

func (b *Base[T]) Get(ctx context.Context, id interface{}) (*T, error) {
	var m T
	if err := b.conn(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (b *Base[T]) List(ctx context.Context, skip, limit int) ([]T, error) {
	items := make([]T, 0)
	err := page(b.ordered(ctx), skip, limit).Find(&items).Error
	return items, err
}

func (b *Base[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := b.conn(ctx).Model(new(T)).Count(&n).Error
	return n, err
}

func (b *Base[T]) Create(ctx context.Context, m *T) error {
	return b.conn(ctx).Create(m).Error
}

// Update applies the given column values and returns the fresh row.
func (b *Base[T]) Update(ctx context.Context, id interface{}, fields map[string]interface{}) (*T, error) {
	m, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := b.conn(ctx).Model(m).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return b.Get(ctx, id)
}

func (b *Base[T]) Delete(ctx context.Context, id interface{}) error {
	res := b.conn(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the views counter atomically and returns the new value.
func (b *Base[T]) IncrementViews(ctx context.Context, id interface{}) (int64, error) {
	res := b.conn(ctx).Model(new(T)).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var views int64
	if err := b.conn(ctx).Model(new(T)).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	return views, nil
}
