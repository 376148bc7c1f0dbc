package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aitracks/studio/models"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(s string) *models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestBaseCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewProjects(newTestDB(t))

	p := &models.Project{ID: "p1", Title: "Space", Category: models.CategoryGame, Tags: datatypes.JSONSlice[string]{"2d", "arcade"}, Date: date("2024-02-03")}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Space" || len(got.Tags) != 2 || got.Date.String() != "2024-02-03" {
		t.Fatalf("unexpected project %+v", got)
	}

	updated, err := repo.Update(ctx, "p1", map[string]interface{}{"title": "Space II"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Space II" || updated.Category != models.CategoryGame {
		t.Fatalf("update result %+v", updated)
	}

	if _, err := repo.Update(ctx, "missing", map[string]interface{}{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	if err := repo.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := repo.Get(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if !errors.Is(ErrNotFound, gorm.ErrRecordNotFound) {
		t.Fatal("ErrNotFound should wrap gorm.ErrRecordNotFound")
	}
}

func TestGeneratedID(t *testing.T) {
	ctx := context.Background()
	repo := NewBanners(newTestDB(t))
	b := &models.Banner{PageType: "HOME", Image: "a.webp"}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	if b.ID == "" {
		t.Fatal("id should be generated")
	}
	if err := repo.Create(ctx, &models.Banner{PageType: "HOME", Image: "b.webp"}); err == nil {
		t.Fatal("page type must be unique")
	}
	got, err := repo.ByPageType(ctx, "HOME")
	if err != nil || got.Image != "a.webp" {
		t.Fatalf("by page type: %+v %v", got, err)
	}
	if _, err := repo.ByPageType(ctx, "NEWS"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing page type: %v", err)
	}
}

func TestProjectsByCategory(t *testing.T) {
	ctx := context.Background()
	repo := NewProjects(newTestDB(t))
	for i, c := range []string{models.CategoryGame, models.CategoryWebsite, models.CategoryGame, models.CategoryGame} {
		if err := repo.Create(ctx, &models.Project{ID: string(rune('a' + i)), Title: "t", Category: c}); err != nil {
			t.Fatal(err)
		}
	}

	games, err := repo.ListByCategory(ctx, models.CategoryGame, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 {
		t.Fatalf("limit not applied: %d", len(games))
	}
	n, err := repo.CountByCategory(ctx, models.CategoryGame)
	if err != nil || n != 3 {
		t.Fatalf("count games: %d %v", n, err)
	}
	all, _ := repo.Count(ctx)
	if all != 4 {
		t.Fatalf("count all: %d", all)
	}
	rest, _ := repo.List(ctx, 3, 10)
	if len(rest) != 1 {
		t.Fatalf("skip not applied: %d", len(rest))
	}
}

func TestIncrementViews(t *testing.T) {
	ctx := context.Background()
	repo := NewNews(newTestDB(t))
	if err := repo.Create(ctx, &models.News{ID: "n1", Title: "hello"}); err != nil {
		t.Fatal(err)
	}
	for want := int64(1); want <= 3; want++ {
		got, err := repo.IncrementViews(ctx, "n1")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("views %d, want %d", got, want)
		}
	}
	if _, err := repo.IncrementViews(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestNewsOrderedByDate(t *testing.T) {
	ctx := context.Background()
	repo := NewNews(newTestDB(t))
	_ = repo.Create(ctx, &models.News{ID: "old", Title: "old", Date: date("2023-01-01")})
	_ = repo.Create(ctx, &models.News{ID: "new", Title: "new", Date: date("2024-06-01")})
	_ = repo.Create(ctx, &models.News{ID: "mid", Title: "mid", Date: date("2023-09-15")})

	items, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].ID != "new" || items[1].ID != "mid" || items[2].ID != "old" {
		t.Fatalf("unexpected order: %v %v %v", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestAboutLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewAbout(newTestDB(t))
	if _, err := repo.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty: %v", err)
	}
	now := time.Now()
	_ = repo.Create(ctx, &models.AboutUs{Title: "first", UpdatedAt: now.Add(-time.Hour)})
	_ = repo.Create(ctx, &models.AboutUs{Title: "second", Values: datatypes.JSONSlice[models.AboutValue]{{Icon: "star", Title: "Quality"}}})
	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Title != "second" || len(latest.Values) != 1 || latest.Values[0].Icon != "star" {
		t.Fatalf("latest: %+v", latest)
	}
}

func TestFeedbackUnread(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedback(newTestDB(t))
	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, &models.Feedback{Name: "n", Email: "a@b.c", Message: "m"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Update(ctx, uint(1), map[string]interface{}{"is_read": true}); err != nil {
		t.Fatal(err)
	}
	n, err := repo.CountUnread(ctx)
	if err != nil || n != 2 {
		t.Fatalf("unread count %d %v", n, err)
	}
	items, err := repo.ListUnread(ctx, 0, 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("unread list %d %v", len(items), err)
	}
	for _, it := range items {
		if it.IsRead {
			t.Fatalf("read item listed: %+v", it)
		}
	}
}

func TestUsersByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUsers(newTestDB(t))
	u := &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: models.RoleAdmin}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := repo.ByEmail(ctx, " ADA@example.com ")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID || got.Status != models.StatusActive || !got.IsActiveAdmin() {
		t.Fatalf("by email: %+v", got)
	}
	if _, err := repo.ByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
}
