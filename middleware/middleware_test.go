package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aitracks/studio/config"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/utils"
)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{SessionSecret: "middleware-secret"})
	utils.SetRedis(nil)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatal(err)
	}
	return db
}

func newUser(t *testing.T, db *gorm.DB, email, role, status string) *models.User {
	t.Helper()
	u := &models.User{Name: "n", Email: email, PasswordHash: "x", Role: role, Status: status}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatal(err)
	}
	return u
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := utils.GenerateSessionToken(u.ID, u.Role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAdminRequired(t *testing.T) {
	db := setup(t)
	admin := newUser(t, db, "admin@example.com", models.RoleAdmin, models.StatusActive)
	plain := newUser(t, db, "user@example.com", models.RoleUser, models.StatusActive)
	suspended := newUser(t, db, "gone@example.com", models.RoleAdmin, models.StatusSuspended)

	r := gin.New()
	r.GET("/admin", AdminRequired(db), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, u.Email)
	})

	revoked := token(t, admin)
	utils.RevokeToken(revoked, time.Now().Add(time.Hour))

	cases := []struct {
		name   string
		cookie string
		bearer string
		want   int
	}{
		{"no session", "", "", http.StatusUnauthorized},
		{"garbage", "nope", "", http.StatusUnauthorized},
		{"admin cookie", token(t, admin), "", http.StatusOK},
		{"admin bearer", "", token(t, admin), http.StatusOK},
		{"non admin", token(t, plain), "", http.StatusForbidden},
		{"suspended", token(t, suspended), "", http.StatusForbidden},
		{"revoked", revoked, "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "studio_session", Value: tc.cookie})
			}
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != "admin@example.com" {
				t.Fatalf("body: %s", w.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	l := newIPLimiter(4)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if !l.allow("1.1.1.1") || !l.allow("1.1.1.1") {
		t.Fatal("burst of two should pass")
	}
	if l.allow("1.1.1.1") {
		t.Fatal("third request should be limited")
	}
	if !l.allow("2.2.2.2") {
		t.Fatal("other ips have their own bucket")
	}
	now = now.Add(15 * time.Second)
	if !l.allow("1.1.1.1") {
		t.Fatal("bucket should refill")
	}
	now = now.Add(10 * time.Minute)
	l.allow("3.3.3.3")
	if _, ok := l.visitors["2.2.2.2"]; ok {
		t.Fatal("idle visitors should be dropped")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes: %v", codes)
	}
}
