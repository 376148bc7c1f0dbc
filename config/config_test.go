package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadJSONConfigGroupedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "9000", "AllowedOrigins": ["https://a.example"]},
		"session": {"Secret": "s3cret", "TTLHours": 12},
		"database": {"Driver": "sqlite", "SQLitePath": "x.db"},
		"captcha": {"Mode": "image", "Store": "redis"},
		"upload": {"Dir": "/srv/up", "MaxMB": "5", "MaxPixels": 4000000}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("load: %v", err)
	}
	applyDefaults(&c)

	if c.AppPort != "9000" || c.SessionSecret != "s3cret" || c.SessionTTLHours != 12 {
		t.Fatalf("app/session: %+v", c)
	}
	if c.DBDriver != "sqlite" || c.SQLitePath != "x.db" {
		t.Fatalf("database: %s %s", c.DBDriver, c.SQLitePath)
	}
	if c.CaptchaMode != "image" || c.CaptchaStore != "redis" || c.CaptchaTTLMinutes != 10 {
		t.Fatalf("captcha: %s %s %d", c.CaptchaMode, c.CaptchaStore, c.CaptchaTTLMinutes)
	}
	if c.UploadDir != "/srv/up" || c.UploadMaxMB != 5 || c.UploadQuality != 85 || c.UploadMaxPixels != 4000000 {
		t.Fatalf("upload: %s %d %d %d", c.UploadDir, c.UploadMaxMB, c.UploadQuality, c.UploadMaxPixels)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("origins: %v", c.AllowedOrigins)
	}
}

func TestLoadJSONConfigMissingFileIsIgnored(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestLoadJSONConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_ = os.WriteFile(path, []byte("{not json"), 0o644)
	var c AppConfig
	if err := loadJSONConfig(path, &c); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)
	if c.AppPort != "8000" || c.SessionCookieName != "studio_session" || c.SessionTTLHours != 72 {
		t.Fatalf("defaults: %+v", c)
	}
	if c.CaptchaMode != "math" || c.CaptchaStore != "memory" || c.UploadURLPrefix != "/static/uploads" || c.UploadMaxMB != 10 {
		t.Fatalf("defaults: %+v", c)
	}
	if c.RedisHost != "" {
		t.Fatal("redis must stay disabled unless configured")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "7000")
	t.Setenv("CAPTCHA_MODE", "image")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("UPLOAD_MAX_MB", "3")
	t.Setenv("SESSION_SECRET", "from-env")

	c := AppConfig{AppPort: "9000", CaptchaMode: "math"}
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.AppPort != "7000" || c.CaptchaMode != "image" || c.UploadMaxMB != 3 || c.SessionSecret != "from-env" {
		t.Fatalf("overrides: %+v", c)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: %v", c.AllowedOrigins)
	}
}

func TestDialectorFor(t *testing.T) {
	if _, err := dialectorFor(AppConfig{DBDriver: "postgres"}); err == nil {
		t.Fatal("unsupported driver should fail")
	}
	d, err := dialectorFor(AppConfig{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "db", "s.db")})
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "sqlite" {
		t.Fatalf("dialector: %s", d.Name())
	}
	if got := mysqlDSN(AppConfig{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "1", DBName: "n"}); got != "u:p@tcp(h:1)/n?charset=utf8mb4&parseTime=True&loc=Local" {
		t.Fatalf("dsn: %s", got)
	}
}
