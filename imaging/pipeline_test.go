package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	xwebp "golang.org/x/image/webp"
)

func newTestPipeline(t *testing.T, now func() time.Time) *Pipeline {
	t.Helper()
	p, err := New(Options{Dir: t.TempDir(), Now: now})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func transparentPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if x < 16 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type failingReader struct{ t *testing.T }

func (f failingReader) Read([]byte) (int, error) {
	f.t.Fatal("body must not be read for a rejected content type")
	return 0, io.EOF
}

func TestUploadRejectsUnsupportedTypeBeforeReading(t *testing.T) {
	p := newTestPipeline(t, nil)
	for _, ct := range []string{"text/plain", "image/svg+xml", "application/octet-stream", ""} {
		_, err := p.Upload(context.Background(), failingReader{t}, ct)
		if !errors.Is(err, ErrUnsupportedMediaType) {
			t.Fatalf("%q: got %v", ct, err)
		}
	}
	entries, _ := os.ReadDir(p.Dir())
	if len(entries) != 0 {
		t.Fatalf("nothing should be written, found %d files", len(entries))
	}
}

func TestUploadTooLarge(t *testing.T) {
	p := newTestPipeline(t, nil)
	payload := bytes.NewReader(make([]byte, 11<<20))
	if _, err := p.Upload(context.Background(), payload, "image/png"); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("got %v", err)
	}
	entries, _ := os.ReadDir(p.Dir())
	if len(entries) != 0 {
		t.Fatalf("nothing should be written, found %d files", len(entries))
	}
}

func TestUploadCorruptData(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, err := p.Upload(context.Background(), strings.NewReader("definitely not a png"), "image/png")
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if perr.Op != "decode" {
		t.Fatalf("op: %s", perr.Op)
	}
}

// oversizedPNG returns a valid 1x1 PNG whose header claims width x height.
func oversizedPNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestUploadRejectsOversizedCanvas(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		p := newTestPipeline(t, nil)
		bomb := oversizedPNG(t, 12000, 12000)
		if len(bomb) > 200 {
			t.Fatalf("forged file should stay tiny, got %d bytes", len(bomb))
		}
		_, err := p.Upload(context.Background(), bytes.NewReader(bomb), "image/png")
		var perr *ProcessingError
		if !errors.As(err, &perr) || perr.Op != "decode" {
			t.Fatalf("expected decode processing error, got %v", err)
		}
		if !strings.Contains(err.Error(), "12000x12000") {
			t.Fatalf("error should name the dimensions: %v", err)
		}
		entries, _ := os.ReadDir(p.Dir())
		if len(entries) != 0 {
			t.Fatalf("nothing should be written, found %d files", len(entries))
		}
	})

	t.Run("configured limit", func(t *testing.T) {
		p, err := New(Options{Dir: t.TempDir(), MaxPixels: 32 * 31})
		if err != nil {
			t.Fatal(err)
		}
		_, err = p.Upload(context.Background(), bytes.NewReader(transparentPNG(t)), "image/png")
		var perr *ProcessingError
		if !errors.As(err, &perr) || perr.Op != "decode" {
			t.Fatalf("32x32 over a %d pixel limit: %v", 32*31, err)
		}

		p, err = New(Options{Dir: t.TempDir(), MaxPixels: 32 * 32})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Upload(context.Background(), bytes.NewReader(transparentPNG(t)), "image/png"); err != nil {
			t.Fatalf("image at the limit: %v", err)
		}
	})
}

func TestUploadFlattensAlpha(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.UTC)
	p := newTestPipeline(t, fixedClock(ts))

	asset, err := p.Upload(context.Background(), bytes.NewReader(transparentPNG(t)), "image/PNG; charset=binary")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.Filename != "20240305_140709_123456.webp" {
		t.Fatalf("filename: %s", asset.Filename)
	}
	if asset.URL != "/static/uploads/20240305_140709_123456.webp" {
		t.Fatalf("url: %s", asset.URL)
	}

	raw, err := os.ReadFile(filepath.Join(p.Dir(), asset.Filename))
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(raw)) != asset.Size {
		t.Fatalf("size %d, file has %d bytes", asset.Size, len(raw))
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WEBP" {
		t.Fatalf("stored file is not webp")
	}

	img, err := xwebp.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode stored file: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("dimensions changed: %v", img.Bounds())
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				t.Fatalf("pixel %d,%d not opaque", x, y)
			}
		}
	}
	r, g, b, _ := img.At(28, 16).RGBA()
	if r>>8 < 230 || g>>8 < 230 || b>>8 < 230 {
		t.Fatalf("transparent area should become white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestUploadOtherFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, src, nil); err != nil {
		t.Fatal(err)
	}

	pal := image.NewPaletted(image.Rect(0, 0, 16, 16), append(color.Palette{color.Transparent}, palette.Plan9[:16]...))
	pal.SetColorIndex(3, 3, 5)
	var g bytes.Buffer
	if err := gif.Encode(&g, pal, nil); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		ct   string
		data []byte
	}{
		{"jpeg", "image/jpeg", jpg.Bytes()},
		{"jpg alias", "image/jpg", jpg.Bytes()},
		{"gif palette", "image/gif", g.Bytes()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPipeline(t, nil)
			asset, err := p.Upload(context.Background(), bytes.NewReader(tc.data), tc.ct)
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			if !strings.HasSuffix(asset.Filename, ".webp") {
				t.Fatalf("filename: %s", asset.Filename)
			}
		})
	}
}

func TestUploadDistinctFilenames(t *testing.T) {
	ctx := context.Background()

	t.Run("distinct timestamps", func(t *testing.T) {
		times := []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 1000, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 2000, time.UTC),
		}
		i := 0
		p := newTestPipeline(t, func() time.Time {
			ts := times[i]
			i++
			return ts
		})
		a, err := p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
		if err != nil {
			t.Fatal(err)
		}
		b, err := p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
		if err != nil {
			t.Fatal(err)
		}
		if a.Filename == b.Filename {
			t.Fatalf("filenames collide: %s", a.Filename)
		}
	})

	t.Run("same timestamp gets a suffix", func(t *testing.T) {
		p := newTestPipeline(t, fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		a, err := p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
		if err != nil {
			t.Fatal(err)
		}
		b, err := p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
		if err != nil {
			t.Fatal(err)
		}
		if a.Filename != "20240101_000000_000000.webp" || b.Filename != "20240101_000000_000000_1.webp" {
			t.Fatalf("unexpected names %s %s", a.Filename, b.Filename)
		}
	})
}

func TestUploadCanceledContext(t *testing.T) {
	p, err := New(Options{Dir: t.TempDir(), MaxConcurrent: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer p.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Op != "acquire" {
		t.Fatalf("expected acquire processing error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause should be kept: %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, nil)

	if err := p.Delete(ctx, "20200101_000000_000000.webp"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("never uploaded: %v", err)
	}

	asset, err := p.Upload(ctx, bytes.NewReader(transparentPNG(t)), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(ctx, asset.Filename); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := p.Delete(ctx, asset.Filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDeleteRejectsPaths(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	p, err := New(Options{Dir: filepath.Join(root, "uploads")})
	if err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(p.Dir(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", ".", "..", "../secret.txt", "sub", "sub/../../secret.txt", `..\secret.txt`} {
		if err := p.Delete(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: got %v", name, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside upload dir must survive: %v", err)
	}
}

func TestAllowed(t *testing.T) {
	for ct, want := range map[string]bool{
		"image/png":                true,
		"IMAGE/JPEG":               true,
		"image/webp; q=1":          true,
		"image/gif":                true,
		"image/bmp":                false,
		"text/plain; charset=utf8": false,
	} {
		if got := Allowed(ct); got != want {
			t.Fatalf("%q: got %v", ct, got)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	p, err := New(Options{Dir: t.TempDir(), URLPrefix: "/static/uploads/"})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		url  string
		name string
		ok   bool
	}{
		{"/static/uploads/20240101_000000_000000.webp", "20240101_000000_000000.webp", true},
		{" /static/uploads/a.webp?v=2 ", "a.webp", true},
		{"a.webp", "", false},
		{"/static/uploads/", "", false},
		{"/static/uploads/../config.json", "", false},
		{"/static/uploads/sub/a.webp", "", false},
		{"/static/uploadsa.webp", "", false},
		{"https://cdn.example.com/static/uploads/a.webp", "", false},
	}
	for _, tc := range cases {
		name, ok := p.FilenameFromURL(tc.url)
		if name != tc.name || ok != tc.ok {
			t.Fatalf("%q: got (%q, %v)", tc.url, name, ok)
		}
	}
}
