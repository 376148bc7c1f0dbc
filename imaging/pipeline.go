package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gen2brain/webp"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxBytes  = 10 << 20
	DefaultQuality   = 85
	DefaultURLPrefix = "/static/uploads"
	// DefaultMaxPixels matches Pillow's decompression bomb threshold.
	DefaultMaxPixels = 89478485

	extension       = ".webp"
	maxNameAttempts = 1000
	encoderMethod   = 6
	timestampLayout = "20060102_150405"
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Asset describes a stored upload.
type Asset struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type Options struct {
	Dir           string
	URLPrefix     string
	MaxBytes      int64
	MaxPixels     int64
	Quality       int
	MaxConcurrent int
	Logger        *zap.Logger
	Now           func() time.Time
}

// Pipeline normalizes uploaded images into opaque WEBP files inside a flat directory.
type Pipeline struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	maxPixels int64
	quality   int
	sem       *semaphore.Weighted
	log       *zap.Logger
	now       func() time.Time
}

// New creates the upload directory when missing.
func New(opts Options) (*Pipeline, error) {
	if opts.Dir == "" {
		return nil, errors.New("imaging: upload dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("imaging: create upload dir: %w", err)
	}
	p := &Pipeline{
		dir:       opts.Dir,
		urlPrefix: strings.TrimRight(opts.URLPrefix, "/"),
		maxBytes:  opts.MaxBytes,
		maxPixels: opts.MaxPixels,
		quality:   opts.Quality,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if p.urlPrefix == "" {
		p.urlPrefix = DefaultURLPrefix
	}
	if p.maxBytes <= 0 {
		p.maxBytes = DefaultMaxBytes
	}
	if p.maxPixels <= 0 {
		p.maxPixels = DefaultMaxPixels
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = DefaultQuality
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	n := opts.MaxConcurrent
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p.sem = semaphore.NewWeighted(int64(n))
	return p, nil
}

func (p *Pipeline) Dir() string { return p.dir }

// MaxBytes is the largest accepted upload.
func (p *Pipeline) MaxBytes() int64 { return p.maxBytes }

// Allowed reports whether the declared content type may be uploaded.
func Allowed(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	_, ok := allowedTypes[strings.ToLower(mt)]
	return ok
}

// Upload validates, decodes, flattens and re-encodes one image. Nothing is
// written to disk unless every step before the final write succeeded.
func (p *Pipeline) Upload(ctx context.Context, r io.Reader, contentType string) (*Asset, error) {
	if !Allowed(contentType) {
		return nil, ErrUnsupportedMediaType
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, processing("read", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrPayloadTooLarge
	}

	if err := p.checkDimensions(data); err != nil {
		return nil, err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, processing("acquire", err)
	}
	encoded, err := p.normalize(data)
	p.sem.Release(1)
	if err != nil {
		return nil, err
	}

	name, size, err := p.store(encoded)
	if err != nil {
		return nil, err
	}
	p.log.Info("image stored",
		zap.String("filename", name),
		zap.String("source_type", contentType),
		zap.Int("source_bytes", len(data)),
		zap.Int64("size", size),
	)
	return &Asset{
		URL:      path.Join(p.urlPrefix, name),
		Filename: name,
		Size:     size,
	}, nil
}

// checkDimensions reads only the image header so an oversized canvas is
// refused before the decoder allocates it.
func (p *Pipeline) checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return processing("decode", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return processing("decode", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return processing("decode", fmt.Errorf("image of %dx%d exceeds %d pixels", cfg.Width, cfg.Height, p.maxPixels))
	}
	return nil
}

func (p *Pipeline) normalize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, processing("decode", err)
	}
	flat := flatten(img)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, flat, webp.Options{Quality: p.quality, Method: encoderMethod}); err != nil {
		return nil, processing("encode", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) store(encoded []byte) (string, int64, error) {
	base := p.baseName()
	for i := 0; i < maxNameAttempts; i++ {
		name := base + extension
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, extension)
		}
		full := filepath.Join(p.dir, name)
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, processing("create", err)
		}
		n, werr := f.Write(encoded)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(full)
			return "", 0, processing("write", werr)
		}
		return name, int64(n), nil
	}
	return "", 0, processing("create", fmt.Errorf("no free filename for %s", base))
}

func (p *Pipeline) baseName() string {
	t := p.now()
	return fmt.Sprintf("%s_%06d", t.Format(timestampLayout), t.Nanosecond()/1000)
}

// Delete removes a previously stored file. Anything that is not a plain file
// name inside the upload directory is reported as ErrNotFound.
func (p *Pipeline) Delete(_ context.Context, filename string) error {
	if !validName(filename) {
		return ErrNotFound
	}
	full := filepath.Join(p.dir, filename)
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return processing("stat", err)
	}
	if info.IsDir() {
		return ErrNotFound
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return processing("remove", err)
	}
	p.log.Info("image deleted", zap.String("filename", filename))
	return nil
}

// FilenameFromURL returns the stored file name behind a URL this pipeline
// produced. ok is false for URLs outside the upload prefix.
func (p *Pipeline) FilenameFromURL(u string) (name string, ok bool) {
	u = strings.TrimSpace(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	rest, found := strings.CutPrefix(u, p.urlPrefix+"/")
	if !found || !validName(rest) {
		return "", false
	}
	return rest, true
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
