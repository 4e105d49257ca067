package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrPathTraversal marks a request resolving outside its source root.
	// Rejected before any file I/O.
	ErrPathTraversal = errors.New("path outside source root")
	// ErrNotFound marks a missing source or source file. No cache entry is
	// created.
	ErrNotFound = errors.New("source file not found")
	// ErrInvalidImage marks an undecodable source file.
	ErrInvalidImage = errors.New("invalid source image")
)

// Generator produces tiered thumbnail derivatives on demand. Generation is
// singleflighted per cache key: concurrent requests for the same key share
// one decode/resize, and only one writer ever touches the output path.
type Generator struct {
	roots    map[string]string // source name -> mounted root
	cacheDir string
	quality  int
	meta     *MetaStore
	group    singleflight.Group
	logger   *zap.Logger
}

// NewGenerator creates a generator over the given source roots.
func NewGenerator(roots map[string]string, cacheDir string, quality int, meta *MetaStore, logger *zap.Logger) *Generator {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Generator{
		roots:    roots,
		cacheDir: cacheDir,
		quality:  quality,
		meta:     meta,
		logger:   logger,
	}
}

// ResolveOriginal maps (source, relative path) to the absolute file path,
// rejecting anything that escapes the source root.
func (g *Generator) ResolveOriginal(source, relPath string) (string, error) {
	root, ok := g.roots[source]
	if !ok {
		return "", fmt.Errorf("%w: unknown source %q", ErrNotFound, source)
	}
	abs := filepath.Join(root, filepath.FromSlash(relPath))
	cleanRoot := filepath.Clean(root)
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, relPath)
	}
	return abs, nil
}

// CachePath returns the on-disk location for a cache key.
func (g *Generator) CachePath(key string) string {
	return filepath.Join(g.cacheDir, filepath.FromSlash(key))
}

// Thumbnail returns the cached thumbnail path for the effective width,
// generating it when absent. Cache hits update the metadata access fields
// before serving.
func (g *Generator) Thumbnail(ctx context.Context, source, relPath string, effectiveWidth int) (string, error) {
	tier := Tier(effectiveWidth)
	key := Key(source, relPath, tier)
	full := g.CachePath(key)

	if g.meta.Touch(key) {
		if _, err := os.Stat(full); err == nil {
			return full, nil
		}
		// Backing file vanished: prune the stale entry and regenerate.
		g.meta.Remove(key)
	}

	path, err, shared := g.group.Do(key, func() (any, error) {
		return g.generate(ctx, source, relPath, tier, key, full)
	})
	if err != nil && shared {
		// The flight this request joined failed; retry once.
		path, err, _ = g.group.Do(key, func() (any, error) {
			return g.generate(ctx, source, relPath, tier, key, full)
		})
	}
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

// generate decodes, resizes, and re-encodes one thumbnail, then registers the
// cache metadata entry. Output preserves aspect ratio at the tier's nominal
// width; the write is temp-then-rename so readers never see a partial file.
func (g *Generator) generate(ctx context.Context, source, relPath string, tier int, key, full string) (string, error) {
	src, err := g.ResolveOriginal(source, relPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	resized := imaging.Resize(img, tier, 0, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache shard: %w", err)
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := imaging.Encode(f, resized, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to flush thumbnail: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", fmt.Errorf("failed to place thumbnail: %w", err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("failed to stat thumbnail: %w", err)
	}
	g.meta.Record(key, info.Size())

	g.logger.Debug("thumbnail generated",
		zap.String("source", source),
		zap.String("item", relPath),
		zap.Int("tier", tier),
	)
	return full, nil
}
