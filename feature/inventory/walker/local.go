package walker

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	// Register decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"picture-manager/feature/inventory/models"
)

// LocalWalker enumerates a user-configured local directory, honoring the
// source's recursion flag and excluded-subtree list.
type LocalWalker struct {
	Source *models.DataSource
}

// NewLocalWalker creates a walker for a local source.
func NewLocalWalker(source *models.DataSource) *LocalWalker {
	return &LocalWalker{Source: source}
}

func (w *LocalWalker) SourceID() uint {
	return w.Source.ID
}

// Walk enumerates image files under the source root.
func (w *LocalWalker) Walk(ctx context.Context, yield func(Item) error) error {
	return walkTree(ctx, w.Source.Root, w.Source.Recursive, w.Source.ExcludedList(), yield)
}

// Probe decodes just enough of the file to obtain pixel dimensions plus a
// best-effort metadata block.
func (w *LocalWalker) Probe(ctx context.Context, item Item) (Details, error) {
	return probeFile(item.AbsPath)
}

// walkTree is the shared directory enumeration used by local and server
// walkers. Excluded entries remove a folder and everything under it, matched
// by prefix against the slash-normalized relative path.
func walkTree(ctx context.Context, root string, recursive bool, excluded []string, yield func(Item) error) error {
	if _, err := os.Stat(root); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, root)
		}
		return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				// Unreadable subtree: skip it, keep walking siblings.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p == root {
				return nil
			}
			if !recursive {
				return filepath.SkipDir
			}
			if isExcluded(rel, excluded) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsImageFile(d.Name()) {
			return nil
		}
		if isExcluded(rel, excluded) {
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			// File vanished mid-walk; the next pass will settle it.
			return nil
		}

		return yield(Item{
			RelativeID: rel,
			Name:       d.Name(),
			ModifiedAt: info.ModTime(),
			ByteSize:   info.Size(),
			AbsPath:    p,
		})
	})
}

// isExcluded reports whether rel falls inside any excluded subtree.
func isExcluded(rel string, excluded []string) bool {
	for _, ex := range excluded {
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// probeFile reads the image header for dimensions and builds the metadata
// block. A failed decode degrades to ErrDecodeFailure; the caller still
// records the item without dimensions.
func probeFile(absPath string) (Details, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return Details{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Details{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	det := Details{Width: cfg.Width, Height: cfg.Height}
	if raw, merr := json.Marshal(map[string]string{"format": format}); merr == nil {
		meta := string(raw)
		det.Meta = &meta
	}
	return det, nil
}
