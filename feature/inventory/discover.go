package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceMount pairs a display name with a mounted root path.
type SourceMount struct {
	Name string
	Root string
}

// ParseSourceMapping parses an externally supplied mapping of the form
// "Holidays=/mnt/holidays,Family=/mnt/family". Entries without a name take
// the base name of the path.
func ParseSourceMapping(raw string) []SourceMount {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var mounts []SourceMount
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, root, found := strings.Cut(part, "=")
		if !found {
			root = name
			name = filepath.Base(filepath.Clean(root))
		}
		name = strings.TrimSpace(name)
		root = strings.TrimSpace(root)
		if name == "" || root == "" {
			continue
		}
		mounts = append(mounts, SourceMount{Name: name, Root: root})
	}
	return mounts
}

// DiscoverMounts returns one mount per immediate subdirectory of the
// conventional mount root. Used when no explicit mapping is configured.
func DiscoverMounts(root string) ([]SourceMount, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read mount root %s: %w", root, err)
	}
	var mounts []SourceMount
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		mounts = append(mounts, SourceMount{
			Name: e.Name(),
			Root: filepath.Join(root, e.Name()),
		})
	}
	sort.Slice(mounts, func(i, j int) bool { return mounts[i].Name < mounts[j].Name })
	return mounts, nil
}
