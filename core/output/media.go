// Package output — media copy.
// Copies the site's media tree into <public>/<project> so the namespaced
// asset URLs written into bodies resolve. Either the whole tree is copied or
// only the assets documents reference.
package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/gaurav-prasanna/dumppipe/core"
)

// ErrNoMediaSource is returned when the media directory does not exist.
var ErrNoMediaSource = errors.New("media source not found")

// MediaStats summarizes a media copy.
type MediaStats struct {
	Files int
	Bytes int64
}

// PublicDir returns <outputDir>/../public/<project>, where the static site
// serves project media from.
func PublicDir(outputDir, project string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(outputDir)), "public", project)
}

// CopyMedia copies the whole tree at src into dst.
func CopyMedia(ctx context.Context, src, dst string) (MediaStats, error) {
	var stats MediaStats
	if err := checkSource(src); err != nil {
		return stats, err
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, dirPerms)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		n, err := copyFile(path, target)
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += n
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("copying media from %s: %w", src, err)
	}
	return stats, nil
}

// CopyReferenced copies only the given asset references (paths such as
// "assets/images/logo.png") from src into dst, keeping their relative path.
// A reference is looked up under src first, then with its leading "assets/"
// stripped, so src may be either the site root or the assets directory.
// Missing files are reported as warnings.
func CopyReferenced(ctx context.Context, src, dst string, refs []string) (MediaStats, []core.Warning, error) {
	var (
		stats    MediaStats
		warnings []core.Warning
	)
	if err := checkSource(src); err != nil {
		return stats, nil, err
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return stats, warnings, err
		}
		rel := cleanRef(ref)
		if rel == "" {
			warnings = append(warnings, core.Warning{Stage: core.StageMedia, Ref: ref, Message: "asset reference escapes the media directory"})
			continue
		}

		from, ok := locate(src, rel)
		if !ok {
			warnings = append(warnings, core.Warning{Stage: core.StageMedia, Ref: ref, Message: "asset not found in media directory"})
			continue
		}
		n, err := copyFile(from, filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil {
			return stats, warnings, fmt.Errorf("copying %s: %w", ref, err)
		}
		stats.Files++
		stats.Bytes += n
	}
	return stats, warnings, nil
}

func checkSource(src string) error {
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoMediaSource, src)
	}
	return nil
}

// cleanRef drops query strings and fragments, decodes percent escapes and
// rejects references that would leave the media directory.
func cleanRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	if !fs.ValidPath(ref) {
		return ""
	}
	return ref
}

func locate(src, rel string) (string, bool) {
	candidates := []string{rel}
	if trimmed, ok := strings.CutPrefix(rel, "assets/"); ok {
		candidates = append(candidates, trimmed)
	}
	for _, c := range candidates {
		p := filepath.Join(src, filepath.FromSlash(c))
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func copyFile(from, to string) (int64, error) {
	in, err := os.Open(from)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(to), dirPerms); err != nil {
		return 0, err
	}
	if err := atomic.WriteFile(to, in); err != nil {
		return 0, err
	}
	if err := os.Chmod(to, filePerms); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
