package converter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var imageRe = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// relocateImages copies locally resolvable images referenced by content into the
// asset directory and points the references at the copies. Web URLs and images
// that cannot be found are left as they are. It returns every copy made and the
// subset that did not exist beforehand.
func (c *Converter) relocateImages(content, sessionDir string) (string, []string, []string) {
	var copied, created []string

	out := imageRe.ReplaceAllStringFunc(content, func(match string) string {
		m := imageRe.FindStringSubmatch(match)
		alt, src := m[1], m[2]
		if strings.HasPrefix(src, "http") {
			return match
		}

		source, ok := resolveImage(sessionDir, src)
		if !ok {
			return match
		}

		name := filepath.Base(source)
		target := filepath.Join(c.assetDir(), name)
		existed := isFile(target)
		if err := copyFile(source, target); err != nil {
			c.logger.Warn("failed to copy image", "src", source, "dst", target, "error", err)
			return match
		}
		copied = append(copied, target)
		if !existed {
			created = append(created, target)
		}
		return fmt.Sprintf("![%s](./%s/%s)", alt, filepath.ToSlash(c.opts.AssetSubdir), name)
	})

	return out, copied, created
}

// discardAssets removes images copied for a note that was never written.
func (c *Converter) discardAssets(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove orphaned image", "path", p, "error", err)
		}
	}
}

// resolveImage looks for src relative to the session directory, then for its base name there.
func resolveImage(sessionDir, src string) (string, bool) {
	if src == "" {
		return "", false
	}
	candidate := src
	if !filepath.IsAbs(src) {
		candidate = filepath.Join(sessionDir, src)
	}
	if isFile(candidate) {
		return candidate, true
	}
	candidate = filepath.Join(sessionDir, filepath.Base(src))
	if isFile(candidate) {
		return candidate, true
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// copyFile copies src to dst keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
