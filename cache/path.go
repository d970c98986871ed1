package cache

import (
	"fmt"
	"strings"

	apperrors "github.com/Skryldev/image-engine/errors"
)

// NormalizePath canonicalizes a storage path: repeated separators collapse,
// a single leading separator is enforced, and any ".." segment rejects the
// whole path.  Every cache operation keys on the normalized form, so "/a/b"
// and "//a//b" share one entry.
func NormalizePath(path string) (string, error) {
	if path == "" {
		return "", apperrors.New(apperrors.CategoryInput, "path.normalize", apperrors.ErrInvalidPath)
	}
	segs := strings.Split(path, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" {
			continue
		}
		if s == ".." {
			return "", apperrors.New(apperrors.CategoryInput, "path.normalize",
				fmt.Errorf("%w: %q escapes the root", apperrors.ErrInvalidPath, path))
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(out, "/"), nil
}
