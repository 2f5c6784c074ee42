package rewrite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"goflow/internal/errs"
)

// excludedDirs are never copied into the scratch tree: build artefacts,
// VCS metadata, vendored deps.
var excludedDirs = map[string]bool{
	"target": true,
	".git":   true,
	"vendor": true,
}

// copyTree copies srcDir into dstDir, skipping excludedDirs and (when
// dropTests is set) any file ending in _test.go — original tests are
// dropped so the instrumentation harness's own synthetic test is what
// actually exercises the rewritten code.
func copyTree(srcDir, dstDir string, dropTests bool) error {
	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, errs.ErrRewrite)
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, errs.ErrRewrite)
		}
		if rel == "." {
			return os.MkdirAll(dstDir, 0o755)
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dstDir, rel), 0o755)
		}
		if dropTests && strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		return copyFile(path, filepath.Join(dstDir, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, errs.ErrRewrite)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", dst, errs.ErrRewrite)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, errs.ErrRewrite)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, errs.ErrRewrite)
	}
	return nil
}
