package rewrite

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"goflow/internal/errs"
)

// defaultModulePath is used when the scratch copy has no go.mod of its
// own to read a module path from.
const defaultModulePath = "goflowscratch"

// ensureModule reads the module path out of dir/go.mod, creating a
// synthetic one if absent, per the rewriter's build-viability guarantee.
func ensureModule(dir string, goVersion string) (string, error) {
	modPath := filepath.Join(dir, "go.mod")
	if path, ok, err := readModulePath(modPath); err != nil {
		return "", err
	} else if ok {
		return path, nil
	}

	content := fmt.Sprintf("module %s\n\ngo %s\n", defaultModulePath, goVersion)
	if err := os.WriteFile(modPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write synthetic go.mod: %w", errs.ErrRewrite)
	}
	return defaultModulePath, nil
}

func readModulePath(modPath string) (string, bool, error) {
	f, err := os.Open(modPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", modPath, errs.ErrRewrite)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if after, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(after), true, nil
		}
	}
	return "", false, nil
}
