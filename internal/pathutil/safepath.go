// Package pathutil confines configured file paths to a data directory.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned for empty or whitespace-only paths.
	ErrEmptyPath = errors.New("path is empty or whitespace-only")

	// ErrNullByte is returned for paths containing a NUL byte.
	ErrNullByte = errors.New("path contains null byte")

	// ErrEscapesBase is returned when a path resolves outside its base
	// directory, including through symlinks.
	ErrEscapesBase = errors.New("path escapes base directory")
)

// ResolveSafePath resolves userPath against baseDir and returns the result
// with symlinks evaluated. Relative paths are joined to baseDir; absolute
// paths are accepted only when they already lie inside it. The target does
// not need to exist yet.
func ResolveSafePath(baseDir, userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(userPath, 0) {
		return "", ErrNullByte
	}

	candidate := userPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, candidate)
	}

	resolved, err := resolveExisting(filepath.Clean(candidate))
	if err != nil {
		return "", err
	}
	base, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesBase, userPath)
	}
	return resolved, nil
}

// ResolveDataFile returns override resolved inside dataDir, or
// dataDir/defaultRel when override is blank.
func ResolveDataFile(dataDir, override, defaultRel string) (string, error) {
	if strings.TrimSpace(override) == "" {
		override = defaultRel
	}
	return ResolveSafePath(dataDir, override)
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	var missing []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent directory for %s", path)
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}
