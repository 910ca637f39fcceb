package sync

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"upyt/fs"
)

// cacheDirName is the hidden directory, at the root of every synced
// source tree, holding the shadow cache. It is always excluded from host
// enumeration.
const cacheDirName = ".upyt_cache"

// ExcludeMatcher decides whether a host-relative, slash-separated path
// should be skipped during enumeration. Building the matcher from
// rsync-style glob patterns is an external concern this package does not
// implement; callers needing no filtering at all can pass nil.
type ExcludeMatcher interface {
	Match(relPath string) bool
}

// EnumerateHost walks hostDir and returns every path beneath it (other
// than the shadow cache directory itself and anything exclude matches),
// keyed by slash-separated path relative to hostDir.
func EnumerateHost(hostDir string, exclude ExcludeMatcher) (map[string]fs.PathType, error) {
	out := make(map[string]fs.PathType)
	err := filepath.WalkDir(hostDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == hostDir {
			return nil
		}
		rel := filepath.ToSlash(mustRel(hostDir, p))
		if rel == cacheDirName || strings.HasPrefix(rel, cacheDirName+"/") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if exclude != nil && exclude.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			out[rel] = fs.Dir
		} else {
			out[rel] = fs.File
		}
		return nil
	})
	return out, err
}

// EnumerateCache walks cacheDir (the shadow cache for one device id) and
// returns every path beneath it other than the token file, keyed the
// same way as EnumerateHost so the two are directly comparable.
func EnumerateCache(cacheDir string) (map[string]fs.PathType, error) {
	out := make(map[string]fs.PathType)
	if _, err := os.Stat(cacheDir); errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	err := filepath.WalkDir(cacheDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == cacheDir {
			return nil
		}
		rel := filepath.ToSlash(mustRel(cacheDir, p))
		if rel == TokenFileName {
			return nil
		}
		if d.IsDir() {
			out[rel] = fs.Dir
		} else {
			out[rel] = fs.File
		}
		return nil
	})
	return out, err
}

func mustRel(base, target string) string {
	rel, _ := filepath.Rel(base, target)
	return rel
}
