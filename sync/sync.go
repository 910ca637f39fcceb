package sync

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"upyt/fs"
)

const (
	defaultBlockSize  = 512
	defaultCommandCap = 20
)

// ProgressFunc is called once per file about to be written, before the
// write begins, so a caller can report progress.
type ProgressFunc func(path string, toUpdate, allHostPaths []string)

// SyncToDevice mirrors hostDir onto deviceDir, using the shadow cache
// under hostDir/.upyt_cache/<device_id>/ to avoid re-transmitting files
// that have not changed, and differential updates (fs.Facade.UpdateFile)
// in place of whole-file writes wherever the cache holds a copy of the
// file (hash-verified when the cache is not believed fresh).
//
// exclude may be nil to apply no filtering. forceEnumerate disables the
// cache-trusting fast path (every host path is considered for update).
// forceSafe forces hash-verified updates even when the cache is
// otherwise believed fresh.
//
// The device is never deleted from: files present on the device but
// absent from hostDir are left untouched. This is a deliberate policy,
// not an oversight.
func SyncToDevice(fa *fs.Facade, hostDir, deviceDir string, exclude ExcludeMatcher, forceEnumerate, forceSafe bool, progress ProgressFunc) error {
	// 1. Identity.
	versionRemote, deviceID, err := GetDeviceIdentity(fa, deviceDir)
	if err != nil {
		return fmt.Errorf("sync: read device identity: %w", err)
	}

	// 2. Cache locate.
	cacheRoot := filepath.Join(hostDir, cacheDirName, deviceID)
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return fmt.Errorf("sync: create shadow cache: %w", err)
	}
	versionCached := -1
	if data, err := os.ReadFile(filepath.Join(cacheRoot, TokenFileName)); err == nil {
		if v, id, ok := DecodeToken(data); ok && id == deviceID {
			versionCached = v
		}
	}

	// 3. Freshness.
	cacheFresh := versionCached == versionRemote

	// 4. Mark dirty on device before doing anything else, so a crash
	// partway through this run leaves the next run in safe mode.
	nextVersion := NextVersion(versionRemote)
	if err := WriteDeviceIdentity(fa, deviceDir, nextVersion, deviceID); err != nil {
		return fmt.Errorf("sync: mark device dirty: %w", err)
	}

	// 5 & 6. Enumerate host and cache.
	hostPaths, err := EnumerateHost(hostDir, exclude)
	if err != nil {
		return fmt.Errorf("sync: enumerate host: %w", err)
	}
	cachePaths, err := EnumerateCache(cacheRoot)
	if err != nil {
		return fmt.Errorf("sync: enumerate cache: %w", err)
	}

	// 7. Determine to_update.
	var toUpdate []string
	if cacheFresh && !forceEnumerate {
		for rel, t := range hostPaths {
			cachedType, inCache := cachePaths[rel]
			if !inCache || cachedType != t {
				toUpdate = append(toUpdate, rel)
				continue
			}
			if t != fs.File {
				continue
			}
			hostBytes, err := os.ReadFile(filepath.Join(hostDir, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("sync: read host file %s: %w", rel, err)
			}
			cacheBytes, err := os.ReadFile(filepath.Join(cacheRoot, filepath.FromSlash(rel)))
			if err != nil || !bytes.Equal(hostBytes, cacheBytes) {
				toUpdate = append(toUpdate, rel)
			}
		}
	} else {
		for rel := range hostPaths {
			toUpdate = append(toUpdate, rel)
		}
	}

	allHostPaths := make([]string, 0, len(hostPaths))
	for rel := range hostPaths {
		allHostPaths = append(allHostPaths, rel)
	}
	sort.Strings(allHostPaths)
	sort.Strings(toUpdate)

	// 8. Prune stale cache entries, so a leftover file never blocks
	// creating a directory of the same name.
	for rel := range cachePaths {
		if _, ok := hostPaths[rel]; !ok {
			if err := os.RemoveAll(filepath.Join(cacheRoot, filepath.FromSlash(rel))); err != nil {
				return fmt.Errorf("sync: prune stale cache entry %s: %w", rel, err)
			}
		}
	}

	// 9. Create directories first, parents before children.
	var dirs []string
	for _, rel := range toUpdate {
		if hostPaths[rel] == fs.Dir {
			dirs = append(dirs, rel)
		}
	}
	sort.Strings(dirs)
	for _, rel := range dirs {
		devPath := devicePath(deviceDir, rel)
		t, err := fa.GetType(devPath)
		if err != nil {
			return fmt.Errorf("sync: stat device path %s: %w", rel, err)
		}
		if t == fs.File {
			if err := fa.RemoveRecursive(devPath); err != nil {
				return fmt.Errorf("sync: remove stale file at %s: %w", rel, err)
			}
		}
		if err := fa.Mkdir(devPath, true, true); err != nil {
			return fmt.Errorf("sync: mkdir %s: %w", rel, err)
		}
		if err := os.MkdirAll(filepath.Join(cacheRoot, filepath.FromSlash(rel)), 0o755); err != nil {
			return fmt.Errorf("sync: mirror mkdir %s: %w", rel, err)
		}
	}

	// 10. Write files.
	var files []string
	for _, rel := range toUpdate {
		if hostPaths[rel] == fs.File {
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	for _, rel := range files {
		if progress != nil {
			progress(rel, toUpdate, allHostPaths)
		}

		devPath := devicePath(deviceDir, rel)
		hostBytes, err := os.ReadFile(filepath.Join(hostDir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("sync: read host file %s: %w", rel, err)
		}

		t, err := fa.GetType(devPath)
		if err != nil {
			return fmt.Errorf("sync: stat device path %s: %w", rel, err)
		}
		if t == fs.Dir {
			if err := fa.RemoveRecursive(devPath); err != nil {
				return fmt.Errorf("sync: remove stale dir at %s: %w", rel, err)
			}
		}

		cacheBytes, haveCache := readIfExists(filepath.Join(cacheRoot, filepath.FromSlash(rel)))

		wrote := false
		if haveCache && t == fs.File {
			safe := !cacheFresh || forceSafe
			if updateErr := fa.UpdateFile(devPath, cacheBytes, hostBytes, defaultBlockSize, defaultCommandCap, safe); updateErr == nil {
				wrote = true
			}
			// Any failure here — hash mismatch, a vanished old file, a
			// plain OS error — falls through to a whole-file rewrite.
		}
		if !wrote {
			if err := fa.WriteFile(devPath, hostBytes, defaultBlockSize); err != nil {
				return fmt.Errorf("sync: write file %s: %w", rel, err)
			}
		}

		cachePath := filepath.Join(cacheRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return fmt.Errorf("sync: mirror directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(cachePath, hostBytes, 0o644); err != nil {
			return fmt.Errorf("sync: mirror file %s: %w", rel, err)
		}
	}

	// 11. Commit cache freshness only once every file operation above
	// succeeded.
	token, err := EncodeToken(nextVersion, deviceID)
	if err != nil {
		return fmt.Errorf("sync: encode committed token: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cacheRoot, TokenFileName), token, 0o644); err != nil {
		return fmt.Errorf("sync: commit cache token: %w", err)
	}

	return nil
}

func readIfExists(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}
