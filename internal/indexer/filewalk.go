package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// scannedFile is one file discovered by Walk, before classification against
// the prior file manifest.
type scannedFile struct {
	RelPath     string
	AbsPath     string
	Size        int64
	ModTime     int64
	ContentHash string
}

// Walk scans root for indexable files, skipping directories/files that
// match excludePatterns (glob matching via filepath.Match) and skipping
// binary content, symlinks, and
// anything oversized. Results are sorted by relative path for deterministic
// processing order.
func Walk(root string, excludePatterns []string, maxFileSize int64) ([]scannedFile, error) {
	if maxFileSize <= 0 {
		maxFileSize = 100 * 1024 * 1024
	}

	var files []scannedFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matchesAny(rel, excludePatterns) || strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(rel, excludePatterns) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if isBinary(content) {
			return nil
		}

		files = append(files, scannedFile{
			RelPath:     rel,
			AbsPath:     path,
			Size:        info.Size(),
			ModTime:     info.ModTime().UnixNano(),
			ContentHash: hashContent(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func matchesAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		// Support "**/x/**"-style patterns with a simple substring fallback,
		// since filepath.Match doesn't support "**".
		trimmed := strings.Trim(pattern, "*/")
		if trimmed != "" && strings.Contains(relPath, trimmed) && strings.Contains(pattern, "**") {
			return true
		}
	}
	return false
}

func isBinary(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
