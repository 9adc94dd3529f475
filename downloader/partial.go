package downloader

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/log"
	"github.com/anisan-cli/anidl/util"
)

// partialPath is the hidden file a strategy writes to before the result is committed.
// It lives next to the target so the final rename never crosses filesystems.
func partialPath(target, ext string) string {
	dir, name := filepath.Split(target)
	return filepath.Join(dir, "."+name+".part"+ext)
}

// commit moves a finished partial file to target+ext.
func commit(partial, target, ext string) (string, error) {
	final := target + ext
	if err := filesystem.API().Rename(partial, final); err != nil {
		discard(partial)
		return "", &DownloadError{URL: final, Reason: "could not move the finished file", Err: err}
	}

	return final, nil
}

// discard removes an artifact, logging instead of failing.
func discard(path string) {
	if err := util.Delete(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("could not remove %s: %v", path, err)
	}
}

var segmentExts = map[string]string{
	".ts":   ".ts",
	".aac":  ".aac",
	".mp3":  ".mp3",
	".m4a":  ".m4a",
	".mp4":  ".mp4",
	".m4s":  ".mp4",
	".webm": ".webm",
}

// segmentExt guesses the container of a segment from its URI, defaulting to MPEG-TS.
func segmentExt(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}

	if ext, ok := segmentExts[strings.ToLower(path.Ext(p))]; ok {
		return ext
	}
	return ".ts"
}

// segmentFilename names the temporary file of a segment. The zero padded ordinal
// keeps a directory listing in playlist order.
func segmentFilename(ordinal int, uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}

	tail := util.SanitizeFilename(util.FileStem(path.Base(p)))
	if tail == "" {
		tail = "segment"
	}
	if len(tail) > 64 {
		tail = tail[:64]
	}

	return fmt.Sprintf("%05d_%s%s", ordinal, tail, segmentExt(uri))
}

// Leftovers lists the partial files and segment directories that interrupted
// downloads left in dir.
func Leftovers(dir string) ([]string, error) {
	entries, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, ".") {
			continue
		}

		switch {
		case entry.IsDir() && strings.HasSuffix(name, ".segments"):
		case !entry.IsDir() && strings.Contains(name, ".part."):
		default:
			continue
		}

		paths = append(paths, filepath.Join(dir, name))
	}

	return paths, nil
}
