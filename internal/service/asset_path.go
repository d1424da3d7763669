package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxRenameAttempts = 10000

// splitFilename splits at the last dot. A name without a dot, or ending in
// one, has no extension.
func splitFilename(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

func joinFilename(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// resolveUniqueFilename returns candidate, or the first of base_1.ext,
// base_2.ext, ... that does not exist in dir. The check and the later write
// are not atomic; the (dir, filename) unique index catches the race.
func resolveUniqueFilename(ctx context.Context, exists func(ctx context.Context, key string) (bool, error), dir, candidate string) (string, error) {
	base, ext := splitFilename(candidate)
	name := candidate
	for i := 1; i <= maxRenameAttempts; i++ {
		found, err := exists(ctx, path.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("check %s: %w", name, err)
		}
		if !found {
			return name, nil
		}
		name = joinFilename(base+"_"+strconv.Itoa(i), ext)
	}
	return "", fmt.Errorf("no free filename for %s in %s", candidate, dir)
}

// derivePath returns [host, year, month, day]; the host is only present in
// multi-site mode. Month and day are not zero padded.
func derivePath(host string, createdAt time.Time, multiSite bool) []string {
	date := createdAt.UTC()
	segments := []string{
		host,
		strconv.Itoa(date.Year()),
		strconv.Itoa(int(date.Month())),
		strconv.Itoa(date.Day()),
	}
	if !multiSite {
		return segments[1:]
	}
	return segments
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w.\-]`)

// sanitizeFilename keeps the base name and replaces anything but word
// characters, dots and dashes with underscores.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, ".")
}

func publicPath(key string) string {
	return "/assets/" + strings.TrimPrefix(key, "/")
}
