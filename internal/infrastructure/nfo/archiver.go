package nfo

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"DailyReleases/internal/domain"
	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/ports"
)

const defaultExtension = ".nfo"

// Archiver downloads NFO files into a directory, one file per dirname.
type Archiver struct {
	getter httpcache.Getter
	dir    string
	logger *slog.Logger
}

var _ ports.NFOArchiver = (*Archiver)(nil)

// NewArchiver stores NFOs under dir.
func NewArchiver(getter httpcache.Getter, dir string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{getter: getter, dir: dir, logger: logger}
}

// Archive fetches the release's NFO link and writes it to <dir>/<dirname><ext>.
// Releases without an NFO link are ignored.
func (a *Archiver) Archive(ctx context.Context, release domain.RawRelease) error {
	if release.NFOLink == "" {
		return nil
	}

	resp, err := a.getter.Get(ctx, httpcache.Request{URL: release.NFOLink})
	if err != nil {
		return fmt.Errorf("download nfo: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("download nfo: unexpected status %d", resp.Status)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create nfo dir: %w", err)
	}
	path := filepath.Join(a.dir, safeName(release.Dirname)+Extension(resp.ContentType))
	if err := writeFileAtomic(path, resp.Body, 0o644); err != nil {
		return err
	}
	a.logger.Info("nfo archived", "dirname", release.Dirname, "path", path)
	return nil
}

// Extension maps a content type to a file extension, falling back to .nfo.
func Extension(contentType string) string {
	if contentType == "" {
		return defaultExtension
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return defaultExtension
	}
	sort.Strings(exts)
	return exts[0]
}

func safeName(dirname string) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(dirname)
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "nfo-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
