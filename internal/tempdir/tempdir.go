// Package tempdir owns the scratch directory that holds uploaded originals
// and resized derivatives for the lifetime of a single request.
//
// Names are made unique per call from the clock and a random token, so
// concurrent requests never coordinate through a lock or shared counter.
package tempdir

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Dir is a scratch directory.
type Dir struct {
	path string
}

// Open creates dir (and parents) when absent and returns it as a Dir with an
// absolute path.
func Open(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return &Dir{path: abs}, nil
}

// Path returns the absolute directory path.
func (d *Dir) Path() string {
	return d.path
}

// NewPath returns a fresh path "<prefix>-<unix-nanos>-<token><ext>". Nothing
// is created on disk.
func (d *Dir) NewPath(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(d.path, fmt.Sprintf("%s-%s%s", prefix, uniqueStem(), ext))
}

// Save copies r into a new file named "<unix-nanos>-<token>-<original>" and
// returns its path and size. A partially written file is removed on error.
func (d *Dir) Save(r io.Reader, originalName string) (string, int64, error) {
	path := filepath.Join(d.path, uniqueStem()+"-"+SanitizeName(originalName))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	return path, n, nil
}

// Remove deletes every path. Paths that no longer exist are skipped; the
// remaining failures are combined into one error.
func Remove(paths ...string) error {
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	return err
}

// Entries lists the file names currently in the directory.
func (d *Dir) Entries() ([]string, error) {
	des, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", d.path, err)
	}
	names := make([]string, 0, len(des))
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names, nil
}

// SanitizeName reduces an uploaded filename to a safe base name: directory
// components are dropped and anything outside [A-Za-z0-9._-] becomes '_'.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	if len(out) > 128 {
		ext := filepath.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:128-len(ext)] + ext
	}
	return out
}

func uniqueStem() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), token)
}
