package fs

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned when a path does not resolve to a directory
	ErrNotFound = errors.New("directory not found")
	// ErrAccessDenied is returned when a directory cannot be enumerated
	ErrAccessDenied = errors.New("access denied")
)

// Provider abstracts the storage medium a scan walks over
type Provider interface {
	DirectoryExists(path string) bool
	GetDirectoryInfo(path string) (DirectoryHandle, error)
	ValidateDirectoryAccess(path string) error
}

// DirectoryHandle is a single directory of a provider
type DirectoryHandle interface {
	FullPath() string
	// ListFiles returns files directly inside the directory
	ListFiles() ([]FileHandle, error)
	// ListSubdirectories returns directories directly inside the directory
	ListSubdirectories() ([]DirectoryHandle, error)
}

// FileHandle is a single file of a provider.
// Metadata is read lazily by Stat so that one unreadable file
// does not fail the listing of its directory.
type FileHandle interface {
	Name() string
	FullPath() string
	Stat() (FileInfo, error)
}

// NormalizePath returns the absolute, cleaned form of path.
// Both providers use it so that lookups do not depend on how a path was built.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving absolute path of %s", path)
	}
	return filepath.Clean(abs), nil
}

// NormalizeExtension returns ext with a leading dot, case folded.
// An empty extension stays empty.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return cases.Fold().String(ext)
}

// EqualFold reports whether two paths or extensions are equal under case folding
func EqualFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}
