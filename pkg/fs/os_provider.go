package fs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// OSProvider is a Provider backed by the operating system
type OSProvider struct{}

// NewOSProvider returns provider of the local file system
func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

// DirectoryExists returns true if path is an existing directory
func (p *OSProvider) DirectoryExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}

// GetDirectoryInfo returns handle for given directory
func (p *OSProvider) GetDirectoryInfo(path string) (DirectoryHandle, error) {
	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(normalized)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.Wrapf(ErrAccessDenied, "%s", normalized)
		}
		return nil, errors.Wrapf(ErrNotFound, "%s", normalized)
	}
	if !stat.IsDir() {
		return nil, errors.Wrapf(ErrNotFound, "%s is not a directory", normalized)
	}
	return &osDir{path: normalized}, nil
}

// ValidateDirectoryAccess checks that the content of the directory can be listed
func (p *OSProvider) ValidateDirectoryAccess(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapOSError(err, path)
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return wrapOSError(err, path)
	}
	return nil
}

type osDir struct {
	path    string
	entries []os.DirEntry
	read    bool
}

func (d *osDir) FullPath() string {
	return d.path
}

func (d *osDir) readDir() ([]os.DirEntry, error) {
	if d.read {
		return d.entries, nil
	}
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, wrapOSError(err, d.path)
	}
	d.entries = entries
	d.read = true
	return entries, nil
}

func (d *osDir) ListFiles() ([]FileHandle, error) {
	entries, err := d.readDir()
	if err != nil {
		return nil, err
	}

	files := make([]FileHandle, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, &osFile{entry: e, dir: d.path})
	}
	return files, nil
}

func (d *osDir) ListSubdirectories() ([]DirectoryHandle, error) {
	entries, err := d.readDir()
	if err != nil {
		return nil, err
	}

	dirs := make([]DirectoryHandle, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirs = append(dirs, &osDir{path: filepath.Join(d.path, e.Name())})
	}
	return dirs, nil
}

type osFile struct {
	entry os.DirEntry
	dir   string
}

func (f *osFile) Name() string {
	return f.entry.Name()
}

func (f *osFile) FullPath() string {
	return filepath.Join(f.dir, f.entry.Name())
}

func (f *osFile) Stat() (FileInfo, error) {
	path := f.FullPath()
	info, err := f.entry.Info()
	if err != nil {
		return FileInfo{}, wrapOSError(err, path)
	}

	var size uint64
	if info.Size() > 0 {
		size = uint64(info.Size())
	}

	return FileInfo{
		FullPath:        path,
		Name:            info.Name(),
		Extension:       filepath.Ext(info.Name()),
		DirectoryPath:   f.dir,
		SizeBytes:       size,
		CreatedUtc:      birthTime(path, info).UTC(),
		LastModifiedUtc: info.ModTime().UTC(),
		IsReadOnly:      info.Mode().Perm()&0o200 == 0,
	}, nil
}

func wrapOSError(err error, path string) error {
	switch {
	case os.IsPermission(err):
		return errors.Wrapf(ErrAccessDenied, "%s: %v", path, err)
	case os.IsNotExist(err):
		return errors.Wrapf(ErrNotFound, "%s: %v", path, err)
	default:
		return errors.Wrapf(err, "reading %s", path)
	}
}
