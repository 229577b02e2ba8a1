package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// VirtualProvider is an in-memory Provider used for deterministic tests.
// Paths are normalized with NormalizePath, the same way OSProvider does it.
type VirtualProvider struct {
	dirs map[string]*virtualDir
	m    sync.RWMutex
}

type virtualDir struct {
	path         string
	files        []*virtualFile
	subdirs      []string
	inaccessible bool
}

type virtualFile struct {
	path         string
	size         uint64
	created      time.Time
	modified     time.Time
	readOnly     bool
	inaccessible bool
}

// NewVirtualProvider returns empty virtual file system
func NewVirtualProvider() *VirtualProvider {
	return &VirtualProvider{
		dirs: make(map[string]*virtualDir),
	}
}

// AddDirectory creates directory and all its missing parents
func (p *VirtualProvider) AddDirectory(path string) error {
	normalized, err := NormalizePath(path)
	if err != nil {
		return err
	}

	p.m.Lock()
	defer p.m.Unlock()
	p.mkdirAll(normalized)
	return nil
}

// AddFile creates file of given size, parent directories are created when missing
func (p *VirtualProvider) AddFile(path string, size uint64, modified time.Time) error {
	normalized, err := NormalizePath(path)
	if err != nil {
		return err
	}

	p.m.Lock()
	defer p.m.Unlock()

	dir := p.mkdirAll(filepath.Dir(normalized))
	dir.files = append(dir.files, &virtualFile{
		path:     normalized,
		size:     size,
		created:  modified,
		modified: modified,
	})
	return nil
}

// SetReadOnly marks file as read-only
func (p *VirtualProvider) SetReadOnly(path string, readOnly bool) error {
	return p.updateFile(path, func(f *virtualFile) { f.readOnly = readOnly })
}

// SetFileInaccessible makes Stat of the file fail with ErrAccessDenied
func (p *VirtualProvider) SetFileInaccessible(path string, inaccessible bool) error {
	return p.updateFile(path, func(f *virtualFile) { f.inaccessible = inaccessible })
}

// SetDirectoryInaccessible makes listing of the directory fail with ErrAccessDenied
func (p *VirtualProvider) SetDirectoryInaccessible(path string, inaccessible bool) error {
	normalized, err := NormalizePath(path)
	if err != nil {
		return err
	}

	p.m.Lock()
	defer p.m.Unlock()

	dir, ok := p.dirs[normalized]
	if !ok {
		return errors.Wrapf(ErrNotFound, "%s", normalized)
	}
	dir.inaccessible = inaccessible
	return nil
}

// DirectoryExists returns true if path is a known directory
func (p *VirtualProvider) DirectoryExists(path string) bool {
	normalized, err := NormalizePath(path)
	if err != nil {
		return false
	}

	p.m.RLock()
	defer p.m.RUnlock()
	_, ok := p.dirs[normalized]
	return ok
}

// GetDirectoryInfo returns handle for given directory
func (p *VirtualProvider) GetDirectoryInfo(path string) (DirectoryHandle, error) {
	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	p.m.RLock()
	defer p.m.RUnlock()
	if _, ok := p.dirs[normalized]; !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", normalized)
	}
	return &virtualDirHandle{provider: p, path: normalized}, nil
}

// ValidateDirectoryAccess fails for directories marked as inaccessible
func (p *VirtualProvider) ValidateDirectoryAccess(path string) error {
	normalized, err := NormalizePath(path)
	if err != nil {
		return err
	}

	p.m.RLock()
	defer p.m.RUnlock()
	_, err = p.accessibleDir(normalized)
	return err
}

func (p *VirtualProvider) accessibleDir(path string) (*virtualDir, error) {
	dir, ok := p.dirs[path]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", path)
	}
	if dir.inaccessible {
		return nil, errors.Wrapf(ErrAccessDenied, "%s", path)
	}
	return dir, nil
}

func (p *VirtualProvider) mkdirAll(path string) *virtualDir {
	if dir, ok := p.dirs[path]; ok {
		return dir
	}

	dir := &virtualDir{path: path}
	p.dirs[path] = dir

	parentPath := filepath.Dir(path)
	if parentPath != path {
		parent := p.mkdirAll(parentPath)
		parent.subdirs = append(parent.subdirs, path)
	}
	return dir
}

func (p *VirtualProvider) updateFile(path string, fn func(*virtualFile)) error {
	normalized, err := NormalizePath(path)
	if err != nil {
		return err
	}

	p.m.Lock()
	defer p.m.Unlock()

	if dir, ok := p.dirs[filepath.Dir(normalized)]; ok {
		for _, f := range dir.files {
			if f.path == normalized {
				fn(f)
				return nil
			}
		}
	}
	return errors.Errorf("file %s not found", normalized)
}

type virtualDirHandle struct {
	provider *VirtualProvider
	path     string
}

func (d *virtualDirHandle) FullPath() string {
	return d.path
}

func (d *virtualDirHandle) ListFiles() ([]FileHandle, error) {
	d.provider.m.RLock()
	defer d.provider.m.RUnlock()

	dir, err := d.provider.accessibleDir(d.path)
	if err != nil {
		return nil, err
	}

	files := make([]FileHandle, 0, len(dir.files))
	for _, f := range dir.files {
		files = append(files, &virtualFileHandle{provider: d.provider, file: f})
	}
	return files, nil
}

func (d *virtualDirHandle) ListSubdirectories() ([]DirectoryHandle, error) {
	d.provider.m.RLock()
	defer d.provider.m.RUnlock()

	dir, err := d.provider.accessibleDir(d.path)
	if err != nil {
		return nil, err
	}

	dirs := make([]DirectoryHandle, 0, len(dir.subdirs))
	for _, path := range dir.subdirs {
		dirs = append(dirs, &virtualDirHandle{provider: d.provider, path: path})
	}
	return dirs, nil
}

type virtualFileHandle struct {
	provider *VirtualProvider
	file     *virtualFile
}

func (f *virtualFileHandle) Name() string {
	return filepath.Base(f.file.path)
}

func (f *virtualFileHandle) FullPath() string {
	return f.file.path
}

func (f *virtualFileHandle) Stat() (FileInfo, error) {
	f.provider.m.RLock()
	defer f.provider.m.RUnlock()

	if f.file.inaccessible {
		return FileInfo{}, errors.Wrapf(ErrAccessDenied, "%s", f.file.path)
	}

	name := filepath.Base(f.file.path)
	return FileInfo{
		FullPath:        f.file.path,
		Name:            name,
		Extension:       filepath.Ext(name),
		DirectoryPath:   filepath.Dir(f.file.path),
		SizeBytes:       f.file.size,
		CreatedUtc:      f.file.created.UTC(),
		LastModifiedUtc: f.file.modified.UTC(),
		IsReadOnly:      f.file.readOnly,
	}, nil
}
