package fs

import "time"

// FileEntry is the metadata of one file discovered by a scan
type FileEntry struct {
	FullPath        string    `json:"fullPath"`
	FileName        string    `json:"fileName"`
	Extension       string    `json:"extension"`
	DirectoryPath   string    `json:"directoryName"`
	SizeBytes       uint64    `json:"sizeBytes"`
	CreatedUtc      time.Time `json:"createdUtc"`
	LastModifiedUtc time.Time `json:"lastModifiedUtc"`
	IsReadOnly      bool      `json:"isReadOnly"`
}

// FileInfo is the metadata returned by FileHandle.Stat
type FileInfo struct {
	FullPath        string
	Name            string
	Extension       string
	DirectoryPath   string
	SizeBytes       uint64
	CreatedUtc      time.Time
	LastModifiedUtc time.Time
	IsReadOnly      bool
}

// ToEntry converts file info into a FileEntry
func (i FileInfo) ToEntry() FileEntry {
	return FileEntry{
		FullPath:        i.FullPath,
		FileName:        i.Name,
		Extension:       i.Extension,
		DirectoryPath:   i.DirectoryPath,
		SizeBytes:       i.SizeBytes,
		CreatedUtc:      i.CreatedUtc.UTC(),
		LastModifiedUtc: i.LastModifiedUtc.UTC(),
		IsReadOnly:      i.IsReadOnly,
	}
}
