package model

import (
	"path"
	"strings"
	"time"
)

// DocumentStatus is the lifecycle label carried by a document.
type DocumentStatus string

const (
	StatusActive   DocumentStatus = "active"
	StatusArchived DocumentStatus = "archived"
)

// Valid reports whether s is a known status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived:
		return true
	}
	return false
}

// Document is a categorised record that may carry one attached file.
// File fields are either all set or all empty.
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	FilePath    string         `json:"file_path,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	FileType    string         `json:"file_type,omitempty"`
	FileSize    int64          `json:"file_size"`
	Status      DocumentStatus `json:"status"`
	CategoryID  string         `json:"category_id"`
	OwnerID     string         `json:"user_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// HasFile reports whether a file is attached.
func (d *Document) HasFile() bool {
	return d != nil && d.FilePath != ""
}

// IsImage reports whether the attached file is an image.
func (d *Document) IsImage() bool {
	return d.HasFile() && strings.HasPrefix(strings.ToLower(d.FileType), "image/")
}

// IsDeleted reports whether the document has been soft-deleted.
func (d *Document) IsDeleted() bool {
	return d != nil && d.DeletedAt != nil
}

// ThumbnailPath returns the storage path of the preview image, or "" when
// the attached file is not an image.
func (d *Document) ThumbnailPath() string {
	if !d.IsImage() {
		return ""
	}
	return ThumbnailPathFor(d.FilePath)
}

// ThumbnailPathFor derives "<dir>/thumbnails/<base>" from a file path.
func ThumbnailPathFor(filePath string) string {
	return path.Join(path.Dir(filePath), "thumbnails", path.Base(filePath))
}
