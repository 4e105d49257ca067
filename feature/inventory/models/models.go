package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceKind identifies the walker strategy for a data source.
type SourceKind string

const (
	// SourceLocal is a user-configured local directory.
	SourceLocal SourceKind = "local"
	// SourceRemote is a paginated remote API.
	SourceRemote SourceKind = "remote"
	// SourceServer is a server-mounted directory.
	SourceServer SourceKind = "server"
	// SourceBucket is an S3/MinIO-compatible bucket.
	SourceBucket SourceKind = "bucket"
)

// DataSource is a configured origin of pictures.
type DataSource struct {
	ID      uint       `gorm:"primaryKey" json:"id"`
	Kind    SourceKind `gorm:"size:16;not null;index" json:"kind"`
	Name    string     `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Enabled bool       `gorm:"not null;default:true" json:"enabled"`

	// Local and server sources
	Root         string `gorm:"size:1024" json:"root,omitempty"`
	Recursive    bool   `json:"recursive,omitempty"`
	ExcludedDirs string `gorm:"size:2048" json:"excluded_dirs,omitempty"` // comma-separated relative paths

	// Remote sources
	Endpoint     string `gorm:"size:1024" json:"endpoint,omitempty"`
	Method       string `gorm:"size:8" json:"method,omitempty"`
	Headers      string `gorm:"size:2048" json:"headers,omitempty"` // JSON object
	BodyTemplate string `gorm:"size:2048" json:"body_template,omitempty"`
	ItemsPath    string `gorm:"size:256" json:"items_path,omitempty"`
	URLPath      string `gorm:"size:256" json:"url_path,omitempty"`
	NamePath     string `gorm:"size:256" json:"name_path,omitempty"`
	ModifiedPath string `gorm:"size:256" json:"modified_path,omitempty"`
	BaseURL      string `gorm:"size:1024" json:"base_url,omitempty"`
	MaxItems     int    `json:"max_items,omitempty"`

	// Bucket sources
	Bucket string `gorm:"size:256" json:"bucket,omitempty"`
	Prefix string `gorm:"size:1024" json:"prefix,omitempty"`

	// PictureCount is derived from the inventory after each applied changeset.
	PictureCount int64 `json:"picture_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (DataSource) TableName() string {
	return "data_sources"
}

// ExcludedList returns the excluded subfolder paths, normalized to
// forward slashes without surrounding whitespace.
func (s *DataSource) ExcludedList() []string {
	if s.ExcludedDirs == "" {
		return nil
	}
	parts := strings.Split(s.ExcludedDirs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, strings.ReplaceAll(p, "\\", "/"))
		}
	}
	return out
}

// HeaderMap parses the Headers JSON object. Invalid JSON yields an empty map.
func (s *DataSource) HeaderMap() map[string]string {
	out := map[string]string{}
	if s.Headers == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s.Headers), &out)
	return out
}

// Picture is one inventoried picture record. Identity is
// (SourceID, RelativeID); display name and row id can both change without the
// underlying asset changing.
type Picture struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SourceID   uint      `gorm:"not null;uniqueIndex:idx_pictures_source_relative;index" json:"source_id"`
	RelativeID string    `gorm:"size:1024;not null;uniqueIndex:idx_pictures_source_relative" json:"relative_id"`
	Name       string    `gorm:"size:512" json:"name"`
	ModifiedAt time.Time `gorm:"index" json:"modified_at"`
	ByteSize   int64     `json:"byte_size,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	// Meta is the serialized extracted-metadata block; nil when extraction
	// failed or was not attempted.
	Meta *string `gorm:"size:4096" json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Picture) TableName() string {
	return "pictures"
}

// Identity is the stable key of a picture record.
type Identity struct {
	SourceID   uint   `json:"source_id"`
	RelativeID string `json:"relative_id"`
}

// Identity returns the stable key of this record.
func (p *Picture) Identity() Identity {
	return Identity{SourceID: p.SourceID, RelativeID: p.RelativeID}
}

// Fingerprint is the cheap (timestamp, size) signature used to short-circuit
// unchanged items during reconciliation.
type Fingerprint struct {
	ModifiedUnix int64
	ByteSize     int64
}

// Fingerprint returns the record's change-detection signature.
func (p *Picture) Fingerprint() Fingerprint {
	return Fingerprint{ModifiedUnix: p.ModifiedAt.Unix(), ByteSize: p.ByteSize}
}
