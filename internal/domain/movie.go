package domain

import (
	"errors"
	"time"
)

type MovieID string

type Movie struct {
	ID          MovieID     `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Year        int         `json:"year,omitempty"`
	DurationSec int         `json:"durationSec,omitempty"`
	RemoteRef   string      `json:"remoteRef"`
	RemotePath  string      `json:"remotePath"`
	LocalPath   string      `json:"localPath,omitempty"`
	FileSize    int64       `json:"fileSize,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Status      MovieStatus `json:"status"`
	CategoryID  CategoryID  `json:"categoryId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Cached reports whether the movie's bytes are on local disk and playable.
func (m Movie) Cached() bool {
	return m.LocalPath != "" && m.Status == MovieReady
}

// Validate checks domain invariants for Movie.
func (m Movie) Validate() error {
	if m.ID == "" {
		return errors.New("movie id is required")
	}
	if m.RemoteRef == "" {
		return errors.New("remoteRef is required")
	}
	if m.FileSize < 0 {
		return errors.New("fileSize must not be negative")
	}
	switch m.Status {
	case MoviePending, MovieDownloading, MovieReady, MovieError:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(m.Status))
	}
	if m.Status == MovieReady && (m.LocalPath == "" || m.FileSize <= 0) {
		return errors.New("ready movie requires localPath and a positive fileSize")
	}
	return nil
}

// ResetSource reverts a movie to its un-cached state after its remote source
// changed. A new remoteRef means the cached bytes no longer match the master
// copy, so the movie must be re-downloaded.
func (m *Movie) ResetSource(remoteRef string) {
	m.RemoteRef = remoteRef
	m.LocalPath = ""
	m.FileSize = 0
	m.Status = MoviePending
}
