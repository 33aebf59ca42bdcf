package domain

import (
	"errors"
	"time"
)

type CategoryID string

type Category struct {
	ID         CategoryID `json:"id"`
	Name       string     `json:"name"`
	RemotePath string     `json:"remotePath,omitempty"`
	SortOrder  int        `json:"sortOrder"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (c Category) Validate() error {
	if c.ID == "" {
		return errors.New("category id is required")
	}
	if c.Name == "" {
		return errors.New("category name is required")
	}
	return nil
}
