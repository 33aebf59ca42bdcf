package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
)

type ClearCache struct {
	Movies ports.MovieRepository
	Logger *slog.Logger
	Now    func() time.Time
}

type ClearResult struct {
	Cleared int      `json:"cleared"`
	Errors  []string `json:"errors,omitempty"`
}

// Execute removes one movie's cached file and resets the record to pending.
// The record is only reset when the file is actually gone: a failed delete
// must not leave the record claiming the cache is empty while bytes remain
// on disk.
func (uc ClearCache) Execute(ctx context.Context, id domain.MovieID) error {
	movie, err := uc.Movies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return wrapRepo(err)
	}
	if movie.LocalPath == "" {
		return nil
	}

	if err := os.Remove(movie.LocalPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	movie.LocalPath = ""
	movie.FileSize = 0
	movie.Status = domain.MoviePending
	movie.UpdatedAt = uc.now()
	if err := uc.Movies.Update(ctx, movie); err != nil {
		return wrapRepo(err)
	}
	return nil
}

// ExecuteAll clears every cached movie, skipping over per-item failures so
// one undeletable file does not abort the bulk clear.
func (uc ClearCache) ExecuteAll(ctx context.Context) (ClearResult, error) {
	ready := domain.MovieReady
	movies, err := uc.Movies.List(ctx, domain.MovieFilter{Status: &ready})
	if err != nil {
		return ClearResult{}, wrapRepo(err)
	}

	var result ClearResult
	for _, movie := range movies {
		if err := uc.Execute(ctx, movie.ID); err != nil {
			result.Errors = append(result.Errors, string(movie.ID)+": "+err.Error())
			uc.logger().Warn("cache clear failed",
				slog.String("movieId", string(movie.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Cleared++
	}
	return result, nil
}

func (uc ClearCache) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc ClearCache) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
