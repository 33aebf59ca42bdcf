package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
)

const defaultStreamChunkBytes = 16 << 20

// StreamResult describes one bounded read of a cached movie file. Reader must
// be closed by the caller; closing releases the underlying file handle no
// matter how much of the window was consumed.
type StreamResult struct {
	Reader        io.ReadCloser
	ContentType   string
	ContentLength int64
	FileSize      int64
	RangeStart    int64
	RangeEnd      int64
	IsPartial     bool
}

type StreamMovie struct {
	Movies     ports.MovieRepository
	ChunkBytes int64
}

func (uc StreamMovie) Execute(ctx context.Context, id domain.MovieID, rangeHeader string) (StreamResult, error) {
	movie, err := uc.Movies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StreamResult{}, domain.ErrNotFound
		}
		return StreamResult{}, wrapRepo(err)
	}
	if !movie.Cached() || movie.FileSize <= 0 {
		return StreamResult{}, ErrNotReady
	}

	chunk := uc.ChunkBytes
	if chunk <= 0 {
		chunk = defaultStreamChunkBytes
	}
	window := ComputeWindow(rangeHeader, movie.FileSize, chunk)

	f, err := os.Open(movie.LocalPath)
	if err != nil {
		return StreamResult{}, fmt.Errorf("open cached file: %w", err)
	}
	if _, err := f.Seek(window.Start, io.SeekStart); err != nil {
		f.Close()
		return StreamResult{}, fmt.Errorf("seek cached file: %w", err)
	}

	contentType := movie.ContentType
	if contentType == "" {
		contentType = ContentTypeForPath(movie.LocalPath)
	}

	return StreamResult{
		Reader:        &boundedFileReader{f: f, remaining: window.Length},
		ContentType:   contentType,
		ContentLength: window.Length,
		FileSize:      movie.FileSize,
		RangeStart:    window.Start,
		RangeEnd:      window.End,
		// Partial is a statement about the request, not about the window:
		// a Range header asking for the whole file still gets a 206.
		IsPartial: rangeHeader != "",
	}, nil
}

// boundedFileReader reads at most remaining bytes from the file and owns the
// handle for its whole lifetime.
type boundedFileReader struct {
	f         *os.File
	remaining int64
}

func (r *boundedFileReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.f.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func (r *boundedFileReader) Close() error {
	return r.f.Close()
}
