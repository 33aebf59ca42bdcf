package ports

import (
	"context"

	"mediavault/internal/domain"
)

type MovieRepository interface {
	Create(ctx context.Context, m domain.Movie) error
	Update(ctx context.Context, m domain.Movie) error
	Get(ctx context.Context, id domain.MovieID) (domain.Movie, error)
	GetByRemotePath(ctx context.Context, remotePath string) (domain.Movie, error)
	List(ctx context.Context, filter domain.MovieFilter) ([]domain.Movie, error)
	Delete(ctx context.Context, id domain.MovieID) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c domain.Category) error
	Update(ctx context.Context, c domain.Category) error
	Get(ctx context.Context, id domain.CategoryID) (domain.Category, error)
	GetByRemotePath(ctx context.Context, remotePath string) (domain.Category, error)
	GetByName(ctx context.Context, name string) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type TaskRepository interface {
	Upsert(ctx context.Context, t domain.DownloadTask) error
	UpdateProgress(ctx context.Context, id domain.TaskID, p domain.TaskProgress) error
	GetByMovie(ctx context.Context, movieID domain.MovieID) (domain.DownloadTask, error)
}
