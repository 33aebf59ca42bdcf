package usecase

import (
	"context"
	"errors"
	"sync"

	"mediavault/internal/domain"
)

type fakeMovieRepo struct {
	mu     sync.Mutex
	movies map[domain.MovieID]domain.Movie

	createErr error
	updateErr error
}

func newFakeMovieRepo(movies ...domain.Movie) *fakeMovieRepo {
	repo := &fakeMovieRepo{movies: make(map[domain.MovieID]domain.Movie)}
	for _, m := range movies {
		repo.movies[m.ID] = m
	}
	return repo
}

func (r *fakeMovieRepo) Create(_ context.Context, m domain.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.movies {
		if existing.RemotePath == m.RemotePath {
			return domain.ErrAlreadyExists
		}
	}
	r.movies[m.ID] = m
	return nil
}

func (r *fakeMovieRepo) Update(_ context.Context, m domain.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.movies[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.movies[m.ID] = m
	return nil
}

func (r *fakeMovieRepo) Get(_ context.Context, id domain.MovieID) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.movies[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return m, nil
}

func (r *fakeMovieRepo) GetByRemotePath(_ context.Context, remotePath string) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movies {
		if m.RemotePath == remotePath {
			return m, nil
		}
	}
	return domain.Movie{}, domain.ErrNotFound
}

func (r *fakeMovieRepo) List(_ context.Context, filter domain.MovieFilter) ([]domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Movie
	for _, m := range r.movies {
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMovieRepo) Delete(_ context.Context, id domain.MovieID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.movies[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.movies, id)
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[domain.CategoryID]domain.Category
}

func newFakeCategoryRepo(categories ...domain.Category) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: make(map[domain.CategoryID]domain.Category)}
	for _, c := range categories {
		repo.categories[c.ID] = c
	}
	return repo
}

func (r *fakeCategoryRepo) Create(_ context.Context, c domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.categories {
		if existing.Name == c.Name {
			return domain.ErrAlreadyExists
		}
	}
	r.categories[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, c domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.categories[c.ID] = c
	return nil
}

func (r *fakeCategoryRepo) Get(_ context.Context, id domain.CategoryID) (domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *fakeCategoryRepo) GetByRemotePath(_ context.Context, remotePath string) (domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.RemotePath != "" && c.RemotePath == remotePath {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (r *fakeCategoryRepo) GetByName(_ context.Context, name string) (domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Category
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[domain.TaskID]domain.DownloadTask
	ticks []domain.TaskProgress
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[domain.TaskID]domain.DownloadTask)}
}

func (r *fakeTaskRepo) Upsert(_ context.Context, t domain.DownloadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) UpdateProgress(_ context.Context, id domain.TaskID, p domain.TaskProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.BytesDownloaded = p.BytesDownloaded
	t.TotalBytes = p.TotalBytes
	t.ProgressPercent = p.ProgressPercent
	r.tasks[id] = t
	r.ticks = append(r.ticks, p)
	return nil
}

func (r *fakeTaskRepo) GetByMovie(_ context.Context, movieID domain.MovieID) (domain.DownloadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.MovieID == movieID {
			return t, nil
		}
	}
	return domain.DownloadTask{}, domain.ErrNotFound
}

func (r *fakeTaskRepo) taskFor(movieID domain.MovieID) (domain.DownloadTask, bool) {
	t, err := r.GetByMovie(context.Background(), movieID)
	return t, err == nil
}

type fakeLister struct {
	mu       sync.Mutex
	listings map[string][]domain.RemoteEntry
	failures map[string]error
	calls    []string
}

func (l *fakeLister) List(_ context.Context, remotePath string) ([]domain.RemoteEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, remotePath)
	if err, ok := l.failures[remotePath]; ok {
		return nil, err
	}
	entries, ok := l.listings[remotePath]
	if !ok {
		return nil, errors.New("no such remote folder")
	}
	return entries, nil
}

type fakeSink struct {
	mu    sync.Mutex
	tasks []domain.DownloadTask
}

func (s *fakeSink) Publish(t domain.DownloadTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *fakeSink) last() (domain.DownloadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return domain.DownloadTask{}, false
	}
	return s.tasks[len(s.tasks)-1], true
}
