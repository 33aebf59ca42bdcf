package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
)

// scriptedTransport implements ports.Transport with a programmable body.
type scriptedTransport struct {
	mu    sync.Mutex
	calls []string
	run   func(ctx context.Context, remoteRef, localPath string, progress ports.ProgressFunc) error
}

func (tr *scriptedTransport) Fetch(ctx context.Context, remoteRef, localPath string, progress ports.ProgressFunc) error {
	tr.mu.Lock()
	tr.calls = append(tr.calls, remoteRef)
	tr.mu.Unlock()
	if tr.run == nil {
		return nil
	}
	return tr.run(ctx, remoteRef, localPath, progress)
}

func (tr *scriptedTransport) callCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.calls)
}

func writeFileTransport(payload []byte) *scriptedTransport {
	return &scriptedTransport{
		run: func(_ context.Context, _, localPath string, progress ports.ProgressFunc) error {
			if err := os.WriteFile(localPath, payload, 0o644); err != nil {
				return err
			}
			if progress != nil {
				progress(int64(len(payload)), int64(len(payload)), -1)
			}
			return nil
		},
	}
}

func pendingMovie(id domain.MovieID, remoteRef string) domain.Movie {
	return domain.Movie{
		ID:         id,
		Title:      "Heat",
		RemoteRef:  remoteRef,
		RemotePath: "/video/Action/Heat.mkv",
		Status:     domain.MoviePending,
	}
}

func newDownloadUC(t *testing.T, movies *fakeMovieRepo, cli, httpT ports.Transport) (*StartDownload, chan domain.MovieID) {
	t.Helper()
	done := make(chan domain.MovieID, 4)
	uc := &StartDownload{
		Movies:   movies,
		Tasks:    newFakeTaskRepo(),
		Guard:    NewActiveTransfers(),
		CLI:      cli,
		HTTP:     httpT,
		Events:   &fakeSink{},
		CacheDir: t.TempDir(),
		Logger:   slog.New(slog.DiscardHandler),
		NewID:    sequentialIDs(),
		OnDone:   func(id domain.MovieID) { done <- id },
	}
	return uc, done
}

func waitDone(t *testing.T, done <-chan domain.MovieID) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not finish")
	}
}

func TestStartDownloadSuccess(t *testing.T) {
	movies := newFakeMovieRepo(pendingMovie("m1", "/video/Action/Heat.mkv"))
	cli := writeFileTransport([]byte("movie-bytes"))
	uc, done := newDownloadUC(t, movies, cli, &scriptedTransport{})

	task, err := uc.Execute(context.Background(), "m1")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if task.Status != domain.TaskInProgress {
		t.Fatalf("returned task status = %s, want in_progress", task.Status)
	}
	waitDone(t, done)

	movie, _ := movies.Get(context.Background(), "m1")
	if movie.Status != domain.MovieReady {
		t.Fatalf("movie status = %s, want ready", movie.Status)
	}
	if movie.LocalPath == "" || !strings.HasPrefix(filepath.Base(movie.LocalPath), "m1-") {
		t.Fatalf("localPath = %q", movie.LocalPath)
	}
	if movie.FileSize != int64(len("movie-bytes")) {
		t.Fatalf("fileSize = %d", movie.FileSize)
	}
	if _, err := os.Stat(movie.LocalPath); err != nil {
		t.Fatalf("cached file missing: %v", err)
	}

	final, ok := uc.Tasks.(*fakeTaskRepo).taskFor("m1")
	if !ok {
		t.Fatal("task record missing")
	}
	if final.Status != domain.TaskCompleted || final.ProgressPercent != 100 {
		t.Fatalf("final task = %+v", final)
	}
	if final.BytesDownloaded != movie.FileSize || final.TotalBytes != movie.FileSize {
		t.Fatalf("final task byte counts = %d/%d", final.BytesDownloaded, final.TotalBytes)
	}

	published, ok := uc.Events.(*fakeSink).last()
	if !ok || published.Status != domain.TaskCompleted {
		t.Fatalf("last published event = %+v", published)
	}

	if uc.Guard.(*ActiveTransfers).Count() != 0 {
		t.Fatal("guard not released after completion")
	}
}

func TestStartDownloadTransportRouting(t *testing.T) {
	cli := writeFileTransport([]byte("cli"))
	httpT := writeFileTransport([]byte("http"))
	movies := newFakeMovieRepo(
		pendingMovie("m1", "/video/Action/Heat.mkv"),
		pendingMovie("m2", "https://example.com/Heat.mkv"),
	)
	uc, done := newDownloadUC(t, movies, cli, httpT)

	if _, err := uc.Execute(context.Background(), "m1"); err != nil {
		t.Fatalf("cli download failed: %v", err)
	}
	waitDone(t, done)
	if _, err := uc.Execute(context.Background(), "m2"); err != nil {
		t.Fatalf("http download failed: %v", err)
	}
	waitDone(t, done)

	if cli.callCount() != 1 {
		t.Fatalf("cli transport calls = %d, want 1", cli.callCount())
	}
	if httpT.callCount() != 1 {
		t.Fatalf("http transport calls = %d, want 1", httpT.callCount())
	}
}

func TestStartDownloadConflict(t *testing.T) {
	movies := newFakeMovieRepo(pendingMovie("m1", "/video/Action/Heat.mkv"))
	release := make(chan struct{})
	blocking := &scriptedTransport{
		run: func(_ context.Context, _, localPath string, _ ports.ProgressFunc) error {
			<-release
			return os.WriteFile(localPath, []byte("x"), 0o644)
		},
	}
	uc, done := newDownloadUC(t, movies, blocking, &scriptedTransport{})

	if _, err := uc.Execute(context.Background(), "m1"); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	if _, err := uc.Execute(context.Background(), "m1"); !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("second execute err = %v, want ErrAlreadyInProgress", err)
	}

	close(release)
	waitDone(t, done)

	// After the first transfer finishes the movie is cached, so a retry must
	// now report the cached conflict instead of starting over.
	if _, err := uc.Execute(context.Background(), "m1"); !errors.Is(err, ErrAlreadyCached) {
		t.Fatalf("post-completion execute err = %v, want ErrAlreadyCached", err)
	}
	if uc.Guard.(*ActiveTransfers).Count() != 0 {
		t.Fatal("rejected execute must release its claim")
	}
}

func TestStartDownloadNotFound(t *testing.T) {
	uc, _ := newDownloadUC(t, newFakeMovieRepo(), &scriptedTransport{}, &scriptedTransport{})

	if _, err := uc.Execute(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if uc.Guard.(*ActiveTransfers).Count() != 0 {
		t.Fatal("failed begin must release its claim")
	}
}

func TestStartDownloadFailureKeepsNoPartialFile(t *testing.T) {
	movies := newFakeMovieRepo(pendingMovie("m1", "/video/Action/Heat.mkv"))
	var partialPath string
	failing := &scriptedTransport{
		run: func(_ context.Context, _, localPath string, _ ports.ProgressFunc) error {
			partialPath = localPath
			if err := os.WriteFile(localPath, []byte("half"), 0o644); err != nil {
				return err
			}
			return errors.New("connection dropped")
		},
	}
	uc, done := newDownloadUC(t, movies, failing, &scriptedTransport{})

	if _, err := uc.Execute(context.Background(), "m1"); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	waitDone(t, done)

	movie, _ := movies.Get(context.Background(), "m1")
	if movie.Status != domain.MovieError {
		t.Fatalf("movie status = %s, want error", movie.Status)
	}
	if movie.LocalPath != "" {
		t.Fatalf("failed movie must not keep a localPath, got %q", movie.LocalPath)
	}
	if _, err := os.Stat(partialPath); !os.IsNotExist(err) {
		t.Fatal("partial file must be removed on failure")
	}

	task, _ := uc.Tasks.(*fakeTaskRepo).taskFor("m1")
	if task.Status != domain.TaskFailed {
		t.Fatalf("task status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.ErrorMessage, "connection dropped") {
		t.Fatalf("errorMessage = %q", task.ErrorMessage)
	}
}

func TestStartDownloadTimeout(t *testing.T) {
	movies := newFakeMovieRepo(pendingMovie("m1", "/video/Action/Heat.mkv"))
	hanging := &scriptedTransport{
		run: func(ctx context.Context, _, _ string, _ ports.ProgressFunc) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	uc, done := newDownloadUC(t, movies, hanging, &scriptedTransport{})
	uc.CLITimeout = 20 * time.Millisecond

	if _, err := uc.Execute(context.Background(), "m1"); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	waitDone(t, done)

	task, _ := uc.Tasks.(*fakeTaskRepo).taskFor("m1")
	if task.Status != domain.TaskFailed {
		t.Fatalf("task status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.ErrorMessage, ErrTimeout.Error()) {
		t.Fatalf("errorMessage = %q, want timeout", task.ErrorMessage)
	}
}

func TestStartDownloadProgressDerivesPercent(t *testing.T) {
	movies := newFakeMovieRepo(pendingMovie("m1", "https://example.com/Heat.mkv"))
	httpT := &scriptedTransport{
		run: func(_ context.Context, _, localPath string, progress ports.ProgressFunc) error {
			progress(512, 1024, -1) // byte-count transport, no native percent
			progress(1024, 1024, -1)
			return os.WriteFile(localPath, make([]byte, 1024), 0o644)
		},
	}
	uc, done := newDownloadUC(t, movies, &scriptedTransport{}, httpT)

	if _, err := uc.Execute(context.Background(), "m1"); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	waitDone(t, done)

	ticks := uc.Tasks.(*fakeTaskRepo).ticks
	if len(ticks) != 2 {
		t.Fatalf("progress ticks = %d, want 2", len(ticks))
	}
	if ticks[0].ProgressPercent != 50 || ticks[0].BytesDownloaded != 512 {
		t.Fatalf("first tick = %+v", ticks[0])
	}
	if ticks[1].ProgressPercent != 100 {
		t.Fatalf("second tick = %+v", ticks[1])
	}
}

func TestIsRemoteStoreRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"mega:/video/Action/Heat.mkv", true},
		{"https://mega.nz/file/abc#key", true},
		{"https://mega.co.nz/file/abc#key", true},
		{"/video/Action/Heat.mkv", true},
		{"https://example.com/Heat.mkv", false},
		{"http://archive.org/download/x.avi", false},
	}
	for _, tt := range tests {
		if got := isRemoteStoreRef(tt.ref); got != tt.want {
			t.Errorf("isRemoteStoreRef(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
