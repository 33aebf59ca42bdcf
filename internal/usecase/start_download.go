package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
	"mediavault/internal/metrics"
)

// StartDownload drives one movie transfer: it claims the per-movie guard,
// flips the persisted state to downloading and runs the transport in the
// background. The caller gets the task snapshot back immediately; completion
// is observable only through task status and progress events.
type StartDownload struct {
	Movies ports.MovieRepository
	Tasks  ports.TaskRepository
	Guard  TransferGuard
	CLI    ports.Transport // remote-storage CLI tool
	HTTP   ports.Transport // generic HTTP GET fallback
	Events ports.ProgressSink

	CacheDir   string
	CLITimeout time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string

	// OnDone is called after the background transfer finishes, success or
	// not. Tests use it to synchronize; main leaves it nil.
	OnDone func(id domain.MovieID)
}

func (uc *StartDownload) Execute(ctx context.Context, id domain.MovieID) (domain.DownloadTask, error) {
	if !uc.Guard.Claim(id) {
		return domain.DownloadTask{}, ErrAlreadyInProgress
	}

	task, err := uc.begin(ctx, id)
	if err != nil {
		uc.Guard.Release(id)
		return domain.DownloadTask{}, err
	}

	// The transfer outlives the triggering request, so it runs detached from
	// the request context. The guard is released exactly once, when the
	// background work completes.
	go uc.transfer(context.Background(), id, task)

	return task, nil
}

// begin validates the movie and persists the downloading state. The guard is
// still held by the caller; begin never releases it.
func (uc *StartDownload) begin(ctx context.Context, id domain.MovieID) (domain.DownloadTask, error) {
	now := uc.now()

	movie, err := uc.Movies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DownloadTask{}, domain.ErrNotFound
		}
		return domain.DownloadTask{}, wrapRepo(err)
	}
	if movie.Cached() {
		return domain.DownloadTask{}, ErrAlreadyCached
	}
	// Stale downloading state from a crashed process still counts as a
	// conflict; the operator resolves it by clearing the cache entry.
	if movie.Status == domain.MovieDownloading {
		return domain.DownloadTask{}, ErrAlreadyInProgress
	}

	movie.Status = domain.MovieDownloading
	movie.UpdatedAt = now
	if err := uc.Movies.Update(ctx, movie); err != nil {
		return domain.DownloadTask{}, wrapRepo(err)
	}

	task, err := uc.Tasks.GetByMovie(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.DownloadTask{}, wrapRepo(err)
		}
		task = domain.DownloadTask{ID: domain.TaskID(uc.newID()), MovieID: id}
	}
	task.Status = domain.TaskInProgress
	task.BytesDownloaded = 0
	task.TotalBytes = 0
	task.ProgressPercent = 0
	task.ErrorMessage = ""
	task.StartedAt = now
	task.CompletedAt = time.Time{}
	if err := uc.Tasks.Upsert(ctx, task); err != nil {
		return domain.DownloadTask{}, wrapRepo(err)
	}

	return task, nil
}

func (uc *StartDownload) transfer(ctx context.Context, id domain.MovieID, task domain.DownloadTask) {
	defer uc.Guard.Release(id)
	if uc.OnDone != nil {
		defer uc.OnDone(id)
	}

	logger := uc.logger().With(slog.String("movieId", string(id)))
	metrics.TransfersStarted.Inc()
	metrics.ActiveTransfers.Inc()
	defer metrics.ActiveTransfers.Dec()

	movie, err := uc.Movies.Get(ctx, id)
	if err != nil {
		logger.Error("transfer aborted, movie load failed", slog.String("error", err.Error()))
		uc.fail(ctx, id, task, err)
		return
	}

	localPath := filepath.Join(uc.CacheDir, cacheFileName(movie))
	if err := os.MkdirAll(uc.CacheDir, 0o755); err != nil {
		uc.fail(ctx, id, task, err)
		return
	}

	if err := uc.fetch(ctx, movie, localPath, &task); err != nil {
		// Drop the partial file so a retry starts clean.
		_ = os.Remove(localPath)
		uc.fail(ctx, id, task, err)
		return
	}

	info, err := os.Stat(localPath)
	if err != nil {
		uc.fail(ctx, id, task, err)
		return
	}

	now := uc.now()
	movie, err = uc.Movies.Get(ctx, id)
	if err != nil {
		uc.fail(ctx, id, task, err)
		return
	}
	movie.LocalPath = localPath
	movie.FileSize = info.Size()
	movie.ContentType = ContentTypeForPath(localPath)
	movie.Status = domain.MovieReady
	movie.UpdatedAt = now
	if err := uc.Movies.Update(ctx, movie); err != nil {
		uc.fail(ctx, id, task, err)
		return
	}

	task.Status = domain.TaskCompleted
	task.BytesDownloaded = info.Size()
	task.TotalBytes = info.Size()
	task.ProgressPercent = 100
	task.CompletedAt = now
	if err := uc.Tasks.Upsert(ctx, task); err != nil {
		logger.Error("task completion write failed", slog.String("error", err.Error()))
	}

	metrics.TransfersCompleted.Inc()
	metrics.BytesDownloaded.Add(float64(info.Size()))
	uc.publish(task)
	logger.Info("transfer completed",
		slog.String("localPath", localPath),
		slog.Int64("bytes", info.Size()),
	)
}

// fetch routes the transfer to the CLI or HTTP transport and streams progress
// ticks into the task record. Ticks are eventually consistent; only the
// terminal write is authoritative.
func (uc *StartDownload) fetch(ctx context.Context, movie domain.Movie, localPath string, task *domain.DownloadTask) error {
	progress := func(bytesDownloaded, totalBytes int64, percent int) {
		if bytesDownloaded > 0 {
			task.BytesDownloaded = bytesDownloaded
		}
		if totalBytes > 0 {
			task.TotalBytes = totalBytes
		}
		switch {
		case percent >= 0:
			task.ProgressPercent = percent
		case totalBytes > 0:
			task.ProgressPercent = int(bytesDownloaded * 100 / totalBytes)
		}
		if err := uc.Tasks.UpdateProgress(ctx, task.ID, domain.TaskProgress{
			BytesDownloaded: task.BytesDownloaded,
			TotalBytes:      task.TotalBytes,
			ProgressPercent: task.ProgressPercent,
		}); err != nil {
			uc.logger().Debug("progress write failed", slog.String("error", err.Error()))
		}
		uc.publish(*task)
	}

	if isRemoteStoreRef(movie.RemoteRef) {
		fetchCtx := ctx
		if uc.CLITimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, uc.CLITimeout)
			defer cancel()
		}
		err := uc.CLI.Fetch(fetchCtx, movie.RemoteRef, localPath, progress)
		if err != nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, uc.CLITimeout)
		}
		return wrapTransfer(err)
	}
	return wrapTransfer(uc.HTTP.Fetch(ctx, movie.RemoteRef, localPath, progress))
}

func (uc *StartDownload) fail(ctx context.Context, id domain.MovieID, task domain.DownloadTask, cause error) {
	metrics.TransfersFailed.Inc()
	now := uc.now()

	if movie, err := uc.Movies.Get(ctx, id); err == nil {
		movie.Status = domain.MovieError
		movie.UpdatedAt = now
		if err := uc.Movies.Update(ctx, movie); err != nil {
			uc.logger().Error("movie error-state write failed", slog.String("error", err.Error()))
		}
	}

	task.Status = domain.TaskFailed
	task.ErrorMessage = cause.Error()
	task.CompletedAt = now
	if err := uc.Tasks.Upsert(ctx, task); err != nil {
		uc.logger().Error("task failure write failed", slog.String("error", err.Error()))
	}

	uc.publish(task)
	uc.logger().Warn("transfer failed",
		slog.String("movieId", string(id)),
		slog.String("error", cause.Error()),
	)
}

func (uc *StartDownload) publish(task domain.DownloadTask) {
	if uc.Events == nil {
		return
	}
	uc.Events.Publish(task)
}

func (uc *StartDownload) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc *StartDownload) newID() string {
	if uc.NewID != nil {
		return uc.NewID()
	}
	return uuid.NewString()
}

func (uc *StartDownload) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}

// isRemoteStoreRef reports whether the reference points at the cloud storage
// account, which is reachable only through its CLI tool. Anything else is
// fetched with plain HTTP.
func isRemoteStoreRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "mega:") {
		return true
	}
	if strings.Contains(ref, "mega.nz/") || strings.Contains(ref, "mega.co.nz/") {
		return true
	}
	// Bare remote paths (no scheme) come from the scanner and live on the
	// remote store as well.
	return !strings.Contains(ref, "://")
}

func cacheFileName(movie domain.Movie) string {
	base := path.Base(movie.RemotePath)
	if base == "." || base == "/" || base == "" {
		base = path.Base(movie.RemoteRef)
	}
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	return fmt.Sprintf("%s-%s", movie.ID, base)
}
