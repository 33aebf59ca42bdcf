package ports

import (
	"context"

	"mediavault/internal/domain"
)

// RemoteLister enumerates one folder of the remote store.
type RemoteLister interface {
	List(ctx context.Context, remotePath string) ([]domain.RemoteEntry, error)
}

// ProgressFunc receives transfer progress ticks. bytesDownloaded and
// totalBytes are zero when the transport only observes a percentage,
// percent is -1 when the transport only observes byte counts.
type ProgressFunc func(bytesDownloaded, totalBytes int64, percent int)

// Transport copies one remote file to a local path, reporting progress along
// the way. Implementations must honor ctx cancellation by terminating the
// transfer and returning ctx.Err().
type Transport interface {
	Fetch(ctx context.Context, remoteRef, localPath string, progress ProgressFunc) error
}
