// Package httpget fetches remote files over plain HTTP. It is the fallback
// transport for movies whose remote reference is an ordinary URL rather than
// a cloud-store locator.
package httpget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mediavault/internal/domain/ports"
)

const (
	copyBufferSize    = 256 << 10
	progressEveryByte = 1 << 20 // at least one tick per MiB transferred
)

type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{Timeout: 0}}
}

// Fetch GETs remoteRef into localPath. Content-Length, when present, is
// reported as the total; progress ticks carry byte counts with percent -1
// since this transport never observes a percentage directly.
func (c *Client) Fetch(ctx context.Context, remoteRef, localPath string, progress ports.ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteRef, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "mediavault/1.0")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %s", remoteRef, resp.Status)
	}

	totalBytes := resp.ContentLength
	if totalBytes < 0 {
		totalBytes = 0
	}

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var written, lastTick int64
	lastTime := time.Now()
	buf := make([]byte, copyBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			written += int64(n)
			if progress != nil && (written-lastTick >= progressEveryByte || time.Since(lastTime) >= time.Second) {
				lastTick = written
				lastTime = time.Now()
				progress(written, totalBytes, -1)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if progress != nil {
		progress(written, totalBytes, -1)
	}
	return f.Sync()
}
