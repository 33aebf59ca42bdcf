// Package mega drives the remote cloud-storage account through its command
// line tools: one command lists a remote folder, another fetches a file to a
// local path. The tools are external collaborators; this package owns their
// process lifecycle and turns their line output into typed values.
package mega

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
)

var percentRe = regexp.MustCompile(`(\d{1,3})\s*%`)

type Client struct {
	ListPath  string // mega-ls binary
	FetchPath string // mega-get binary
	Logger    *slog.Logger
}

func NewClient(listPath, fetchPath string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{ListPath: listPath, FetchPath: fetchPath, Logger: logger}
}

// List enumerates one remote folder.
func (c *Client) List(ctx context.Context, remotePath string) ([]domain.RemoteEntry, error) {
	cmd := exec.CommandContext(ctx, c.ListPath, "-l", remotePath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s -l %s: %w (%s)", c.ListPath, remotePath, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return ParseListing(string(output)), nil
}

// Fetch copies one remote file to localPath. The tool's combined output is
// scanned line by line for `NN%` tokens; this transport only ever observes a
// percentage, so progress ticks carry percent with zero byte counts. When ctx
// expires the subprocess is killed, there is no cooperative cancellation.
func (c *Client) Fetch(ctx context.Context, remoteRef, localPath string, progress ports.ProgressFunc) error {
	cmd := exec.CommandContext(ctx, c.FetchPath, remoteRef, localPath)
	cmd.WaitDelay = 5 * time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return fmt.Errorf("start %s: %w", c.FetchPath, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.scanProgress(pr, remoteRef, progress)
	}()

	err := cmd.Wait()
	pw.Close()
	<-done

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.FetchPath, remoteRef, err)
	}
	return nil
}

func (c *Client) scanProgress(r io.Reader, remoteRef string, progress ports.ProgressFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanLinesCR)
	lastPercent := -1
	for scanner.Scan() {
		match := percentRe.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		percent, err := strconv.Atoi(match[1])
		if err != nil || percent < 0 || percent > 100 || percent == lastPercent {
			continue
		}
		lastPercent = percent
		c.Logger.Debug("transfer progress",
			slog.String("remoteRef", remoteRef),
			slog.Int("percent", percent),
		)
		if progress != nil {
			progress(0, 0, percent)
		}
	}
}

// scanLinesCR splits on \n and bare \r so in-place progress updates, which
// the tool redraws with carriage returns, come through as separate lines.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
