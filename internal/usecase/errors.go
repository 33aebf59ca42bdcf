package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCached     = errors.New("movie already cached")
	ErrAlreadyInProgress = errors.New("download already in progress")
	ErrNotReady          = errors.New("movie not cached yet")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrTimeout           = errors.New("transfer timed out")
	ErrRepository        = errors.New("repository error")
)

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

func wrapTransfer(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransferFailed, err)
}
