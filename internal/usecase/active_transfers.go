package usecase

import (
	"sync"

	"mediavault/internal/domain"
)

// TransferGuard gives the at-most-one-concurrent-transfer-per-movie guarantee.
// Claim returns true iff the caller now owns the transfer; Release is
// idempotent and always safe to call.
type TransferGuard interface {
	Claim(id domain.MovieID) bool
	Release(id domain.MovieID)
}

// ActiveTransfers is the process-wide TransferGuard backed by a concurrent
// set. The zero value is ready to use.
type ActiveTransfers struct {
	ids sync.Map
}

func NewActiveTransfers() *ActiveTransfers {
	return &ActiveTransfers{}
}

func (a *ActiveTransfers) Claim(id domain.MovieID) bool {
	_, loaded := a.ids.LoadOrStore(id, struct{}{})
	return !loaded
}

func (a *ActiveTransfers) Release(id domain.MovieID) {
	a.ids.Delete(id)
}

// Count returns the number of transfers currently claimed.
func (a *ActiveTransfers) Count() int {
	n := 0
	a.ids.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
