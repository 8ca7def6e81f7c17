package account

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Provider exposes the currently connected account.
type Provider interface {
	// Active returns the connected account or ErrNoActiveAccount.
	Active() (*Account, error)
}

// Holder is a Provider whose account can be switched or disconnected at runtime.
type Holder struct {
	mu        sync.RWMutex
	current   *Account
	listeners []func(prev, next common.Address)
}

var _ Provider = (*Holder)(nil)

// NewHolder creates a holder, optionally connected to acc.
func NewHolder(acc *Account) *Holder {
	return &Holder{current: acc}
}

// Active returns the connected account.
func (h *Holder) Active() (*Account, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil, ErrNoActiveAccount
	}
	return h.current, nil
}

// Set connects acc, replacing any previous account. Passing nil disconnects.
func (h *Holder) Set(acc *Account) {
	h.mu.Lock()
	var prev, next common.Address
	if h.current != nil {
		prev = h.current.Address()
	}
	if acc != nil {
		next = acc.Address()
	}
	h.current = acc
	listeners := append([]func(prev, next common.Address){}, h.listeners...)
	h.mu.Unlock()

	if prev == next {
		return
	}
	for _, fn := range listeners {
		fn(prev, next)
	}
}

// Clear disconnects the current account.
func (h *Holder) Clear() {
	h.Set(nil)
}

// OnChange registers fn to run after the connected address changes.
// A zero address means disconnected.
func (h *Holder) OnChange(fn func(prev, next common.Address)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}
