package account

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
)

var (
	ErrUnknownWallet   = errors.New("unknown wallet")
	ErrDuplicateWallet = errors.New("wallet already loaded")
)

// Wallet describes a loaded account without exposing its key.
type Wallet struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
	Active  bool           `json:"active"`
}

type entry struct {
	name string
	acc  *Account
}

// Keyring is the set of accounts the wallet can switch between. The embedded
// Holder carries the active one, so switches notify OnChange listeners.
type Keyring struct {
	*Holder

	mu      sync.RWMutex
	entries []entry
}

var _ Provider = (*Keyring)(nil)

// NewKeyring creates an empty, disconnected keyring.
func NewKeyring() *Keyring {
	return &Keyring{Holder: NewHolder(nil)}
}

// Add loads acc under name. The first account added becomes active.
func (k *Keyring) Add(name string, acc *Account) error {
	if acc == nil {
		return fmt.Errorf("wallet %q: nil account", name)
	}
	k.mu.Lock()
	for _, e := range k.entries {
		if e.acc.Address() == acc.Address() {
			k.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateWallet, acc.Address().Hex())
		}
	}
	k.entries = append(k.entries, entry{name: name, acc: acc})
	first := len(k.entries) == 1
	k.mu.Unlock()

	if first {
		k.Set(acc)
	}
	return nil
}

// Wallets lists the loaded accounts in load order.
func (k *Keyring) Wallets() []Wallet {
	var active common.Address
	if acc, err := k.Active(); err == nil {
		active = acc.Address()
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]Wallet, 0, len(k.entries))
	for _, e := range k.entries {
		out = append(out, Wallet{Name: e.name, Address: e.acc.Address(), Active: e.acc.Address() == active})
	}
	return out
}

// Switch makes the loaded account at address active.
func (k *Keyring) Switch(address string) (Wallet, error) {
	addr, err := ethereum.ParseAddress(address)
	if err != nil {
		return Wallet{}, err
	}

	k.mu.RLock()
	var found *entry
	for i := range k.entries {
		if k.entries[i].acc.Address() == addr {
			found = &k.entries[i]
			break
		}
	}
	k.mu.RUnlock()
	if found == nil {
		return Wallet{}, fmt.Errorf("%w: %s", ErrUnknownWallet, addr.Hex())
	}

	k.Set(found.acc)
	return Wallet{Name: found.name, Address: addr, Active: true}, nil
}

// Disconnect clears the active account. Loaded accounts stay available.
func (k *Keyring) Disconnect() {
	k.Clear()
}

// LoadKeyring loads the primary account and every configured wallet from the
// environment. A missing primary key leaves it out; a listed wallet without a
// key is an error.
func LoadKeyring(cfg *config.AccountConfig) (*Keyring, error) {
	k := NewKeyring()

	primary, err := LoadFromEnv(cfg)
	switch {
	case errors.Is(err, ErrNoActiveAccount):
	case err != nil:
		return nil, fmt.Errorf("load primary account: %w", err)
	default:
		if err := k.Add(cfg.Name, primary); err != nil {
			return nil, err
		}
	}

	for _, w := range cfg.Wallets {
		acc, err := loadKey(w.PrivateKeyEnv, cfg.MasterKeyEnv)
		if errors.Is(err, ErrNoActiveAccount) {
			return nil, fmt.Errorf("wallet %q: no key in %s", w.Name, w.PrivateKeyEnv)
		}
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", w.Name, err)
		}
		if err := k.Add(w.Name, acc); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func loadKey(keyEnv, masterKeyEnv string) (*Account, error) {
	raw := strings.TrimSpace(os.Getenv(keyEnv))
	if raw == "" {
		return nil, ErrNoActiveAccount
	}
	if masterKeyEnv == "" {
		return FromHex(raw)
	}

	masterKey, err := hexutil.Decode(strings.TrimSpace(os.Getenv(masterKeyEnv)))
	if err != nil {
		return nil, fmt.Errorf("invalid master key in %s: %w", masterKeyEnv, err)
	}
	key, err := DecryptPrivateKey(raw, masterKey)
	if err != nil {
		return nil, err
	}
	return FromBytes(key)
}
