package tokenstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// MemoryStore keeps custom tokens in process memory.
// It is used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]CustomToken
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]CustomToken),
		now:    time.Now,
	}
}

func (s *MemoryStore) AddToken(_ context.Context, tkn *CustomToken) error {
	if err := validate(tkn); err != nil {
		return err
	}
	key := ethereum.NormalizeAddress(tkn.Address)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[key]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, key)
	}
	stored := *tkn
	stored.Address = key
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.tokens[key] = stored
	tkn.CreatedAt = stored.CreatedAt
	return nil
}

func (s *MemoryStore) GetToken(_ context.Context, address string) (*CustomToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tkn, ok := s.tokens[ethereum.NormalizeAddress(address)]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &tkn, nil
}

func (s *MemoryStore) ListTokens(_ context.Context) ([]*CustomToken, error) {
	s.mu.RLock()
	tokens := make([]*CustomToken, 0, len(s.tokens))
	for _, tkn := range s.tokens {
		tkn := tkn
		tokens = append(tokens, &tkn)
	}
	s.mu.RUnlock()

	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].Address < tokens[j].Address
		}
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (s *MemoryStore) RemoveToken(_ context.Context, address string) error {
	key := ethereum.NormalizeAddress(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[key]; !ok {
		return ErrTokenNotFound
	}
	delete(s.tokens, key)
	return nil
}

func (s *MemoryStore) RecordTokenType(_ context.Context, address string, t token.Type) error {
	key := ethereum.NormalizeAddress(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	tkn, ok := s.tokens[key]
	if !ok {
		return nil
	}
	tkn.Type = t
	s.tokens[key] = tkn
	return nil
}
