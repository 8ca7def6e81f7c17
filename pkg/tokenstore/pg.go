package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the token store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) AddToken(ctx context.Context, tkn *CustomToken) error {
	if err := validate(tkn); err != nil {
		return err
	}
	dao := toTokenDao(tkn)

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("created_at").
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return fmt.Errorf("%w: %s", ErrTokenExists, dao.Address)
		}
		return fmt.Errorf("failed to add token: %w", err)
	}
	tkn.CreatedAt = dao.CreatedAt
	return nil
}

func (s *pgStore) GetToken(ctx context.Context, address string) (*CustomToken, error) {
	dao := new(TokenDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("address = ?", ethereum.NormalizeAddress(address)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return fromTokenDao(dao), nil
}

func (s *pgStore) ListTokens(ctx context.Context) ([]*CustomToken, error) {
	var daos []TokenDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("created_at ASC", "address ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	tokens := make([]*CustomToken, 0, len(daos))
	for i := range daos {
		tokens = append(tokens, fromTokenDao(&daos[i]))
	}
	return tokens, nil
}

func (s *pgStore) RemoveToken(ctx context.Context, address string) error {
	res, err := s.db.NewDelete().
		Model((*TokenDao)(nil)).
		Where("address = ?", ethereum.NormalizeAddress(address)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *pgStore) RecordTokenType(ctx context.Context, address string, t token.Type) error {
	_, err := s.db.NewUpdate().
		Model((*TokenDao)(nil)).
		Set("token_type = ?", string(t)).
		Where("address = ?", ethereum.NormalizeAddress(address)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record token type: %w", err)
	}
	return nil
}

func validate(tkn *CustomToken) error {
	if tkn == nil {
		return errors.New("token is required")
	}
	if _, err := ethereum.ParseAddress(tkn.Address); err != nil {
		return err
	}
	if tkn.Type != "" {
		if _, err := token.ParseType(string(tkn.Type)); err != nil {
			return err
		}
	}
	return nil
}
