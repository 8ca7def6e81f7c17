package tokenstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// TokenDao maps to the 'custom_tokens' table in PostgreSQL.
type TokenDao struct {
	bun.BaseModel `bun:"table:custom_tokens,alias:ct"`
	Address       string    `bun:"address,pk,type:varchar(42)"`
	Name          string    `bun:"name,notnull,type:varchar(255)"`
	Symbol        string    `bun:"symbol,notnull,type:varchar(64)"`
	Decimals      int16     `bun:"decimals,notnull"`
	TokenType     *string   `bun:"token_type,type:varchar(16)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func toTokenDao(tkn *CustomToken) *TokenDao {
	dao := &TokenDao{
		Address:   ethereum.NormalizeAddress(tkn.Address),
		Name:      tkn.Name,
		Symbol:    tkn.Symbol,
		Decimals:  int16(tkn.Decimals),
		CreatedAt: tkn.CreatedAt,
	}
	if tkn.Type != "" {
		t := string(tkn.Type)
		dao.TokenType = &t
	}
	return dao
}

func fromTokenDao(dao *TokenDao) *CustomToken {
	tkn := &CustomToken{
		Address:   dao.Address,
		Name:      dao.Name,
		Symbol:    dao.Symbol,
		Decimals:  uint8(dao.Decimals),
		CreatedAt: dao.CreatedAt,
	}
	if dao.TokenType != nil {
		// an unknown tag is treated as unclassified
		if t, err := token.ParseType(*dao.TokenType); err == nil {
			tkn.Type = t
		}
	}
	return tkn
}
